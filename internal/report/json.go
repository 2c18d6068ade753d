package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jpalmerr/hostprobe"
)

// JSONSummary is the wire shape of one host in JSON reports.
// Latency fields are null when the host has no latency data.
type JSONSummary struct {
	Host    string   `json:"host"`
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Error   int      `json:"error"`
	MinMS   *float64 `json:"min_ms"`
	MaxMS   *float64 `json:"max_ms"`
	AvgMS   *float64 `json:"avg_ms"`
	Fault   string   `json:"fault,omitempty"`
}

// WriteJSON writes results as an indented JSON array in input order.
func WriteJSON(w io.Writer, results hostprobe.ResultSet) error {
	out := make([]JSONSummary, len(results))
	for i, s := range results {
		out[i] = NewJSONSummary(s)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// NewJSONSummary converts s to its JSON wire shape.
func NewJSONSummary(s hostprobe.Summary) JSONSummary {
	out := JSONSummary{
		Host:    s.Target,
		Success: s.Success,
		Failed:  s.Failed,
		Error:   s.Error,
	}
	if s.Latency.HasData() {
		out.MinMS = millis(s.Latency.Min)
		out.MaxMS = millis(s.Latency.Max)
		out.AvgMS = millis(s.Latency.Avg)
	}
	if s.Err != nil {
		out.Fault = s.Err.Error()
	}
	return out
}

func millis(d time.Duration) *float64 {
	ms := float64(d.Round(time.Microsecond)) / float64(time.Millisecond)
	return &ms
}
