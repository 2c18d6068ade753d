package report

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/jpalmerr/hostprobe"
)

// WriteText writes one block per host:
//
//	Host: https://example.com
//	Success: 3
//	Failed: 0
//	Error: 0
//	Min: 41.203ms
//	Max: 58.911ms
//	Avg: 47.5ms
//
// Blocks are separated by a blank line. A host whose task could not run gets
// an extra Fault line.
func WriteText(w io.Writer, results hostprobe.ResultSet) error {
	bw := bufio.NewWriter(w)

	for i, s := range results {
		if i > 0 {
			fmt.Fprintln(bw)
		}
		fmt.Fprintf(bw, "Host: %s\n", s.Target)
		fmt.Fprintf(bw, "Success: %d\n", s.Success)
		fmt.Fprintf(bw, "Failed: %d\n", s.Failed)
		fmt.Fprintf(bw, "Error: %d\n", s.Error)
		fmt.Fprintf(bw, "Min: %s\n", formatLatency(s.Latency.Min, s.Latency.HasData()))
		fmt.Fprintf(bw, "Max: %s\n", formatLatency(s.Latency.Max, s.Latency.HasData()))
		fmt.Fprintf(bw, "Avg: %s\n", formatLatency(s.Latency.Avg, s.Latency.HasData()))
		if s.Err != nil {
			fmt.Fprintf(bw, "Fault: %s\n", s.Err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// formatLatency renders d rounded to the microsecond, or "no data".
func formatLatency(d time.Duration, ok bool) string {
	if !ok {
		return noData
	}
	return d.Round(time.Microsecond).String()
}
