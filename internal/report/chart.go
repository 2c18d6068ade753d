package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/jpalmerr/hostprobe"
)

const (
	chartHeight     = 500
	chartMinWidth   = 600
	chartBarWidth   = 40
	chartBarSpacing = 60
)

// WriteChart renders a PNG bar chart of the average latency per host.
// Hosts without latency data are drawn as zero-height bars.
func WriteChart(w io.Writer, results hostprobe.ResultSet) error {
	if len(results) == 0 {
		return errors.New("no results to chart")
	}

	bars := make([]chart.Value, len(results))
	maxMS := 0.0
	for i, s := range results {
		var avg float64
		if s.Latency.HasData() {
			avg = float64(s.Latency.Avg) / float64(time.Millisecond)
		}
		maxMS = max(maxMS, avg)
		bars[i] = chart.Value{
			Label: s.Target,
			Value: avg,
		}
	}

	// a flat range breaks the renderer, so keep a floor above zero
	top := max(maxMS*1.1, 1)

	graph := chart.BarChart{
		Title: "Average latency (ms)",
		TitleStyle: chart.Style{
			FontSize: 16,
		},
		Background: chart.Style{
			Padding: chart.Box{
				Top:    40,
				Left:   20,
				Right:  20,
				Bottom: 20,
			},
		},
		Width:      max(chartMinWidth, len(bars)*(chartBarWidth+chartBarSpacing)+100),
		Height:     chartHeight,
		BarWidth:   chartBarWidth,
		BarSpacing: chartBarSpacing,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{
				Min: 0,
				Max: top,
			},
			Style: chart.Style{
				FontSize: 10,
			},
		},
		Bars: bars,
	}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// WriteChartFile renders the chart into a new file at path.
func WriteChartFile(path string, results hostprobe.ResultSet) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}

	if err := WriteChart(file, results); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close chart file: %w", err)
	}
	return nil
}
