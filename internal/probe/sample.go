package probe

import (
	"context"
	"time"
)

// Sample probes target count times, strictly one after another, and returns
// every attempt in call order.
//
// Each attempt completes (success, failure or error) before the next one
// starts, so a host never sees more than one in-flight probe from a run.
// count must be at least 1; callers validate it upstream.
func Sample(ctx context.Context, p Prober, target string, count int) []Attempt {
	attempts := make([]Attempt, 0, count)
	for i := 0; i < count; i++ {
		attempts = append(attempts, p.Probe(ctx, target))
	}
	return attempts
}

// LatencyStats summarises the timed attempts of a sample set.
//
// Samples == 0 is the "no data" state: no attempt carried a latency. It is
// distinct from a genuine zero-duration measurement, which has Samples > 0.
type LatencyStats struct {
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
	Samples int
}

// HasData reports whether at least one latency contributed to the stats.
func (s LatencyStats) HasData() bool {
	return s.Samples > 0
}

// Summary is the aggregated view of one target's sample set.
type Summary struct {
	// Target is the probed URL.
	Target string

	// Index is the target's position in the run's input.
	Index int

	Success int
	Failed  int
	Error   int

	// Latency is computed over timed attempts only.
	Latency LatencyStats

	// Err is set when the task for this target faulted or was skipped.
	// Counts are zero in that case.
	Err error
}

// Total returns the number of attempts that were aggregated.
func (s Summary) Total() int {
	return s.Success + s.Failed + s.Error
}

// Aggregate reduces a sample set into a [Summary]. It is pure.
func Aggregate(target string, attempts []Attempt) Summary {
	summary := Summary{Target: target}

	var sum time.Duration
	for _, a := range attempts {
		switch a.Classification {
		case Success:
			summary.Success++
		case Failed:
			summary.Failed++
		default:
			summary.Error++
		}

		if !a.Timed {
			continue
		}
		if summary.Latency.Samples == 0 || a.Latency < summary.Latency.Min {
			summary.Latency.Min = a.Latency
		}
		if summary.Latency.Samples == 0 || a.Latency > summary.Latency.Max {
			summary.Latency.Max = a.Latency
		}
		sum += a.Latency
		summary.Latency.Samples++
	}

	if summary.Latency.Samples > 0 {
		summary.Latency.Avg = sum / time.Duration(summary.Latency.Samples)
	}

	return summary
}
