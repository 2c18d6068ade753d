package hostprobe

import (
	"log/slog"
	"time"

	"github.com/jpalmerr/hostprobe/internal/probe"
)

// Classification is the outcome bucket of a single probe attempt.
//
// Classification is a string type holding one of three predefined values:
// [ClassSuccess], [ClassFailed] or [ClassError]. Using a string type keeps
// JSON output and logs human-readable.
type Classification string

const (
	// ClassSuccess indicates the host answered with a status code below 400.
	ClassSuccess Classification = "Success"

	// ClassFailed indicates the host answered with a status code from 400 to 599.
	// Failed attempts are still timed.
	ClassFailed Classification = "Failed"

	// ClassError indicates no usable response was received: timeout, refused
	// connection, DNS or TLS failure, or any other transport fault.
	ClassError Classification = "Error"
)

// String returns the string representation of the classification.
// This implements the fmt.Stringer interface.
func (c Classification) String() string {
	return string(c)
}

// Attempt is the outcome of one request against a target, as delivered to
// callbacks registered with [WithAttemptCallback].
type Attempt struct {
	// Target is the probed URL.
	Target string

	// Classification is the outcome bucket.
	Classification Classification

	// Latency is the time until response headers arrived. Zero unless Timed.
	Latency time.Duration

	// Timed reports whether a response was received and timed.
	Timed bool

	// Err holds the fault behind a [ClassError] attempt.
	Err error
}

// LatencyStats holds latency statistics over the timed attempts of a target.
//
// A LatencyStats with Samples == 0 means "no data": none of the attempts
// received a response. Use [LatencyStats.HasData] to tell it apart from a
// genuine zero-duration measurement.
type LatencyStats struct {
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
	Samples int
}

// HasData reports whether at least one attempt contributed a latency.
func (s LatencyStats) HasData() bool {
	return s.Samples > 0
}

// Summary holds the aggregated outcome of probing a single target.
//
// Summary is immutable after creation. Success, Failed and Error always add
// up to the configured sample count unless Err is set.
type Summary struct {
	// Target is the probed URL.
	Target string

	// Success is the number of attempts answered with a status below 400.
	Success int

	// Failed is the number of attempts answered with a status from 400 to 599.
	Failed int

	// Error is the number of attempts that received no usable response.
	Error int

	// Latency is computed over Success and Failed attempts only.
	Latency LatencyStats

	// Err is non-nil when the target could not be probed at all: its task
	// panicked, or the run was cancelled before the target was started.
	// All counts are zero in that case.
	Err error
}

// Total returns Success + Failed + Error.
func (s Summary) Total() int {
	return s.Success + s.Failed + s.Error
}

// ResultSet is the collection of summaries produced by one run, one per
// target, in the order the targets were configured.
type ResultSet []Summary

// toPublicClassification converts an internal classification to the public API type.
func toPublicClassification(c probe.Classification) Classification {
	switch c {
	case probe.Success:
		return ClassSuccess
	case probe.Failed:
		return ClassFailed
	default:
		return ClassError
	}
}

// toPublicAttempt converts an internal attempt to the public API type.
func toPublicAttempt(target string, a probe.Attempt) Attempt {
	out := Attempt{
		Target:         target,
		Classification: toPublicClassification(a.Classification),
		Timed:          a.Timed,
		Err:            a.Err,
	}
	if a.Timed {
		out.Latency = a.Latency
	}
	return out
}

// attemptObserver delivers every finished probe to the attempt callbacks.
type attemptObserver struct {
	callbacks []func(Attempt)
	logger    *slog.Logger
}

func (o attemptObserver) ProbeStarted(target string) {}

func (o attemptObserver) ProbeFinished(target string, attempt probe.Attempt) {
	public := toPublicAttempt(target, attempt)
	for _, cb := range o.callbacks {
		o.invokeSafe(cb, public)
	}
}

func (o attemptObserver) TargetDone(summary probe.Summary) {}

// invokeSafe calls an attempt callback with panic recovery.
func (o attemptObserver) invokeSafe(cb func(Attempt), a Attempt) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("attempt callback panicked",
				"panic", r,
				"target", a.Target,
			)
		}
	}()
	cb(a)
}

// toPublicSummary converts an internal summary to the public API type.
func toPublicSummary(s probe.Summary) Summary {
	return Summary{
		Target:  s.Target,
		Success: s.Success,
		Failed:  s.Failed,
		Error:   s.Error,
		Latency: LatencyStats{
			Min:     s.Latency.Min,
			Max:     s.Latency.Max,
			Avg:     s.Latency.Avg,
			Samples: s.Latency.Samples,
		},
		Err: s.Err,
	}
}

// toPublicResultSet converts an internal result set to the public API type.
func toPublicResultSet(set probe.ResultSet) ResultSet {
	out := make(ResultSet, len(set))
	for i, s := range set {
		out[i] = toPublicSummary(s)
	}
	return out
}
