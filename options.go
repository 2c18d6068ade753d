package hostprobe

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MaxWorkerLimit is the largest accepted worker limit.
const MaxWorkerLimit = 1000

// runConfig holds mutable state during Runner construction.
type runConfig struct {
	targets          []string
	count            int
	workerLimit      int
	timeout          time.Duration
	runTimeout       time.Duration
	logger           *slog.Logger
	summaryCallbacks []func(Summary)
	attemptCallbacks []func(Attempt)
	transport        Transport
	userAgent        string
	metricsFile      string
	registry         *prometheus.Registry
}

// Option is a function that configures a [Runner] during construction.
//
// Option implements the functional options pattern. Options return an error
// if validation fails, and [New] stops at the first failing option.
//
// Built-in options: [WithTargets], [WithSampleCount], [WithWorkerLimit],
// [WithTimeout], [WithRunTimeout], [WithLogger], [WithSummaryCallback],
// [WithTransport], [WithUserAgent], [WithMetricsFile], [WithMetricsRegistry].
type Option func(*runConfig) error

// WithTargets adds URLs to the probe list.
//
// Can be called multiple times; targets are probed and reported in the order
// they were added. Targets are opaque to the runner: an unreachable or
// malformed URL simply yields Error attempts.
//
// Example:
//
//	r, err := hostprobe.New(
//	    hostprobe.WithTargets("https://example.com", "https://example.org"),
//	)
func WithTargets(targets ...string) Option {
	return func(cfg *runConfig) error {
		cfg.targets = append(cfg.targets, targets...)
		return nil
	}
}

// WithSampleCount sets how many sequential requests are made per target.
// Defaults to 1.
//
// Returns an error if n is zero or negative.
func WithSampleCount(n int) Option {
	return func(cfg *runConfig) error {
		if n < 1 {
			return fmt.Errorf("sample count must be at least 1, got %d", n)
		}
		cfg.count = n
		return nil
	}
}

// WithWorkerLimit sets the maximum number of targets probed at the same time.
// Defaults to 20.
//
// Returns an error if n is outside 1..[MaxWorkerLimit].
func WithWorkerLimit(n int) Option {
	return func(cfg *runConfig) error {
		if n < 1 || n > MaxWorkerLimit {
			return fmt.Errorf("worker limit must be between 1 and %d, got %d", MaxWorkerLimit, n)
		}
		cfg.workerLimit = n
		return nil
	}
}

// WithTimeout sets the per-request timeout. A request that has not received
// response headers within d is classified as [ClassError]. Defaults to 5 seconds.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) Option {
	return func(cfg *runConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithRunTimeout bounds the total duration of a run.
//
// Targets that have not started when the deadline passes are reported with
// [Summary.Err] set. Zero disables the deadline.
//
// Returns an error if the duration is negative.
func WithRunTimeout(d time.Duration) Option {
	return func(cfg *runConfig) error {
		if d < 0 {
			return errors.New("run timeout cannot be negative")
		}
		cfg.runTimeout = d
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for run events.
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *runConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithSummaryCallback registers a function to be called once per finished target.
//
// Callbacks are invoked from a single goroutine in completion order, which is
// not necessarily input order. Multiple callbacks execute in registration
// order. Panics within callbacks are recovered and logged.
//
// Callbacks must be non-blocking; a slow callback delays [Runner.Run]'s return.
//
// Example:
//
//	r, err := hostprobe.New(
//	    hostprobe.WithTargets(urls...),
//	    hostprobe.WithSummaryCallback(func(s hostprobe.Summary) {
//	        if s.Error > 0 {
//	            log.Printf("%s: %d errors", s.Target, s.Error)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithSummaryCallback(cb func(Summary)) Option {
	return func(cfg *runConfig) error {
		if cb == nil {
			return nil
		}
		cfg.summaryCallbacks = append(cfg.summaryCallbacks, cb)
		return nil
	}
}

// WithAttemptCallback registers a function to be called after every single
// request, with its [Classification] and latency.
//
// Callbacks are invoked from the worker goroutines, so they run concurrently
// for different targets and must be safe for concurrent use. Attempts of one
// target arrive in request order. Panics within callbacks are recovered and
// logged.
//
// Nil callbacks are silently ignored.
func WithAttemptCallback(cb func(Attempt)) Option {
	return func(cfg *runConfig) error {
		if cb == nil {
			return nil
		}
		cfg.attemptCallbacks = append(cfg.attemptCallbacks, cb)
		return nil
	}
}

// WithTransport replaces the default pooled HTTP client.
//
// Returns an error if the transport is nil.
func WithTransport(t Transport) Option {
	return func(cfg *runConfig) error {
		if t == nil {
			return errors.New("transport cannot be nil")
		}
		cfg.transport = t
		return nil
	}
}

// WithUserAgent sets the User-Agent header sent by the default client.
// It has no effect when [WithTransport] is used.
func WithUserAgent(ua string) Option {
	return func(cfg *runConfig) error {
		cfg.userAgent = ua
		return nil
	}
}

// WithMetricsFile enables Prometheus instrumentation of the run and writes the
// collected metrics to path in the text exposition format once the run ends.
//
// Returns an error if the path is empty.
func WithMetricsFile(path string) Option {
	return func(cfg *runConfig) error {
		if path == "" {
			return errors.New("metrics file path cannot be empty")
		}
		cfg.metricsFile = path
		return nil
	}
}

// WithMetricsRegistry enables Prometheus instrumentation of the run and
// registers the collectors in reg, so they can be served while the run is in
// progress. Repeated runs accumulate into the same collectors.
//
// When combined with [WithMetricsFile], the file holds everything in reg.
//
// Returns an error if the registry is nil.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(cfg *runConfig) error {
		if reg == nil {
			return errors.New("metrics registry cannot be nil")
		}
		cfg.registry = reg
		return nil
	}
}
