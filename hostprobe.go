package hostprobe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/hostprobe/internal/metrics"
	"github.com/jpalmerr/hostprobe/internal/probe"
)

// Defaults applied by [New].
const (
	DefaultSampleCount = 1
	DefaultWorkerLimit = probe.DefaultWorkerLimit
	DefaultTimeout     = probe.DefaultTimeout
)

// Transport performs a single GET and reports the status code and the time
// until response headers arrived. Any failure to obtain a response is
// returned as an error.
//
// Implementations must be safe for concurrent use.
type Transport = probe.Transport

// Runner probes a fixed list of targets and aggregates the results.
//
// A Runner is created with [New] and can be run any number of times; every
// call to [Runner.Run] starts from scratch and shares nothing with earlier runs.
//
//	r, err := hostprobe.New(
//	    hostprobe.WithTargets("https://example.com"),
//	    hostprobe.WithSampleCount(5),
//	)
//	if err != nil {
//	    slog.Error("failed to create runner", "error", err)
//	    os.Exit(1)
//	}
//
//	results, err := r.Run(ctx)
type Runner struct {
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

// New creates a new [Runner] with the given options.
//
// At least one target must be configured via [WithTargets]. Other options
// have defaults:
//   - Sample count: 1
//   - Worker limit: 20
//   - Timeout: 5 seconds
//   - Run timeout: none
//
// Returns an error if no targets are configured or if any option is invalid.
func New(opts ...Option) (*Runner, error) {
	cfg := &runConfig{
		count:       DefaultSampleCount,
		workerLimit: DefaultWorkerLimit,
		timeout:     DefaultTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.targets) == 0 {
		return nil, errors.New("at least one target is required")
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	targets := make([]string, len(cfg.targets))
	copy(targets, cfg.targets)

	return &Runner{
		targets:          targets,
		count:            cfg.count,
		workerLimit:      cfg.workerLimit,
		timeout:          cfg.timeout,
		runTimeout:       cfg.runTimeout,
		logger:           logger,
		summaryCallbacks: cfg.summaryCallbacks,
		attemptCallbacks: cfg.attemptCallbacks,
		transport:        cfg.transport,
		userAgent:        cfg.userAgent,
		metricsFile:      cfg.metricsFile,
		registry:         cfg.registry,
	}, nil
}

// Run probes every target and blocks until all of them are done.
//
// The returned [ResultSet] always holds exactly one [Summary] per target, in
// the order the targets were configured, even when ctx is cancelled part way:
// targets that never started carry [Summary.Err].
//
// The returned error is non-nil only if ctx was cancelled by the caller or
// metrics could not be registered or written. The results are valid whenever
// they are non-nil.
func (r *Runner) Run(ctx context.Context) (ResultSet, error) {
	transport := r.transport
	if transport == nil {
		client := probe.NewClient(r.userAgent)
		defer client.Close()
		transport = client
	}

	opts := []probe.SchedulerOption{
		probe.WithRunTimeout(r.runTimeout),
	}
	for _, cb := range r.summaryCallbacks {
		opts = append(opts, probe.WithSummaryHook(func(s probe.Summary) {
			cb(toPublicSummary(s))
		}))
	}

	if len(r.attemptCallbacks) > 0 {
		opts = append(opts, probe.WithObserver(attemptObserver{
			callbacks: r.attemptCallbacks,
			logger:    r.logger,
		}))
	}

	var recorder *metrics.Recorder
	switch {
	case r.registry != nil:
		rec, err := metrics.NewRecorderWith(r.registry)
		if err != nil {
			return nil, err
		}
		recorder = rec
	case r.metricsFile != "":
		recorder = metrics.NewRecorder()
	}
	if recorder != nil {
		opts = append(opts, probe.WithObserver(recorder))
	}

	scheduler := probe.NewScheduler(
		probe.NewHTTPProber(transport, r.timeout),
		r.count,
		r.workerLimit,
		r.logger,
		opts...,
	)
	results := toPublicResultSet(scheduler.Run(ctx, r.targets))

	if r.metricsFile != "" {
		if err := recorder.WriteTextfile(r.metricsFile); err != nil {
			return results, err
		}
		r.logger.Debug("metrics written", "path", r.metricsFile)
	}

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("run interrupted: %w", err)
	}
	return results, nil
}

// Targets returns a copy of the configured targets.
func (r *Runner) Targets() []string {
	cp := make([]string, len(r.targets))
	copy(cp, r.targets)
	return cp
}

// SampleCount returns the number of attempts made per target.
func (r *Runner) SampleCount() int {
	return r.count
}

// WorkerLimit returns the maximum number of targets probed concurrently.
func (r *Runner) WorkerLimit() int {
	return r.workerLimit
}

// Timeout returns the per-request timeout.
func (r *Runner) Timeout() time.Duration {
	return r.timeout
}
