package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/hostprobe/internal/store"
)

var errProbePanicked = errors.New("probe panicked")

// DefaultWorkerLimit is the number of targets probed concurrently when no
// limit is configured.
const DefaultWorkerLimit = 20

// ResultSet holds one [Summary] per target of a run, in input order.
type ResultSet []Summary

// Observer receives instrumentation events from a run.
//
// ProbeStarted and ProbeFinished bracket every single probe and are called
// from worker goroutines, so implementations must be safe for concurrent use.
// TargetDone is called once per target after its summary is stored.
type Observer interface {
	ProbeStarted(target string)
	ProbeFinished(target string, attempt Attempt)
	TargetDone(summary Summary)
}

// Scheduler probes many targets concurrently with a bounded worker pool.
//
// Each target is one task: its attempts are sampled sequentially and then
// aggregated. At most workerLimit tasks run at the same time; the rest wait
// in the job queue. A fault in one task is recorded on that target's summary
// and never aborts the others.
type Scheduler struct {
	prober      Prober
	count       int
	workerLimit int
	runTimeout  time.Duration
	logger      *slog.Logger
	observer    Observer
	onSummary   []func(Summary)
}

// SchedulerOption configures optional [Scheduler] behaviour.
type SchedulerOption func(*Scheduler)

// WithObserver attaches an [Observer] to every run. Repeated use attaches
// every observer; they are notified in registration order.
func WithObserver(o Observer) SchedulerOption {
	return func(s *Scheduler) {
		switch current := s.observer.(type) {
		case nil:
			s.observer = o
		case observers:
			s.observer = append(current, o)
		default:
			s.observer = observers{current, o}
		}
	}
}

// WithRunTimeout bounds the total duration of a run. Targets not started
// before the deadline are recorded as skipped; probes in flight fail as
// [Error] attempts. Zero means no deadline.
func WithRunTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.runTimeout = d
	}
}

// WithSummaryHook registers fn to be called once per completed target.
//
// Hooks run on a single goroutine in completion order, not input order.
// A panicking hook is logged and does not affect the run.
func WithSummaryHook(fn func(Summary)) SchedulerOption {
	return func(s *Scheduler) {
		if fn != nil {
			s.onSummary = append(s.onSummary, fn)
		}
	}
}

// NewScheduler creates a new [Scheduler].
//
// Parameters:
//   - prober: performs the individual probes
//   - count: attempts per target, must be at least 1
//   - workerLimit: maximum concurrent targets; non-positive uses [DefaultWorkerLimit]
//   - logger: logger for run events (start, completion, task panics)
func NewScheduler(prober Prober, count, workerLimit int, logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	if workerLimit <= 0 {
		workerLimit = DefaultWorkerLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		prober:      prober,
		count:       count,
		workerLimit: workerLimit,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.observer != nil {
		s.prober = observedProber{next: s.prober, observer: s.observer}
	}
	return s
}

// job is one target queued for probing.
type job struct {
	index  int
	target string
}

// Run probes every target and blocks until all of them are done.
//
// The returned [ResultSet] has exactly one summary per target, in the order
// the targets were given. Cancelling ctx stops dispatch: targets whose task
// has not started yet are recorded with a skipped error.
func (s *Scheduler) Run(ctx context.Context, targets []string) ResultSet {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	logger := s.logger.With("run_id", uuid.NewString())
	started := time.Now()

	workers := min(s.workerLimit, len(targets))
	logger.Info("run starting",
		"targets", len(targets),
		"count", s.count,
		"workers", workers,
	)

	results := store.NewMemoryStore[Summary](len(targets))

	// hooks and observer run off a subscription so workers never wait on them
	var consumers sync.WaitGroup
	var updates <-chan Summary
	if len(s.onSummary) > 0 || s.observer != nil {
		updates = results.Subscribe()
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for summary := range updates {
				if s.observer != nil {
					s.observer.TargetDone(summary)
				}
				for _, fn := range s.onSummary {
					s.invokeHookSafe(logger, fn, summary)
				}
			}
		}()
	}

	jobs := make(chan job, len(targets))
	for i, target := range targets {
		jobs <- job{index: i, target: target}
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				summary := s.runTask(ctx, logger, j)
				if err := results.Put(j.index, summary); err != nil {
					logger.Error("failed to record summary", "target", j.target, "error", err)
					continue
				}
				logger.Debug("target completed",
					"target", j.target,
					"success", summary.Success,
					"failed", summary.Failed,
					"error", summary.Error,
				)
			}
		}()
	}
	wg.Wait()

	if updates != nil {
		results.Unsubscribe(updates)
		consumers.Wait()
	}

	set := ResultSet(results.Results())

	var faulted int
	for _, summary := range set {
		if summary.Err != nil {
			faulted++
		}
	}
	logger.Info("run completed",
		"targets", len(set),
		"faulted", faulted,
		"duration", time.Since(started).String(),
	)

	return set
}

// runTask samples and aggregates a single target.
//
// A panic anywhere in the task is recovered, logged with a correlation ID and
// turned into a summary carrying the error.
func (s *Scheduler) runTask(ctx context.Context, logger *slog.Logger, j job) (summary Summary) {
	if err := ctx.Err(); err != nil {
		return Summary{Target: j.target, Index: j.index, Err: fmt.Errorf("skipped: %w", err)}
	}

	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			stack := debug.Stack()

			logger.Error("probe task panic",
				"correlation_id", correlationID,
				"target", j.target,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(stack),
			)

			summary = Summary{
				Target: j.target,
				Index:  j.index,
				Err:    fmt.Errorf("probe task panic (correlation_id: %s)", correlationID),
			}
		}
	}()

	summary = Aggregate(j.target, Sample(ctx, s.prober, j.target, s.count))
	summary.Index = j.index
	return summary
}

// invokeHookSafe calls a summary hook with panic recovery.
func (s *Scheduler) invokeHookSafe(logger *slog.Logger, fn func(Summary), summary Summary) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("summary hook panicked",
				"panic", r,
				"target", summary.Target,
			)
		}
	}()
	fn(summary)
}

// observers fans events out to several observers.
type observers []Observer

func (obs observers) ProbeStarted(target string) {
	for _, o := range obs {
		o.ProbeStarted(target)
	}
}

func (obs observers) ProbeFinished(target string, attempt Attempt) {
	for _, o := range obs {
		o.ProbeFinished(target, attempt)
	}
}

func (obs observers) TargetDone(summary Summary) {
	for _, o := range obs {
		o.TargetDone(summary)
	}
}

// observedProber reports every probe to an [Observer].
type observedProber struct {
	next     Prober
	observer Observer
}

// Probe brackets the wrapped probe with observer events. If the wrapped
// prober panics, the probe is reported as an Error before the panic goes on
// to the task's recovery.
func (p observedProber) Probe(ctx context.Context, target string) Attempt {
	p.observer.ProbeStarted(target)

	finished := false
	defer func() {
		if !finished {
			p.observer.ProbeFinished(target, Attempt{Classification: Error, Err: errProbePanicked})
		}
	}()

	attempt := p.next.Probe(ctx, target)
	finished = true
	p.observer.ProbeFinished(target, attempt)
	return attempt
}
