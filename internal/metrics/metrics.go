// Package metrics records probe runs as Prometheus metrics.
//
// A [Recorder] implements the scheduler's observer interface. By default it
// keeps its own registry so several runs in one process do not collide. It
// can also attach to a caller's registry, for example one served over HTTP,
// in which case repeated runs accumulate into the same collectors. Either
// way the registry can be written in the text exposition format for the
// node exporter textfile collector.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/hostprobe/internal/probe"
)

const namespace = "hostprobe"

var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

// Recorder collects per-target probe metrics.
type Recorder struct {
	registry *prometheus.Registry

	attempts *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inFlight prometheus.Gauge
	targets  *prometheus.CounterVec
}

// NewRecorder creates a [Recorder] with a fresh registry.
func NewRecorder() *Recorder {
	r, err := NewRecorderWith(prometheus.NewRegistry())
	if err != nil {
		// a fresh registry cannot hold conflicting collectors
		panic(err)
	}
	return r
}

// NewRecorderWith creates a [Recorder] whose collectors live in reg.
//
// Collectors already registered by an earlier Recorder on the same registry
// are reused. Returns an error if reg holds an incompatible collector under
// one of the recorder's metric names.
func NewRecorderWith(reg *prometheus.Registry) (*Recorder, error) {
	r := &Recorder{
		registry: reg,
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Number of probe attempts by target and classification",
		}, []string{"target", "classification"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempt_latency_seconds",
			Help:      "Latency distribution of timed probe attempts",
			Buckets:   latencyBuckets,
		}, []string{"target", "classification"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "probes_in_flight",
			Help:      "Number of probes currently waiting on the network",
		}),
		targets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "targets_total",
			Help:      "Number of completed targets by outcome",
		}, []string{"outcome"}),
	}

	var err error
	if r.attempts, err = register(reg, r.attempts); err != nil {
		return nil, err
	}
	if r.latency, err = register(reg, r.latency); err != nil {
		return nil, err
	}
	if r.inFlight, err = register(reg, r.inFlight); err != nil {
		return nil, err
	}
	if r.targets, err = register(reg, r.targets); err != nil {
		return nil, err
	}
	return r, nil
}

// register adds c to reg, returning the existing collector when an identical
// one is already registered.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, fmt.Errorf("failed to register metrics: %w", err)
}

// Registry returns the registry holding the recorder's collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ProbeStarted implements probe.Observer.
func (r *Recorder) ProbeStarted(target string) {
	r.inFlight.Inc()
}

// ProbeFinished implements probe.Observer.
func (r *Recorder) ProbeFinished(target string, attempt probe.Attempt) {
	r.inFlight.Dec()

	labels := prometheus.Labels{
		"target":         target,
		"classification": attempt.Classification.String(),
	}
	r.attempts.With(labels).Inc()
	if attempt.Timed {
		r.latency.With(labels).Observe(attempt.Latency.Seconds())
	}
}

// TargetDone implements probe.Observer.
func (r *Recorder) TargetDone(summary probe.Summary) {
	outcome := "completed"
	if summary.Err != nil {
		outcome = "faulted"
	}
	r.targets.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// WriteTextfile writes the current metrics to path in the text exposition
// format. The file is written atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
