package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jpalmerr/hostprobe/internal/probe"
)

func TestRecorder_ProbeEvents(t *testing.T) {
	r := NewRecorder()
	const target = "https://a.example.com"

	r.ProbeStarted(target)
	if got := testutil.ToFloat64(r.inFlight); got != 1 {
		t.Errorf("in-flight = %v, want 1", got)
	}

	r.ProbeFinished(target, probe.Attempt{Classification: probe.Success, Latency: 30 * time.Millisecond, Timed: true})
	r.ProbeStarted(target)
	r.ProbeFinished(target, probe.Attempt{Classification: probe.Error, Err: errors.New("refused")})

	if got := testutil.ToFloat64(r.inFlight); got != 0 {
		t.Errorf("in-flight = %v, want 0", got)
	}
	if got := testutil.ToFloat64(r.attempts.WithLabelValues(target, "Success")); got != 1 {
		t.Errorf("attempts{Success} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.attempts.WithLabelValues(target, "Error")); got != 1 {
		t.Errorf("attempts{Error} = %v, want 1", got)
	}

	// only the timed attempt is observed
	if got := testutil.CollectAndCount(r.latency); got != 1 {
		t.Errorf("latency series = %d, want 1", got)
	}
}

func TestRecorder_TargetDone(t *testing.T) {
	r := NewRecorder()

	r.TargetDone(probe.Summary{Target: "a", Success: 1})
	r.TargetDone(probe.Summary{Target: "b", Success: 2})
	r.TargetDone(probe.Summary{Target: "c", Err: errors.New("panic")})

	if got := testutil.ToFloat64(r.targets.WithLabelValues("completed")); got != 2 {
		t.Errorf("targets{completed} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.targets.WithLabelValues("faulted")); got != 1 {
		t.Errorf("targets{faulted} = %v, want 1", got)
	}
}

func TestRecorder_IndependentRegistries(t *testing.T) {
	// a second recorder must not panic on duplicate registration
	a := NewRecorder()
	b := NewRecorder()
	if a.Registry() == b.Registry() {
		t.Error("recorders share a registry, want independent registries")
	}
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ProbeStarted("https://a.example.com")
	r.ProbeFinished("https://a.example.com", probe.Attempt{Classification: probe.Failed, Latency: time.Millisecond, Timed: true})

	path := filepath.Join(t.TempDir(), "hostprobe.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read metrics file: %v", err)
	}
	content := string(data)

	for _, want := range []string{
		"hostprobe_attempts_total",
		`classification="Failed"`,
		"hostprobe_attempt_latency_seconds_bucket",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("metrics file missing %q\nGot: %s", want, content)
		}
	}
}

func TestRecorder_WriteTextfile_BadPath(t *testing.T) {
	r := NewRecorder()
	err := r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "hostprobe.prom"))
	if err == nil {
		t.Fatal("WriteTextfile() error = nil, want error for missing directory")
	}
}

func TestNewRecorderWith_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := NewRecorderWith(reg)
	if err != nil {
		t.Fatalf("NewRecorderWith() error = %v", err)
	}
	first.ProbeStarted("a")
	first.ProbeFinished("a", probe.Attempt{Classification: probe.Success, Latency: time.Millisecond, Timed: true})

	second, err := NewRecorderWith(reg)
	if err != nil {
		t.Fatalf("second NewRecorderWith() error = %v", err)
	}
	second.ProbeStarted("a")
	second.ProbeFinished("a", probe.Attempt{Classification: probe.Success, Latency: time.Millisecond, Timed: true})

	if got := testutil.ToFloat64(second.attempts.WithLabelValues("a", "Success")); got != 2 {
		t.Errorf("attempts{Success} = %v, want 2 accumulated across recorders", got)
	}
	if second.Registry() != reg {
		t.Error("Registry() did not return the shared registry")
	}
}

func TestNewRecorderWith_Conflict(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "attempts_total",
		Help:      "conflicting collector",
	}))

	if _, err := NewRecorderWith(reg); err == nil {
		t.Fatal("NewRecorderWith() error = nil, want registration conflict")
	}
}
