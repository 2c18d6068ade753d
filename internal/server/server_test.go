package server

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/hostprobe"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func summary(target string, success int) hostprobe.Summary {
	return hostprobe.Summary{
		Target:  target,
		Success: success,
		Latency: hostprobe.LatencyStats{
			Min:     10 * time.Millisecond,
			Max:     10 * time.Millisecond,
			Avg:     10 * time.Millisecond,
			Samples: success,
		},
	}
}

// readEvents collects SSE events until the stream ends or want events arrive.
func readEvents(t *testing.T, body io.Reader, want int) []string {
	t.Helper()

	var events []string
	var current strings.Builder
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			events = append(events, current.String())
			current.Reset()
			if len(events) == want {
				break
			}
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	return events
}

func TestHandleResults(t *testing.T) {
	srv := NewServer("127.0.0.1:0", 3, nil, testLogger())
	srv.Record(summary("https://b.example.com", 2))
	srv.Record(summary("https://a.example.com", 1))

	req := httptest.NewRequest(http.MethodGet, "/api/results", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var got struct {
		Total   int `json:"total"`
		Done    int `json:"done"`
		Results []struct {
			Host    string   `json:"host"`
			Success int      `json:"success"`
			AvgMS   *float64 `json:"avg_ms"`
		} `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if got.Total != 3 || got.Done != 2 {
		t.Errorf("progress = %d/%d, want 2/3", got.Done, got.Total)
	}
	if len(got.Results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(got.Results))
	}
	// completion order
	if got.Results[0].Host != "https://b.example.com" || got.Results[1].Host != "https://a.example.com" {
		t.Errorf("results order = [%s %s], want completion order", got.Results[0].Host, got.Results[1].Host)
	}
	if got.Results[0].AvgMS == nil || *got.Results[0].AvgMS != 10 {
		t.Errorf("avg_ms = %v, want 10", got.Results[0].AvgMS)
	}
}

func TestHandleResults_MethodNotAllowed(t *testing.T) {
	srv := NewServer("127.0.0.1:0", 1, nil, testLogger())

	for _, path := range []string{"/", "/api/results"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST %s status = %d, want %d", path, rec.Code, http.StatusMethodNotAllowed)
		}
	}
}

func TestHandleReport(t *testing.T) {
	srv := NewServer("127.0.0.1:0", 2, nil, testLogger())
	srv.Record(hostprobe.Summary{Target: "https://down.example.com", Error: 3})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{"1/2 hosts done", "Host: https://down.example.com", "Error: 3", "Avg: no data"} {
		if !strings.Contains(body, want) {
			t.Errorf("report missing %q\nGot:\n%s", want, body)
		}
	}
}

func TestHandleReport_UnknownPath(t *testing.T) {
	srv := NewServer("127.0.0.1:0", 1, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHandleSSE_CompleteRun(t *testing.T) {
	srv := NewServer("127.0.0.1:0", 2, nil, testLogger())
	srv.Record(summary("https://a.example.com", 1))
	srv.Record(summary("https://b.example.com", 1))

	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil)
	rec := httptest.NewRecorder()

	// the stream ends on its own once every host has reported
	srv.handleSSE(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	events := readEvents(t, rec.Body, 10)
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3:\n%v", len(events), events)
	}
	if !strings.Contains(events[0], "https://a.example.com") || !strings.Contains(events[1], "https://b.example.com") {
		t.Errorf("summary events out of order: %v", events[:2])
	}
	if !strings.HasPrefix(events[2], "event: done\n") {
		t.Errorf("last event = %q, want done event", events[2])
	}
}

func TestHandleSSE_StreamsLiveSummaries(t *testing.T) {
	srv := NewServer("127.0.0.1:0", 2, nil, testLogger())
	srv.Record(summary("https://a.example.com", 1))

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(ts.URL + "/api/sse")
	if err != nil {
		t.Fatalf("GET /api/sse error = %v", err)
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	first := readEvents(t, reader, 1)
	if len(first) != 1 || !strings.Contains(first[0], "https://a.example.com") {
		t.Fatalf("first event = %v, want recorded summary", first)
	}

	srv.Record(summary("https://b.example.com", 1))

	rest := readEvents(t, reader, 2)
	if len(rest) != 2 {
		t.Fatalf("got %d further events, want 2: %v", len(rest), rest)
	}
	if !strings.Contains(rest[0], "https://b.example.com") {
		t.Errorf("second event = %q, want live summary", rest[0])
	}
	if !strings.HasPrefix(rest[1], "event: done\n") {
		t.Errorf("last event = %q, want done event", rest[1])
	}
}

func TestHandleSSE_ClientDisconnect(t *testing.T) {
	srv := NewServer("127.0.0.1:0", 5, nil, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/sse", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.handleSSE(rec, req)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handleSSE did not return after the request context ended")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "hostprobe_test_total", Help: "test counter"})
	reg.MustRegister(counter)
	counter.Add(3)

	srv := NewServer("127.0.0.1:0", 1, reg, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), "hostprobe_test_total 3") {
		t.Errorf("metrics body missing counter:\n%s", rec.Body.String())
	}
}

func TestMetricsEndpoint_DisabledWithoutGatherer(t *testing.T) {
	srv := NewServer("127.0.0.1:0", 1, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestStart_ServesUntilCancelled(t *testing.T) {
	srv := NewServer("127.0.0.1:0", 1, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	addr := srv.Addr()
	if strings.HasSuffix(addr, ":0") {
		t.Fatalf("Addr() = %q, want the bound port", addr)
	}

	resp, err := http.Get("http://" + addr + "/api/results")
	if err != nil {
		t.Fatalf("GET /api/results error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	cancel()
	select {
	case <-srv.Done():
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("server did not shut down after cancellation")
	}
}

func TestStart_BindError(t *testing.T) {
	first := NewServer("127.0.0.1:0", 1, nil, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	second := NewServer(first.Addr(), 1, nil, testLogger())
	err := second.Start(ctx)
	if err == nil {
		t.Fatal("Start() expected error for address in use, got nil")
	}
	if !strings.Contains(err.Error(), "failed to listen") {
		t.Errorf("Start() error = %v, want error containing 'failed to listen'", err)
	}
}

func TestRecord_Overflow(t *testing.T) {
	srv := NewServer("127.0.0.1:0", 1, nil, testLogger())
	srv.Record(summary("https://a.example.com", 1))
	srv.Record(summary("https://b.example.com", 1))

	if got := len(srv.summaries()); got != 1 {
		t.Errorf("len(summaries()) = %d, want 1", got)
	}
}
