package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jpalmerr/hostprobe"
	"github.com/jpalmerr/hostprobe/internal/report"
	"github.com/jpalmerr/hostprobe/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// This prevents goroutine leaks when clients are slow or disconnected.
	// Must be <= shutdownTimeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	shutdownTimeout = 5 * time.Second
)

// entry is a recorded summary tagged with its completion sequence number.
type entry struct {
	seq     int
	summary hostprobe.Summary
}

// progress is the JSON body of /api/results.
type progress struct {
	Total   int                  `json:"total"`
	Done    int                  `json:"done"`
	Results []report.JSONSummary `json:"results"`
}

// Server serves the progress of a single run.
//
// Summaries are stored in completion order. The number of hosts is fixed at
// construction so clients can tell when the run is complete.
type Server struct {
	addr     string
	results  *store.MemoryStore[entry]
	next     atomic.Int64
	gatherer prometheus.Gatherer
	logger   *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	done     chan struct{}
}

// NewServer creates a [Server] for a run over total hosts.
//
// Parameters:
//   - addr: TCP address to listen on, e.g. ":9090" or "127.0.0.1:0"
//   - total: number of hosts in the run
//   - gatherer: source for /metrics (may be nil to disable the endpoint)
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(addr string, total int, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	return &Server{
		addr:     addr,
		results:  store.NewMemoryStore[entry](total),
		gatherer: gatherer,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Record stores a finished summary and notifies streaming clients.
// It is safe for concurrent use and can be passed to
// hostprobe.WithSummaryCallback directly.
func (s *Server) Record(summary hostprobe.Summary) {
	seq := int(s.next.Add(1) - 1)
	if err := s.results.Put(seq, entry{seq: seq, summary: summary}); err != nil {
		s.logger.Warn("dropping summary", "target", summary.Target, "error", err)
	}
}

// Handler returns the HTTP handler serving all endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleReport)
	mux.HandleFunc("/api/results", s.handleResults)
	mux.HandleFunc("/api/sse", s.handleSSE)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server keeps running until ctx is cancelled, then shuts
// down gracefully and closes the channel returned by [Server.Done].
//
// Returns an error if the server fails to bind to the configured address.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify the address synchronously
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		// request contexts derive from ctx, so long-running handlers like
		// SSE return on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		defer close(s.done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// Addr returns the address the server listens on, or the configured address
// if it has not been started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Done is closed once the server has shut down after its context ended.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

func (s *Server) summaries() hostprobe.ResultSet {
	entries := s.results.Results()
	set := make(hostprobe.ResultSet, len(entries))
	for i, e := range entries {
		set[i] = e.summary
	}
	return set
}

// handleReport writes the text report of the hosts finished so far.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	fmt.Fprintf(w, "%d/%d hosts done\n\n", s.results.Len(), s.results.Size())
	if err := report.WriteText(w, s.summaries()); err != nil {
		s.logger.Error("failed to write report response", "error", err)
	}
}

// handleResults returns the summaries finished so far as JSON.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	summaries := s.summaries()
	body := progress{
		Total:   s.results.Size(),
		Done:    len(summaries),
		Results: make([]report.JSONSummary, len(summaries)),
	}
	for i, summary := range summaries {
		body.Results[i] = report.NewJSONSummary(summary)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode results response", "error", err)
	}
}

// handleSSE streams summaries via Server-Sent Events.
//
// Summaries recorded before the client connected are sent first. The stream
// ends with a "done" event once every host has reported.
//
// The handler uses write deadlines to prevent goroutine leaks when clients are
// slow or disconnected. Without deadlines, a blocked Fprintf call would prevent
// the handler from detecting context cancellation or channel closure.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	writeEvent := func(event string, data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				// deadline not supported by underlying connection, continue without
				s.logger.Debug("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if event != "" {
			if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// subscribe before the snapshot so nothing recorded in between is lost
	ch := s.results.Subscribe()
	defer s.results.Unsubscribe(ch)

	sent := make(map[int]struct{})
	send := func(e entry) error {
		if _, ok := sent[e.seq]; ok {
			return nil
		}
		sent[e.seq] = struct{}{}

		data, err := json.Marshal(report.NewJSONSummary(e.summary))
		if err != nil {
			return nil
		}
		return writeEvent("", data)
	}

	for _, e := range s.results.Results() {
		if err := send(e); err != nil {
			return
		}
	}

	for {
		if len(sent) == s.results.Size() {
			_ = writeEvent("done", []byte(`{}`))
			return
		}

		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			if err := send(e); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}
