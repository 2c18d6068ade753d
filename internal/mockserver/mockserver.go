// Package mockserver serves local fixture endpoints for trying out and
// testing the prober without touching real hosts.
//
// Routes:
//
//	GET /ok            200 after a small random delay
//	GET /fail          500
//	GET /notfound      404
//	GET /slow          200 after ?delay= (default 2s), or when the client gives up
//	GET /flaky         alternates 200 and 500, starting with 200
//	GET /status/{code} the given status code (100-999)
package mockserver

import (
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

const defaultSlowDelay = 2 * time.Second

// Server holds the state of the fixture endpoints.
type Server struct {
	logger     *slog.Logger
	jitter     time.Duration
	flakyCalls atomic.Int64
}

// New creates a Server. jitter bounds the random delay added to /ok; zero
// disables it.
func New(logger *slog.Logger, jitter time.Duration) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{logger: logger, jitter: jitter}
}

// Handler returns the routes of the fixture server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ok", s.handleOK)
	mux.HandleFunc("GET /fail", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("GET /notfound", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("GET /slow", s.handleSlow)
	mux.HandleFunc("GET /flaky", s.handleFlaky)
	mux.HandleFunc("GET /status/{code}", s.handleStatus)
	return mux
}

func (s *Server) handleOK(w http.ResponseWriter, r *http.Request) {
	if s.jitter > 0 {
		time.Sleep(time.Duration(rand.Int63n(int64(s.jitter))))
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSlow(w http.ResponseWriter, r *http.Request) {
	delay := defaultSlowDelay
	if raw := r.URL.Query().Get("delay"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid delay", http.StatusBadRequest)
			return
		}
		delay = parsed
	}

	select {
	case <-time.After(delay):
		w.WriteHeader(http.StatusOK)
	case <-r.Context().Done():
		s.logger.Debug("slow request abandoned by client", "delay", delay.String())
	}
}

func (s *Server) handleFlaky(w http.ResponseWriter, r *http.Request) {
	n := s.flakyCalls.Add(1)
	if n%2 == 1 {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	code, err := strconv.Atoi(r.PathValue("code"))
	if err != nil || code < 100 || code > 999 {
		http.Error(w, "status code must be between 100 and 999", http.StatusBadRequest)
		return
	}
	w.WriteHeader(code)
}
