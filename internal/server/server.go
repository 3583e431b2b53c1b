// Package server exposes the engine's read-only HTTP interface: latest
// signals, per-factor diagnostics and evaluation stats, a live websocket
// feed, and Prometheus metrics. The GUI collaborator consumes this surface.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/TRQuant/TRQuantExt/internal/composer"
	"github.com/TRQuant/TRQuantExt/internal/evaluator"
	"github.com/TRQuant/TRQuantExt/internal/manager"
)

// Snapshot is the server's published view of the latest run.
type Snapshot struct {
	Signals     []composer.StockSignal    `json:"signals"`
	Diagnostics *manager.BatchResult      `json:"diagnostics,omitempty"`
	Performance []evaluator.Performance   `json:"performance,omitempty"`
	UpdatedAt   time.Time                 `json:"updated_at"`
}

// Server serves the published state over HTTP and pushes signal updates to
// websocket subscribers.
type Server struct {
	mu    sync.RWMutex
	state Snapshot
	hub   *hub
	srv   *http.Server
}

// New creates a server listening on addr.
func New(addr string) *Server {
	s := &Server{hub: newHub()}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/signals", s.handleSignals).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/diagnostics", s.handleDiagnostics).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/factors/performance", s.handlePerformance).Methods(http.MethodGet)
	r.HandleFunc("/ws/signals", s.hub.handleWS)

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Publish replaces the served state and notifies websocket subscribers.
func (s *Server) Publish(signals []composer.StockSignal, diag *manager.BatchResult, perf []evaluator.Performance) {
	s.mu.Lock()
	s.state = Snapshot{
		Signals:     signals,
		Diagnostics: diag,
		Performance: perf,
		UpdatedAt:   time.Now().UTC(),
	}
	state := s.state
	s.mu.Unlock()

	s.hub.broadcast(state)
}

// ListenAndServe blocks until the context is cancelled or the listener
// fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.srv.Addr).Msg("http interface listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleSignals(w http.ResponseWriter, _ *http.Request) {
	state := s.snapshot()
	writeJSON(w, map[string]interface{}{
		"signals":    state.Signals,
		"updated_at": state.UpdatedAt,
	})
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, _ *http.Request) {
	state := s.snapshot()
	writeJSON(w, state.Diagnostics)
}

func (s *Server) handlePerformance(w http.ResponseWriter, _ *http.Request) {
	state := s.snapshot()
	writeJSON(w, state.Performance)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("response encoding failed")
	}
}
