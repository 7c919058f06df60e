// Package api serves light state and commands over HTTP, next to the
// Prometheus metrics and a health endpoint.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightstate/internal/ledger"
	"github.com/dokzlo13/lightstate/internal/light"
	"github.com/dokzlo13/lightstate/internal/registry"
	"github.com/dokzlo13/lightstate/internal/wire"
)

const maxBodySize = 64 << 10

// Source recorded in the ledger for HTTP changes
const Source = "http"

// Server is the HTTP front end of the registry.
type Server struct {
	addr       string
	lights     *registry.Registry
	history    *ledger.Ledger      // nil disables /history
	gatherer   prometheus.Gatherer // nil disables /metrics
	httpServer *http.Server
}

// NewServer creates a server listening on host:port.
func NewServer(host string, port int, lights *registry.Registry, history *ledger.Ledger, gatherer prometheus.Gatherer) *Server {
	return &Server{
		addr:     fmt.Sprintf("%s:%d", host, port),
		lights:   lights,
		history:  history,
		gatherer: gatherer,
	}
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("GET /lights", s.handleList)
	mux.HandleFunc("GET /lights/{id}", s.handleGet)
	mux.HandleFunc("POST /lights/{id}", s.handleSet)
	mux.HandleFunc("POST /lights/{id}/reading", s.handleReading)
	if s.history != nil {
		mux.HandleFunc("GET /lights/{id}/history", s.handleHistory)
	}

	return mux
}

// Run starts the server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Str("addr", s.addr).Msg("Starting HTTP server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

type lightState struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	wire.State
}

func (s *Server) state(id string) (*lightState, error) {
	m, err := s.lights.View(id)
	if err != nil {
		return nil, err
	}
	name, _ := s.lights.Name(id)
	return &lightState{ID: id, Name: name, State: wire.StateFromModel(m)}, nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	states := make([]*lightState, 0, len(s.lights.IDs()))
	for _, id := range s.lights.IDs() {
		st, err := s.state(id)
		if err != nil {
			writeError(w, err)
			return
		}
		states = append(states, st)
	}
	writeJSON(w, http.StatusOK, states)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	st, err := s.state(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	set, err := wire.DecodeSet(body)
	if err != nil {
		writeError(w, err)
		return
	}

	log.Debug().Str("light", id).Str("kind", set.Kind()).Msg("Received HTTP command")

	err = s.lights.Update(id, registry.Change{
		Kind:    set.Kind(),
		Source:  Source,
		Payload: map[string]any{"set": set},
		Apply:   set.Apply,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	s.handleGet(w, r)
}

func (s *Server) handleReading(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	reading, err := wire.DecodeReading(body)
	if err != nil {
		writeError(w, err)
		return
	}

	err = s.lights.Update(id, registry.Change{
		Kind:    reading.Kind(),
		Source:  Source,
		Payload: map[string]any{"reading": reading},
		Reading: true,
		Apply:   reading.Apply,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	s.handleGet(w, r)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.lights.Name(id); !ok {
		writeError(w, fmt.Errorf("%w: %s", registry.ErrUnknownLight, id))
		return
	}
	entries, err := s.history.ForLight(id, 50)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrUnknownLight):
		return http.StatusNotFound
	case errors.Is(err, wire.ErrInvalidPayload), errors.Is(err, light.ErrUnsupportedCommand):
		return http.StatusBadRequest
	case errors.Is(err, light.ErrRange), errors.Is(err, light.ErrShape), errors.Is(err, light.ErrState):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("HTTP request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to write HTTP response")
	}
}
