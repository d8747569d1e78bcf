// Package server owns the connection surface: the persistent websocket
// channel driven by the protocol engine and the one-shot HTTP reads over the
// same snapshot store.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"hostbridge/internal/action"
	"hostbridge/internal/listener"
	"hostbridge/internal/model"
	"hostbridge/internal/store"
)

type Server struct {
	logger   *slog.Logger
	addr     string
	token    string
	store    *store.Store
	registry *listener.Registry
	actions  *action.Actions
	exit     func()

	writeTimeout time.Duration
	handlers     map[string]handlerFunc
}

// New builds the server. exit is the process-level shutdown collaborator
// invoked by the exit_application event.
func New(
	logger *slog.Logger,
	addr string,
	token string,
	st *store.Store,
	registry *listener.Registry,
	actions *action.Actions,
	exit func(),
) *Server {
	s := &Server{
		logger:       logger,
		addr:         addr,
		token:        token,
		store:        st,
		registry:     registry,
		actions:      actions,
		exit:         exit,
		writeTimeout: 5 * time.Second,
	}
	s.handlers = s.handlerTable()
	return s
}

// Handler returns the HTTP handler for all routes. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/websocket", s.handleWebSocket)
	mux.HandleFunc("GET /api/data/{module}", s.handleGetModule)
	mux.HandleFunc("GET /api/data/{module}/{key}", s.handleGetModuleKey)
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("server listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy"})
}

// authorized checks the shared secret from the token header or query
// parameter, the same secret the websocket envelopes carry.
func (s *Server) authorized(r *http.Request) bool {
	if r.Header.Get("token") == s.token {
		return true
	}
	return r.URL.Query().Get("token") == s.token
}

func (s *Server) handleGetModule(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "invalid token"})
		return
	}
	name := r.PathValue("module")
	if !model.IsModule(name) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unknown module", "module": name})
		return
	}
	blob, ok := s.store.Get(model.Module(name))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "no data for module", "module": name})
		return
	}
	writeJSON(w, http.StatusOK, blob)
}

func (s *Server) handleGetModuleKey(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "invalid token"})
		return
	}
	name := r.PathValue("module")
	key := r.PathValue("key")
	if !model.IsModule(name) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unknown module", "module": name})
		return
	}
	blob, ok := s.store.Get(model.Module(name))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "no data for module", "module": name})
		return
	}

	// Reduce the typed blob to a field map for single-key lookup.
	raw, err := json.Marshal(blob)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "encode module data"})
		return
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "decode module data"})
		return
	}
	value, ok := fields[key]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "key not found", "module": name, "key": key})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(value)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
