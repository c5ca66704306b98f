// Package http serves conversations over a JSON HTTP API. Each session owns
// its own store; sessions are kept in memory for the life of the process.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/fwojciec/converse"
	"github.com/fwojciec/converse/agent"
	conversejson "github.com/fwojciec/converse/json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 5 * time.Second

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// ChatResponse is the body returned by POST /chat.
type ChatResponse struct {
	SessionID  string `json:"session_id"`
	Response   string `json:"response"`
	Terminated bool   `json:"terminated,omitempty"`
}

// Server exposes an agent.Loop over HTTP.
type Server struct {
	loop    *agent.Loop
	catalog *converse.Catalog
	seed    []converse.Entry
	logger  zerolog.Logger
	newID   func() string

	mu       sync.Mutex
	sessions map[string]*agent.Session

	handler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and session logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithSeed sets the entries every new session starts with.
func WithSeed(entries ...converse.Entry) Option {
	return func(s *Server) { s.seed = entries }
}

// WithIDGenerator replaces the session ID generator (uuid by default).
func WithIDGenerator(fn func() string) Option {
	return func(s *Server) { s.newID = fn }
}

// NewServer creates a Server. Every session gets the same catalog snapshot.
func NewServer(loop *agent.Loop, catalog *converse.Catalog, opts ...Option) *Server {
	s := &Server{
		loop:     loop,
		catalog:  catalog,
		logger:   zerolog.Nop(),
		newID:    uuid.NewString,
		sessions: make(map[string]*agent.Session),
	}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("GET /health", s.handleHealth)
	s.handler = s.corsMiddleware(s.loggingMiddleware(mux))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("chat server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info().Msg("shutting down chat server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	sess, ok := s.session(req.SessionID)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	log := s.logger.With().Str("session", sess.ID).Logger()

	text, err := s.loop.Run(r.Context(), sess, req.Message)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ChatResponse{SessionID: sess.ID, Response: text})
	case errors.Is(err, converse.ErrTerminated):
		s.remove(sess.ID)
		log.Info().Msg("session terminated")
		writeJSON(w, http.StatusOK, ChatResponse{SessionID: sess.ID, Terminated: true})
	case errors.Is(err, converse.ErrConnectivity), errors.Is(err, converse.ErrValidation):
		log.Error().Err(err).Msg("model gateway failed")
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Warn().Err(err).Msg("turn interrupted")
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Error().Err(err).Msg("turn failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sess, ok := s.sessions[r.PathValue("id")]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	data, err := conversejson.MarshalTranscript(conversejson.Transcript{
		ID:      sess.ID,
		State:   sess.State().String(),
		Entries: sess.Store.Entries(),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.remove(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	n := len(s.sessions)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": n, "tools": s.catalog.Len()})
}

// session returns the session with id, creating one when id is empty.
func (s *Server) session(id string) (*agent.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		sess, ok := s.sessions[id]
		return sess, ok
	}
	sess := agent.NewSession(s.newID(), s.catalog, s.seed...)
	s.sessions[sess.ID] = sess
	s.logger.Info().Str("session", sess.ID).Msg("session created")
	return sess, true
}

func (s *Server) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}
