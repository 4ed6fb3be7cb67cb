package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/anchorsync"
	"github.com/aretw0/anchorsync/internal/logging"
	"github.com/aretw0/anchorsync/pkg/domain"
	"github.com/aretw0/anchorsync/pkg/runner"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Controller defines the session operations exposed over HTTP.
// *anchorsync.Controller implements it.
type Controller interface {
	Tick(ctx context.Context, sessionID string, input *domain.TouchInput) (*domain.Session, error)
	SubmitIdentifier(ctx context.Context, sessionID, identifier string) (*domain.Session, error)
	Session(ctx context.Context, sessionID string) (*domain.Session, error)
	Sessions(ctx context.Context) ([]string, error)
	Reset(ctx context.Context, sessionID string) error
}

// TickRequest is the body of POST /sessions/{id}/tick. An empty body means no touch.
type TickRequest struct {
	Touch *domain.TouchInput `json:"touch,omitempty"`
}

// IdentifierRequest is the body of POST /sessions/{id}/identifier.
type IdentifierRequest struct {
	Identifier string `json:"identifier"`
}

// SessionList is the body of GET /sessions.
type SessionList struct {
	Sessions []string `json:"sessions"`
}

// Server serves the session API.
type Server struct {
	Controller Controller
	Streams    *StreamManager

	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStreams serves /events from sm. Register sm.Hooks() on the controller so
// committed diffs reach subscribers; sm adopts the server logger when it has none.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithGatherer serves /metrics from g (default: prometheus.DefaultGatherer).
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewHandler creates a new HTTP handler for the controller.
func NewHandler(ctrl Controller, opts ...Option) http.Handler {
	s := &Server{
		Controller: ctrl,
		logger:     logging.NewNop(),
		gatherer:   prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	} else if s.Streams.logger == nil {
		s.Streams.logger = s.logger
	}

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/events", s.SubscribeEvents)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Post("/tick", s.Tick)
			r.Post("/identifier", s.SubmitIdentifier)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Controller.Sessions(r.Context())
	if err != nil {
		s.fail(w, "ListSessions", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.respond(w, http.StatusOK, SessionList{Sessions: ids})
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.Controller.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.fail(w, "GetSession", err)
		return
	}
	s.respond(w, http.StatusOK, session)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Controller.Reset(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.fail(w, "DeleteSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Tick handles POST /sessions/{id}/tick.
func (s *Server) Tick(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var body TickRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Tick: Invalid request body", "err", err)
		return
	}

	next, err := s.Controller.Tick(r.Context(), sessionID, body.Touch)
	if err != nil {
		s.fail(w, "Tick", err)
		return
	}
	s.respond(w, http.StatusOK, next)
}

// SubmitIdentifier handles POST /sessions/{id}/identifier.
func (s *Server) SubmitIdentifier(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var body IdentifierRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("SubmitIdentifier: Invalid request body", "err", err)
		return
	}

	identifier, err := runner.SanitizeInput(strings.TrimSpace(body.Identifier))
	if err == nil && identifier == "" {
		err = errors.New("identifier is required")
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid identifier: %v", err), http.StatusBadRequest)
		s.logger.Warn("SubmitIdentifier: Input rejected", "err", err, "size", len(body.Identifier))
		return
	}

	next, err := s.Controller.SubmitIdentifier(r.Context(), sessionID, identifier)
	if err != nil {
		s.fail(w, "SubmitIdentifier", err)
		return
	}
	s.respond(w, http.StatusOK, next)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{
		"app":     "anchorsync-http",
		"version": strings.TrimSpace(anchorsync.Version),
	})
}

func (s *Server) respond(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, fmt.Sprintf("%s error: %v", op, err), http.StatusInternalServerError)
		s.logger.Error(op+" failed", "err", err)
	}
}
