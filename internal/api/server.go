// Package api serves the local HTTP API of a resident tooly process. A second
// invocation forwards its trigger URL here instead of dispatching it itself.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/tooly/internal/dispatch"
	"github.com/mattjoyce/tooly/internal/events"
	"github.com/mattjoyce/tooly/internal/history"
)

// TriggerHandler dispatches trigger URLs.
type TriggerHandler interface {
	HandleURL(ctx context.Context, raw string) dispatch.Report
}

// HistoryReader reads the action log.
type HistoryReader interface {
	Get(ctx context.Context, id string) (*history.Entry, error)
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// ActivityCounter reports how many background scripts are running.
type ActivityCounter interface {
	InFlight() int
}

// Config holds API server configuration
type Config struct {
	Service string
	Listen  string
	// APIKey is the bearer token. Empty disables authentication.
	APIKey string
}

// Server represents the HTTP API server
type Server struct {
	config    Config
	triggers  TriggerHandler
	history   HistoryReader
	activity  ActivityCounter
	events    *events.Hub
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates a new API server instance. hist and activity may be nil.
func New(config Config, triggers TriggerHandler, hist HistoryReader, activity ActivityCounter, hub *events.Hub, logger *slog.Logger) *Server {
	if hub == nil {
		hub = events.NewHub(256)
	}
	return &Server{
		config:    config,
		triggers:  triggers,
		history:   hist,
		activity:  activity,
		events:    hub,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// Listen binds the configured address so callers learn the final port
// before serving.
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", s.config.Listen, err)
	}
	return ln, nil
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:      s.setupRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE streams stay open
		IdleTimeout:  60 * time.Second,
		// Event streams end when ctx does, so Shutdown does not wait on them.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	s.logger.Info("API server starting", "listen", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Start binds and serves (blocking).
func (s *Server) Start(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// setupRoutes configures the HTTP router
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// Unauthenticated ops endpoints.
	r.Get("/healthz", s.handleHealthz)
	r.Get("/openapi.json", s.handleOpenAPI)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/trigger", s.handleTrigger)
		r.Get("/history", s.handleHistory)
		r.Get("/history/{id}", s.handleHistoryEntry)
		r.Get("/events", s.handleEvents)
	})

	return r
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
