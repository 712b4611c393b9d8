// Package server exposes sandbox execution and preview hosting over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/drydock-dev/drydock/internal/sandbox"
)

// Server is the HTTP facade over the executor, preview manager, and
// container registry.
type Server struct {
	cfg      *sandbox.Config
	executor *sandbox.Executor
	manager  *sandbox.Manager
	registry *sandbox.Registry
	logger   *slog.Logger
	router   chi.Router
	http     *http.Server
}

// New creates a Server wired to the given sandbox components.
func New(cfg *sandbox.Config, ex *sandbox.Executor, mgr *sandbox.Manager, reg *sandbox.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		executor: ex,
		manager:  mgr,
		registry: reg,
		logger:   logger,
		router:   chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/run", s.handleRun)
		r.Get("/containers", s.handleListContainers)

		r.Route("/previews", func(r chi.Router) {
			r.Post("/", s.handleStartPreview)
			r.Get("/{sessionID}", s.handlePreviewStatus)

			r.Route("/container/{containerID}", func(r chi.Router) {
				r.Delete("/", s.handleStopPreview)
				r.Get("/logs", s.handleLogs)
				r.Get("/logs/stream", s.handleLogStream)
			})
		})
	})
}

// requestLogger logs each request at debug with its id, path, and timing.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

// Start begins listening on addr and blocks until the listener closes.
func (s *Server) Start(addr string) error {
	if addr == "" {
		addr = s.cfg.ServerAddr
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("server listening", "addr", addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	s.logger.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.http.Shutdown(shutdownCtx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
