package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"3tcapital/ms_external_services/internal/infrastructure/config"
	"3tcapital/ms_external_services/internal/infrastructure/http/middleware"
)

// Server wraps the HTTP listener and its routed handlers.
type Server struct {
	log        *slog.Logger
	cfg        config.HTTPSettings
	httpServer *http.Server
}

// Options carries the wired handlers the router mounts.
type Options struct {
	Config config.AppConfig
	Logger *slog.Logger

	HealthHandler http.HandlerFunc

	// External-service gateway handlers.
	PerformCallHandler  http.HandlerFunc
	UploadHandler       http.HandlerFunc
	DownloadHandler     http.HandlerFunc
	ValidatePathHandler http.HandlerFunc

	// Audit read handler. Optional: nil when no queryable store is configured.
	ListCallsHandler http.HandlerFunc

	// Authenticator is optional; when nil requests pass through unauthenticated.
	Authenticator *middleware.JWTAuthenticator
}

// New builds the router and the http.Server around it.
func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.HealthHandler == nil {
		return nil, errors.New("health handler is required")
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(middleware.RequestTimeout(opts.Config.HTTP.RequestTimeout))
	if opts.Authenticator != nil {
		r.Use(opts.Authenticator.Middleware)
	}

	r.Method(http.MethodGet, "/health", opts.HealthHandler)

	r.Route("/external", func(r chi.Router) {
		if opts.PerformCallHandler != nil {
			r.Method(http.MethodPost, "/http/calls", opts.PerformCallHandler)
		}
		r.Route("/sftp", func(r chi.Router) {
			if opts.UploadHandler != nil {
				r.Method(http.MethodPost, "/uploads", opts.UploadHandler)
			}
			if opts.DownloadHandler != nil {
				r.Method(http.MethodGet, "/files", opts.DownloadHandler)
			}
			if opts.ValidatePathHandler != nil {
				r.Method(http.MethodGet, "/path-validations", opts.ValidatePathHandler)
			}
		})
	})

	if opts.ListCallsHandler != nil {
		r.Method(http.MethodGet, "/audit/calls", opts.ListCallsHandler)
	}

	srv := &http.Server{
		Addr:         opts.Config.HTTP.Address(),
		Handler:      r,
		ReadTimeout:  opts.Config.HTTP.ReadTimeout,
		WriteTimeout: opts.Config.HTTP.WriteTimeout,
		IdleTimeout:  opts.Config.HTTP.IdleTimeout,
	}

	return &Server{log: opts.Logger, cfg: opts.Config.HTTP, httpServer: srv}, nil
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server started", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error("HTTP server shutdown failed", "error", err)
			return err
		}
		s.log.Info("HTTP server stopped")
		return nil
	case err := <-errCh:
		return err
	}
}
