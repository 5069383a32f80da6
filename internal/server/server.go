// Package server wires the template API together and runs it.
//
// It is the composition root: the only place that knows every layer.
//
//	config → sqlite.DB → TemplateService → TemplateHandler → chi routes
//
// Each layer only receives what it needs. The service gets the repository
// interface, not *sqlite.DB; the handlers get the service, not the database.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/template-studio/internal/config"
	"github.com/sakif/template-studio/internal/handler"
	"github.com/sakif/template-studio/internal/middleware"
	sqliteRepo "github.com/sakif/template-studio/internal/repository/sqlite"
	"github.com/sakif/template-studio/internal/service"
)

// Server owns the router and the database pool. The pool is opened in New
// and closed by Start on the way out (or by Close if Start never runs).
type Server struct {
	router  *chi.Mux
	config  *config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	limiter *middleware.RateLimiter // nil when rate limiting is off
}

// New opens the database and builds the router.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	if cfg.RateLimitEnabled() {
		s.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)
	}

	s.setupRoutes()
	return s, nil
}

// Handler returns the router. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database pool and stops the rate limiter.
func (s *Server) Close() error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	return s.db.Close()
}

// setupRoutes configures middleware and routes.
//
//	GET    /healthz               → liveness + DB ping
//	GET    /api/templates         → List (page, pageSize)
//	POST   /api/templates         → Create
//	GET    /api/templates/{id}    → Get
//	PUT    /api/templates/{id}    → Update (content + variables)
//	DELETE /api/templates/{id}    → Delete
//	POST   /api/merge-tags        → Extract {{TOKENS}} from HTML
//
// Middleware runs in the order it is added. RealIP goes first so the rate
// limiter and the logs see the client address; Recoverer sits inside Logger
// so a panic is still logged as a 500.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	templateService := service.NewTemplateService(s.db, s.logger)
	templateHandler := handler.NewTemplateHandler(templateService, s.logger)
	mergeTagHandler := handler.NewMergeTagHandler(s.logger)
	healthHandler := handler.NewHealthHandler(templateService, s.logger)

	s.router.Get("/healthz", healthHandler.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Limit)
		}

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", templateHandler.HandleList)
			r.Post("/", templateHandler.HandleCreate)
			r.Get("/{id}", templateHandler.HandleGetByID)
			r.Put("/{id}", templateHandler.HandleUpdate)
			r.Delete("/{id}", templateHandler.HandleDelete)
		})

		r.Post("/merge-tags", mergeTagHandler.HandleExtract)
	})
}

// Start serves HTTP until SIGINT/SIGTERM, then shuts down gracefully:
//  1. stop accepting new connections
//  2. wait up to ShutdownTimeout for in-flight requests
//  3. close the database (flushes the WAL, releases the file lock)
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("port", s.config.Port),
			slog.String("url", "http://localhost:"+s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.Bool("rate_limit", s.limiter != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
