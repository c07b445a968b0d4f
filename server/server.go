// Copyright (c) 2025 ryichk
// Licensed under the MIT License.

// Package server exposes the runner over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ryichk/task-finalizer-go/config"
	"github.com/ryichk/task-finalizer-go/runner"
)

const maxBodyBytes = 1 << 20

// Server serves run requests against a set of known deployments
type Server struct {
	deployments  []config.AgentDeployment
	defaultIndex int
	runConfig    runner.RunConfig
	gatherer     prometheus.Gatherer
	logger       *slog.Logger

	httpServer *http.Server
}

// Option configures a Server
type Option func(*Server)

// WithDeployments sets the deployments a request can select by name. The
// deployment at defaultIndex is used when a request names none.
func WithDeployments(deployments []config.AgentDeployment, defaultIndex int) Option {
	return func(s *Server) {
		s.deployments = deployments
		s.defaultIndex = defaultIndex
	}
}

func WithRunConfig(cfg runner.RunConfig) Option {
	return func(s *Server) {
		s.runConfig = cfg
	}
}

// WithGatherer sets the registry served on /metrics
func WithGatherer(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func New(opts ...Option) *Server {
	s := &Server{
		runConfig: runner.DefaultRunConfig(),
		gatherer:  prometheus.DefaultGatherer,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runConfig.Logger == nil {
		s.runConfig.Logger = s.logger
	}
	return s
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)
	r.Use(tracingMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/deployments", s.handleDeployments)
		r.Get("/tools", s.handleTools)
		r.Post("/run", s.handleRun)
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server failed: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown http server: %w", err)
	}
	s.logger.Info("HTTP server stopped")

	return <-errCh
}

// deployment returns a copy of the named deployment, or of the default one
// when name is empty. Each request gets its own copy since resolving the
// agent config writes the typed config back onto the deployment.
func (s *Server) deployment(name string) (*config.AgentDeployment, bool) {
	if name == "" {
		if s.defaultIndex < 0 || s.defaultIndex >= len(s.deployments) {
			return nil, false
		}
		d := s.deployments[s.defaultIndex]
		return &d, true
	}

	for _, d := range s.deployments {
		if d.Name == name {
			return &d, true
		}
	}
	return nil, false
}
