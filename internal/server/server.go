// Package server provides the HTTP API for manabu.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/manabu/internal/config"
	"github.com/hyperjump/manabu/internal/generation"
	"github.com/hyperjump/manabu/internal/pipeline"
)

// Server is the HTTP server for the manabu API. It serves immediately; query endpoints
// answer 503 until the pipeline has finished building.
type Server struct {
	pipeline *pipeline.Pipeline
	asker    *generation.Asker
	config   *config.Config
	logger   *zap.Logger
	limiter  *IPRateLimiter
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(p *pipeline.Pipeline, asker *generation.Asker, cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		pipeline: p,
		asker:    asker,
		config:   cfg,
		logger:   logger,
	}
	if rl := cfg.Server.RateLimit; rl.RequestsPerSecond > 0 {
		s.limiter = NewIPRateLimiter(rl.RequestsPerSecond, rl.Burst)
	}
	s.server = &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed API handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.recordMetrics)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	timeout := s.config.Server.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/sources", s.handleSources)
		r.Group(func(r chi.Router) {
			if s.limiter != nil {
				r.Use(s.limiter.Middleware)
			}
			r.Post("/retrieve", s.handleRetrieve)
			r.Post("/ask", s.handleAsk)
		})
	})
	return r
}

// Start starts the HTTP server and blocks until it stops. After Stop it returns
// http.ErrServerClosed, even when Stop ran first.
func (s *Server) Start() error {
	s.logger.Info("Starting server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
