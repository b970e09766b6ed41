// Package server exposes the max-flow engine over an HTTP JSON API.
package server

import (
	"context"
	"fmt"
	"net/http"

	"watersupply/pkg/cache"
	"watersupply/pkg/config"
	"watersupply/pkg/logger"
	"watersupply/pkg/metrics"

	"watersupply/internal/flow"
	"watersupply/internal/resilience"
)

// Server wires handlers, middleware, and the engine configuration.
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	solveOpts  *flow.Options
	engine     *resilience.Engine
	solveCache *cache.SolveCache
	metrics    *metrics.Metrics
}

// Option configures a Server.
type Option func(*Server)

// WithSolveCache attaches a solve-result cache.
func WithSolveCache(sc *cache.SolveCache) Option {
	return func(s *Server) {
		s.solveCache = sc
	}
}

// WithMetrics overrides the metrics container.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates a server from the application configuration.
func New(cfg *config.Config, opts ...Option) *Server {
	solveOpts := &flow.Options{
		Epsilon:          cfg.Solver.Epsilon,
		MaxIterations:    cfg.Solver.MaxIterations,
		Timeout:          cfg.Solver.Timeout,
		LenientExclusion: cfg.Solver.LenientExclusion,
	}

	s := &Server{
		cfg:       cfg,
		solveOpts: solveOpts,
		engine:    resilience.NewNetworkEngine(solveOpts),
		metrics:   metrics.Get(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      s.Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return s
}

// Handler builds the routed and middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/maxflow", s.handleMaxFlow)
	mux.HandleFunc("POST /v1/outage/station", s.handleStationOutage)
	mux.HandleFunc("POST /v1/outage/pipe", s.handlePipeOutage)
	mux.HandleFunc("POST /v1/sweep/stations", s.handleSweepStations)
	mux.HandleFunc("POST /v1/sweep/pipes", s.handleSweepPipes)
	mux.HandleFunc("POST /v1/report", s.handleReport)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	if s.cfg.Metrics.Enabled {
		mux.Handle("GET "+s.cfg.Metrics.Path, metrics.Handler())
	}

	var h http.Handler = mux
	h = s.metricsMiddleware(h)
	h = s.loggingMiddleware(h)
	h = s.requestIDMiddleware(h)
	if s.cfg.HTTP.CORS.Enabled {
		h = s.corsMiddleware(h)
	}
	h = s.recoverMiddleware(h)

	return h
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	logger.Info("http server starting", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
