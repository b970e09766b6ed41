// Package main is the entry point for the watersupplyd daemon.
//
// watersupplyd exposes a water distribution network max-flow engine over an
// HTTP JSON API. Networks are submitted per request; the engine computes the
// maximum sustainable flow from the reservoirs to the delivery sites and can
// evaluate the impact of taking individual stations or pipes out of service.
//
// # Endpoints
//
//	POST /v1/maxflow         - Maximum flow for the submitted network
//	POST /v1/outage/station  - Flow impact of deactivating one station
//	POST /v1/outage/pipe     - Flow impact of deactivating one pipe
//	POST /v1/sweep/stations  - Outage impact of every station, one by one
//	POST /v1/sweep/pipes     - Outage impact of every pipe, one by one
//	POST /v1/report          - Solve and render as CSV, JSON, or Excel
//	GET  /healthz            - Liveness probe
//	GET  /metrics            - Prometheus metrics (when enabled)
//
// # Configuration
//
// Configuration is loaded with the following priority (highest to lowest):
//  1. Environment variables (WATERSUPPLY_ prefix)
//  2. Config files (config.yaml, config/config.yaml, /etc/watersupply/config.yaml)
//  3. Default values
//
// Key configuration options (environment variable format):
//
//	# Application
//	WATERSUPPLY_APP_NAME            - Service name (default: watersupply)
//	WATERSUPPLY_APP_ENVIRONMENT     - Environment: development, staging, production
//
//	# HTTP Server
//	WATERSUPPLY_HTTP_PORT           - Listen port (default: 8080)
//	WATERSUPPLY_HTTP_READ_TIMEOUT   - Read timeout (default: 30s)
//	WATERSUPPLY_HTTP_MAX_BODY_BYTES - Request body limit (default: 16MB)
//
//	# Logging
//	WATERSUPPLY_LOG_LEVEL    - debug, info, warn, error (default: info)
//	WATERSUPPLY_LOG_FORMAT   - json, text (default: json)
//	WATERSUPPLY_LOG_OUTPUT   - stdout, stderr, file (default: stdout)
//
//	# Solver
//	WATERSUPPLY_SOLVER_TIMEOUT        - Per-solve deadline (default: 30s)
//	WATERSUPPLY_SOLVER_MAX_ITERATIONS - Augmenting-path cap, 0 = unlimited
//	WATERSUPPLY_SOLVER_EPSILON        - Residual capacity threshold (default: 1e-9)
//
//	# Caching
//	WATERSUPPLY_CACHE_ENABLED     - Enable solve-result caching (default: false)
//	WATERSUPPLY_CACHE_DRIVER      - memory, redis (default: memory)
//	WATERSUPPLY_CACHE_HOST        - Redis host (default: localhost)
//	WATERSUPPLY_CACHE_PORT        - Redis port (default: 6379)
//	WATERSUPPLY_CACHE_DEFAULT_TTL - Entry TTL (default: 5m)
//
//	# Tracing (OpenTelemetry)
//	WATERSUPPLY_TRACING_ENABLED  - Enable distributed tracing (default: false)
//	WATERSUPPLY_TRACING_ENDPOINT - OTLP endpoint (default: localhost:4317)
//
//	# Metrics (Prometheus)
//	WATERSUPPLY_METRICS_ENABLED  - Enable /metrics (default: true)
//	WATERSUPPLY_METRICS_PATH     - Metrics path (default: /metrics)
//
// # Graceful Shutdown
//
// The daemon handles SIGINT and SIGTERM:
//  1. Stops accepting new connections
//  2. Drains in-flight requests (up to http.shutdown_timeout)
//  3. Flushes telemetry and closes the cache connection
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"watersupply/internal/server"
	"watersupply/pkg/cache"
	"watersupply/pkg/config"
	"watersupply/pkg/logger"
	"watersupply/pkg/metrics"
	"watersupply/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	ctx := context.Background()

	// Telemetry first so cache and server setup can emit spans. With
	// tracing disabled Init installs a no-op tracer.
	tp, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		logger.Warn("failed to init telemetry, continuing without tracing", "error", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Warn("failed to shutdown telemetry", "error", err)
			}
		}()
	}

	m := metrics.InitMetrics(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)
	m.SetServiceInfo(cfg.App.Version, cfg.App.Environment)

	// The solve cache is optional; the daemon runs without it if the
	// backend cannot be reached.
	var solveCache *cache.SolveCache
	if cfg.Cache.Enabled {
		baseCache, err := cache.New(cache.FromConfig(&cfg.Cache))
		if err != nil {
			logger.Warn("failed to create cache, continuing without cache", "error", err)
		} else {
			defer baseCache.Close()
			solveCache = cache.NewSolveCache(baseCache, cfg.Cache.DefaultTTL)
			logger.Info("solve cache initialized",
				"driver", cfg.Cache.Driver,
				"ttl", cfg.Cache.DefaultTTL,
			)
		}
	}

	opts := []server.Option{server.WithMetrics(m)}
	if solveCache != nil {
		opts = append(opts, server.WithSolveCache(solveCache))
	}
	srv := server.New(cfg, opts...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("watersupplyd started",
		"port", cfg.HTTP.Port,
		"environment", cfg.App.Environment,
		"version", cfg.App.Version,
		"cache_enabled", solveCache != nil,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server failed", "error", err)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}
}
