// Package metrics exposes Prometheus collectors for the max-flow engine and
// the HTTP API.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the collector container.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Engine metrics
	SolveOperationsTotal *prometheus.CounterVec
	SolveDuration        *prometheus.HistogramVec
	SolveIterations      *prometheus.HistogramVec
	MaxFlowValue         *prometheus.GaugeVec
	NetworkStationsTotal *prometheus.HistogramVec
	NetworkPipesTotal    *prometheus.HistogramVec

	// Resilience metrics
	OutageScenariosTotal *prometheus.CounterVec
	CriticalOutagesFound *prometheus.HistogramVec
	SweepDuration        *prometheus.HistogramVec

	// Cache metrics
	CacheOperationsTotal *prometheus.CounterVec

	// Service info
	ServiceInfo *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// InitMetrics registers collectors on the default registry.
func InitMetrics(namespace, subsystem string) *Metrics {
	m := newMetrics(prometheus.DefaultRegisterer, namespace, subsystem)
	defaultMetrics = m
	return m
}

func newMetrics(reg prometheus.Registerer, namespace, subsystem string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		SolveOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_operations_total",
				Help:      "Total number of max-flow computations",
			},
			[]string{"operation", "status"},
		),

		SolveDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_duration_seconds",
				Help:      "Duration of max-flow computations",
				Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),

		SolveIterations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "solve_iterations",
				Help:      "Augmenting path iterations per computation",
				Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
			},
			[]string{"operation"},
		),

		MaxFlowValue: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "max_flow_value",
				Help:      "Last computed max flow value",
			},
			[]string{"operation"},
		),

		NetworkStationsTotal: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "network_stations_total",
				Help:      "Number of stations in processed networks",
				Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000},
			},
			[]string{"operation"},
		),

		NetworkPipesTotal: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "network_pipes_total",
				Help:      "Number of pipes in processed networks",
				Buckets:   []float64{20, 100, 500, 1000, 5000, 10000, 50000},
			},
			[]string{"operation"},
		),

		OutageScenariosTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "outage_scenarios_total",
				Help:      "Total number of simulated outage scenarios",
			},
			[]string{"target", "status"},
		),

		CriticalOutagesFound: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "critical_outages_found",
				Help:      "Critical scenarios found per sweep",
				Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
			},
			[]string{"target"},
		),

		SweepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "sweep_duration_seconds",
				Help:      "Duration of full outage sweeps",
				Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
			},
			[]string{"target"},
		),

		CacheOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_operations_total",
				Help:      "Total number of cache operations",
			},
			[]string{"operation", "result"},
		),

		ServiceInfo: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Service information",
			},
			[]string{"version", "environment"},
		),
	}
}

// Get returns the global metrics, initializing defaults if needed.
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("watersupply", "")
	}
	return defaultMetrics
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordSolve records metrics of a max-flow computation.
func (m *Metrics) RecordSolve(operation string, success bool, duration time.Duration, iterations int, maxFlow float64) {
	status := "success"
	if !success {
		status = "error"
	}

	m.SolveOperationsTotal.WithLabelValues(operation, status).Inc()
	m.SolveDuration.WithLabelValues(operation).Observe(duration.Seconds())
	m.SolveIterations.WithLabelValues(operation).Observe(float64(iterations))
	if success {
		m.MaxFlowValue.WithLabelValues(operation).Set(maxFlow)
	}
}

// RecordNetworkSize records the size of a processed network.
func (m *Metrics) RecordNetworkSize(operation string, stations, pipes int) {
	m.NetworkStationsTotal.WithLabelValues(operation).Observe(float64(stations))
	m.NetworkPipesTotal.WithLabelValues(operation).Observe(float64(pipes))
}

// RecordOutage records a simulated outage scenario.
func (m *Metrics) RecordOutage(target string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.OutageScenariosTotal.WithLabelValues(target, status).Inc()
}

// RecordSweep records the outcome of a full outage sweep.
func (m *Metrics) RecordSweep(target string, criticalCount int, duration time.Duration) {
	m.CriticalOutagesFound.WithLabelValues(target).Observe(float64(criticalCount))
	m.SweepDuration.WithLabelValues(target).Observe(duration.Seconds())
}

// RecordCacheOp records a cache hit, miss, or error.
func (m *Metrics) RecordCacheOp(operation, result string) {
	m.CacheOperationsTotal.WithLabelValues(operation, result).Inc()
}

// SetServiceInfo sets the service info gauge.
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// Handler returns the HTTP handler for the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
