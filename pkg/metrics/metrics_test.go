package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInitMetrics(t *testing.T) {
	// Fresh registry to avoid duplicate registration across tests
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg

	m := InitMetrics("test", "service")

	if m == nil {
		t.Fatal("InitMetrics returned nil")
	}

	if m.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal should not be nil")
	}
	if m.SolveOperationsTotal == nil {
		t.Error("SolveOperationsTotal should not be nil")
	}
	if m.OutageScenariosTotal == nil {
		t.Error("OutageScenariosTotal should not be nil")
	}
}

func TestGet(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg
	defaultMetrics = nil

	m := Get()
	if m == nil {
		t.Fatal("Get() should not return nil")
	}

	m2 := Get()
	if m2 != m {
		t.Error("Get() should return same instance")
	}
}

func TestRecordSolve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetrics(reg, "test", "engine")

	m.RecordSolve("maxflow", true, 120*time.Millisecond, 7, 42.5)
	m.RecordSolve("maxflow", false, 10*time.Millisecond, 1, 0)

	if got := testutil.ToFloat64(m.SolveOperationsTotal.WithLabelValues("maxflow", "success")); got != 1 {
		t.Errorf("expected 1 successful solve, got %v", got)
	}
	if got := testutil.ToFloat64(m.SolveOperationsTotal.WithLabelValues("maxflow", "error")); got != 1 {
		t.Errorf("expected 1 failed solve, got %v", got)
	}
	if got := testutil.ToFloat64(m.MaxFlowValue.WithLabelValues("maxflow")); got != 42.5 {
		t.Errorf("expected max flow gauge 42.5, got %v", got)
	}
}

func TestRecordOutageAndSweep(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetrics(reg, "test", "resilience")

	m.RecordOutage("station", true)
	m.RecordOutage("station", true)
	m.RecordOutage("pipe", false)
	m.RecordSweep("station", 3, 2*time.Second)

	if got := testutil.ToFloat64(m.OutageScenariosTotal.WithLabelValues("station", "success")); got != 2 {
		t.Errorf("expected 2 station scenarios, got %v", got)
	}
	if got := testutil.ToFloat64(m.OutageScenariosTotal.WithLabelValues("pipe", "error")); got != 1 {
		t.Errorf("expected 1 failed pipe scenario, got %v", got)
	}
}

func TestRecordCacheOp(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetrics(reg, "test", "cache")

	m.RecordCacheOp("get", "hit")
	m.RecordCacheOp("get", "miss")
	m.RecordCacheOp("get", "hit")

	if got := testutil.ToFloat64(m.CacheOperationsTotal.WithLabelValues("get", "hit")); got != 2 {
		t.Errorf("expected 2 hits, got %v", got)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetrics(reg, "test", "http")

	m.RecordHTTPRequest("POST", "/v1/maxflow", "200", 15*time.Millisecond)
	m.RecordHTTPRequest("POST", "/v1/maxflow", "400", 1*time.Millisecond)

	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/v1/maxflow", "200")); got != 1 {
		t.Errorf("expected 1 OK request, got %v", got)
	}
}
