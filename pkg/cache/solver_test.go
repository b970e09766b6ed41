package cache

import (
	"context"
	"testing"
	"time"

	"watersupply/pkg/domain"
)

func testNetwork(t *testing.T) *domain.Network {
	t.Helper()

	n := domain.NewNetwork()
	stations := []*domain.Station{
		{Code: "R1", Type: domain.StationTypeReservoir, MaxDelivery: 10},
		{Code: "PS1", Type: domain.StationTypePumping},
		{Code: "C1", Type: domain.StationTypeDelivery, Demand: 8},
	}
	for _, s := range stations {
		if err := n.AddStation(s); err != nil {
			t.Fatalf("failed to add station %s: %v", s.Code, err)
		}
	}

	pipes := []*domain.Pipe{
		{From: "R1", To: "PS1", Capacity: 10},
		{From: "PS1", To: "C1", Capacity: 8},
	}
	for _, p := range pipes {
		if err := n.AddPipe(p); err != nil {
			t.Fatalf("failed to add pipe %s-%s: %v", p.From, p.To, err)
		}
	}

	return n
}

func TestNetworkHash_Deterministic(t *testing.T) {
	a := testNetwork(t)
	b := testNetwork(t)

	if NetworkHash(a) != NetworkHash(b) {
		t.Error("identical networks should hash equally")
	}
	if NetworkHash(nil) != "" {
		t.Error("nil network should hash to empty string")
	}
}

func TestNetworkHash_IgnoresFlows(t *testing.T) {
	a := testNetwork(t)
	b := testNetwork(t)

	for _, p := range b.Pipes() {
		p.CurrentFlow = 5
	}

	if NetworkHash(a) != NetworkHash(b) {
		t.Error("flows should not affect the hash")
	}
}

func TestNetworkHash_SensitiveToCapacity(t *testing.T) {
	a := testNetwork(t)

	b := testNetwork(t)
	if err := b.AddPipe(&domain.Pipe{From: "R1", To: "C1", Capacity: 3}); err != nil {
		t.Fatalf("failed to add pipe: %v", err)
	}

	if NetworkHash(a) == NetworkHash(b) {
		t.Error("topology changes must change the hash")
	}
}

func TestSolveCache_RoundTrip(t *testing.T) {
	mem := NewMemoryCache(nil)
	defer mem.Close()

	sc := NewSolveCache(mem, time.Minute)
	ctx := context.Background()
	n := testNetwork(t)

	_, found, err := sc.Get(ctx, n, "R1", "C1", "maxflow", "")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if found {
		t.Fatal("expected cache miss")
	}

	want := &CachedSolveResult{MaxFlow: 8, Iterations: 2, DurationMs: 1.5}
	if err := sc.Set(ctx, n, "R1", "C1", "maxflow", "", want, 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, found, err := sc.Get(ctx, n, "R1", "C1", "maxflow", "")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !found {
		t.Fatal("expected cache hit")
	}
	if got.MaxFlow != 8 || got.Iterations != 2 {
		t.Errorf("unexpected cached result: %+v", got)
	}
	if got.ComputedAt.IsZero() {
		t.Error("ComputedAt should be stamped on Set")
	}
}

func TestSolveCache_ScenarioIsolation(t *testing.T) {
	mem := NewMemoryCache(nil)
	defer mem.Close()

	sc := NewSolveCache(mem, time.Minute)
	ctx := context.Background()
	n := testNetwork(t)

	if err := sc.Set(ctx, n, "R1", "C1", "maxflow", "", &CachedSolveResult{MaxFlow: 8}, 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := sc.Set(ctx, n, "R1", "C1", "outage", "station:PS1", &CachedSolveResult{MaxFlow: 0}, 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, found, err := sc.Get(ctx, n, "R1", "C1", "outage", "station:PS1")
	if err != nil || !found {
		t.Fatalf("expected hit, found=%v err=%v", found, err)
	}
	if got.MaxFlow != 0 {
		t.Errorf("scenario entries must not collide, got %v", got.MaxFlow)
	}
}

func TestSolveCache_EndpointPairIsolation(t *testing.T) {
	mem := NewMemoryCache(nil)
	defer mem.Close()

	sc := NewSolveCache(mem, time.Minute)
	ctx := context.Background()
	n := testNetwork(t)

	if err := sc.Set(ctx, n, "R1", "C1", "maxflow", "", &CachedSolveResult{MaxFlow: 3}, 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	// Same topology, different endpoints: must not hit the R1->C1 entry.
	if _, found, _ := sc.Get(ctx, n, "PS1", "C1", "maxflow", ""); found {
		t.Error("different source must not share a cache entry")
	}
	if _, found, _ := sc.Get(ctx, n, "R1", "PS1", "maxflow", ""); found {
		t.Error("different sink must not share a cache entry")
	}

	got, found, err := sc.Get(ctx, n, "R1", "C1", "maxflow", "")
	if err != nil || !found {
		t.Fatalf("expected hit for the original pair, found=%v err=%v", found, err)
	}
	if got.MaxFlow != 3 {
		t.Errorf("unexpected cached result: %+v", got)
	}
}

func TestSolveCache_Invalidate(t *testing.T) {
	mem := NewMemoryCache(nil)
	defer mem.Close()

	sc := NewSolveCache(mem, time.Minute)
	ctx := context.Background()
	n := testNetwork(t)

	if err := sc.Set(ctx, n, "R1", "C1", "maxflow", "", &CachedSolveResult{MaxFlow: 8}, 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := sc.Set(ctx, n, "R1", "C1", "outage", "station:PS1", &CachedSolveResult{MaxFlow: 0}, 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if err := sc.Invalidate(ctx, n); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}

	if _, found, _ := sc.Get(ctx, n, "R1", "C1", "maxflow", ""); found {
		t.Error("expected miss after invalidation")
	}
	if _, found, _ := sc.Get(ctx, n, "R1", "C1", "outage", "station:PS1"); found {
		t.Error("expected miss after invalidation")
	}
}

func TestSnapshotAndApplyPipeFlows(t *testing.T) {
	solved := testNetwork(t)
	solved.Pipe("R1", "PS1").CurrentFlow = 8
	solved.Pipe("PS1", "C1").CurrentFlow = 8

	flows := SnapshotPipeFlows(solved)
	if len(flows) != 2 {
		t.Fatalf("expected 2 pipes in snapshot, got %d", len(flows))
	}

	fresh := testNetwork(t)
	ApplyPipeFlows(fresh, flows)

	if got := fresh.Pipe("R1", "PS1").CurrentFlow; got != 8 {
		t.Errorf("expected restored flow 8, got %v", got)
	}
	if got := fresh.Pipe("PS1", "C1").CurrentFlow; got != 8 {
		t.Errorf("expected restored flow 8, got %v", got)
	}
}
