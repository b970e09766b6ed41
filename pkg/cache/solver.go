package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"watersupply/pkg/domain"
)

// SolveCache is a specialized cache for max-flow computation results.
type SolveCache struct {
	cache      Cache
	defaultTTL time.Duration
}

// CachedSolveResult is the serialized form of a computation outcome.
type CachedSolveResult struct {
	MaxFlow    float64          `json:"max_flow"`
	Iterations int              `json:"iterations"`
	DurationMs float64          `json:"duration_ms"`
	PipeFlows  []CachedPipeFlow `json:"pipe_flows,omitempty"`
	ComputedAt time.Time        `json:"computed_at"`
}

// CachedPipeFlow records the flow assigned to one pipe.
type CachedPipeFlow struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	Flow        float64 `json:"flow"`
	Capacity    float64 `json:"capacity"`
	Utilization float64 `json:"utilization"`
}

// NewSolveCache wraps a Cache for result storage.
func NewSolveCache(cache Cache, defaultTTL time.Duration) *SolveCache {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	return &SolveCache{
		cache:      cache,
		defaultTTL: defaultTTL,
	}
}

// Get looks up a cached result for a solve between source and sink. The
// second return value reports whether the entry was found.
func (sc *SolveCache) Get(ctx context.Context, n *domain.Network, source, sink, operation, scenario string) (*CachedSolveResult, bool, error) {
	key := BuildSolveKey(NetworkHash(n), source, sink, operation, scenario)

	data, err := sc.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var result CachedSolveResult
	if err := json.Unmarshal(data, &result); err != nil {
		// Corrupt entry, drop it.
		_ = sc.cache.Delete(ctx, key)
		return nil, false, nil
	}

	return &result, true, nil
}

// Set stores a result for a solve between source and sink.
func (sc *SolveCache) Set(ctx context.Context, n *domain.Network, source, sink, operation, scenario string, result *CachedSolveResult, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = sc.defaultTTL
	}

	key := BuildSolveKey(NetworkHash(n), source, sink, operation, scenario)
	result.ComputedAt = time.Now()

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return sc.cache.Set(ctx, key, data, ttl)
}

// SnapshotPipeFlows captures the current pipe flows of a solved network,
// virtual source and sink pipes included, so a cache hit can restore the
// full flow assignment.
func SnapshotPipeFlows(n *domain.Network) []CachedPipeFlow {
	var flows []CachedPipeFlow
	for _, p := range n.Pipes() {
		flows = append(flows, CachedPipeFlow{
			From:        p.From,
			To:          p.To,
			Flow:        p.CurrentFlow,
			Capacity:    p.Capacity,
			Utilization: p.Utilization(),
		})
	}
	return flows
}

// ApplyPipeFlows writes cached flows back onto a network with the same
// topology. Pipes absent from the snapshot keep their current flow.
func ApplyPipeFlows(n *domain.Network, flows []CachedPipeFlow) {
	for _, f := range flows {
		if p := n.Pipe(f.From, f.To); p != nil {
			p.CurrentFlow = f.Flow
		}
	}
}

// Invalidate removes all cached results for a network.
func (sc *SolveCache) Invalidate(ctx context.Context, n *domain.Network) error {
	pattern := fmt.Sprintf("solve:%s:*", NetworkHash(n))
	_, err := sc.cache.DeleteByPattern(ctx, pattern)
	return err
}

// InvalidateAll removes every cached solve result.
func (sc *SolveCache) InvalidateAll(ctx context.Context) (int64, error) {
	return sc.cache.DeleteByPattern(ctx, "solve:*")
}
