// Package flow implements the maximum-flow engine for the water network:
// residual-capacity bookkeeping, BFS augmenting-path search, and the
// Edmonds-Karp driver, together with the station- and pipe-exclusion query
// variants used for resilience analysis.
//
// # Representation
//
// The engine does not walk the domain.Network directly. It compiles the
// network into a Residual: stations get dense integer ids and every pipe
// becomes a forward/reverse arc pair stored so that the reverse of arc i is
// arc i^1. The residual capacity of a forward arc is capacity minus flow; the
// residual capacity of a reverse arc equals the flow on its counterpart.
// Traversal scratch state (visited flags, via-arc chain) lives in a separate
// searchState, never on the graph, so independent what-if queries can share
// one Network.
//
// # Thread Safety
//
// A Residual is not safe for concurrent use. Run queries serially against one
// Network, or give each goroutine its own Network clone.
package flow

import (
	"fmt"

	"watersupply/pkg/domain"
)

// Epsilon is the tolerance for floating-point comparisons.
const Epsilon = domain.Epsilon

// arc is one direction of a pipe in the residual graph. Forward arcs carry
// the pipe's capacity; reverse arcs have capacity zero and accumulate
// negative flow as their counterpart is pushed.
type arc struct {
	from, to int32
	cap      float64
	flow     float64
	pipe     *domain.Pipe // owning pipe, nil on reverse arcs
}

// residual returns the remaining capacity available for traversal.
func (a *arc) residual() float64 {
	return a.cap - a.flow
}

// Residual is the compiled flow network.
type Residual struct {
	codes []string         // vertex id -> station code
	index map[string]int32 // station code -> vertex id
	arcs  []arc            // paired arcs, rev(i) = i ^ 1
	adj   [][]int32        // per-vertex arc ids, insertion order
}

// Compile builds a Residual from the network. Station ids are assigned in
// sorted code order and each station's arcs in pipe insertion order, so
// results are deterministic for a given network. Pipes with negative
// capacity are rejected.
func Compile(net *domain.Network) (*Residual, error) {
	if net == nil {
		return nil, ErrNilNetwork
	}

	stations := net.Stations()
	r := &Residual{
		codes: make([]string, 0, len(stations)),
		index: make(map[string]int32, len(stations)),
		adj:   make([][]int32, len(stations)),
	}
	for _, s := range stations {
		r.index[s.Code] = int32(len(r.codes))
		r.codes = append(r.codes, s.Code)
	}

	r.arcs = make([]arc, 0, 2*net.PipeCount())
	for _, s := range stations {
		for _, p := range net.Outgoing(s.Code) {
			if p.Capacity < 0 {
				return nil, fmt.Errorf("pipe %s: %w", p.Key(), ErrNegativeCapacity)
			}
			u := r.index[p.From]
			v := r.index[p.To]
			fwd := int32(len(r.arcs))
			r.arcs = append(r.arcs,
				arc{from: u, to: v, cap: p.Capacity, pipe: p},
				arc{from: v, to: u},
			)
			r.adj[u] = append(r.adj[u], fwd)
			r.adj[v] = append(r.adj[v], fwd+1)
		}
	}
	return r, nil
}

// vertex resolves a station code to its id.
func (r *Residual) vertex(code string) (int32, bool) {
	id, ok := r.index[code]
	return id, ok
}

// size returns the number of vertices.
func (r *Residual) size() int {
	return len(r.codes)
}

// resetFlows zeroes the flow on every arc.
func (r *Residual) resetFlows() {
	for i := range r.arcs {
		r.arcs[i].flow = 0
	}
}

// totalFlowFrom returns the flow leaving the given vertex on forward arcs.
func (r *Residual) totalFlowFrom(v int32) float64 {
	total := 0.0
	for _, id := range r.adj[v] {
		a := &r.arcs[id]
		if a.pipe != nil && a.flow > 0 {
			total += a.flow
		}
	}
	return total
}

// writeBack copies the computed arc flows onto the owning pipes. Reverse arc
// flow is already accounted for on the forward side, so only forward arcs are
// read.
func (r *Residual) writeBack() {
	for i := range r.arcs {
		if a := &r.arcs[i]; a.pipe != nil {
			a.pipe.CurrentFlow = a.flow
		}
	}
}
