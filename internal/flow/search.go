package flow

import "sync"

// ExclusionKind selects the search variant.
type ExclusionKind int

const (
	// ExcludeNone is the unrestricted search.
	ExcludeNone ExclusionKind = iota
	// ExcludeStation removes one station from consideration for the query.
	ExcludeStation
	// ExcludePipe removes one pipe (one or both directions) for the query.
	ExcludePipe
)

// Exclusion is the deactivation selector for a single query. It is an
// immutable value passed into the search; nothing about it is stored on the
// graph, so queries with different exclusions can share one Residual.
//
// The zero value is the unrestricted search.
type Exclusion struct {
	Kind ExclusionKind

	// station is the excluded vertex id for ExcludeStation.
	station int32

	// a, b are the endpoint vertex ids for ExcludePipe; directed limits the
	// block to traversal a->b, otherwise both directions are blocked.
	a, b     int32
	directed bool
}

// excludeStation builds a station exclusion.
func excludeStation(id int32) Exclusion {
	return Exclusion{Kind: ExcludeStation, station: id}
}

// excludePipe builds a pipe exclusion between vertex ids a and b.
func excludePipe(a, b int32, directed bool) Exclusion {
	return Exclusion{Kind: ExcludePipe, a: a, b: b, directed: directed}
}

// blocksVertex reports whether the selector forbids visiting v.
func (e Exclusion) blocksVertex(v int32) bool {
	return e.Kind == ExcludeStation && v == e.station
}

// blocksTraversal reports whether the selector forbids moving from u to v.
// Matching is by traversal endpoints, so a residual arc between the excluded
// pair is blocked exactly like the real pipe: a deactivated pipe is
// impassable in the blocked direction no matter which arc would realize the
// move.
func (e Exclusion) blocksTraversal(u, v int32) bool {
	if e.Kind != ExcludePipe {
		return false
	}
	if u == e.a && v == e.b {
		return true
	}
	return !e.directed && u == e.b && v == e.a
}

// searchState is the per-query BFS scratch state: visited markers, the
// via-arc chain used to reconstruct the augmenting path, and the FIFO queue.
// It is reset at the start of every search and pooled between queries.
type searchState struct {
	visited []bool
	via     []int32 // arc id by which each vertex was reached, -1 if unreached
	queue   []int32
	head    int
}

var statePool = sync.Pool{
	New: func() any { return &searchState{} },
}

// acquireState obtains a searchState sized for n vertices.
func acquireState(n int) *searchState {
	st := statePool.Get().(*searchState)
	st.reset(n)
	return st
}

// reset prepares the state for a fresh search over n vertices.
func (st *searchState) reset(n int) {
	if cap(st.visited) < n {
		st.visited = make([]bool, n)
		st.via = make([]int32, n)
		st.queue = make([]int32, 0, n)
	}
	st.visited = st.visited[:n]
	st.via = st.via[:n]
	for i := range st.visited {
		st.visited[i] = false
		st.via[i] = -1
	}
	st.queue = st.queue[:0]
	st.head = 0
}

// releaseState returns a searchState to the pool.
func releaseState(st *searchState) {
	statePool.Put(st)
}

func (st *searchState) push(v int32) {
	st.queue = append(st.queue, v)
}

func (st *searchState) pop() int32 {
	v := st.queue[st.head]
	st.head++
	return v
}

func (st *searchState) empty() bool {
	return st.head >= len(st.queue)
}

// findAugmentingPath runs a BFS over the residual graph from source toward
// sink, honoring the exclusion selector. Only arcs whose residual capacity
// exceeds eps are traversed. On success every reached vertex has its via
// entry set, so the path can be walked backward from the sink.
func (r *Residual) findAugmentingPath(st *searchState, source, sink int32, excl Exclusion, eps float64) bool {
	if excl.blocksVertex(source) || excl.blocksVertex(sink) {
		return false
	}

	st.visited[source] = true
	st.push(source)

	for !st.empty() && !st.visited[sink] {
		u := st.pop()
		for _, id := range r.adj[u] {
			a := &r.arcs[id]
			if a.residual() <= eps {
				continue
			}
			v := a.to
			if st.visited[v] || excl.blocksVertex(v) || excl.blocksTraversal(u, v) {
				continue
			}
			st.visited[v] = true
			st.via[v] = id
			st.push(v)
		}
	}

	return st.visited[sink]
}
