package flow

import "watersupply/pkg/domain"

// bottleneck walks the via-arc chain backward from sink to source and returns
// the minimum residual capacity along the path. It must only be called after
// findAugmentingPath reported success; the via chain is acyclic by
// construction, so the walk visits at most one arc per vertex.
func (r *Residual) bottleneck(st *searchState, source, sink int32) float64 {
	minResidual := domain.Infinity
	for v := sink; v != source; {
		a := &r.arcs[st.via[v]]
		if res := a.residual(); res < minResidual {
			minResidual = res
		}
		v = a.from
	}
	return minResidual
}

// augment pushes f units of flow along the via-arc chain from sink back to
// source. Each traversed arc gains f and its counterpart loses f, so pushing
// along a residual arc cancels flow on the real pipe. Conservation at every
// interior vertex holds again once the whole path has been updated.
//
// f must be positive and no larger than the path bottleneck; violating that
// is a driver bug, not an input error.
func (r *Residual) augment(st *searchState, source, sink int32, f float64) {
	if f <= 0 {
		panic("flow: augment called with non-positive amount")
	}
	for v := sink; v != source; {
		id := st.via[v]
		r.arcs[id].flow += f
		r.arcs[id^1].flow -= f
		v = r.arcs[id].from
	}
}
