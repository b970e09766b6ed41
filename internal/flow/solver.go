package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"watersupply/pkg/domain"
)

// Standard errors returned by the solver entry points. Callers should match
// them with errors.Is.
var (
	// ErrNilNetwork indicates a nil network was passed to the solver.
	ErrNilNetwork = errors.New("network is nil")

	// ErrSourceNotFound indicates the source station code is not in the network.
	ErrSourceNotFound = errors.New("source station not in network")

	// ErrSinkNotFound indicates the sink station code is not in the network.
	ErrSinkNotFound = errors.New("sink station not in network")

	// ErrSourceEqualsSink indicates source and sink name the same station.
	ErrSourceEqualsSink = errors.New("source equals sink")

	// ErrStationNotFound indicates an excluded station code is not in the network.
	ErrStationNotFound = errors.New("excluded station not in network")

	// ErrPipeNotFound indicates an excluded pipe does not exist between the
	// named stations (in the requested direction for directed exclusions).
	ErrPipeNotFound = errors.New("excluded pipe not in network")

	// ErrNegativeCapacity indicates a pipe with negative capacity was found
	// while compiling the residual graph.
	ErrNegativeCapacity = errors.New("negative pipe capacity")
)

// Options configures a solver run. The zero value is not usable directly;
// call DefaultOptions and adjust.
type Options struct {
	// Epsilon is the tolerance below which a residual capacity counts as zero.
	Epsilon float64

	// MaxIterations limits the number of augmenting paths. Zero or negative
	// means unlimited; termination is then guaranteed by finite capacities.
	MaxIterations int

	// Timeout bounds the run. Zero relies on the caller's context alone.
	Timeout time.Duration

	// LenientExclusion degrades a query whose excluded station or pipe does
	// not exist into the unrestricted computation instead of failing. The
	// default contract reports ErrStationNotFound / ErrPipeNotFound.
	LenientExclusion bool
}

// DefaultOptions returns the options used when nil is passed to a solver
// entry point.
func DefaultOptions() *Options {
	return &Options{
		Epsilon: Epsilon,
		Timeout: 30 * time.Second,
	}
}

// Result describes a completed max-flow computation. The per-pipe flows are
// written back onto the network, so utilization and per-station throughput
// can be read from the graph model directly.
type Result struct {
	// MaxFlow is the total flow out of the source.
	MaxFlow float64

	// Iterations is the number of augmenting paths applied.
	Iterations int

	// Duration is the wall-clock time of the computation.
	Duration time.Duration

	// Canceled reports that the context ended before the search was
	// exhausted; MaxFlow then holds the flow found so far, which is a valid
	// (possibly non-maximum) flow.
	Canceled bool
}

// Solve computes the maximum flow from source to sink and writes the
// resulting pipe flows back onto the network.
//
// Invalid or unknown source/sink codes are reported before any flow state is
// touched.
func Solve(ctx context.Context, net *domain.Network, source, sink string, opts *Options) (*Result, error) {
	return solve(ctx, net, source, sink, nil, opts)
}

// SolveWithoutStation computes the maximum flow as if the named station were
// removed from service. The station is only filtered during the search; the
// network structure is untouched.
func SolveWithoutStation(ctx context.Context, net *domain.Network, source, sink, station string, opts *Options) (*Result, error) {
	sel := &selector{kind: ExcludeStation, stationCode: station}
	return solve(ctx, net, source, sink, sel, opts)
}

// SolveWithoutPipe computes the maximum flow as if the pipe between stations
// a and b were out of service. A directed exclusion blocks only the a->b
// direction; otherwise both directions between the pair are blocked.
func SolveWithoutPipe(ctx context.Context, net *domain.Network, source, sink, a, b string, directed bool, opts *Options) (*Result, error) {
	sel := &selector{kind: ExcludePipe, pipeA: a, pipeB: b, directed: directed}
	return solve(ctx, net, source, sink, sel, opts)
}

// selector is the unresolved, code-level form of an Exclusion.
type selector struct {
	kind        ExclusionKind
	stationCode string
	pipeA       string
	pipeB       string
	directed    bool
}

// resolve validates the selector against the network and residual graph and
// returns the id-level exclusion. An unknown target is an error unless
// LenientExclusion downgrades it to the unrestricted search.
func (s *selector) resolve(net *domain.Network, r *Residual, opts *Options) (Exclusion, error) {
	none := Exclusion{}
	if s == nil {
		return none, nil
	}
	switch s.kind {
	case ExcludeStation:
		id, ok := r.vertex(s.stationCode)
		if !ok {
			if opts.LenientExclusion {
				return none, nil
			}
			return none, fmt.Errorf("%w: %q", ErrStationNotFound, s.stationCode)
		}
		return excludeStation(id), nil

	case ExcludePipe:
		exists := false
		if s.directed {
			exists = net.Pipe(s.pipeA, s.pipeB) != nil
		} else {
			exists = net.HasPipeBetween(s.pipeA, s.pipeB)
		}
		if !exists {
			if opts.LenientExclusion {
				return none, nil
			}
			return none, fmt.Errorf("%w: %s-%s", ErrPipeNotFound, s.pipeA, s.pipeB)
		}
		ia, okA := r.vertex(s.pipeA)
		ib, okB := r.vertex(s.pipeB)
		if !okA || !okB {
			// Endpoints of an existing pipe are always vertices.
			return none, fmt.Errorf("%w: %s-%s", ErrPipeNotFound, s.pipeA, s.pipeB)
		}
		return excludePipe(ia, ib, s.directed), nil
	}
	return none, nil
}

// checkInterval is how many augmenting iterations pass between context
// checks.
const checkInterval = 100

// solve is the Edmonds-Karp driver shared by the three entry points:
// reset flows, then alternate path search and augmentation until no
// augmenting path remains.
func solve(ctx context.Context, net *domain.Network, source, sink string, sel *selector, opts *Options) (*Result, error) {
	start := time.Now()
	if opts == nil {
		opts = DefaultOptions()
	}
	// Work on a copy so defaulting never mutates the caller's options.
	o := *opts
	if o.Epsilon <= 0 {
		o.Epsilon = Epsilon
	}

	r, err := Compile(net)
	if err != nil {
		return nil, err
	}

	// Validate topology and exclusion before mutating anything, so a failed
	// query leaves no partial flow state behind.
	src, ok := r.vertex(source)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSourceNotFound, source)
	}
	dst, ok := r.vertex(sink)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSinkNotFound, sink)
	}
	if src == dst {
		return nil, ErrSourceEqualsSink
	}
	excl, err := sel.resolve(net, r, &o)
	if err != nil {
		return nil, err
	}

	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	r.resetFlows()

	st := acquireState(r.size())
	defer releaseState(st)

	res := &Result{}
	for o.MaxIterations <= 0 || res.Iterations < o.MaxIterations {
		if res.Iterations%checkInterval == 0 {
			select {
			case <-ctx.Done():
				res.Canceled = true
				res.MaxFlow = r.totalFlowFrom(src)
				r.writeBack()
				res.Duration = time.Since(start)
				return res, nil
			default:
			}
		}

		st.reset(r.size())
		if !r.findAugmentingPath(st, src, dst, excl, o.Epsilon) {
			break
		}

		f := r.bottleneck(st, src, dst)
		if f <= o.Epsilon {
			break
		}
		r.augment(st, src, dst, f)
		res.Iterations++
	}

	res.MaxFlow = r.totalFlowFrom(src)
	r.writeBack()
	res.Duration = time.Since(start)
	return res, nil
}
