package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watersupply/pkg/domain"
)

type pipeSpec struct {
	from, to string
	capacity float64
}

func buildNetwork(t *testing.T, stations []string, pipes []pipeSpec) *domain.Network {
	t.Helper()
	net := domain.NewNetwork()
	for _, code := range stations {
		require.NoError(t, net.AddStation(&domain.Station{Code: code, Type: domain.StationTypePumping}))
	}
	for _, p := range pipes {
		require.NoError(t, net.AddPipe(&domain.Pipe{From: p.from, To: p.to, Capacity: p.capacity}))
	}
	return net
}

func TestSolve(t *testing.T) {
	tests := []struct {
		name         string
		stations     []string
		pipes        []pipeSpec
		source       string
		sink         string
		expectedFlow float64
	}{
		{
			name:         "simple_two_station",
			stations:     []string{"R1", "C1"},
			pipes:        []pipeSpec{{"R1", "C1", 10}},
			source:       "R1",
			sink:         "C1",
			expectedFlow: 10,
		},
		{
			name:     "linear_bottleneck",
			stations: []string{"SRC", "A", "SINK"},
			pipes: []pipeSpec{
				{"SRC", "A", 5},
				{"A", "SINK", 3},
			},
			source:       "SRC",
			sink:         "SINK",
			expectedFlow: 3,
		},
		{
			name:     "diamond",
			stations: []string{"SRC", "A", "B", "SINK"},
			pipes: []pipeSpec{
				{"SRC", "A", 4},
				{"SRC", "B", 4},
				{"A", "SINK", 4},
				{"B", "SINK", 4},
			},
			source:       "SRC",
			sink:         "SINK",
			expectedFlow: 8,
		},
		{
			name:     "diamond_with_cross_pipe",
			stations: []string{"SRC", "A", "B", "SINK"},
			pipes: []pipeSpec{
				{"SRC", "A", 10},
				{"SRC", "B", 10},
				{"A", "B", 5},
				{"A", "SINK", 10},
				{"B", "SINK", 15},
			},
			source:       "SRC",
			sink:         "SINK",
			expectedFlow: 20,
		},
		{
			name:     "no_path",
			stations: []string{"A", "B", "C", "D"},
			pipes: []pipeSpec{
				{"A", "B", 10},
				{"C", "D", 10},
			},
			source:       "A",
			sink:         "D",
			expectedFlow: 0,
		},
		{
			name:     "residual_rerouting",
			stations: []string{"S", "A", "B", "T"},
			pipes: []pipeSpec{
				{"S", "A", 10},
				{"S", "B", 10},
				{"A", "B", 10},
				{"A", "T", 10},
				{"B", "T", 10},
			},
			source:       "S",
			sink:         "T",
			expectedFlow: 20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net := buildNetwork(t, tt.stations, tt.pipes)

			res, err := Solve(context.Background(), net, tt.source, tt.sink, nil)
			require.NoError(t, err)
			assert.InDelta(t, tt.expectedFlow, res.MaxFlow, Epsilon)
			assert.False(t, res.Canceled)
		})
	}
}

func TestSolveWritesFlowsBack(t *testing.T) {
	net := buildNetwork(t,
		[]string{"SRC", "A", "SINK"},
		[]pipeSpec{{"SRC", "A", 5}, {"A", "SINK", 3}},
	)

	res, err := Solve(context.Background(), net, "SRC", "SINK", nil)
	require.NoError(t, err)
	require.InDelta(t, 3.0, res.MaxFlow, Epsilon)

	assert.InDelta(t, 3.0, net.Pipe("SRC", "A").CurrentFlow, Epsilon)
	assert.InDelta(t, 3.0, net.Pipe("A", "SINK").CurrentFlow, Epsilon)
	assert.True(t, net.Pipe("A", "SINK").IsSaturated())
}

func TestSolveInvalidTopology(t *testing.T) {
	net := buildNetwork(t,
		[]string{"SRC", "A", "SINK"},
		[]pipeSpec{{"SRC", "A", 5}, {"A", "SINK", 3}},
	)

	// Pre-mark flows so a failed query can be shown to leave them untouched.
	net.Pipe("SRC", "A").CurrentFlow = 42
	net.Pipe("A", "SINK").CurrentFlow = 42

	tests := []struct {
		name    string
		source  string
		sink    string
		wantErr error
	}{
		{"unknown_source", "NOPE", "SINK", ErrSourceNotFound},
		{"unknown_sink", "SRC", "NOPE", ErrSinkNotFound},
		{"source_equals_sink", "SRC", "SRC", ErrSourceEqualsSink},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Solve(context.Background(), net, tt.source, tt.sink, nil)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, res)
			assert.Equal(t, 42.0, net.Pipe("SRC", "A").CurrentFlow)
			assert.Equal(t, 42.0, net.Pipe("A", "SINK").CurrentFlow)
		})
	}

	t.Run("nil_network", func(t *testing.T) {
		_, err := Solve(context.Background(), nil, "SRC", "SINK", nil)
		require.ErrorIs(t, err, ErrNilNetwork)
	})
}

func TestSolveWithoutStation(t *testing.T) {
	diamond := func(t *testing.T) *domain.Network {
		return buildNetwork(t,
			[]string{"SRC", "A", "B", "SINK"},
			[]pipeSpec{
				{"SRC", "A", 4},
				{"SRC", "B", 4},
				{"A", "SINK", 4},
				{"B", "SINK", 4},
			},
		)
	}

	t.Run("diamond_leg_removed", func(t *testing.T) {
		res, err := SolveWithoutStation(context.Background(), diamond(t), "SRC", "SINK", "A", nil)
		require.NoError(t, err)
		assert.InDelta(t, 4.0, res.MaxFlow, Epsilon)
	})

	t.Run("only_path_removed", func(t *testing.T) {
		net := buildNetwork(t,
			[]string{"SRC", "A", "SINK"},
			[]pipeSpec{{"SRC", "A", 5}, {"A", "SINK", 3}},
		)
		res, err := SolveWithoutStation(context.Background(), net, "SRC", "SINK", "A", nil)
		require.NoError(t, err)
		assert.Zero(t, res.MaxFlow)
	})

	t.Run("unknown_station_is_error", func(t *testing.T) {
		_, err := SolveWithoutStation(context.Background(), diamond(t), "SRC", "SINK", "NOPE", nil)
		require.ErrorIs(t, err, ErrStationNotFound)
	})

	t.Run("unknown_station_lenient", func(t *testing.T) {
		opts := DefaultOptions()
		opts.LenientExclusion = true
		res, err := SolveWithoutStation(context.Background(), diamond(t), "SRC", "SINK", "NOPE", opts)
		require.NoError(t, err)
		assert.InDelta(t, 8.0, res.MaxFlow, Epsilon)
	})
}

func TestSolveWithoutPipe(t *testing.T) {
	t.Run("only_path_blocked", func(t *testing.T) {
		net := buildNetwork(t,
			[]string{"SRC", "A", "SINK"},
			[]pipeSpec{{"SRC", "A", 5}, {"A", "SINK", 3}},
		)
		res, err := SolveWithoutPipe(context.Background(), net, "SRC", "SINK", "A", "SINK", true, nil)
		require.NoError(t, err)
		assert.Zero(t, res.MaxFlow)
	})

	t.Run("directed_keeps_reverse_direction_usable", func(t *testing.T) {
		// B's supply can only reach the sink through B->A; blocking A->B alone
		// must not cut it off.
		net := buildNetwork(t,
			[]string{"S", "A", "B", "T"},
			[]pipeSpec{
				{"S", "A", 4},
				{"S", "B", 4},
				{"A", "B", 4},
				{"B", "A", 4},
				{"A", "T", 8},
			},
		)

		res, err := SolveWithoutPipe(context.Background(), net, "S", "T", "A", "B", true, nil)
		require.NoError(t, err)
		assert.InDelta(t, 8.0, res.MaxFlow, Epsilon)

		blocked, err := SolveWithoutPipe(context.Background(), net, "S", "T", "A", "B", false, nil)
		require.NoError(t, err)
		assert.InDelta(t, 4.0, blocked.MaxFlow, Epsilon)
	})

	t.Run("unknown_pipe_is_error", func(t *testing.T) {
		net := buildNetwork(t,
			[]string{"SRC", "A", "SINK"},
			[]pipeSpec{{"SRC", "A", 5}, {"A", "SINK", 3}},
		)
		_, err := SolveWithoutPipe(context.Background(), net, "SRC", "SINK", "A", "NOPE", false, nil)
		require.ErrorIs(t, err, ErrPipeNotFound)

		// The pipe exists only as SRC->A; a directed exclusion of A->SRC
		// names a direction that is not there.
		_, err = SolveWithoutPipe(context.Background(), net, "SRC", "SINK", "A", "SRC", true, nil)
		require.ErrorIs(t, err, ErrPipeNotFound)
	})

	t.Run("unknown_pipe_lenient", func(t *testing.T) {
		net := buildNetwork(t,
			[]string{"SRC", "A", "SINK"},
			[]pipeSpec{{"SRC", "A", 5}, {"A", "SINK", 3}},
		)
		opts := DefaultOptions()
		opts.LenientExclusion = true
		res, err := SolveWithoutPipe(context.Background(), net, "SRC", "SINK", "A", "NOPE", false, opts)
		require.NoError(t, err)
		assert.InDelta(t, 3.0, res.MaxFlow, Epsilon)
	})
}

// complexNetwork is shared by the property tests below.
func complexNetwork(t *testing.T) *domain.Network {
	return buildNetwork(t,
		[]string{"S", "A", "B", "C", "D", "T"},
		[]pipeSpec{
			{"S", "A", 10},
			{"S", "B", 10},
			{"A", "B", 2},
			{"A", "C", 4},
			{"A", "D", 8},
			{"B", "D", 9},
			{"C", "T", 10},
			{"D", "C", 6},
			{"D", "T", 10},
		},
	)
}

func TestFlowConservationAndBounds(t *testing.T) {
	net := complexNetwork(t)

	res, err := Solve(context.Background(), net, "S", "T", nil)
	require.NoError(t, err)
	assert.InDelta(t, 19.0, res.MaxFlow, Epsilon)

	for _, p := range net.Pipes() {
		assert.GreaterOrEqual(t, p.CurrentFlow, -Epsilon, "pipe %s", p.Key())
		assert.LessOrEqual(t, p.CurrentFlow, p.Capacity+Epsilon, "pipe %s", p.Key())
	}

	for _, s := range net.Stations() {
		if s.Code == "S" || s.Code == "T" {
			continue
		}
		in, out := 0.0, 0.0
		for _, p := range net.Pipes() {
			if p.To == s.Code {
				in += p.CurrentFlow
			}
			if p.From == s.Code {
				out += p.CurrentFlow
			}
		}
		assert.InDelta(t, in, out, Epsilon, "conservation at %s", s.Code)
	}
}

func TestSolveIdempotence(t *testing.T) {
	net := complexNetwork(t)

	first, err := Solve(context.Background(), net, "S", "T", nil)
	require.NoError(t, err)

	second, err := Solve(context.Background(), net, "S", "T", nil)
	require.NoError(t, err)

	assert.InDelta(t, first.MaxFlow, second.MaxFlow, Epsilon)
	assert.Equal(t, first.Iterations, second.Iterations)
}

func TestExclusionMonotonicity(t *testing.T) {
	net := complexNetwork(t)

	base, err := Solve(context.Background(), net, "S", "T", nil)
	require.NoError(t, err)

	for _, s := range net.Stations() {
		if s.Code == "S" || s.Code == "T" {
			continue
		}
		res, err := SolveWithoutStation(context.Background(), net, "S", "T", s.Code, nil)
		require.NoError(t, err)
		assert.LessOrEqual(t, res.MaxFlow, base.MaxFlow+Epsilon, "station %s", s.Code)
	}

	for _, p := range net.Pipes() {
		res, err := SolveWithoutPipe(context.Background(), net, "S", "T", p.From, p.To, false, nil)
		require.NoError(t, err)
		assert.LessOrEqual(t, res.MaxFlow, base.MaxFlow+Epsilon, "pipe %s", p.Key())
	}
}

func TestSolveContextCanceled(t *testing.T) {
	net := complexNetwork(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Solve(ctx, net, "S", "T", nil)
	require.NoError(t, err)
	assert.True(t, res.Canceled)
	assert.Zero(t, res.MaxFlow)
}

func TestSolveMaxIterations(t *testing.T) {
	net := complexNetwork(t)

	opts := DefaultOptions()
	opts.MaxIterations = 1
	res, err := Solve(context.Background(), net, "S", "T", opts)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Iterations)
	assert.Less(t, res.MaxFlow, 19.0)
}

func TestSolveDoesNotMutateOptions(t *testing.T) {
	net := complexNetwork(t)

	opts := &Options{Epsilon: 0, MaxIterations: 50}
	_, err := Solve(context.Background(), net, "S", "T", opts)
	require.NoError(t, err)

	assert.Zero(t, opts.Epsilon)
	assert.Equal(t, 50, opts.MaxIterations)
}

func TestSolveCustomEpsilon(t *testing.T) {
	// A tolerance above a pipe's capacity makes that pipe invisible to the
	// search, so only the wide route carries flow.
	net := buildNetwork(t,
		[]string{"S", "A", "B", "T"},
		[]pipeSpec{
			{"S", "A", 10},
			{"A", "T", 10},
			{"S", "B", 0.5},
			{"B", "T", 0.5},
		},
	)

	opts := DefaultOptions()
	opts.Epsilon = 1
	res, err := Solve(context.Background(), net, "S", "T", opts)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, res.MaxFlow, Epsilon)
	assert.Zero(t, net.Pipe("S", "B").CurrentFlow)

	res, err = Solve(context.Background(), net, "S", "T", nil)
	require.NoError(t, err)
	assert.InDelta(t, 10.5, res.MaxFlow, Epsilon)
}

func TestCompileRejectsNegativeCapacity(t *testing.T) {
	net := buildNetwork(t,
		[]string{"A", "B"},
		[]pipeSpec{{"A", "B", 5}},
	)
	net.Pipe("A", "B").Capacity = -1

	_, err := Solve(context.Background(), net, "A", "B", nil)
	require.ErrorIs(t, err, ErrNegativeCapacity)
}
