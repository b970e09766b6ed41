package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNetwork(t *testing.T) *Network {
	t.Helper()
	net := NewNetwork()
	require.NoError(t, net.AddStation(&Station{Code: "R1", Type: StationTypeReservoir, MaxDelivery: 100}))
	require.NoError(t, net.AddStation(&Station{Code: "PS1", Type: StationTypePumping}))
	require.NoError(t, net.AddStation(&Station{Code: "C1", Type: StationTypeDelivery, Demand: 60}))
	require.NoError(t, net.AddPipe(&Pipe{From: "R1", To: "PS1", Capacity: 80}))
	require.NoError(t, net.AddPipe(&Pipe{From: "PS1", To: "C1", Capacity: 60}))
	return net
}

func TestNetworkAddStation(t *testing.T) {
	net := NewNetwork()
	require.NoError(t, net.AddStation(&Station{Code: "R1"}))

	err := net.AddStation(&Station{Code: "R1"})
	assert.ErrorContains(t, err, "duplicate")

	err = net.AddStation(&Station{})
	assert.ErrorContains(t, err, "empty")
}

func TestNetworkAddPipe(t *testing.T) {
	net := testNetwork(t)

	tests := []struct {
		name string
		pipe *Pipe
		want string
	}{
		{"negative_capacity", &Pipe{From: "R1", To: "C1", Capacity: -1}, "negative capacity"},
		{"self_loop", &Pipe{From: "R1", To: "R1", Capacity: 5}, "self loop"},
		{"unknown_origin", &Pipe{From: "X", To: "C1", Capacity: 5}, "origin"},
		{"unknown_destination", &Pipe{From: "R1", To: "X", Capacity: 5}, "destination"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorContains(t, net.AddPipe(tt.pipe), tt.want)
		})
	}

	t.Run("parallel_pipes_accumulate", func(t *testing.T) {
		require.NoError(t, net.AddPipe(&Pipe{From: "R1", To: "PS1", Capacity: 20}))
		assert.Equal(t, 100.0, net.Pipe("R1", "PS1").Capacity)
	})
}

func TestNetworkLookups(t *testing.T) {
	net := testNetwork(t)

	assert.True(t, net.HasStation("PS1"))
	assert.False(t, net.HasStation("X"))
	assert.NotNil(t, net.Pipe("R1", "PS1"))
	assert.Nil(t, net.Pipe("PS1", "R1"))
	assert.True(t, net.HasPipeBetween("PS1", "R1"))
	assert.False(t, net.HasPipeBetween("R1", "C1"))

	assert.Equal(t, 3, net.StationCount())
	assert.Equal(t, 2, net.PipeCount())

	codes := []string{}
	for _, s := range net.Stations() {
		codes = append(codes, s.Code)
	}
	assert.Equal(t, []string{"C1", "PS1", "R1"}, codes)
}

func TestNetworkOutgoing(t *testing.T) {
	net := testNetwork(t)
	require.NoError(t, net.AddPipe(&Pipe{From: "PS1", To: "R1", Capacity: 10}))

	keys := []PipeKey{}
	for _, p := range net.Outgoing("PS1") {
		keys = append(keys, p.Key())
	}
	assert.Equal(t, []PipeKey{{From: "PS1", To: "C1"}, {From: "PS1", To: "R1"}}, keys)

	assert.Empty(t, net.Outgoing("C1"))
	assert.Empty(t, net.Outgoing("X"))
}

func TestNetworkResetFlows(t *testing.T) {
	net := testNetwork(t)
	net.Pipe("R1", "PS1").CurrentFlow = 50
	net.Pipe("PS1", "C1").CurrentFlow = 50

	net.ResetFlows()
	for _, p := range net.Pipes() {
		assert.Zero(t, p.CurrentFlow)
	}
}

func TestNetworkClone(t *testing.T) {
	net := testNetwork(t)
	net.Pipe("R1", "PS1").CurrentFlow = 30

	clone := net.Clone()
	clone.Pipe("R1", "PS1").CurrentFlow = 99
	clone.Station("C1").Demand = 1

	assert.Equal(t, 30.0, net.Pipe("R1", "PS1").CurrentFlow)
	assert.Equal(t, 60.0, net.Station("C1").Demand)
	assert.Equal(t, net.StationCount(), clone.StationCount())
	assert.Equal(t, net.PipeCount(), clone.PipeCount())
}

func TestPipeUtilization(t *testing.T) {
	p := &Pipe{From: "A", To: "B", Capacity: 10, CurrentFlow: 9}
	assert.InDelta(t, 0.9, p.Utilization(), Epsilon)
	assert.False(t, p.IsSaturated())
	assert.InDelta(t, 1.0, p.ResidualCapacity(), Epsilon)

	p.CurrentFlow = 10
	assert.True(t, p.IsSaturated())

	zero := &Pipe{From: "A", To: "B"}
	assert.Zero(t, zero.Utilization())
}
