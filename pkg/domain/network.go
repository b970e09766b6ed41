// Package domain holds the water distribution network model shared across the
// service: stations, pipes, and the Network container the flow engine reads
// capacities from and writes computed flows back into.
package domain

import (
	"fmt"
	"sort"
)

// StationType classifies a vertex of the network.
type StationType int

const (
	StationTypeUnspecified StationType = iota
	StationTypeReservoir
	StationTypePumping
	StationTypeDelivery
	StationTypeSuperSource
	StationTypeSuperSink
)

// String returns the string representation of the station type.
func (s StationType) String() string {
	switch s {
	case StationTypeReservoir:
		return "reservoir"
	case StationTypePumping:
		return "pumping_station"
	case StationTypeDelivery:
		return "delivery_site"
	case StationTypeSuperSource:
		return "super_source"
	case StationTypeSuperSink:
		return "super_sink"
	default:
		return "unspecified"
	}
}

// PipeKey identifies a directed pipe by its endpoint station codes.
type PipeKey struct {
	From string
	To   string
}

// String returns the string representation of the pipe key.
func (k PipeKey) String() string {
	return fmt.Sprintf("%s->%s", k.From, k.To)
}

// Station represents a vertex of the water network: a reservoir, a pumping
// station, or a delivery site. Stations are identified by a unique code.
type Station struct {
	Code         string
	Name         string
	Type         StationType
	Municipality string

	// MaxDelivery is the maximum supply rate, > 0 for reservoirs only.
	MaxDelivery float64

	// Demand is the required delivery rate, > 0 for delivery sites only.
	Demand float64

	// Population served, informational for delivery sites.
	Population int64
}

// Clone creates a copy of the station.
func (s *Station) Clone() *Station {
	c := *s
	return &c
}

// Pipe represents a directed capacitated connection between two stations.
// CurrentFlow is the only field the flow engine mutates; everything else is
// fixed at construction time.
type Pipe struct {
	From        string
	To          string
	Capacity    float64
	CurrentFlow float64

	// Bidirectional marks pipes loaded from a bidirectional record; such a
	// record produces two directed pipes, each carrying this flag.
	Bidirectional bool
}

// Clone creates a copy of the pipe.
func (p *Pipe) Clone() *Pipe {
	c := *p
	return &c
}

// Key returns the pipe's directed key.
func (p *Pipe) Key() PipeKey {
	return PipeKey{From: p.From, To: p.To}
}

// Utilization returns CurrentFlow / Capacity, or 0 for zero-capacity pipes.
func (p *Pipe) Utilization() float64 {
	if !IsPositive(p.Capacity) {
		return 0
	}
	return p.CurrentFlow / p.Capacity
}

// IsSaturated reports whether the pipe carries its full capacity.
func (p *Pipe) IsSaturated() bool {
	return p.Utilization() >= 1.0-Epsilon
}

// ResidualCapacity returns the remaining capacity available for flow.
func (p *Pipe) ResidualCapacity() float64 {
	return p.Capacity - p.CurrentFlow
}

// Network is the persistent graph model. It owns stations and pipes for the
// whole program run; the flow engine only mutates pipe CurrentFlow values.
//
// Network is not safe for concurrent mutation. Queries that must run in
// parallel should each operate on a Clone.
type Network struct {
	stations map[string]*Station
	pipes    map[PipeKey]*Pipe

	// outgoing keeps pipe keys per origin station in insertion order so that
	// traversals are deterministic.
	outgoing map[string][]PipeKey
}

// NewNetwork creates an empty network.
func NewNetwork() *Network {
	return &Network{
		stations: make(map[string]*Station),
		pipes:    make(map[PipeKey]*Pipe),
		outgoing: make(map[string][]PipeKey),
	}
}

// AddStation adds a station to the network. Adding a station whose code is
// already present is an error.
func (n *Network) AddStation(s *Station) error {
	if s == nil || s.Code == "" {
		return fmt.Errorf("station code must not be empty")
	}
	if _, ok := n.stations[s.Code]; ok {
		return fmt.Errorf("duplicate station code %q", s.Code)
	}
	n.stations[s.Code] = s
	return nil
}

// AddPipe adds a directed pipe. Both endpoints must already exist and the
// capacity must be non-negative. Parallel pipes between the same pair
// accumulate capacity, matching how duplicate records are merged.
func (n *Network) AddPipe(p *Pipe) error {
	if p == nil {
		return fmt.Errorf("pipe must not be nil")
	}
	if p.Capacity < 0 {
		return fmt.Errorf("pipe %s->%s has negative capacity %v", p.From, p.To, p.Capacity)
	}
	if p.From == p.To {
		return fmt.Errorf("pipe %s->%s is a self loop", p.From, p.To)
	}
	if _, ok := n.stations[p.From]; !ok {
		return fmt.Errorf("pipe origin %q not found", p.From)
	}
	if _, ok := n.stations[p.To]; !ok {
		return fmt.Errorf("pipe destination %q not found", p.To)
	}

	key := p.Key()
	if existing, ok := n.pipes[key]; ok {
		existing.Capacity += p.Capacity
		return nil
	}
	n.pipes[key] = p
	n.outgoing[p.From] = append(n.outgoing[p.From], key)
	return nil
}

// Station returns the station with the given code, or nil.
func (n *Network) Station(code string) *Station {
	return n.stations[code]
}

// HasStation reports whether a station with the given code exists.
func (n *Network) HasStation(code string) bool {
	_, ok := n.stations[code]
	return ok
}

// Pipe returns the directed pipe from->to, or nil.
func (n *Network) Pipe(from, to string) *Pipe {
	return n.pipes[PipeKey{From: from, To: to}]
}

// HasPipeBetween reports whether any pipe exists between a and b, in either
// direction.
func (n *Network) HasPipeBetween(a, b string) bool {
	if _, ok := n.pipes[PipeKey{From: a, To: b}]; ok {
		return true
	}
	_, ok := n.pipes[PipeKey{From: b, To: a}]
	return ok
}

// Stations returns all stations sorted by code.
func (n *Network) Stations() []*Station {
	out := make([]*Station, 0, len(n.stations))
	for _, s := range n.stations {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Pipes returns all pipes sorted by (from, to).
func (n *Network) Pipes() []*Pipe {
	out := make([]*Pipe, 0, len(n.pipes))
	for _, p := range n.pipes {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Outgoing returns the pipes leaving the given station in insertion order.
func (n *Network) Outgoing(code string) []*Pipe {
	keys := n.outgoing[code]
	out := make([]*Pipe, 0, len(keys))
	for _, k := range keys {
		out = append(out, n.pipes[k])
	}
	return out
}

// StationCount returns the number of stations.
func (n *Network) StationCount() int {
	return len(n.stations)
}

// PipeCount returns the number of directed pipes.
func (n *Network) PipeCount() int {
	return len(n.pipes)
}

// ResetFlows sets CurrentFlow to zero on every pipe.
func (n *Network) ResetFlows() {
	for _, p := range n.pipes {
		p.CurrentFlow = 0
	}
}

// Clone creates a deep copy of the network. The clone is fully independent,
// so flow computations on it never touch the original.
func (n *Network) Clone() *Network {
	c := NewNetwork()
	for code, s := range n.stations {
		c.stations[code] = s.Clone()
	}
	for key, p := range n.pipes {
		c.pipes[key] = p.Clone()
	}
	for code, keys := range n.outgoing {
		c.outgoing[code] = append([]PipeKey(nil), keys...)
	}
	return c
}

// TotalDemand returns the summed demand of all delivery sites.
func (n *Network) TotalDemand() float64 {
	total := 0.0
	for _, s := range n.stations {
		total += s.Demand
	}
	return total
}

// DeliveredTo returns the total flow arriving at the given station.
func (n *Network) DeliveredTo(code string) float64 {
	total := 0.0
	for _, p := range n.pipes {
		if p.To == code {
			total += p.CurrentFlow
		}
	}
	return total
}
