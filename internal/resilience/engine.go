// Package resilience answers "what if" questions about the water network:
// how much flow remains deliverable when one station or one pipe is taken out
// of service, which delivery sites are affected, and which elements of the
// network are critical (N-1 analysis).
//
// Every query is a pure query-time filter over the shared network; nothing is
// removed from the graph model, so one Network serves any number of
// consecutive scenarios.
package resilience

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"watersupply/internal/flow"
	"watersupply/pkg/domain"
	"watersupply/pkg/logger"
	"watersupply/pkg/telemetry"
)

// Engine runs outage scenarios against a network.
type Engine struct {
	source string
	sink   string
	opts   *flow.Options
}

// NewEngine creates an engine that computes flows between the given source
// and sink stations. Passing nil options uses flow.DefaultOptions.
func NewEngine(source, sink string, opts *flow.Options) *Engine {
	if opts == nil {
		opts = flow.DefaultOptions()
	}
	return &Engine{source: source, sink: sink, opts: opts}
}

// NewNetworkEngine creates an engine over the network's super source and
// super sink, the usual configuration for a loaded dataset.
func NewNetworkEngine(opts *flow.Options) *Engine {
	return NewEngine(domain.SuperSourceCode, domain.SuperSinkCode, opts)
}

// SiteImpact describes how one delivery site is affected by an outage.
type SiteImpact struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Demand    float64 `json:"demand"`
	Before    float64 `json:"before"`
	After     float64 `json:"after"`
	Shortfall float64 `json:"shortfall"` // Before - After, >= 0
}

// OutageImpact is the result of a single what-if scenario.
type OutageImpact struct {
	ScenarioID    string        `json:"scenario_id"`
	Kind          string        `json:"kind"`   // "station" or "pipe"
	Target        string        `json:"target"` // station code or "A-B" pipe label
	BaselineFlow  float64       `json:"baseline_flow"`
	Flow          float64       `json:"flow"`
	Reduction     float64       `json:"reduction"`
	AffectedSites []SiteImpact  `json:"affected_sites,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// Critical reports whether the outage reduces total deliverable flow.
func (o *OutageImpact) Critical() bool {
	return domain.IsPositive(o.Reduction)
}

// SweepReport aggregates a full N-1 sweep over stations or pipes.
type SweepReport struct {
	SweepID        string         `json:"sweep_id"`
	Kind           string         `json:"kind"`
	BaselineFlow   float64        `json:"baseline_flow"`
	Scenarios      []OutageImpact `json:"scenarios"`
	CriticalCount  int            `json:"critical_count"`
	WorstTarget    string         `json:"worst_target"`
	WorstReduction float64        `json:"worst_reduction"`
}

// StationOutage computes the maximum deliverable flow with the named station
// out of service and the per-site delivery impact.
func (e *Engine) StationOutage(ctx context.Context, net *domain.Network, station string) (*OutageImpact, error) {
	ctx, span := telemetry.StartSpan(ctx, "resilience.StationOutage")
	defer span.End()

	baseline, before, err := e.baseline(ctx, net)
	if err != nil {
		return nil, err
	}

	res, err := flow.SolveWithoutStation(ctx, net, e.source, e.sink, station, e.opts)
	if err != nil {
		return nil, err
	}
	return e.impact("station", station, baseline, before, net, res), nil
}

// PipeOutage computes the maximum deliverable flow with the pipe between a
// and b out of service. A directed outage blocks only the a->b direction.
func (e *Engine) PipeOutage(ctx context.Context, net *domain.Network, a, b string, directed bool) (*OutageImpact, error) {
	ctx, span := telemetry.StartSpan(ctx, "resilience.PipeOutage")
	defer span.End()

	baseline, before, err := e.baseline(ctx, net)
	if err != nil {
		return nil, err
	}

	res, err := flow.SolveWithoutPipe(ctx, net, e.source, e.sink, a, b, directed, e.opts)
	if err != nil {
		return nil, err
	}
	return e.impact("pipe", pipeLabel(a, b), baseline, before, net, res), nil
}

// SweepStations runs the N-1 station analysis: every station except the
// source and sink endpoints is removed in turn.
func (e *Engine) SweepStations(ctx context.Context, net *domain.Network) (*SweepReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "resilience.SweepStations")
	defer span.End()

	baseline, before, err := e.baseline(ctx, net)
	if err != nil {
		return nil, err
	}

	report := e.newSweep("station", baseline)
	for _, s := range net.Stations() {
		if s.Code == e.source || s.Code == e.sink {
			continue
		}
		res, err := flow.SolveWithoutStation(ctx, net, e.source, e.sink, s.Code, e.opts)
		if err != nil {
			return nil, fmt.Errorf("station %s: %w", s.Code, err)
		}
		report.add(*e.impact("station", s.Code, baseline, before, net, res))
	}

	logger.Debug("station sweep finished",
		"sweep_id", report.SweepID,
		"scenarios", len(report.Scenarios),
		"critical", report.CriticalCount,
	)
	return report, nil
}

// SweepPipes runs the N-1 pipe analysis. Pipes built from a bidirectional
// record are failed as one physical pipe (both directions at once, tested
// once per pair); unidirectional pipes block only their own direction.
func (e *Engine) SweepPipes(ctx context.Context, net *domain.Network) (*SweepReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "resilience.SweepPipes")
	defer span.End()

	baseline, before, err := e.baseline(ctx, net)
	if err != nil {
		return nil, err
	}

	report := e.newSweep("pipe", baseline)
	seen := make(map[domain.PipeKey]bool)
	for _, p := range net.Pipes() {
		if p.From == e.source && e.source == domain.SuperSourceCode {
			continue // virtual inlet, not a physical pipe
		}
		if p.To == e.sink && e.sink == domain.SuperSinkCode {
			continue // virtual outlet
		}
		key := domain.PipeKey{From: p.From, To: p.To}
		if p.Bidirectional {
			unordered := key
			if unordered.From > unordered.To {
				unordered.From, unordered.To = unordered.To, unordered.From
			}
			if seen[unordered] {
				continue
			}
			seen[unordered] = true
		}

		res, err := flow.SolveWithoutPipe(ctx, net, e.source, e.sink, p.From, p.To, !p.Bidirectional, e.opts)
		if err != nil {
			return nil, fmt.Errorf("pipe %s: %w", key, err)
		}
		report.add(*e.impact("pipe", pipeLabel(p.From, p.To), baseline, before, net, res))
	}

	logger.Debug("pipe sweep finished",
		"sweep_id", report.SweepID,
		"scenarios", len(report.Scenarios),
		"critical", report.CriticalCount,
	)
	return report, nil
}

// baseline computes the unrestricted flow and captures per-site deliveries.
func (e *Engine) baseline(ctx context.Context, net *domain.Network) (float64, map[string]domain.SiteDelivery, error) {
	res, err := flow.Solve(ctx, net, e.source, e.sink, e.opts)
	if err != nil {
		return 0, nil, err
	}
	before := make(map[string]domain.SiteDelivery)
	for _, d := range domain.ComputeDeliveries(net) {
		before[d.Code] = d
	}
	return res.MaxFlow, before, nil
}

// impact builds an OutageImpact from the excluded solve, comparing the
// network's post-solve deliveries against the captured baseline.
func (e *Engine) impact(kind, target string, baseline float64, before map[string]domain.SiteDelivery, net *domain.Network, res *flow.Result) *OutageImpact {
	out := &OutageImpact{
		ScenarioID:   uuid.NewString(),
		Kind:         kind,
		Target:       target,
		BaselineFlow: baseline,
		Flow:         res.MaxFlow,
		Reduction:    baseline - res.MaxFlow,
		Duration:     res.Duration,
	}
	if out.Reduction < 0 {
		out.Reduction = 0
	}

	for _, after := range domain.ComputeDeliveries(net) {
		prev, ok := before[after.Code]
		if !ok {
			continue
		}
		shortfall := prev.Delivered - after.Delivered
		if !domain.IsPositive(shortfall) {
			continue
		}
		out.AffectedSites = append(out.AffectedSites, SiteImpact{
			Code:      after.Code,
			Name:      after.Name,
			Demand:    after.Demand,
			Before:    prev.Delivered,
			After:     after.Delivered,
			Shortfall: shortfall,
		})
	}
	sort.Slice(out.AffectedSites, func(i, j int) bool {
		return out.AffectedSites[i].Code < out.AffectedSites[j].Code
	})
	return out
}

func (e *Engine) newSweep(kind string, baseline float64) *SweepReport {
	return &SweepReport{
		SweepID:      uuid.NewString(),
		Kind:         kind,
		BaselineFlow: baseline,
	}
}

func (r *SweepReport) add(o OutageImpact) {
	r.Scenarios = append(r.Scenarios, o)
	if o.Critical() {
		r.CriticalCount++
	}
	if o.Reduction > r.WorstReduction {
		r.WorstReduction = o.Reduction
		r.WorstTarget = o.Target
	}
}

func pipeLabel(a, b string) string {
	return a + "-" + b
}
