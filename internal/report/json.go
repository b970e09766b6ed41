package report

import (
	"context"
	"encoding/json"

	"watersupply/internal/resilience"
)

// JSONGenerator renders reports as indented JSON.
type JSONGenerator struct {
	baseGenerator
}

// NewJSONGenerator creates a JSON generator.
func NewJSONGenerator() *JSONGenerator {
	return &JSONGenerator{}
}

func (g *JSONGenerator) Format() Format {
	return FormatJSON
}

type jsonReport struct {
	Metadata jsonMetadata            `json:"metadata"`
	Flow     *jsonFlow               `json:"flow,omitempty"`
	Sweep    *resilience.SweepReport `json:"sweep,omitempty"`
}

type jsonMetadata struct {
	Title       string `json:"title"`
	Kind        string `json:"kind"`
	GeneratedAt string `json:"generated_at"`
}

type jsonFlow struct {
	MaxFlow            float64          `json:"max_flow"`
	Iterations         int              `json:"iterations"`
	TotalDemand        float64          `json:"total_demand,omitempty"`
	TotalDelivered     float64          `json:"total_delivered,omitempty"`
	TotalDeficit       float64          `json:"total_deficit,omitempty"`
	SaturatedPipes     int              `json:"saturated_pipes,omitempty"`
	AverageUtilization float64          `json:"average_utilization,omitempty"`
	Pipes              []jsonPipeFlow   `json:"pipes,omitempty"`
	Deliveries         []jsonSiteResult `json:"deliveries,omitempty"`
}

type jsonPipeFlow struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	Capacity    float64 `json:"capacity"`
	Flow        float64 `json:"flow"`
	Utilization float64 `json:"utilization"`
}

type jsonSiteResult struct {
	Code      string  `json:"code"`
	Name      string  `json:"name,omitempty"`
	Demand    float64 `json:"demand"`
	Delivered float64 `json:"delivered"`
	Deficit   float64 `json:"deficit"`
	Satisfied bool    `json:"satisfied"`
}

func (g *JSONGenerator) Generate(_ context.Context, data *Data) ([]byte, error) {
	out := jsonReport{
		Metadata: jsonMetadata{
			Title:       g.title(data),
			Kind:        string(data.Kind),
			GeneratedAt: g.formatTimestamp(g.generatedAt(data)),
		},
	}

	switch data.Kind {
	case KindSweep:
		out.Sweep = data.Sweep
	default:
		out.Flow = g.buildFlow(data)
	}

	return json.MarshalIndent(out, "", "  ")
}

func (g *JSONGenerator) buildFlow(data *Data) *jsonFlow {
	flow := &jsonFlow{
		MaxFlow:    data.MaxFlow,
		Iterations: data.Iterations,
	}

	if data.Statistics != nil {
		flow.TotalDemand = data.Statistics.TotalDemand
		flow.TotalDelivered = data.Statistics.TotalDelivered
		flow.TotalDeficit = data.Statistics.TotalDeficit
		flow.SaturatedPipes = data.Statistics.SaturatedPipes
		flow.AverageUtilization = data.Statistics.AverageUtilization

		for _, d := range data.Statistics.Deliveries {
			flow.Deliveries = append(flow.Deliveries, jsonSiteResult{
				Code:      d.Code,
				Name:      d.Name,
				Demand:    d.Demand,
				Delivered: d.Delivered,
				Deficit:   d.Deficit,
				Satisfied: d.Satisfied(),
			})
		}
	}

	for _, p := range reportPipes(data) {
		flow.Pipes = append(flow.Pipes, jsonPipeFlow{
			From:        p.From,
			To:          p.To,
			Capacity:    p.Capacity,
			Flow:        p.CurrentFlow,
			Utilization: p.Utilization(),
		})
	}

	return flow
}
