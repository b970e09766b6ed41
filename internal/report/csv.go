package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
)

// CSVGenerator renders reports as CSV.
type CSVGenerator struct {
	baseGenerator
}

// NewCSVGenerator creates a CSV generator.
func NewCSVGenerator() *CSVGenerator {
	return &CSVGenerator{}
}

func (g *CSVGenerator) Format() Format {
	return FormatCSV
}

// csvWriter carries the first write error so call sites stay flat.
type csvWriter struct {
	w   *csv.Writer
	err error
}

func (cw *csvWriter) Write(record []string) {
	if cw.err != nil {
		return
	}
	cw.err = cw.w.Write(record)
}

func (cw *csvWriter) Flush() {
	if cw.err != nil {
		return
	}
	cw.w.Flush()
	cw.err = cw.w.Error()
}

func (g *CSVGenerator) Generate(_ context.Context, data *Data) ([]byte, error) {
	var buf bytes.Buffer
	cw := &csvWriter{w: csv.NewWriter(&buf)}

	switch data.Kind {
	case KindSweep:
		g.writeSweep(cw, data)
	default:
		g.writeFlow(cw, data)
	}

	cw.Flush()
	if cw.err != nil {
		return nil, fmt.Errorf("csv write error: %w", cw.err)
	}

	return buf.Bytes(), nil
}

func (g *CSVGenerator) writeFlow(cw *csvWriter, data *Data) {
	cw.Write([]string{g.title(data)})
	cw.Write([]string{"Generated", g.formatTimestamp(g.generatedAt(data))})
	cw.Write(nil)

	cw.Write([]string{"Max Flow", g.formatFloat(data.MaxFlow)})
	if data.Statistics != nil {
		cw.Write([]string{"Total Demand", g.formatFloat(data.Statistics.TotalDemand)})
		cw.Write([]string{"Total Delivered", g.formatFloat(data.Statistics.TotalDelivered)})
		cw.Write([]string{"Total Deficit", g.formatFloat(data.Statistics.TotalDeficit)})
		cw.Write([]string{"Saturated Pipes", fmt.Sprintf("%d", data.Statistics.SaturatedPipes)})
		cw.Write([]string{"Average Utilization", g.formatPercent(data.Statistics.AverageUtilization)})
	}
	cw.Write(nil)

	if pipes := reportPipes(data); len(pipes) > 0 {
		cw.Write([]string{"From", "To", "Capacity", "Flow", "Utilization"})
		for _, p := range pipes {
			cw.Write([]string{
				p.From,
				p.To,
				g.formatFloat(p.Capacity),
				g.formatFloat(p.CurrentFlow),
				g.formatPercent(p.Utilization()),
			})
		}
		cw.Write(nil)
	}

	if data.Statistics != nil && len(data.Statistics.Deliveries) > 0 {
		cw.Write([]string{"Site", "Name", "Demand", "Delivered", "Deficit"})
		for _, d := range data.Statistics.Deliveries {
			cw.Write([]string{
				d.Code,
				d.Name,
				g.formatFloat(d.Demand),
				g.formatFloat(d.Delivered),
				g.formatFloat(d.Deficit),
			})
		}
	}
}

func (g *CSVGenerator) writeSweep(cw *csvWriter, data *Data) {
	cw.Write([]string{g.title(data)})
	cw.Write([]string{"Generated", g.formatTimestamp(g.generatedAt(data))})
	cw.Write(nil)

	if data.Sweep == nil {
		return
	}

	cw.Write([]string{"Kind", data.Sweep.Kind})
	cw.Write([]string{"Baseline Flow", g.formatFloat(data.Sweep.BaselineFlow)})
	cw.Write([]string{"Scenarios", fmt.Sprintf("%d", len(data.Sweep.Scenarios))})
	cw.Write([]string{"Critical", fmt.Sprintf("%d", data.Sweep.CriticalCount)})
	cw.Write([]string{"Worst Target", data.Sweep.WorstTarget})
	cw.Write([]string{"Worst Reduction", g.formatFloat(data.Sweep.WorstReduction)})
	cw.Write(nil)

	cw.Write([]string{"Target", "Flow", "Reduction", "Affected Sites"})
	for _, s := range data.Sweep.Scenarios {
		cw.Write([]string{
			s.Target,
			g.formatFloat(s.Flow),
			g.formatFloat(s.Reduction),
			fmt.Sprintf("%d", len(s.AffectedSites)),
		})
	}
}
