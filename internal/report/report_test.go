package report

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"watersupply/internal/resilience"
	"watersupply/pkg/domain"
)

func flowData(t *testing.T) *Data {
	t.Helper()

	n := domain.NewNetwork()
	stations := []*domain.Station{
		{Code: "R1", Type: domain.StationTypeReservoir, MaxDelivery: 10},
		{Code: "C1", Name: "Porto", Type: domain.StationTypeDelivery, Demand: 8},
		{Code: domain.SuperSourceCode, Type: domain.StationTypeSuperSource},
		{Code: domain.SuperSinkCode, Type: domain.StationTypeSuperSink},
	}
	for _, s := range stations {
		if err := n.AddStation(s); err != nil {
			t.Fatalf("failed to add station %s: %v", s.Code, err)
		}
	}

	pipes := []*domain.Pipe{
		{From: domain.SuperSourceCode, To: "R1", Capacity: 10, CurrentFlow: 8},
		{From: "R1", To: "C1", Capacity: 10, CurrentFlow: 8},
		{From: "C1", To: domain.SuperSinkCode, Capacity: 8, CurrentFlow: 8},
	}
	for _, p := range pipes {
		if err := n.AddPipe(p); err != nil {
			t.Fatalf("failed to add pipe %s-%s: %v", p.From, p.To, err)
		}
	}

	return &Data{
		Kind:       KindFlow,
		Network:    n,
		MaxFlow:    8,
		Iterations: 1,
		Statistics: domain.ComputeStatistics(n),
	}
}

func sweepData() *Data {
	return &Data{
		Kind: KindSweep,
		Sweep: &resilience.SweepReport{
			Kind:         "station",
			BaselineFlow: 11,
			Scenarios: []resilience.OutageImpact{
				{Target: "PS1", Flow: 4, Reduction: 7},
				{Target: "PS2", Flow: 6, Reduction: 5},
			},
			CriticalCount:  2,
			WorstTarget:    "PS1",
			WorstReduction: 7,
		},
	}
}

func TestForFormat(t *testing.T) {
	for _, f := range []Format{FormatCSV, FormatJSON, FormatExcel, FormatPDF} {
		g, err := ForFormat(f)
		if err != nil {
			t.Fatalf("ForFormat(%s) failed: %v", f, err)
		}
		if g.Format() != f {
			t.Errorf("ForFormat(%s) returned generator for %s", f, g.Format())
		}
	}

	if _, err := ForFormat("docx"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestCSVGenerator_Flow(t *testing.T) {
	out, err := NewCSVGenerator().Generate(context.Background(), flowData(t))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	s := string(out)
	if !strings.Contains(s, "Max Flow,8.000") {
		t.Errorf("missing max flow line:\n%s", s)
	}
	if !strings.Contains(s, "R1,C1,10.000,8.000,80.0%") {
		t.Errorf("missing pipe row:\n%s", s)
	}
	if !strings.Contains(s, "C1,Porto,8.000,8.000,0.000") {
		t.Errorf("missing delivery row:\n%s", s)
	}
	// Virtual pipes kept out by default
	if strings.Contains(s, domain.SuperSourceCode) {
		t.Errorf("virtual source leaked into report:\n%s", s)
	}
}

func TestCSVGenerator_Sweep(t *testing.T) {
	out, err := NewCSVGenerator().Generate(context.Background(), sweepData())
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	s := string(out)
	if !strings.Contains(s, "Worst Target,PS1") {
		t.Errorf("missing worst target:\n%s", s)
	}
	if !strings.Contains(s, "PS1,4.000,7.000,0") {
		t.Errorf("missing scenario row:\n%s", s)
	}
}

func TestJSONGenerator_Flow(t *testing.T) {
	out, err := NewJSONGenerator().Generate(context.Background(), flowData(t))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	var parsed struct {
		Metadata struct {
			Kind string `json:"kind"`
		} `json:"metadata"`
		Flow struct {
			MaxFlow    float64 `json:"max_flow"`
			Pipes      []any   `json:"pipes"`
			Deliveries []struct {
				Code      string `json:"code"`
				Satisfied bool   `json:"satisfied"`
			} `json:"deliveries"`
		} `json:"flow"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Metadata.Kind != "flow" {
		t.Errorf("unexpected kind: %s", parsed.Metadata.Kind)
	}
	if parsed.Flow.MaxFlow != 8 {
		t.Errorf("unexpected max flow: %v", parsed.Flow.MaxFlow)
	}
	if len(parsed.Flow.Pipes) != 1 {
		t.Errorf("expected 1 real pipe, got %d", len(parsed.Flow.Pipes))
	}
	if len(parsed.Flow.Deliveries) != 1 || !parsed.Flow.Deliveries[0].Satisfied {
		t.Errorf("unexpected deliveries: %+v", parsed.Flow.Deliveries)
	}
}

func TestJSONGenerator_Sweep(t *testing.T) {
	out, err := NewJSONGenerator().Generate(context.Background(), sweepData())
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	var parsed struct {
		Sweep *resilience.SweepReport `json:"sweep"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Sweep == nil || parsed.Sweep.WorstTarget != "PS1" {
		t.Errorf("unexpected sweep payload: %+v", parsed.Sweep)
	}
}

func TestExcelGenerator_Flow(t *testing.T) {
	out, err := NewExcelGenerator().Generate(context.Background(), flowData(t))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a valid workbook: %v", err)
	}
	defer f.Close()

	val, err := f.GetCellValue("Flow Results", "B5")
	if err != nil {
		t.Fatalf("failed to read cell: %v", err)
	}
	if val != "8" {
		t.Errorf("expected max flow 8 in summary, got %q", val)
	}

	if _, err := f.GetCellValue("Deliveries", "A1"); err != nil {
		t.Errorf("expected Deliveries sheet: %v", err)
	}
}

func TestPDFGenerator_Flow(t *testing.T) {
	out, err := NewPDFGenerator().Generate(context.Background(), flowData(t))
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Errorf("output is not a PDF document, starts with %q", out[:min(len(out), 8)])
	}
}

func TestPDFGenerator_Sweep(t *testing.T) {
	out, err := NewPDFGenerator().Generate(context.Background(), sweepData())
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Errorf("output is not a PDF document, starts with %q", out[:min(len(out), 8)])
	}
}

func TestExcelGenerator_Sweep(t *testing.T) {
	out, err := NewExcelGenerator().Generate(context.Background(), sweepData())
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a valid workbook: %v", err)
	}
	defer f.Close()

	val, err := f.GetCellValue("Outage Sweep", "B6")
	if err != nil {
		t.Fatalf("failed to read cell: %v", err)
	}
	if val != "PS1" {
		t.Errorf("expected worst target PS1, got %q", val)
	}
}
