// Package report renders flow results and outage sweeps as CSV, JSON,
// Excel, or PDF documents.
package report

import (
	"context"
	"fmt"
	"time"

	"watersupply/internal/resilience"
	"watersupply/pkg/apperror"
	"watersupply/pkg/domain"
)

// Format names a report output format.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatExcel Format = "excel"
	FormatPDF   Format = "pdf"
)

// Kind names the report content.
type Kind string

const (
	// KindFlow reports one max-flow computation: totals, per-pipe flows,
	// per-site deliveries.
	KindFlow Kind = "flow"
	// KindSweep reports an outage sweep over stations or pipes.
	KindSweep Kind = "sweep"
)

// Data carries everything a generator may render. Flow reports use
// Network, MaxFlow, and Statistics; sweep reports use Sweep.
type Data struct {
	Kind  Kind
	Title string

	Network    *domain.Network
	MaxFlow    float64
	Iterations int
	Statistics *domain.NetworkStatistics

	Sweep *resilience.SweepReport

	// IncludeSuper includes the virtual source and sink pipes in pipe
	// tables.
	IncludeSuper bool

	GeneratedAt time.Time
}

// Generator renders report data into one output format.
type Generator interface {
	Generate(ctx context.Context, data *Data) ([]byte, error)
	Format() Format
}

// ForFormat returns the generator for a format.
func ForFormat(f Format) (Generator, error) {
	switch f {
	case FormatCSV:
		return NewCSVGenerator(), nil
	case FormatJSON:
		return NewJSONGenerator(), nil
	case FormatExcel:
		return NewExcelGenerator(), nil
	case FormatPDF:
		return NewPDFGenerator(), nil
	default:
		return nil, apperror.New(apperror.CodeInvalidArgument, fmt.Sprintf("unknown report format %q", f))
	}
}

// baseGenerator holds shared formatting helpers.
type baseGenerator struct{}

func (baseGenerator) title(data *Data) string {
	if data.Title != "" {
		return data.Title
	}
	switch data.Kind {
	case KindSweep:
		return "Outage Sweep Report"
	default:
		return "Water Flow Report"
	}
}

func (baseGenerator) generatedAt(data *Data) time.Time {
	if data.GeneratedAt.IsZero() {
		return time.Now()
	}
	return data.GeneratedAt
}

func (baseGenerator) formatFloat(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

func (baseGenerator) formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

func (baseGenerator) formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// reportPipes returns the pipes to include in tables, dropping the
// virtual source and sink pipes unless requested.
func reportPipes(data *Data) []*domain.Pipe {
	if data.Network == nil {
		return nil
	}
	var pipes []*domain.Pipe
	for _, p := range data.Network.Pipes() {
		if !data.IncludeSuper && (p.From == domain.SuperSourceCode || p.To == domain.SuperSinkCode) {
			continue
		}
		pipes = append(pipes, p)
	}
	return pipes
}

// cell returns an A1-style cell address.
func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
