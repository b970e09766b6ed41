package report

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"watersupply/pkg/domain"
)

// PDFGenerator renders reports as PDF documents.
type PDFGenerator struct {
	baseGenerator
}

// NewPDFGenerator creates a PDF generator.
func NewPDFGenerator() *PDFGenerator {
	return &PDFGenerator{}
}

func (g *PDFGenerator) Format() Format {
	return FormatPDF
}

var (
	pdfPrimaryColor   = &props.Color{Red: 46, Green: 116, Blue: 181}  // #2e74b5
	pdfHeaderColor    = &props.Color{Red: 44, Green: 62, Blue: 80}    // #2c3e50
	pdfSuccessColor   = &props.Color{Red: 39, Green: 174, Blue: 96}   // #27ae60
	pdfWarningColor   = &props.Color{Red: 243, Green: 156, Blue: 18}  // #f39c12
	pdfDangerColor    = &props.Color{Red: 231, Green: 76, Blue: 60}   // #e74c3c
	pdfLightGrayColor = &props.Color{Red: 236, Green: 240, Blue: 241} // #ecf0f1
	pdfDarkGrayColor  = &props.Color{Red: 127, Green: 140, Blue: 141} // #7f8c8d

	pdfTitleStyle = props.Text{
		Size:  24,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: pdfHeaderColor,
	}

	pdfSectionStyle = props.Text{
		Size:  16,
		Style: fontstyle.Bold,
		Color: pdfHeaderColor,
		Top:   5,
	}

	pdfNormalStyle = props.Text{
		Size: 10,
	}

	pdfBoldStyle = props.Text{
		Size:  10,
		Style: fontstyle.Bold,
	}

	pdfMetricValueStyle = props.Text{
		Size:  20,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: pdfPrimaryColor,
	}

	pdfMetricLabelStyle = props.Text{
		Size:  9,
		Align: align.Center,
		Color: pdfDarkGrayColor,
	}

	pdfTableHeaderStyle = &props.Cell{
		BackgroundColor: pdfPrimaryColor,
	}

	pdfTableHeaderTextStyle = props.Text{
		Size:  9,
		Style: fontstyle.Bold,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
		Align: align.Center,
	}

	pdfTableCellStyle = &props.Cell{
		BorderType:  border.Bottom,
		BorderColor: pdfLightGrayColor,
	}

	pdfTableCellTextStyle = props.Text{
		Size:  9,
		Align: align.Center,
	}
)

func (g *PDFGenerator) Generate(_ context.Context, data *Data) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber().
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		Build()

	m := maroto.New(cfg)

	g.addHeader(m, data)

	switch data.Kind {
	case KindSweep:
		g.addSweepContent(m, data)
	default:
		g.addFlowContent(m, data)
	}

	g.addFooter(m, data)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate pdf: %w", err)
	}

	return doc.GetBytes(), nil
}

func (g *PDFGenerator) addHeader(m core.Maroto, data *Data) {
	m.AddRow(15,
		text.NewCol(12, g.title(data), pdfTitleStyle),
	)

	m.AddRow(5,
		line.NewCol(12),
	)

	m.AddRow(6,
		text.NewCol(12, fmt.Sprintf("Generated: %s", g.formatTimestamp(g.generatedAt(data))),
			props.Text{Size: 8, Color: pdfDarkGrayColor, Align: align.Right}),
	)

	m.AddRow(8)
}

func (g *PDFGenerator) addFlowContent(m core.Maroto, data *Data) {
	g.addSection(m, "Summary")

	cards := []pdfMetricCard{
		{Label: "Max Flow", Value: g.formatFloat(data.MaxFlow), Highlight: true},
		{Label: "Iterations", Value: fmt.Sprintf("%d", data.Iterations)},
	}
	if data.Network != nil {
		cards = append(cards, pdfMetricCard{
			Label: "Pipes", Value: fmt.Sprintf("%d", len(reportPipes(data))),
		})
	}
	g.addMetricCards(m, cards)

	if s := data.Statistics; s != nil {
		m.AddRow(5)
		g.addKeyValueTable(m, []pdfKeyValue{
			{"Total Demand", g.formatFloat(s.TotalDemand)},
			{"Total Delivered", g.formatFloat(s.TotalDelivered)},
			{"Total Deficit", g.formatFloat(s.TotalDeficit)},
			{"Saturated Pipes", fmt.Sprintf("%d", s.SaturatedPipes)},
			{"Average Utilization", g.formatPercent(s.AverageUtilization)},
		})
	}

	if pipes := reportPipes(data); len(pipes) > 0 {
		g.addSection(m, "Pipe Flows")
		g.addPipeTable(m, data)
	}

	if s := data.Statistics; s != nil && len(s.Deliveries) > 0 {
		g.addSection(m, "Deliveries")
		g.addDeliveryTable(m, data)
	}
}

func (g *PDFGenerator) addPipeTable(m core.Maroto, data *Data) {
	m.AddRow(8,
		text.NewCol(3, "From", pdfTableHeaderTextStyle).WithStyle(pdfTableHeaderStyle),
		text.NewCol(3, "To", pdfTableHeaderTextStyle).WithStyle(pdfTableHeaderStyle),
		text.NewCol(2, "Capacity", pdfTableHeaderTextStyle).WithStyle(pdfTableHeaderStyle),
		text.NewCol(2, "Flow", pdfTableHeaderTextStyle).WithStyle(pdfTableHeaderStyle),
		text.NewCol(2, "Utilization", pdfTableHeaderTextStyle).WithStyle(pdfTableHeaderStyle),
	)

	for _, p := range reportPipes(data) {
		u := p.Utilization()
		utilStyle := pdfTableCellTextStyle
		switch {
		case u >= domain.CriticalUtilizationThreshold:
			utilStyle.Color = pdfDangerColor
		case u >= domain.HighUtilizationThreshold:
			utilStyle.Color = pdfWarningColor
		default:
			utilStyle.Color = pdfSuccessColor
		}

		m.AddRow(6,
			text.NewCol(3, p.From, pdfTableCellTextStyle).WithStyle(pdfTableCellStyle),
			text.NewCol(3, p.To, pdfTableCellTextStyle).WithStyle(pdfTableCellStyle),
			text.NewCol(2, g.formatFloat(p.Capacity), pdfTableCellTextStyle).WithStyle(pdfTableCellStyle),
			text.NewCol(2, g.formatFloat(p.CurrentFlow), pdfTableCellTextStyle).WithStyle(pdfTableCellStyle),
			text.NewCol(2, g.formatPercent(u), utilStyle).WithStyle(pdfTableCellStyle),
		)
	}
}

func (g *PDFGenerator) addDeliveryTable(m core.Maroto, data *Data) {
	m.AddRow(8,
		text.NewCol(2, "Site", pdfTableHeaderTextStyle).WithStyle(pdfTableHeaderStyle),
		text.NewCol(4, "Name", pdfTableHeaderTextStyle).WithStyle(pdfTableHeaderStyle),
		text.NewCol(2, "Demand", pdfTableHeaderTextStyle).WithStyle(pdfTableHeaderStyle),
		text.NewCol(2, "Delivered", pdfTableHeaderTextStyle).WithStyle(pdfTableHeaderStyle),
		text.NewCol(2, "Deficit", pdfTableHeaderTextStyle).WithStyle(pdfTableHeaderStyle),
	)

	for _, d := range data.Statistics.Deliveries {
		deficitStyle := pdfTableCellTextStyle
		if d.Satisfied() {
			deficitStyle.Color = pdfSuccessColor
		} else {
			deficitStyle.Color = pdfDangerColor
		}

		m.AddRow(6,
			text.NewCol(2, d.Code, pdfTableCellTextStyle).WithStyle(pdfTableCellStyle),
			text.NewCol(4, d.Name, pdfTableCellTextStyle).WithStyle(pdfTableCellStyle),
			text.NewCol(2, g.formatFloat(d.Demand), pdfTableCellTextStyle).WithStyle(pdfTableCellStyle),
			text.NewCol(2, g.formatFloat(d.Delivered), pdfTableCellTextStyle).WithStyle(pdfTableCellStyle),
			text.NewCol(2, g.formatFloat(d.Deficit), deficitStyle).WithStyle(pdfTableCellStyle),
		)
	}
}

func (g *PDFGenerator) addSweepContent(m core.Maroto, data *Data) {
	sw := data.Sweep
	if sw == nil {
		g.addSection(m, "No Sweep Data")
		return
	}

	g.addSection(m, "Summary")
	g.addMetricCards(m, []pdfMetricCard{
		{Label: "Baseline Flow", Value: g.formatFloat(sw.BaselineFlow), Highlight: true},
		{Label: "Scenarios", Value: fmt.Sprintf("%d", len(sw.Scenarios))},
		{Label: "Critical", Value: fmt.Sprintf("%d", sw.CriticalCount)},
	})

	m.AddRow(5)
	g.addKeyValueTable(m, []pdfKeyValue{
		{"Kind", sw.Kind},
		{"Worst Target", sw.WorstTarget},
		{"Worst Reduction", g.formatFloat(sw.WorstReduction)},
	})

	if len(sw.Scenarios) > 0 {
		g.addSection(m, "Scenarios")
		m.AddRow(8,
			text.NewCol(4, "Target", pdfTableHeaderTextStyle).WithStyle(pdfTableHeaderStyle),
			text.NewCol(3, "Flow", pdfTableHeaderTextStyle).WithStyle(pdfTableHeaderStyle),
			text.NewCol(3, "Reduction", pdfTableHeaderTextStyle).WithStyle(pdfTableHeaderStyle),
			text.NewCol(2, "Affected", pdfTableHeaderTextStyle).WithStyle(pdfTableHeaderStyle),
		)

		for i := range sw.Scenarios {
			sc := &sw.Scenarios[i]
			reductionStyle := pdfTableCellTextStyle
			if sc.Critical() {
				reductionStyle.Color = pdfDangerColor
			} else {
				reductionStyle.Color = pdfSuccessColor
			}

			m.AddRow(6,
				text.NewCol(4, sc.Target, pdfTableCellTextStyle).WithStyle(pdfTableCellStyle),
				text.NewCol(3, g.formatFloat(sc.Flow), pdfTableCellTextStyle).WithStyle(pdfTableCellStyle),
				text.NewCol(3, g.formatFloat(sc.Reduction), reductionStyle).WithStyle(pdfTableCellStyle),
				text.NewCol(2, fmt.Sprintf("%d", len(sc.AffectedSites)), pdfTableCellTextStyle).WithStyle(pdfTableCellStyle),
			)
		}
	}
}

type pdfMetricCard struct {
	Label     string
	Value     string
	Highlight bool
}

func (g *PDFGenerator) addMetricCards(m core.Maroto, cards []pdfMetricCard) {
	if len(cards) == 0 {
		return
	}

	colSize := 12 / len(cards)
	if colSize < 2 {
		colSize = 2
	}

	var cols []core.Col
	for _, card := range cards {
		valueStyle := pdfMetricValueStyle
		if !card.Highlight {
			valueStyle.Size = 14
		}

		cols = append(cols,
			col.New(colSize).Add(
				text.New(card.Value, valueStyle),
				text.New(card.Label, pdfMetricLabelStyle),
			),
		)
	}

	m.AddRow(20, cols...)
}

type pdfKeyValue struct {
	Key   string
	Value string
}

func (g *PDFGenerator) addKeyValueTable(m core.Maroto, items []pdfKeyValue) {
	for _, item := range items {
		m.AddRow(6,
			text.NewCol(6, item.Key, pdfBoldStyle),
			text.NewCol(6, item.Value, pdfNormalStyle),
		)
	}
}

func (g *PDFGenerator) addSection(m core.Maroto, title string) {
	m.AddRow(10,
		text.NewCol(12, title, pdfSectionStyle),
	)
	m.AddRow(2,
		line.NewCol(12, props.Line{Color: pdfPrimaryColor}),
	)
	m.AddRow(5)
}

func (g *PDFGenerator) addFooter(m core.Maroto, data *Data) {
	m.AddRow(10)
	m.AddRow(2,
		line.NewCol(12, props.Line{Color: pdfLightGrayColor}),
	)
	m.AddRow(6,
		text.NewCol(12,
			fmt.Sprintf("Water Supply Service | %s", g.formatTimestamp(g.generatedAt(data))),
			props.Text{Size: 8, Color: pdfDarkGrayColor, Align: align.Center},
		),
	)
}
