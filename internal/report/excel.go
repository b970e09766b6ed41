package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExcelGenerator renders reports as xlsx workbooks.
type ExcelGenerator struct {
	baseGenerator
}

// NewExcelGenerator creates an Excel generator.
func NewExcelGenerator() *ExcelGenerator {
	return &ExcelGenerator{}
}

func (g *ExcelGenerator) Format() Format {
	return FormatExcel
}

func (g *ExcelGenerator) Generate(_ context.Context, data *Data) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	switch data.Kind {
	case KindSweep:
		g.writeSweepSheet(f, data)
	default:
		g.writeFlowSheet(f, data)
	}

	f.DeleteSheet("Sheet1")

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (g *ExcelGenerator) headerStyle(f *excelize.File) int {
	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2E74B5"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	return style
}

func (g *ExcelGenerator) writeFlowSheet(f *excelize.File, data *Data) {
	sheet := "Flow Results"
	f.NewSheet(sheet)
	header := g.headerStyle(f)

	row := 1
	f.SetCellValue(sheet, cell("A", row), g.title(data))
	f.MergeCell(sheet, cell("A", row), cell("E", row))
	row++
	f.SetCellValue(sheet, cell("A", row), "Generated")
	f.SetCellValue(sheet, cell("B", row), g.formatTimestamp(g.generatedAt(data)))
	row += 2

	f.SetCellValue(sheet, cell("A", row), "Summary")
	f.SetCellStyle(sheet, cell("A", row), cell("B", row), header)
	row++
	f.SetCellValue(sheet, cell("A", row), "Max Flow")
	f.SetCellValue(sheet, cell("B", row), data.MaxFlow)
	row++

	if s := data.Statistics; s != nil {
		f.SetCellValue(sheet, cell("A", row), "Total Demand")
		f.SetCellValue(sheet, cell("B", row), s.TotalDemand)
		row++
		f.SetCellValue(sheet, cell("A", row), "Total Delivered")
		f.SetCellValue(sheet, cell("B", row), s.TotalDelivered)
		row++
		f.SetCellValue(sheet, cell("A", row), "Total Deficit")
		f.SetCellValue(sheet, cell("B", row), s.TotalDeficit)
		row++
		f.SetCellValue(sheet, cell("A", row), "Saturated Pipes")
		f.SetCellValue(sheet, cell("B", row), s.SaturatedPipes)
		row++
		f.SetCellValue(sheet, cell("A", row), "Average Utilization")
		f.SetCellValue(sheet, cell("B", row), g.formatPercent(s.AverageUtilization))
		row++
	}
	row++

	if pipes := reportPipes(data); len(pipes) > 0 {
		headers := []string{"From", "To", "Capacity", "Flow", "Utilization"}
		for i, h := range headers {
			col := string(rune('A' + i))
			f.SetCellValue(sheet, cell(col, row), h)
		}
		f.SetCellStyle(sheet, cell("A", row), cell("E", row), header)
		row++

		for _, p := range pipes {
			f.SetCellValue(sheet, cell("A", row), p.From)
			f.SetCellValue(sheet, cell("B", row), p.To)
			f.SetCellValue(sheet, cell("C", row), p.Capacity)
			f.SetCellValue(sheet, cell("D", row), p.CurrentFlow)
			f.SetCellValue(sheet, cell("E", row), g.formatPercent(p.Utilization()))
			row++
		}
	}

	if s := data.Statistics; s != nil && len(s.Deliveries) > 0 {
		g.writeDeliverySheet(f, data)
	}
}

func (g *ExcelGenerator) writeDeliverySheet(f *excelize.File, data *Data) {
	sheet := "Deliveries"
	f.NewSheet(sheet)
	header := g.headerStyle(f)

	headers := []string{"Site", "Name", "Demand", "Delivered", "Deficit", "Satisfied"}
	for i, h := range headers {
		col := string(rune('A' + i))
		f.SetCellValue(sheet, cell(col, 1), h)
	}
	f.SetCellStyle(sheet, cell("A", 1), cell("F", 1), header)

	row := 2
	for _, d := range data.Statistics.Deliveries {
		f.SetCellValue(sheet, cell("A", row), d.Code)
		f.SetCellValue(sheet, cell("B", row), d.Name)
		f.SetCellValue(sheet, cell("C", row), d.Demand)
		f.SetCellValue(sheet, cell("D", row), d.Delivered)
		f.SetCellValue(sheet, cell("E", row), d.Deficit)
		f.SetCellValue(sheet, cell("F", row), d.Satisfied())
		row++
	}
}

func (g *ExcelGenerator) writeSweepSheet(f *excelize.File, data *Data) {
	sheet := "Outage Sweep"
	f.NewSheet(sheet)
	header := g.headerStyle(f)

	row := 1
	f.SetCellValue(sheet, cell("A", row), g.title(data))
	f.MergeCell(sheet, cell("A", row), cell("D", row))
	row += 2

	if sw := data.Sweep; sw != nil {
		f.SetCellValue(sheet, cell("A", row), "Kind")
		f.SetCellValue(sheet, cell("B", row), sw.Kind)
		row++
		f.SetCellValue(sheet, cell("A", row), "Baseline Flow")
		f.SetCellValue(sheet, cell("B", row), sw.BaselineFlow)
		row++
		f.SetCellValue(sheet, cell("A", row), "Critical Scenarios")
		f.SetCellValue(sheet, cell("B", row), fmt.Sprintf("%d of %d", sw.CriticalCount, len(sw.Scenarios)))
		row++
		f.SetCellValue(sheet, cell("A", row), "Worst Target")
		f.SetCellValue(sheet, cell("B", row), sw.WorstTarget)
		row += 2

		headers := []string{"Target", "Flow", "Reduction", "Affected Sites"}
		for i, h := range headers {
			col := string(rune('A' + i))
			f.SetCellValue(sheet, cell(col, row), h)
		}
		f.SetCellStyle(sheet, cell("A", row), cell("D", row), header)
		row++

		for _, s := range sw.Scenarios {
			f.SetCellValue(sheet, cell("A", row), s.Target)
			f.SetCellValue(sheet, cell("B", row), s.Flow)
			f.SetCellValue(sheet, cell("C", row), s.Reduction)
			f.SetCellValue(sheet, cell("D", row), len(s.AffectedSites))
			row++
		}
	}
}
