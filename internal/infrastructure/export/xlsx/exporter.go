// Package xlsx renders sustainability reports as Excel workbooks.
package xlsx

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
)

const (
	itemsSheet           = "Items"
	summarySheet         = "Summary"
	recommendationsSheet = "Recommendations"
)

var itemHeaders = []string{
	"Item", "Quantity", "Unit", "Unit Price", "Category",
	"Intensity (kg CO2e/unit)", "Total CO2e (kg)", "Impact", "Match", "CO2e per $",
}

type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

// Export writes a three-sheet workbook: per-item lines, summary figures
// and recommendations.
func (e *Exporter) Export(w io.Writer, analysis domain.InvoiceAnalysis) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", itemsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{summarySheet, recommendationsSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	writeItems(f, analysis.Report.PerItem)
	writeSummary(f, analysis)
	writeRecommendations(f, analysis.Report.Recommendations)

	if idx, err := f.GetSheetIndex(itemsSheet); err == nil {
		f.SetActiveSheet(idx)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

func set(f *excelize.File, sheet string, col, row int, v any) {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	_ = f.SetCellValue(sheet, cell, v)
}

func writeItems(f *excelize.File, lines []domain.CarbonLineResult) {
	for i, h := range itemHeaders {
		set(f, itemsSheet, i+1, 1, h)
	}
	for i, line := range lines {
		row := i + 2
		set(f, itemsSheet, 1, row, line.Item.Name)
		set(f, itemsSheet, 2, row, line.Item.Quantity)
		set(f, itemsSheet, 3, row, string(line.Item.Unit))
		set(f, itemsSheet, 4, row, line.Item.Price)
		set(f, itemsSheet, 5, row, line.Category)
		set(f, itemsSheet, 6, row, line.CarbonIntensity)
		set(f, itemsSheet, 7, row, line.TotalCo2)
		set(f, itemsSheet, 8, row, string(line.ImpactLevel))
		set(f, itemsSheet, 9, row, string(line.MatchKind))
		set(f, itemsSheet, 10, row, line.Co2PerDollar)
	}
	_ = f.SetColWidth(itemsSheet, "A", "A", 36)
	_ = f.SetColWidth(itemsSheet, "B", "E", 12)
	_ = f.SetColWidth(itemsSheet, "F", "J", 18)
}

func writeSummary(f *excelize.File, analysis domain.InvoiceAnalysis) {
	report := analysis.Report
	vendor := ""
	if analysis.VendorName != nil {
		vendor = *analysis.VendorName
	}
	rows := [][2]any{
		{"Invoice", analysis.InvoiceID},
		{"Vendor", vendor},
		{"Total CO2e (kg)", report.TotalEmissions},
		{"Sustainability score", report.Score},
		{"Items", report.Summary.TotalItems},
		{"High impact items", report.Summary.HighImpactItems},
		{"Local items", report.Summary.LocalItems},
		{"Organic items", report.Summary.OrganicItems},
		{"Average per item (kg)", report.Summary.AveragePerItemKg},
		{"Total spend", report.Summary.TotalSpend},
	}
	for i, r := range rows {
		set(f, summarySheet, 1, i+1, r[0])
		set(f, summarySheet, 2, i+1, r[1])
	}

	start := len(rows) + 2
	set(f, summarySheet, 1, start, "Category")
	set(f, summarySheet, 2, start, "CO2e (kg)")
	categories := make([]string, 0, len(report.ByCategory))
	for name := range report.ByCategory {
		categories = append(categories, name)
	}
	sort.Strings(categories)
	for i, name := range categories {
		set(f, summarySheet, 1, start+1+i, name)
		set(f, summarySheet, 2, start+1+i, report.ByCategory[name])
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 26)
	_ = f.SetColWidth(summarySheet, "B", "B", 40)
}

func writeRecommendations(f *excelize.File, recs []domain.Recommendation) {
	for i, h := range []string{"Kind", "Item", "Recommendation", "Potential savings (kg)"} {
		set(f, recommendationsSheet, i+1, 1, h)
	}
	for i, r := range recs {
		row := i + 2
		set(f, recommendationsSheet, 1, row, r.Kind)
		set(f, recommendationsSheet, 2, row, r.Item)
		set(f, recommendationsSheet, 3, row, r.Message)
		set(f, recommendationsSheet, 4, row, r.PotentialSavingsKg)
	}
	_ = f.SetColWidth(recommendationsSheet, "C", "C", 70)
}
