package xlsx

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
)

func TestExportWritesWorkbook(t *testing.T) {
	vendor := "Fresh Farms"
	analysis := domain.InvoiceAnalysis{
		InvoiceID:  "inv-1",
		VendorName: &vendor,
		Report: domain.SustainabilityReport{
			TotalEmissions: 121.2,
			Score:          60,
			PerItem: []domain.CarbonLineResult{
				{Item: domain.ExtractedItem{Name: "Heirloom Carrots", Quantity: 10, Unit: domain.UnitPound, Price: 2.1}, CarbonIntensity: 0.12, TotalCo2: 1.2, ImpactLevel: domain.ImpactLow, Category: "vegetables", MatchKind: domain.MatchPartial},
				{Item: domain.ExtractedItem{Name: "Beef Ribeye", Quantity: 2, Price: 25}, CarbonIntensity: 60, TotalCo2: 120, ImpactLevel: domain.ImpactHigh, Category: "protein", MatchKind: domain.MatchPartial},
			},
			ByCategory:      map[string]float64{"vegetables": 1.2, "protein": 120},
			Recommendations: []domain.Recommendation{{Kind: "sourcing", Message: "Source locally"}},
			Summary:         domain.ReportSummary{TotalItems: 2},
		},
	}

	var buf bytes.Buffer
	if err := NewExporter().Export(&buf, analysis); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 3 || got[0] != itemsSheet {
		t.Fatalf("unexpected sheets %v", got)
	}
	rows, err := f.GetRows(itemsSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 || rows[1][0] != "Heirloom Carrots" || rows[2][7] != "high" {
		t.Fatalf("unexpected item rows %v", rows)
	}
	if v, _ := f.GetCellValue(summarySheet, "B2"); v != "Fresh Farms" {
		t.Fatalf("expected vendor in summary, got %q", v)
	}
	if v, _ := f.GetCellValue(summarySheet, "A13"); v != "protein" {
		t.Fatalf("expected sorted categories, got %q", v)
	}
	if v, _ := f.GetCellValue(recommendationsSheet, "C2"); v != "Source locally" {
		t.Fatalf("unexpected recommendation cell %q", v)
	}
}
