package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
	"github.com/kirillkom/invoice-carbon/internal/core/ports"
)

const (
	DefaultFootprintDays = 30
	maxFootprintDays     = 366

	dashboardRecentLimit = 10
	unknownVendor        = "Unknown Vendor"
	neutralScore         = 50
)

var errNoRepository = errors.New("invoice storage is not configured")

// ScoreRecorder receives the sustainability score of every produced report.
type ScoreRecorder interface {
	RecordSustainabilityScore(score int)
}

type AnalysisUseCase struct {
	repo      ports.InvoiceRepository
	estimator ports.CarbonEstimator
	exporter  ports.ReportExporter
	recorder  ScoreRecorder
	now       func() time.Time
}

func NewAnalysisUseCase(
	repo ports.InvoiceRepository,
	estimator ports.CarbonEstimator,
	exporter ports.ReportExporter,
) *AnalysisUseCase {
	return &AnalysisUseCase{
		repo:      repo,
		estimator: estimator,
		exporter:  exporter,
		now:       time.Now,
	}
}

func (uc *AnalysisUseCase) WithRecorder(recorder ScoreRecorder) *AnalysisUseCase {
	uc.recorder = recorder
	return uc
}

func (uc *AnalysisUseCase) AnalyzeItems(items []domain.ExtractedItem) domain.SustainabilityReport {
	report := uc.estimator.Estimate(items)
	if uc.recorder != nil {
		uc.recorder.RecordSustainabilityScore(report.Score)
	}
	return report
}

func (uc *AnalysisUseCase) AnalyzeInvoice(ctx context.Context, id string) (*domain.InvoiceAnalysis, error) {
	if uc.repo == nil {
		return nil, errNoRepository
	}
	inv, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != domain.StatusCompleted || inv.Extraction == nil {
		return nil, domain.WrapError(domain.ErrInvoiceNotReady, "analyze invoice", fmt.Errorf("invoice status is %s", inv.Status))
	}
	return &domain.InvoiceAnalysis{
		InvoiceID:  inv.ID,
		VendorName: inv.Extraction.VendorName,
		Report:     uc.AnalyzeItems(inv.Extraction.Items),
	}, nil
}

// Footprint aggregates every invoice completed in the trailing window into one report.
func (uc *AnalysisUseCase) Footprint(ctx context.Context, days int) (*domain.FootprintReport, error) {
	if days == 0 {
		days = DefaultFootprintDays
	}
	if days < 0 || days > maxFootprintDays {
		return nil, domain.WrapError(domain.ErrInvalidInput, "footprint", fmt.Errorf("days must be between 1 and %d", maxFootprintDays))
	}
	if uc.repo == nil {
		return nil, errNoRepository
	}

	since := uc.now().UTC().AddDate(0, 0, -days)
	invoices, err := uc.repo.ListCompletedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("list completed invoices: %w", err)
	}

	items := make([]domain.ExtractedItem, 0)
	for _, inv := range invoices {
		if inv.Extraction != nil {
			items = append(items, inv.Extraction.Items...)
		}
	}
	return &domain.FootprintReport{
		PeriodDays:   days,
		InvoiceCount: len(invoices),
		Report:       uc.AnalyzeItems(items),
	}, nil
}

// Dashboard aggregates every completed invoice by category and lists the
// most recently processed ones with their own emissions and score. The
// average score only counts non-zero per-invoice scores and is neutral when
// there are none.
func (uc *AnalysisUseCase) Dashboard(ctx context.Context) (*domain.Dashboard, error) {
	if uc.repo == nil {
		return nil, errNoRepository
	}
	invoices, err := uc.repo.ListCompletedSince(ctx, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("list completed invoices: %w", err)
	}
	sort.SliceStable(invoices, func(i, j int) bool {
		return processedAt(invoices[i]).After(processedAt(invoices[j]))
	})

	out := &domain.Dashboard{
		ByCategory: make(map[string]float64),
		Recent:     make([]domain.DashboardInvoice, 0, min(len(invoices), dashboardRecentLimit)),
	}
	total, scoreSum, scored := 0.0, 0, 0
	for _, inv := range invoices {
		if inv.Extraction == nil || len(inv.Extraction.Items) == 0 {
			continue
		}
		out.TotalInvoices++
		report := uc.estimator.Estimate(inv.Extraction.Items)
		total += report.TotalEmissions
		for category, kg := range report.ByCategory {
			out.ByCategory[category] += kg
		}
		if len(out.Recent) == dashboardRecentLimit {
			continue
		}

		vendor := unknownVendor
		if inv.Extraction.VendorName != nil && *inv.Extraction.VendorName != "" {
			vendor = *inv.Extraction.VendorName
		}
		out.Recent = append(out.Recent, domain.DashboardInvoice{
			ID:             inv.ID,
			Filename:       inv.Filename,
			VendorName:     vendor,
			TotalEmissions: roundKg(report.TotalEmissions),
			Score:          report.Score,
			ProcessedAt:    inv.ProcessedAt,
		})
		if report.Score > 0 {
			scoreSum += report.Score
			scored++
		}
	}

	out.TotalEmissions = roundKg(total)
	for category, kg := range out.ByCategory {
		out.ByCategory[category] = roundKg(kg)
	}
	out.AverageScore = neutralScore
	if scored > 0 {
		out.AverageScore = int(math.Round(float64(scoreSum) / float64(scored)))
	}
	return out, nil
}

func processedAt(inv domain.Invoice) time.Time {
	if inv.ProcessedAt != nil {
		return *inv.ProcessedAt
	}
	return inv.UpdatedAt
}

func roundKg(v float64) float64 {
	return math.Round(v*100) / 100
}

func (uc *AnalysisUseCase) ExportInvoiceReport(ctx context.Context, id string, w io.Writer) error {
	if uc.exporter == nil {
		return errors.New("report export is not configured")
	}
	analysis, err := uc.AnalyzeInvoice(ctx, id)
	if err != nil {
		return err
	}
	if err := uc.exporter.Export(w, *analysis); err != nil {
		return fmt.Errorf("export report: %w", err)
	}
	return nil
}
