package httpadapter

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/kirillkom/invoice-carbon/internal/config"
	"github.com/kirillkom/invoice-carbon/internal/core/domain"
)

type ingestFake struct {
	err error
}

func (f ingestFake) Upload(_ context.Context, filename, mimeType string, body io.Reader) (*domain.Invoice, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", io.EOF)
	}
	now := time.Now().UTC()
	return &domain.Invoice{
		ID:          "inv-1",
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: "inv-1_" + filename,
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

type invoiceServiceFake struct {
	err       error
	lastLimit int
	deleted   string
}

func (f *invoiceServiceFake) GetByID(_ context.Context, id string) (*domain.Invoice, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Invoice{ID: id, Filename: "a.txt", Status: domain.StatusCompleted}, nil
}

func (f *invoiceServiceFake) List(_ context.Context, limit int) ([]domain.Invoice, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Invoice{{ID: "inv-1"}, {ID: "inv-2"}}, nil
}

func (f *invoiceServiceFake) Delete(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = id
	return nil
}

func (f *invoiceServiceFake) Reprocess(_ context.Context, id string) (*domain.Invoice, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Invoice{ID: id, Status: domain.StatusUploaded}, nil
}

func (f *invoiceServiceFake) Reparse(_ context.Context, id string) (*domain.Invoice, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Invoice{ID: id, Status: domain.StatusCompleted}, nil
}

func (f *invoiceServiceFake) Status(context.Context) domain.ServiceStatus {
	return domain.ServiceStatus{
		Extraction:           domain.ModelStatus{Available: true, ConfiguredModel: "llama3.1:8b", Model: "llama3.1:8b"},
		RecognizerConfigured: true,
		ReadyForProcessing:   true,
	}
}

type parserFake struct {
	lastText  string
	fragments []domain.PositionedFragment
}

func (f *parserFake) ParseText(_ context.Context, text string) *domain.InvoiceExtraction {
	f.lastText = text
	vendor := "Fresh Farms"
	return &domain.InvoiceExtraction{VendorName: &vendor, Items: []domain.ExtractedItem{}, ParsingMethod: domain.MethodHeuristic}
}

func (f *parserFake) ParseFragments(_ context.Context, frags []domain.PositionedFragment) (*domain.InvoiceExtraction, error) {
	f.fragments = frags
	return domain.EmptyExtraction(domain.MethodHeuristic), nil
}

type analyzerFake struct {
	err      error
	lastDays int
	items    []domain.ExtractedItem
}

func (f *analyzerFake) AnalyzeItems(items []domain.ExtractedItem) domain.SustainabilityReport {
	f.items = items
	return domain.SustainabilityReport{Score: 50, PerItem: []domain.CarbonLineResult{}, ByCategory: map[string]float64{}}
}

func (f *analyzerFake) AnalyzeInvoice(_ context.Context, id string) (*domain.InvoiceAnalysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.InvoiceAnalysis{InvoiceID: id, Report: domain.SustainabilityReport{Score: 70}}, nil
}

func (f *analyzerFake) Footprint(_ context.Context, days int) (*domain.FootprintReport, error) {
	f.lastDays = days
	if f.err != nil {
		return nil, f.err
	}
	return &domain.FootprintReport{PeriodDays: days, InvoiceCount: 1}, nil
}

func (f *analyzerFake) Dashboard(context.Context) (*domain.Dashboard, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Dashboard{
		TotalEmissions: 12.5,
		TotalInvoices:  1,
		AverageScore:   70,
		ByCategory:     map[string]float64{"protein": 12.5},
		Recent:         []domain.DashboardInvoice{{ID: "inv-1", Filename: "inv-1.pdf", VendorName: "Fresh Farms", TotalEmissions: 12.5, Score: 70}},
	}, nil
}

func (f *analyzerFake) ExportInvoiceReport(_ context.Context, _ string, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, err := w.Write([]byte("PK-fake-xlsx"))
	return err
}

type testRouter struct {
	invoices *invoiceServiceFake
	parser   *parserFake
	analyzer *analyzerFake
	handler  http.Handler
}

func newTestRouter(cfg config.Config, ingestErr, serviceErr, analyzerErr error) *testRouter {
	tr := &testRouter{
		invoices: &invoiceServiceFake{err: serviceErr},
		parser:   &parserFake{},
		analyzer: &analyzerFake{err: analyzerErr},
	}
	tr.handler = NewRouter(cfg, ingestFake{err: ingestErr}, tr.invoices, tr.parser, tr.analyzer).Handler()
	return tr
}
