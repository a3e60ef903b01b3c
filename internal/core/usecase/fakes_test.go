package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
)

type statusCall struct {
	status domain.InvoiceStatus
	errMsg string
}

type invoiceRepoFake struct {
	invoices    map[string]*domain.Invoice
	created     *domain.Invoice
	createErr   error
	getErr      error
	statusErr   error
	failErr     error
	saveErr     error
	deleteErr   error
	statusCalls []statusCall
	saved       *domain.InvoiceExtraction
	savedText   string
	deleted     []string
	listLimit   int
	since       time.Time
}

func newInvoiceRepoFake(invoices ...*domain.Invoice) *invoiceRepoFake {
	f := &invoiceRepoFake{invoices: map[string]*domain.Invoice{}}
	for _, inv := range invoices {
		f.invoices[inv.ID] = inv
	}
	return f
}

func (f *invoiceRepoFake) Create(_ context.Context, inv *domain.Invoice) error {
	if f.createErr != nil {
		return f.createErr
	}
	copyInv := *inv
	f.created = &copyInv
	f.invoices[inv.ID] = &copyInv
	return nil
}

func (f *invoiceRepoFake) GetByID(_ context.Context, id string) (*domain.Invoice, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	inv, ok := f.invoices[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvoiceNotFound, "get invoice", errors.New(id))
	}
	copyInv := *inv
	return &copyInv, nil
}

func (f *invoiceRepoFake) List(_ context.Context, limit int) ([]domain.Invoice, error) {
	f.listLimit = limit
	out := make([]domain.Invoice, 0, len(f.invoices))
	for _, inv := range f.invoices {
		out = append(out, *inv)
	}
	return out, nil
}

func (f *invoiceRepoFake) ListCompletedSince(_ context.Context, since time.Time) ([]domain.Invoice, error) {
	f.since = since
	out := make([]domain.Invoice, 0)
	for _, inv := range f.invoices {
		if inv.Status == domain.StatusCompleted && inv.ProcessedAt != nil && !inv.ProcessedAt.Before(since) {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (f *invoiceRepoFake) UpdateStatus(_ context.Context, _ string, status domain.InvoiceStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	if status == domain.StatusFailed && f.failErr != nil {
		return f.failErr
	}
	return f.statusErr
}

func (f *invoiceRepoFake) SaveResult(_ context.Context, _ string, text string, extraction *domain.InvoiceExtraction) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedText = text
	f.saved = extraction
	return nil
}

func (f *invoiceRepoFake) SaveExtraction(_ context.Context, _ string, extraction *domain.InvoiceExtraction) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = extraction
	return nil
}

func (f *invoiceRepoFake) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	delete(f.invoices, id)
	return nil
}

type storageFake struct {
	savedKey  string
	savedBody string
	deleted   []string
	err       error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.savedKey = key
	f.savedBody = string(raw)
	return nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.savedBody)), nil
}

func (f *storageFake) Delete(_ context.Context, key string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, key)
	return nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishInvoiceUploaded(_ context.Context, invoiceID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, invoiceID)
	return nil
}

func (f *queueFake) SubscribeInvoiceUploaded(context.Context, func(context.Context, string) error) error {
	return nil
}

type textExtractorFake struct {
	text string
	err  error
}

func (f *textExtractorFake) Extract(context.Context, *domain.Invoice) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type heuristicFake struct {
	result *domain.InvoiceExtraction
	calls  int
}

func (f *heuristicFake) ParseText(text string) *domain.InvoiceExtraction {
	f.calls++
	if strings.TrimSpace(text) == "" {
		return domain.EmptyExtraction(domain.MethodHeuristic)
	}
	return f.result.Clone()
}

type structuredFake struct {
	status  domain.ModelStatus
	result  *domain.InvoiceExtraction
	err     error
	probes  int
	calls   int
	lastReq domain.ExtractionRequest
}

func (f *structuredFake) Probe(context.Context) domain.ModelStatus {
	f.probes++
	return f.status
}

func (f *structuredFake) Extract(_ context.Context, req domain.ExtractionRequest) (*domain.InvoiceExtraction, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result.Clone(), nil
}

type layoutFake struct {
	rows []domain.ReconstructedLine
	err  error
}

func (f *layoutFake) Reconstruct([]domain.PositionedFragment) ([]domain.ReconstructedLine, error) {
	return f.rows, f.err
}

type parserFake struct {
	result *domain.InvoiceExtraction
	texts  []string
}

func (f *parserFake) ParseText(_ context.Context, text string) *domain.InvoiceExtraction {
	f.texts = append(f.texts, text)
	return f.result.Clone()
}

func (f *parserFake) ParseFragments(context.Context, []domain.PositionedFragment) (*domain.InvoiceExtraction, error) {
	return f.result.Clone(), nil
}

type estimatorFake struct {
	items []domain.ExtractedItem
	score int
	// perItemKg, when set, is charged per item to both the total and the
	// "produce" category.
	perItemKg float64
}

func (f *estimatorFake) Estimate(items []domain.ExtractedItem) domain.SustainabilityReport {
	f.items = items
	report := domain.SustainabilityReport{Score: f.score, PerItem: make([]domain.CarbonLineResult, len(items))}
	if f.perItemKg > 0 {
		report.TotalEmissions = f.perItemKg * float64(len(items))
		report.ByCategory = map[string]float64{"produce": report.TotalEmissions}
	}
	return report
}

type exporterFake struct {
	analysis domain.InvoiceAnalysis
	err      error
}

func (f *exporterFake) Export(w io.Writer, analysis domain.InvoiceAnalysis) error {
	if f.err != nil {
		return f.err
	}
	f.analysis = analysis
	_, err := io.WriteString(w, "xlsx")
	return err
}

func strPtr(s string) *string { return &s }

func floatPtr(v float64) *float64 { return &v }

func sampleExtraction(method domain.ParsingMethod) *domain.InvoiceExtraction {
	return &domain.InvoiceExtraction{
		VendorName:    strPtr("Organic Harvest Distributors"),
		TotalAmount:   floatPtr(21),
		Items:         []domain.ExtractedItem{{Name: "Heirloom Carrots", Quantity: 10, Unit: domain.UnitPound, Price: 2.1, Category: domain.CategoryVegetables}},
		ParsingMethod: method,
		Confidence:    0.9,
	}
}
