package ports

import (
	"context"
	"io"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
)

// InvoiceIngestor is the inbound contract for invoice upload orchestration.
type InvoiceIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Invoice, error)
}

// InvoiceProcessor is the inbound contract for asynchronous invoice processing.
type InvoiceProcessor interface {
	ProcessByID(ctx context.Context, invoiceID string) error
}

// InvoiceService is the inbound read/maintenance model for stored invoices.
type InvoiceService interface {
	GetByID(ctx context.Context, id string) (*domain.Invoice, error)
	List(ctx context.Context, limit int) ([]domain.Invoice, error)
	Delete(ctx context.Context, id string) error
	Reprocess(ctx context.Context, id string) (*domain.Invoice, error)
	Reparse(ctx context.Context, id string) (*domain.Invoice, error)
	Status(ctx context.Context) domain.ServiceStatus
}

// InvoiceParser is the inbound contract for synchronous hybrid parsing.
type InvoiceParser interface {
	ParseText(ctx context.Context, text string) *domain.InvoiceExtraction
	ParseFragments(ctx context.Context, fragments []domain.PositionedFragment) (*domain.InvoiceExtraction, error)
}

// CarbonAnalyzer is the inbound contract for sustainability reporting.
type CarbonAnalyzer interface {
	AnalyzeItems(items []domain.ExtractedItem) domain.SustainabilityReport
	AnalyzeInvoice(ctx context.Context, id string) (*domain.InvoiceAnalysis, error)
	Footprint(ctx context.Context, days int) (*domain.FootprintReport, error)
	Dashboard(ctx context.Context) (*domain.Dashboard, error)
	ExportInvoiceReport(ctx context.Context, id string, w io.Writer) error
}
