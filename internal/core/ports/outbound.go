package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
)

// InvoiceRepository persists invoice records and their parse results.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *domain.Invoice) error
	GetByID(ctx context.Context, id string) (*domain.Invoice, error)
	List(ctx context.Context, limit int) ([]domain.Invoice, error)
	ListCompletedSince(ctx context.Context, since time.Time) ([]domain.Invoice, error)
	UpdateStatus(ctx context.Context, id string, status domain.InvoiceStatus, errMessage string) error
	SaveResult(ctx context.Context, id, recognizedText string, extraction *domain.InvoiceExtraction) error
	SaveExtraction(ctx context.Context, id string, extraction *domain.InvoiceExtraction) error
	Delete(ctx context.Context, id string) error
}

// ObjectStorage stores uploaded invoice files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes invoice processing events.
type MessageQueue interface {
	PublishInvoiceUploaded(ctx context.Context, invoiceID string) error
	SubscribeInvoiceUploaded(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor turns a stored invoice file into reconstructed plain text.
type TextExtractor interface {
	Extract(ctx context.Context, inv *domain.Invoice) (string, error)
}

// FragmentRecognizer runs optical recognition over an image and returns
// positioned fragments.
type FragmentRecognizer interface {
	Recognize(ctx context.Context, filename string, image io.Reader) ([]domain.PositionedFragment, error)
}

// LayoutReconstructor groups positioned fragments into ordered text lines.
type LayoutReconstructor interface {
	Reconstruct(fragments []domain.PositionedFragment) ([]domain.ReconstructedLine, error)
}

// HeuristicParser is the deterministic rule-based parser.
type HeuristicParser interface {
	ParseText(text string) *domain.InvoiceExtraction
}

// StructuredExtractor is the external model-backed extraction service.
// A nil extraction is always paired with a non-nil error.
type StructuredExtractor interface {
	Probe(ctx context.Context) domain.ModelStatus
	Extract(ctx context.Context, req domain.ExtractionRequest) (*domain.InvoiceExtraction, error)
}

// CarbonEstimator derives a sustainability report from extracted items.
type CarbonEstimator interface {
	Estimate(items []domain.ExtractedItem) domain.SustainabilityReport
}

// ReportExporter renders an invoice analysis into a downloadable document.
type ReportExporter interface {
	Export(w io.Writer, analysis domain.InvoiceAnalysis) error
}
