package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
	"github.com/kirillkom/invoice-carbon/internal/core/ports"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// InvoiceQueryUseCase serves reads and maintenance actions on stored invoices.
type InvoiceQueryUseCase struct {
	repo                 ports.InvoiceRepository
	storage              ports.ObjectStorage
	queue                ports.MessageQueue
	parser               ports.InvoiceParser
	extractor            ports.StructuredExtractor
	recognizerConfigured bool
}

func NewInvoiceQueryUseCase(
	repo ports.InvoiceRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	parser ports.InvoiceParser,
	extractor ports.StructuredExtractor,
	recognizerConfigured bool,
) *InvoiceQueryUseCase {
	return &InvoiceQueryUseCase{
		repo:                 repo,
		storage:              storage,
		queue:                queue,
		parser:               parser,
		extractor:            extractor,
		recognizerConfigured: recognizerConfigured,
	}
}

func (uc *InvoiceQueryUseCase) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get invoice", errors.New("empty id"))
	}
	return uc.repo.GetByID(ctx, id)
}

func (uc *InvoiceQueryUseCase) List(ctx context.Context, limit int) ([]domain.Invoice, error) {
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}
	return uc.repo.List(ctx, limit)
}

// Delete removes the stored file and then the record. A file that is
// already gone does not block removing the record.
func (uc *InvoiceQueryUseCase) Delete(ctx context.Context, id string) error {
	inv, err := uc.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if inv.StoragePath != "" {
		if err := uc.storage.Delete(ctx, inv.StoragePath); err != nil {
			return fmt.Errorf("delete stored file: %w", err)
		}
	}
	if err := uc.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete invoice record: %w", err)
	}
	return nil
}

func (uc *InvoiceQueryUseCase) Reprocess(ctx context.Context, id string) (*domain.Invoice, error) {
	inv, err := uc.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status == domain.StatusProcessing {
		return nil, domain.WrapError(domain.ErrInvalidInput, "reprocess invoice", errors.New("invoice is being processed"))
	}
	if err := uc.repo.UpdateStatus(ctx, id, domain.StatusUploaded, ""); err != nil {
		return nil, fmt.Errorf("reset status: %w", err)
	}
	if err := uc.queue.PublishInvoiceUploaded(ctx, id); err != nil {
		return nil, fmt.Errorf("publish upload event: %w", err)
	}
	inv.Status = domain.StatusUploaded
	inv.Error = ""
	return inv, nil
}

// Reparse runs the hybrid parser again over the stored recognized text
// without repeating recognition.
func (uc *InvoiceQueryUseCase) Reparse(ctx context.Context, id string) (*domain.Invoice, error) {
	inv, err := uc.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(inv.RecognizedText) == "" {
		return nil, domain.WrapError(domain.ErrInvoiceNotReady, "reparse invoice", errors.New("no recognized text stored"))
	}

	extraction := uc.parser.ParseText(ctx, inv.RecognizedText)
	if err := uc.repo.SaveExtraction(ctx, id, extraction); err != nil {
		return nil, fmt.Errorf("save extraction: %w", err)
	}
	inv.Extraction = extraction
	return inv, nil
}

func (uc *InvoiceQueryUseCase) Status(ctx context.Context) domain.ServiceStatus {
	status := domain.ServiceStatus{RecognizerConfigured: uc.recognizerConfigured}
	if uc.extractor != nil {
		status.Extraction = uc.extractor.Probe(ctx)
	} else {
		status.Extraction.Reason = "structured extraction disabled"
	}
	status.ReadyForProcessing = status.RecognizerConfigured && status.Extraction.Available
	return status
}
