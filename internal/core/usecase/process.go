package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
	"github.com/kirillkom/invoice-carbon/internal/core/ports"
)

type ProcessUseCase struct {
	repo      ports.InvoiceRepository
	extractor ports.TextExtractor
	parser    ports.InvoiceParser
}

func NewProcessUseCase(
	repo ports.InvoiceRepository,
	extractor ports.TextExtractor,
	parser ports.InvoiceParser,
) *ProcessUseCase {
	return &ProcessUseCase{
		repo:      repo,
		extractor: extractor,
		parser:    parser,
	}
}

func (uc *ProcessUseCase) ProcessByID(ctx context.Context, invoiceID string) error {
	if err := uc.markStatus(ctx, invoiceID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	text, extraction, err := uc.processPipeline(ctx, invoiceID)
	if err != nil {
		if failErr := uc.markFailed(ctx, invoiceID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveResult(ctx, invoiceID, text, extraction); err != nil {
		err = fmt.Errorf("save parse result: %w", err)
		if failErr := uc.markFailed(ctx, invoiceID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}
	return nil
}

func (uc *ProcessUseCase) processPipeline(ctx context.Context, invoiceID string) (string, *domain.InvoiceExtraction, error) {
	inv, err := uc.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return "", nil, fmt.Errorf("fetch invoice by id: %w", err)
	}

	text, err := uc.extractor.Extract(ctx, inv)
	if err != nil {
		return "", nil, fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", nil, domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("no text recognized"))
	}

	return text, uc.parser.ParseText(ctx, text), nil
}

func (uc *ProcessUseCase) markStatus(ctx context.Context, invoiceID string, status domain.InvoiceStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, invoiceID, status, errMessage)
}

func (uc *ProcessUseCase) markFailed(ctx context.Context, invoiceID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, invoiceID, domain.StatusFailed, processErr.Error())
}
