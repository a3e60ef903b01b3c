package usecase

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
	"github.com/kirillkom/invoice-carbon/internal/core/ports"
)

// minModelTextChars is the non-space length below which the external model
// is not consulted.
const minModelTextChars = 10

const (
	ReasonServiceUnavailable = "service_unavailable"
	ReasonMalformedResponse  = "malformed_response"
	ReasonNoResult           = "no_result"
)

// ParseRecorder receives one observation per completed parse.
type ParseRecorder interface {
	RecordParse(method, fallbackReason string, items int)
}

// ParseUseCase runs the hybrid pipeline: the heuristic parser always runs
// first and its result is returned whenever the external model cannot
// produce one.
type ParseUseCase struct {
	heuristic ports.HeuristicParser
	extractor ports.StructuredExtractor
	layout    ports.LayoutReconstructor
	recorder  ParseRecorder
	logger    *slog.Logger
}

// NewParseUseCase builds the orchestrator. A nil extractor yields a
// heuristic-only pipeline.
func NewParseUseCase(
	heuristic ports.HeuristicParser,
	extractor ports.StructuredExtractor,
	layout ports.LayoutReconstructor,
	logger *slog.Logger,
) *ParseUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParseUseCase{
		heuristic: heuristic,
		extractor: extractor,
		layout:    layout,
		logger:    logger,
	}
}

func (uc *ParseUseCase) WithRecorder(recorder ParseRecorder) *ParseUseCase {
	uc.recorder = recorder
	return uc
}

// ParseText never fails; every external error degrades to the heuristic result.
func (uc *ParseUseCase) ParseText(ctx context.Context, text string) *domain.InvoiceExtraction {
	result := uc.parse(ctx, text)
	if uc.recorder != nil {
		uc.recorder.RecordParse(string(result.ParsingMethod), result.FallbackReason, len(result.Items))
	}
	return result
}

// ParseFragments reconstructs lines from positioned fragments and parses the
// resulting text. Only malformed fragments produce an error.
func (uc *ParseUseCase) ParseFragments(ctx context.Context, fragments []domain.PositionedFragment) (*domain.InvoiceExtraction, error) {
	rows, err := uc.layout.Reconstruct(fragments)
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, row.Text)
	}
	return uc.ParseText(ctx, strings.Join(lines, "\n")), nil
}

func (uc *ParseUseCase) parse(ctx context.Context, text string) *domain.InvoiceExtraction {
	heuristic := uc.heuristic.ParseText(text)
	heuristic.ParsingMethod = domain.MethodHeuristic

	if uc.extractor == nil || nonSpaceLen(text) < minModelTextChars {
		return heuristic
	}

	status := uc.extractor.Probe(ctx)
	if !status.Available {
		uc.logger.Info("structured_extraction_skipped", "reason", status.Reason)
		return heuristic
	}

	extracted, err := uc.extractor.Extract(ctx, domain.ExtractionRequest{
		Text:  text,
		Hint:  heuristic,
		Model: status.Model,
	})
	if err != nil || extracted == nil {
		reason := fallbackReason(err)
		uc.logger.Warn("parse_fallback", "reason", reason, "model", status.Model, "error", errString(err))

		fallback := heuristic.Clone()
		fallback.ParsingMethod = domain.MethodHybridFallback
		fallback.FallbackReason = reason
		return fallback
	}

	extracted.ParsingMethod = domain.MethodHybrid
	extracted.Heuristic = heuristic
	return extracted
}

func fallbackReason(err error) string {
	switch {
	case err == nil:
		return ReasonNoResult
	case domain.IsKind(err, domain.ErrMalformedResponse):
		return ReasonMalformedResponse
	default:
		return ReasonServiceUnavailable
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func nonSpaceLen(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
