package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/kirillkom/invoice-carbon/internal/config"
	"github.com/kirillkom/invoice-carbon/internal/core/ports"
	"github.com/kirillkom/invoice-carbon/internal/core/usecase"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/carbon"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/layout"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/parsing/heuristic"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/resilience"
)

// Pipeline holds the storage-free parts of the service. The MCP server and
// the CLI run on it alone.
type Pipeline struct {
	Layout    *layout.Reconstructor
	Heuristic *heuristic.Parser
	Extractor ports.StructuredExtractor
	Parse     *usecase.ParseUseCase
	Table     *carbon.Table
	Estimator *carbon.Estimator
	Exporter  *xlsx.Exporter
	// Analysis has no repository; only AnalyzeItems is usable.
	Analysis *usecase.AnalysisUseCase
}

// NewPipeline builds the parse and carbon components. heuristicOnly, or an
// empty OLLAMA_URL, leaves the structured extractor unset.
func NewPipeline(cfg config.Config, logger *slog.Logger, heuristicOnly bool) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	table, err := carbon.LoadTable(cfg.CarbonTablePath)
	if err != nil {
		return nil, fmt.Errorf("load carbon table: %w", err)
	}

	reconstructor := layout.NewReconstructor(cfg.LayoutRowTolerance, cfg.OCRMinConfidence)
	parser := heuristic.NewParser()

	var structured ports.StructuredExtractor
	if !heuristicOnly && cfg.OllamaURL != "" {
		guard := resilience.NewGuard(resilience.SingleAttempt(resilience.BreakerPolicy{
			Enabled:             cfg.LLMBreakerEnabled,
			ConsecutiveFailures: uint32(max(cfg.LLMBreakerConsecutiveFailures, 0)),
			MinRequests:         uint32(max(cfg.LLMBreakerMinRequests, 0)),
			FailureRatio:        cfg.LLMBreakerFailureRatio,
			OpenTimeout:         cfg.LLMBreakerOpenTimeout,
		}), logger)
		structured = ollama.New(ollama.Config{
			BaseURL:      cfg.OllamaURL,
			Model:        cfg.OllamaModel,
			Timeout:      cfg.OllamaTimeout,
			ProbeTimeout: cfg.OllamaProbeTimeout,
		}, guard, logger)
	}

	estimator := carbon.NewEstimator(table)
	exporter := xlsx.NewExporter()

	return &Pipeline{
		Layout:    reconstructor,
		Heuristic: parser,
		Extractor: structured,
		Parse:     usecase.NewParseUseCase(parser, structured, reconstructor, logger),
		Table:     table,
		Estimator: estimator,
		Exporter:  exporter,
		Analysis:  usecase.NewAnalysisUseCase(nil, estimator, exporter),
	}, nil
}
