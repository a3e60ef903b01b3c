package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/invoice-carbon/internal/config"
	"github.com/kirillkom/invoice-carbon/internal/core/ports"
	"github.com/kirillkom/invoice-carbon/internal/core/usecase"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/extractor"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/queue/nats"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/recognizer"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/resilience"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/storage/localfs"
)

// Recorder is satisfied by both the API and worker metric sets.
type Recorder interface {
	usecase.ParseRecorder
	usecase.ScoreRecorder
}

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue ports.MessageQueue
	Repo  ports.InvoiceRepository

	IngestUC   ports.InvoiceIngestor
	ProcessUC  ports.InvoiceProcessor
	InvoiceUC  ports.InvoiceService
	ParseUC    ports.InvoiceParser
	AnalysisUC ports.CarbonAnalyzer

	closeFn func()
}

// New wires the full service: postgres, local storage, NATS and the parse
// pipeline. recorder may be nil.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, recorder Recorder) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewInvoiceRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		MaxConcurrent: cfg.WorkerConcurrency,
		Guard:         resilience.NewGuard(resilience.DefaultPolicy(), logger),
		Logger:        logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	pipeline, err := NewPipeline(cfg, logger, false)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, err
	}
	if recorder != nil {
		pipeline.Parse.WithRecorder(recorder)
	}

	var recog ports.FragmentRecognizer
	if client := recognizer.New(cfg.RecognizerURL, cfg.RecognizerTimeout, resilience.NewGuard(resilience.DefaultPolicy(), logger), logger); client != nil {
		recog = client
	}
	textExtractor := extractor.NewRouter(storage, pipeline.Layout, recog)

	analysisUC := usecase.NewAnalysisUseCase(repo, pipeline.Estimator, pipeline.Exporter)
	if recorder != nil {
		analysisUC.WithRecorder(recorder)
	}

	logger.Info("bootstrap_ready",
		"extraction_model", cfg.OllamaModel,
		"structured_extraction", pipeline.Extractor != nil,
		"recognizer", recog != nil,
		"carbon_entries", pipeline.Table.Len(),
	)

	return &App{
		Config: cfg,
		Logger: logger,
		Queue:  queue,
		Repo:   repo,

		IngestUC:   usecase.NewIngestUseCase(repo, storage, queue),
		ProcessUC:  usecase.NewProcessUseCase(repo, textExtractor, pipeline.Parse),
		InvoiceUC:  usecase.NewInvoiceQueryUseCase(repo, storage, queue, pipeline.Parse, pipeline.Extractor, recog != nil),
		ParseUC:    pipeline.Parse,
		AnalysisUC: analysisUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
