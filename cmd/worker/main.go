package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/invoice-carbon/internal/bootstrap"
	"github.com/kirillkom/invoice-carbon/internal/config"
	"github.com/kirillkom/invoice-carbon/internal/observability/logging"
	"github.com/kirillkom/invoice-carbon/internal/observability/metrics"
)

const (
	serviceName    = "worker"
	processTimeout = 15 * time.Minute
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, logger, workerMetrics)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject, "concurrency", cfg.WorkerConcurrency)
	err = app.Queue.SubscribeInvoiceUploaded(ctx, func(handlerCtx context.Context, invoiceID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, processTimeout)
		defer cancel()

		if inv, err := app.Repo.GetByID(processCtx, invoiceID); err == nil {
			workerMetrics.ObserveQueueLag(time.Since(inv.UpdatedAt))
		}

		finish := workerMetrics.TrackInvoice()
		start := time.Now()
		err := app.ProcessUC.ProcessByID(processCtx, invoiceID)
		finish(err)

		if err != nil {
			logger.Error("invoice_process_failed", "invoice_id", invoiceID, "duration_ms", time.Since(start).Milliseconds(), "error", err)
			return err
		}
		logger.Info("invoice_processed", "invoice_id", invoiceID, "duration_ms", time.Since(start).Milliseconds())
		return nil
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
