package main

import (
	"log/slog"
	"os"

	mcpadapter "github.com/kirillkom/invoice-carbon/internal/adapters/mcp"
	"github.com/kirillkom/invoice-carbon/internal/bootstrap"
	"github.com/kirillkom/invoice-carbon/internal/config"
	"github.com/kirillkom/invoice-carbon/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	// stdout carries JSON-RPC.
	logger := logging.NewLogger(os.Stderr, "mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	pipeline, err := bootstrap.NewPipeline(cfg, logger, false)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}

	server := mcpadapter.NewServer(pipeline.Parse, pipeline.Layout, pipeline.Analysis, logger)
	if err := server.ServeStdio(); err != nil {
		logger.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
