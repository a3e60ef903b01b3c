package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/invoice-carbon/internal/bootstrap"
	"github.com/kirillkom/invoice-carbon/internal/config"
	"github.com/kirillkom/invoice-carbon/internal/core/domain"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/extractor/fragments"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/layout"
	"github.com/kirillkom/invoice-carbon/internal/observability/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "invoicectl",
		Short: "Parse invoices and estimate their carbon footprint offline",
		Long: `invoicectl runs the invoice parsing pipeline and carbon estimator against
local files without the API, database or queue.

Configuration is read from the same environment variables as the services
(OLLAMA_URL, OLLAMA_MODEL, CARBON_TABLE_PATH, LAYOUT_ROW_TOLERANCE, ...).`,
		SilenceUsage: true,
	}
	root.AddCommand(newParseCmd(), newReconstructCmd(), newAnalyzeCmd(), newExportCmd())
	return root
}

func newParseCmd() *cobra.Command {
	var heuristicOnly bool
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Extract invoice fields from a text file or a fragments JSON dump",
		Example: `  invoicectl parse invoice.txt
  invoicectl parse fragments.json --heuristic-only`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := newPipeline(cmd, heuristicOnly)
			if err != nil {
				return err
			}

			var extraction *domain.InvoiceExtraction
			if isJSON(args[0]) {
				frags, err := readFragments(args[0])
				if err != nil {
					return err
				}
				extraction, err = pipeline.Parse.ParseFragments(cmd.Context(), frags)
				if err != nil {
					return err
				}
			} else {
				text, err := readText(args[0])
				if err != nil {
					return err
				}
				extraction = pipeline.Parse.ParseText(cmd.Context(), text)
			}
			return printJSON(cmd.OutOrStdout(), extraction)
		},
	}
	cmd.Flags().BoolVar(&heuristicOnly, "heuristic-only", false, "Skip the structured-extraction model")
	return cmd
}

func newReconstructCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconstruct <fragments.json>",
		Short: "Print the reading-order text lines of positioned fragments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := newPipeline(cmd, true)
			if err != nil {
				return err
			}
			frags, err := readFragments(args[0])
			if err != nil {
				return err
			}
			rows, err := pipeline.Layout.Reconstruct(frags)
			if err != nil {
				return err
			}
			for _, line := range layout.Lines(rows) {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newAnalyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <extraction.json>",
		Short: "Estimate emissions for the items of an extraction result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := newPipeline(cmd, true)
			if err != nil {
				return err
			}
			extraction, err := readExtraction(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), pipeline.Analysis.AnalyzeItems(extraction.Items))
		},
	}
}

func newExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <extraction.json>",
		Short: "Write a sustainability report workbook for an extraction result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := newPipeline(cmd, true)
			if err != nil {
				return err
			}
			extraction, err := readExtraction(args[0])
			if err != nil {
				return err
			}

			analysis := domain.InvoiceAnalysis{
				InvoiceID:  strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])),
				VendorName: extraction.VendorName,
				Report:     pipeline.Analysis.AnalyzeItems(extraction.Items),
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := pipeline.Exporter.Export(f, analysis); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", out, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d items, score %d)\n", out, len(analysis.Report.PerItem), analysis.Report.Score)
			return err
		},
	}
	cmd.Flags().StringVar(&out, "out", "report.xlsx", "Output workbook path")
	return cmd
}

func newPipeline(cmd *cobra.Command, heuristicOnly bool) (*bootstrap.Pipeline, error) {
	cfg := config.Load()
	logger := logging.NewLogger(cmd.ErrOrStderr(), "invoicectl", cfg.LogLevel)
	return bootstrap.NewPipeline(cfg, logger, heuristicOnly)
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func readText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return plaintext.Read(f)
}

func readFragments(path string) ([]domain.PositionedFragment, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return fragments.Decode(raw)
}

func readExtraction(path string) (*domain.InvoiceExtraction, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var extraction domain.InvoiceExtraction
	if err := json.Unmarshal(raw, &extraction); err != nil {
		return nil, fmt.Errorf("decode extraction %s: %w", path, err)
	}
	return &extraction, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
