// Package mcpadapter exposes invoice parsing and carbon estimation as MCP tools.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
	"github.com/kirillkom/invoice-carbon/internal/core/ports"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/extractor/fragments"
)

const (
	serverName    = "invoice-carbon"
	serverVersion = "1.0.0"
)

type Server struct {
	parser   ports.InvoiceParser
	layout   ports.LayoutReconstructor
	analyzer ports.CarbonAnalyzer
	logger   *slog.Logger
}

func NewServer(parser ports.InvoiceParser, layout ports.LayoutReconstructor, analyzer ports.CarbonAnalyzer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{parser: parser, layout: layout, analyzer: analyzer, logger: logger}
}

func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false))

	srv.AddTool(mcp.NewTool("parse_invoice_text",
		mcp.WithDescription("Extract vendor, total, date and line items from recognized invoice text."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Invoice text, one visual row per line")),
	), s.parseInvoiceText)

	srv.AddTool(mcp.NewTool("reconstruct_fragments",
		mcp.WithDescription("Group positioned OCR fragments into reading-order text lines."),
		mcp.WithArray("fragments", mcp.Required(),
			mcp.Description("Fragments with text, confidence and a four-point bounding_box"),
			mcp.Items(map[string]any{"type": "object"}),
		),
	), s.reconstructFragments)

	srv.AddTool(mcp.NewTool("estimate_carbon",
		mcp.WithDescription("Estimate the carbon footprint of invoice line items and score their sustainability."),
		mcp.WithArray("items", mcp.Required(),
			mcp.Description("Line items with name, quantity, unit and price"),
			mcp.Items(map[string]any{"type": "object"}),
		),
	), s.estimateCarbon)

	return srv
}

// ServeStdio blocks serving JSON-RPC over stdin/stdout. Diagnostics go to
// the logger so stdout stays protocol-only.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.MCPServer(),
		server.WithErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError)),
	)
}

func (s *Server) parseInvoiceText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil || strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("text is required"), nil
	}
	extraction := s.parser.ParseText(ctx, text)
	s.logger.Info("mcp_tool_call", "tool", "parse_invoice_text", "items", len(extraction.Items), "method", extraction.ParsingMethod)
	return jsonResult(extraction)
}

func (s *Server) reconstructFragments(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := rawArgument(req, "fragments")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	frags, err := fragments.Decode(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rows, err := s.layout.Reconstruct(frags)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, row.Text)
	}
	s.logger.Info("mcp_tool_call", "tool", "reconstruct_fragments", "fragments", len(frags), "lines", len(lines))
	return jsonResult(map[string]any{"lines": lines, "text": strings.Join(lines, "\n")})
}

func (s *Server) estimateCarbon(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := rawArgument(req, "items")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var items []domain.ExtractedItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("items must be an array of line items: %v", err)), nil
	}
	report := s.analyzer.AnalyzeItems(items)
	s.logger.Info("mcp_tool_call", "tool", "estimate_carbon", "items", len(items), "score", report.Score)
	return jsonResult(report)
}

// rawArgument returns an argument as JSON. String arguments are treated as
// already-encoded JSON so clients may pass documents verbatim.
func rawArgument(req mcp.CallToolRequest, name string) ([]byte, error) {
	v, ok := req.GetArguments()[name]
	if !ok || v == nil {
		return nil, fmt.Errorf("%s is required", name)
	}
	if s, ok := v.(string); ok {
		return []byte(s), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return raw, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
