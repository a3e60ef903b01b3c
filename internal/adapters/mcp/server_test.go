package mcpadapter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/carbon"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/layout"
)

type parserStub struct{}

func (parserStub) ParseText(_ context.Context, text string) *domain.InvoiceExtraction {
	out := domain.EmptyExtraction(domain.MethodHeuristic)
	out.Items = append(out.Items, domain.ExtractedItem{Name: text, Quantity: 1, Price: 1})
	return out
}

func (parserStub) ParseFragments(context.Context, []domain.PositionedFragment) (*domain.InvoiceExtraction, error) {
	return domain.EmptyExtraction(domain.MethodHeuristic), nil
}

type analyzerStub struct {
	estimator *carbon.Estimator
}

func (a analyzerStub) AnalyzeItems(items []domain.ExtractedItem) domain.SustainabilityReport {
	return a.estimator.Estimate(items)
}

func (analyzerStub) AnalyzeInvoice(context.Context, string) (*domain.InvoiceAnalysis, error) {
	return nil, nil
}

func (analyzerStub) Footprint(context.Context, int) (*domain.FootprintReport, error) {
	return nil, nil
}

func (analyzerStub) Dashboard(context.Context) (*domain.Dashboard, error) {
	return nil, nil
}

func (analyzerStub) ExportInvoiceReport(context.Context, string, io.Writer) error {
	return nil
}

func newTestServer() *Server {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewServer(parserStub{}, layout.NewReconstructor(0, 0), analyzerStub{estimator: carbon.NewEstimator(nil)}, logger)
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("expected tool content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func TestParseInvoiceTextTool(t *testing.T) {
	s := newTestServer()
	res, err := s.parseInvoiceText(context.Background(), callRequest("parse_invoice_text", map[string]any{"text": "Carrots"}))
	if err != nil {
		t.Fatalf("parseInvoiceText() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	var extraction domain.InvoiceExtraction
	if err := json.Unmarshal([]byte(resultText(t, res)), &extraction); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(extraction.Items) != 1 || extraction.Items[0].Name != "Carrots" {
		t.Fatalf("unexpected extraction %+v", extraction)
	}
}

func TestParseInvoiceTextToolRequiresText(t *testing.T) {
	s := newTestServer()
	res, err := s.parseInvoiceText(context.Background(), callRequest("parse_invoice_text", map[string]any{}))
	if err != nil {
		t.Fatalf("parseInvoiceText() error = %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error for missing text")
	}
}

func TestReconstructFragmentsTool(t *testing.T) {
	s := newTestServer()
	box := func(x0, x1, y float64) []any {
		return []any{
			map[string]any{"x": x0, "y": y},
			map[string]any{"x": x1, "y": y},
			map[string]any{"x": x1, "y": y + 10},
			map[string]any{"x": x0, "y": y + 10},
		}
	}
	args := map[string]any{"fragments": []any{
		map[string]any{"text": "$2.10", "confidence": 0.9, "bounding_box": box(200, 240, 0)},
		map[string]any{"text": "Carrots", "confidence": 0.9, "bounding_box": box(0, 60, 2)},
		map[string]any{"text": "TOTAL", "confidence": 0.9, "bounding_box": box(0, 50, 40)},
	}}

	res, err := s.reconstructFragments(context.Background(), callRequest("reconstruct_fragments", args))
	if err != nil {
		t.Fatalf("reconstructFragments() error = %v", err)
	}
	var out struct {
		Lines []string `json:"lines"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(out.Lines) != 2 || out.Lines[0] != "Carrots    $2.10" || out.Lines[1] != "TOTAL" {
		t.Fatalf("unexpected lines %q", out.Lines)
	}
}

func TestEstimateCarbonToolAcceptsEncodedString(t *testing.T) {
	s := newTestServer()
	args := map[string]any{"items": `[{"name":"Beef","quantity":2,"unit":"lb","price":10}]`}

	res, err := s.estimateCarbon(context.Background(), callRequest("estimate_carbon", args))
	if err != nil {
		t.Fatalf("estimateCarbon() error = %v", err)
	}
	var report domain.SustainabilityReport
	if err := json.Unmarshal([]byte(resultText(t, res)), &report); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if report.TotalEmissions != 120 {
		t.Fatalf("expected 120 kg for 2 lb beef, got %v", report.TotalEmissions)
	}
}

func TestEstimateCarbonToolRejectsGarbage(t *testing.T) {
	s := newTestServer()
	res, err := s.estimateCarbon(context.Background(), callRequest("estimate_carbon", map[string]any{"items": "not json"}))
	if err != nil {
		t.Fatalf("estimateCarbon() error = %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error")
	}
}
