package httpadapter

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/invoice-carbon/internal/config"
)

func TestParseTextReturnsExtraction(t *testing.T) {
	tr := newTestRouter(config.Config{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/parse/text", bytes.NewBufferString(`{"text":"Fresh Farms\nCarrots 10 lb $2.10"}`))
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if tr.parser.lastText != "Fresh Farms\nCarrots 10 lb $2.10" {
		t.Fatalf("unexpected text passed to parser: %q", tr.parser.lastText)
	}
	var resp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["vendor_name"] != "Fresh Farms" || resp["parsing_method"] != "heuristic" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestParseFragmentsDecodesEnvelope(t *testing.T) {
	tr := newTestRouter(config.Config{}, nil, nil, nil)
	body := `{"fragments":[{"text":"Carrots","confidence":0.9,"bounding_box":[{"x":0,"y":0},{"x":50,"y":0},{"x":50,"y":10},{"x":0,"y":10}]}]}`

	req := httptest.NewRequest(http.MethodPost, "/v1/parse/fragments", bytes.NewBufferString(body))
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if len(tr.parser.fragments) != 1 || tr.parser.fragments[0].Text != "Carrots" {
		t.Fatalf("unexpected fragments: %+v", tr.parser.fragments)
	}
}

func TestAnalyzeItemsReturnsReport(t *testing.T) {
	tr := newTestRouter(config.Config{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/carbon/analyze", bytes.NewBufferString(`{"items":[{"name":"Beef","quantity":2,"unit":"lb","price":10}]}`))
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if len(tr.analyzer.items) != 1 || tr.analyzer.items[0].Name != "Beef" {
		t.Fatalf("unexpected items: %+v", tr.analyzer.items)
	}
}

func TestFootprintPassesDays(t *testing.T) {
	tr := newTestRouter(config.Config{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/carbon/footprint?days=14", nil)
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if tr.analyzer.lastDays != 14 {
		t.Fatalf("expected days 14, got %d", tr.analyzer.lastDays)
	}
}

func TestDashboardReturnsAggregate(t *testing.T) {
	tr := newTestRouter(config.Config{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/carbon/dashboard", nil)
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var body struct {
		AverageScore int `json:"average_score"`
		Recent       []struct {
			ID         string `json:"id"`
			VendorName string `json:"vendor_name"`
		} `json:"recent"`
	}
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.AverageScore != 70 || len(body.Recent) != 1 || body.Recent[0].VendorName != "Fresh Farms" {
		t.Fatalf("unexpected dashboard body: %s", res.Body.String())
	}
}

func TestInvoiceReportServesWorkbook(t *testing.T) {
	tr := newTestRouter(config.Config{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/invoices/inv-5/report.xlsx", nil)
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := res.Header().Get("Content-Type"); got != xlsxContentType {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := res.Header().Get("Content-Disposition"); got != `attachment; filename="invoice-inv-5-carbon.xlsx"` {
		t.Fatalf("unexpected disposition %q", got)
	}
	if res.Body.String() != "PK-fake-xlsx" {
		t.Fatalf("unexpected body %q", res.Body.String())
	}
}

func TestServiceStatus(t *testing.T) {
	tr := newTestRouter(config.Config{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/service/status", nil)
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	var resp struct {
		Ready bool `json:"ready_for_processing"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Ready {
		t.Fatalf("expected ready_for_processing=true")
	}
}
