package httpadapter

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/invoice-carbon/internal/config"
)

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &body, writer.FormDataContentType()
}

func TestHealthzEndpoint(t *testing.T) {
	tr := newTestRouter(config.Config{}, nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected generated request id header")
	}
}

func TestUploadInvoiceSuccess(t *testing.T) {
	tr := newTestRouter(config.Config{}, nil, nil, nil)
	body, contentType := multipartBody(t, "invoice.txt", []byte("Fresh Farms\nTotal: $10.00"))

	req := httptest.NewRequest(http.MethodPost, "/v1/invoices", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}
	var resp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["id"] != "inv-1" || resp["status"] != "uploaded" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestUploadInvoiceMissingMultipartField(t *testing.T) {
	tr := newTestRouter(config.Config{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/invoices", bytes.NewBufferString("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadInvoiceRejectsOversizedBody(t *testing.T) {
	tr := newTestRouter(config.Config{MaxUploadBytes: 64}, nil, nil, nil)
	body, contentType := multipartBody(t, "invoice.txt", []byte(strings.Repeat("x", 512)))

	req := httptest.NewRequest(http.MethodPost, "/v1/invoices", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
}

func TestListInvoicesPassesLimit(t *testing.T) {
	tr := newTestRouter(config.Config{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/invoices?limit=7", nil)
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if tr.invoices.lastLimit != 7 {
		t.Fatalf("expected limit 7, got %d", tr.invoices.lastLimit)
	}
	var resp struct {
		Invoices []map[string]any `json:"invoices"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Invoices) != 2 {
		t.Fatalf("expected 2 invoices, got %d", len(resp.Invoices))
	}
}

func TestListInvoicesRejectsBadLimit(t *testing.T) {
	tr := newTestRouter(config.Config{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/invoices?limit=abc", nil)
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestDeleteInvoiceReturns204(t *testing.T) {
	tr := newTestRouter(config.Config{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodDelete, "/v1/invoices/inv-9", nil)
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
	if tr.invoices.deleted != "inv-9" {
		t.Fatalf("expected inv-9 deleted, got %q", tr.invoices.deleted)
	}
}

func TestReprocessReturns202(t *testing.T) {
	tr := newTestRouter(config.Config{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/invoices/inv-3/reprocess", nil)
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}
}
