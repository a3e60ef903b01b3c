package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/kirillkom/invoice-carbon/internal/config"
	"github.com/kirillkom/invoice-carbon/internal/core/domain"
	"github.com/kirillkom/invoice-carbon/internal/core/ports"
	"github.com/kirillkom/invoice-carbon/internal/infrastructure/extractor/fragments"
	"github.com/kirillkom/invoice-carbon/internal/observability/metrics"
)

const (
	serviceName         = "api"
	defaultMaxBodyBytes = 20 << 20
	xlsxContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Router struct {
	cfg      config.Config
	ingest   ports.InvoiceIngestor
	invoices ports.InvoiceService
	parser   ports.InvoiceParser
	analyzer ports.CarbonAnalyzer
	metrics  *metrics.HTTPServerMetrics
}

func NewRouter(
	cfg config.Config,
	ingest ports.InvoiceIngestor,
	invoices ports.InvoiceService,
	parser ports.InvoiceParser,
	analyzer ports.CarbonAnalyzer,
) *Router {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxBodyBytes
	}
	return &Router{
		cfg:      cfg,
		ingest:   ingest,
		invoices: invoices,
		parser:   parser,
		analyzer: analyzer,
	}
}

// WithMetrics enables request instrumentation and the /metrics endpoint.
func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/invoices", rt.uploadInvoice)
	api.HandleFunc("GET /v1/invoices", rt.listInvoices)
	api.HandleFunc("GET /v1/invoices/{id}", rt.getInvoice)
	api.HandleFunc("DELETE /v1/invoices/{id}", rt.deleteInvoice)
	api.HandleFunc("POST /v1/invoices/{id}/reprocess", rt.reprocessInvoice)
	api.HandleFunc("POST /v1/invoices/{id}/reparse", rt.reparseInvoice)
	api.HandleFunc("GET /v1/invoices/{id}/analysis", rt.invoiceAnalysis)
	api.HandleFunc("GET /v1/invoices/{id}/report.xlsx", rt.invoiceReport)
	api.HandleFunc("POST /v1/parse/text", rt.parseText)
	api.HandleFunc("POST /v1/parse/fragments", rt.parseFragments)
	api.HandleFunc("POST /v1/carbon/analyze", rt.analyzeItems)
	api.HandleFunc("GET /v1/carbon/footprint", rt.footprint)
	api.HandleFunc("GET /v1/carbon/dashboard", rt.dashboard)
	api.HandleFunc("GET /v1/service/status", rt.serviceStatus)

	var reject rejectFunc
	if rt.metrics != nil {
		reject = func(reason string) { rt.metrics.RecordRejected(serviceName, reason) }
	}
	limited := rateLimitMiddleware(
		backpressureMiddleware(api, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait, reject),
		rt.cfg.APIRateLimitRPS,
		rt.cfg.APIRateLimitBurst,
		reject,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.Handle("/v1/", limited)

	var handler http.Handler = mux
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadInvoice(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "upload exceeds size limit"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	inv, err := rt.ingest.Upload(r.Context(), fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, inv)
}

func (rt *Router) listInvoices(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	list, err := rt.invoices.List(r.Context(), limit)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": list})
}

func (rt *Router) getInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := rt.invoices.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (rt *Router) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	if err := rt.invoices.Delete(r.Context(), r.PathValue("id")); err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) reprocessInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := rt.invoices.Reprocess(r.Context(), r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, inv)
}

func (rt *Router) reparseInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := rt.invoices.Reparse(r.Context(), r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (rt *Router) invoiceAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := rt.analyzer.AnalyzeInvoice(r.Context(), r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (rt *Router) invoiceReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var buf bytes.Buffer
	if err := rt.analyzer.ExportInvoiceReport(r.Context(), id, &buf); err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "invoice-"+id+"-carbon.xlsx"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (rt *Router) parseText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !rt.decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}
	writeJSON(w, http.StatusOK, rt.parser.ParseText(r.Context(), req.Text))
}

func (rt *Router) parseFragments(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body exceeds size limit"})
		return
	}
	frags, err := fragments.Decode(raw)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	extraction, err := rt.parser.ParseFragments(r.Context(), frags)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, extraction)
}

func (rt *Router) analyzeItems(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []domain.ExtractedItem `json:"items"`
	}
	if !rt.decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, rt.analyzer.AnalyzeItems(req.Items))
}

func (rt *Router) footprint(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "days must be an integer"})
			return
		}
		days = n
	}
	report, err := rt.analyzer.Footprint(r.Context(), days)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := rt.analyzer.Dashboard(r.Context())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (rt *Router) serviceStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rt.invoices.Status(r.Context()))
}

func (rt *Router) decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes))
	if err := dec.Decode(out); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return false
	}
	return true
}

// isBodyTooLarge also matches on the message because the multipart reader
// does not always wrap the underlying *http.MaxBytesError.
func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("http_handler_error",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
