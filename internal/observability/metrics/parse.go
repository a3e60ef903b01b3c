package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ParseMetrics tracks hybrid parse outcomes. It is registered on both the
// API and the worker registries since both run the parse pipeline.
type ParseMetrics struct {
	service string

	parseTotal         *prometheus.CounterVec
	fallbackTotal      *prometheus.CounterVec
	extractedItems     *prometheus.HistogramVec
	sustainabilityHist *prometheus.HistogramVec
}

func newParseMetrics(service string, registry *prometheus.Registry) *ParseMetrics {
	parseTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoice",
			Subsystem: "parse",
			Name:      "total",
			Help:      "Total invoice parses by parsing method.",
		},
		[]string{"service", "method"},
	)
	fallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoice",
			Subsystem: "parse",
			Name:      "fallback_total",
			Help:      "Total parses that fell back to the heuristic result, by reason.",
		},
		[]string{"service", "reason"},
	)
	extractedItems := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "invoice",
			Subsystem: "parse",
			Name:      "extracted_items",
			Help:      "Distribution of line items per parse.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service", "method"},
	)
	sustainability := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "invoice",
			Subsystem: "carbon",
			Name:      "sustainability_score",
			Help:      "Distribution of sustainability scores per report.",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
		[]string{"service"},
	)

	registry.MustRegister(parseTotal, fallbackTotal, extractedItems, sustainability)

	return &ParseMetrics{
		service:            service,
		parseTotal:         parseTotal,
		fallbackTotal:      fallbackTotal,
		extractedItems:     extractedItems,
		sustainabilityHist: sustainability,
	}
}

func (m *ParseMetrics) RecordParse(method, fallbackReason string, items int) {
	if method == "" {
		method = "unknown"
	}
	m.parseTotal.WithLabelValues(m.service, method).Inc()
	m.extractedItems.WithLabelValues(m.service, method).Observe(float64(items))
	if fallbackReason != "" {
		m.fallbackTotal.WithLabelValues(m.service, fallbackReason).Inc()
	}
}

func (m *ParseMetrics) RecordSustainabilityScore(score int) {
	m.sustainabilityHist.WithLabelValues(m.service).Observe(float64(score))
}
