package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/invoice-carbon/internal/core/domain"
)

// WorkerMetrics covers the asynchronous half of the pipeline: how long an
// upload waits on the queue and how each invoice run ends. Parse and score
// series come from the shared ParseMetrics on the same registry.
type WorkerMetrics struct {
	*ParseMetrics

	registry *prometheus.Registry

	processed *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	inFlight  prometheus.Gauge
	queueLag  prometheus.Histogram
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"service": service}

	m := &WorkerMetrics{
		ParseMetrics: newParseMetrics(service, registry),
		registry:     registry,
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "invoice",
			Subsystem:   "worker",
			Name:        "processed_total",
			Help:        "Invoices taken off the queue, by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "invoice",
			Subsystem:   "worker",
			Name:        "process_duration_seconds",
			Help:        "Wall time from recognition to stored extraction, by outcome.",
			Buckets:     []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			ConstLabels: labels,
		}, []string{"outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "invoice",
			Subsystem:   "worker",
			Name:        "in_flight",
			Help:        "Invoices currently being processed.",
			ConstLabels: labels,
		}),
		queueLag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "invoice",
			Subsystem:   "worker",
			Name:        "queue_lag_seconds",
			Help:        "Delay between upload and the start of processing.",
			Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: labels,
		}),
	}
	registry.MustRegister(m.processed, m.duration, m.inFlight, m.queueLag)
	return m
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// TrackInvoice marks one invoice as in flight and returns the callback that
// records how its run ended.
func (m *WorkerMetrics) TrackInvoice() func(err error) {
	m.inFlight.Inc()
	start := time.Now()
	return func(err error) {
		m.inFlight.Dec()
		outcome := processOutcome(err)
		m.processed.WithLabelValues(outcome).Inc()
		m.duration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}
}

// ObserveQueueLag ignores negative lags caused by clock skew between the
// API and worker hosts.
func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag >= 0 {
		m.queueLag.Observe(lag.Seconds())
	}
}

func processOutcome(err error) string {
	switch {
	case err == nil:
		return string(domain.StatusCompleted)
	case domain.IsKind(err, domain.ErrInvoiceNotFound):
		return "not_found"
	case domain.IsKind(err, domain.ErrTemporary), domain.IsKind(err, domain.ErrServiceUnavailable):
		return "retryable"
	default:
		return string(domain.StatusFailed)
	}
}
