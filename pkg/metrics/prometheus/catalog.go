package prometheus

import (
	"time"

	"github.com/marmos91/dittogrid/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// catalogMetrics is the Prometheus implementation of metrics.CatalogMetrics.
type catalogMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	entriesReturned   *prometheus.HistogramVec
	pagesTotal        *prometheus.CounterVec
	fallbacksTotal    *prometheus.CounterVec
}

// NewCatalogMetrics creates a new Prometheus-backed CatalogMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewCatalogMetrics() metrics.CatalogMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopCatalogMetrics()
	}

	reg := metrics.GetRegistry()

	return &catalogMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittogrid_catalog_operations_total",
				Help: "Total number of catalog operations by operation, strategy and status",
			},
			[]string{"operation", "strategy", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittogrid_catalog_operation_duration_milliseconds",
				Help: "Duration of catalog operations in milliseconds",
				Buckets: []float64{
					1,     // 1ms
					10,    // 10ms
					100,   // 100ms
					1000,  // 1s
					10000, // 10s
				},
			},
			[]string{"operation", "strategy"},
		),
		entriesReturned: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dittogrid_catalog_entries_returned",
				Help:    "Distribution of the number of entries returned per listing",
				Buckets: []float64{0, 1, 10, 100, 1000, 10000},
			},
			[]string{"operation"},
		),
		pagesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittogrid_catalog_pages_total",
				Help: "Total number of result pages fetched by listing strategy",
			},
			[]string{"strategy"},
		),
		fallbacksTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittogrid_catalog_fallbacks_total",
				Help: "Total number of synthesized listings by path level",
			},
			[]string{"level"},
		),
	}
}

func (m *catalogMetrics) RecordOperation(operation, strategy string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	m.operationsTotal.WithLabelValues(operation, strategy, status).Inc()
	m.operationDuration.WithLabelValues(operation, strategy).Observe(duration.Seconds() * 1000) // Convert to milliseconds
}

func (m *catalogMetrics) RecordEntries(operation string, count int) {
	m.entriesReturned.WithLabelValues(operation).Observe(float64(count))
}

func (m *catalogMetrics) RecordPage(strategy string) {
	m.pagesTotal.WithLabelValues(strategy).Inc()
}

func (m *catalogMetrics) RecordFallback(level string) {
	m.fallbacksTotal.WithLabelValues(level).Inc()
}
