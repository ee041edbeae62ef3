package prometheus

import (
	"strconv"
	"time"

	"github.com/marmos91/dittogrid/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// serverMetrics is the Prometheus implementation of metrics.ServerMetrics.
type serverMetrics struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	activeConnections   prometheus.Gauge
	connectionsAccepted prometheus.Counter
	connectionsClosed   prometheus.Counter
}

// NewServerMetrics creates a new Prometheus-backed ServerMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewServerMetrics() metrics.ServerMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopServerMetrics()
	}

	reg := metrics.GetRegistry()

	return &serverMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittogrid_gridsim_requests_total",
				Help: "Total number of simulator requests by api and status",
			},
			[]string{"api", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dittogrid_gridsim_request_duration_milliseconds",
				Help:    "Duration of simulator handlers in milliseconds",
				Buckets: []float64{0.1, 1, 10, 100, 1000},
			},
			[]string{"api"},
		),
		activeConnections: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "dittogrid_gridsim_active_connections",
				Help: "Current number of active simulator connections",
			},
		),
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittogrid_gridsim_connections_accepted_total",
				Help: "Total number of simulator connections accepted",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dittogrid_gridsim_connections_closed_total",
				Help: "Total number of simulator connections closed",
			},
		),
	}
}

func (m *serverMetrics) RecordRequest(api string, duration time.Duration, status int32) {
	m.requestsTotal.WithLabelValues(api, strconv.Itoa(int(status))).Inc()
	m.requestDuration.WithLabelValues(api).Observe(duration.Seconds() * 1000)
}

func (m *serverMetrics) SetActiveConnections(count int32) {
	m.activeConnections.Set(float64(count))
}

func (m *serverMetrics) RecordConnectionAccepted() {
	m.connectionsAccepted.Inc()
}

func (m *serverMetrics) RecordConnectionClosed() {
	m.connectionsClosed.Inc()
}
