package prometheus

import (
	"strconv"
	"time"

	"github.com/marmos91/dittogrid/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// sessionMetrics is the Prometheus implementation of metrics.SessionMetrics.
type sessionMetrics struct {
	callsTotal       *prometheus.CounterVec
	callDuration     *prometheus.HistogramVec
	bytesTransferred *prometheus.CounterVec
}

// NewSessionMetrics creates a new Prometheus-backed SessionMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewSessionMetrics() metrics.SessionMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopSessionMetrics()
	}

	reg := metrics.GetRegistry()

	return &sessionMetrics{
		callsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittogrid_session_calls_total",
				Help: "Total number of API calls by api and server status",
			},
			[]string{"api", "status"},
		),
		callDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dittogrid_session_call_duration_milliseconds",
				Help:    "Round trip time of API calls in milliseconds",
				Buckets: []float64{1, 10, 100, 1000, 10000},
			},
			[]string{"api"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittogrid_session_bytes_total",
				Help: "Total bytes exchanged with the grid",
			},
			[]string{"direction"},
		),
	}
}

func (m *sessionMetrics) RecordCall(api string, duration time.Duration, status int32, err error) {
	label := strconv.Itoa(int(status))
	if err != nil && status == 0 {
		label = "transport_error"
	}

	m.callsTotal.WithLabelValues(api, label).Inc()
	m.callDuration.WithLabelValues(api).Observe(duration.Seconds() * 1000)
}

func (m *sessionMetrics) RecordBytes(direction string, bytes int) {
	m.bytesTransferred.WithLabelValues(direction).Add(float64(bytes))
}
