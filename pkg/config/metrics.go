package config

import (
	"github.com/marmos91/dittogrid/pkg/metrics"
	promMetrics "github.com/marmos91/dittogrid/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// SessionMetrics is the collector for catalog sessions (never nil, uses noop if disabled)
	SessionMetrics metrics.SessionMetrics

	// CatalogMetrics is the collector for catalog operations (never nil, uses noop if disabled)
	CatalogMetrics metrics.CatalogMetrics

	// ServerMetrics is the collector for the grid simulator (never nil, uses noop if disabled)
	ServerMetrics metrics.ServerMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled:
//   - Returns nil server
//   - Returns no-op metrics implementations (zero overhead)
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			SessionMetrics: metrics.NewNoopSessionMetrics(),
			CatalogMetrics: metrics.NewNoopCatalogMetrics(),
			ServerMetrics:  metrics.NewNoopServerMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Listen: cfg.Metrics.Listen,
	})

	return &MetricsResult{
		Server:         server,
		SessionMetrics: promMetrics.NewSessionMetrics(),
		CatalogMetrics: promMetrics.NewCatalogMetrics(),
		ServerMetrics:  promMetrics.NewServerMetrics(),
	}
}
