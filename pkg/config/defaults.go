package config

import (
	"strings"
	"time"

	"github.com/marmos91/dittogrid/pkg/catalog"
	"github.com/marmos91/dittogrid/pkg/metrics"
)

// Account defaults match a stock single-zone grid.
const (
	DefaultHost = "localhost"
	DefaultPort = 1247
	DefaultZone = "tempZone"
	DefaultUser = "rods"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Sink and store specific defaults are handled by their implementations
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyAccountDefaults(&cfg.Account)
	applySessionDefaults(&cfg.Session)
	applyListingDefaults(&cfg.Listing)
	applyMetricsDefaults(&cfg.Metrics)
	applyExportDefaults(&cfg.Export)
	applyGridsimDefaults(&cfg.Gridsim, cfg.Account.Zone)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyAccountDefaults sets account defaults.
func applyAccountDefaults(cfg *AccountConfig) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Zone == "" {
		cfg.Zone = DefaultZone
	}
	if cfg.User == "" {
		cfg.User = DefaultUser
	}
	// Home defaults to /<zone>/home/<user>, derived by the session
}

// applySessionDefaults sets session defaults.
func applySessionDefaults(cfg *SessionConfig) {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = time.Minute
	}
	// RequestsPerSecond defaults to 0 (unthrottled)
	if cfg.RequestsPerSecond > 0 && cfg.Burst == 0 {
		cfg.Burst = cfg.RequestsPerSecond
	}
}

// applyListingDefaults sets listing defaults.
func applyListingDefaults(cfg *ListingConfig) {
	if cfg.MaxPageSize == 0 {
		cfg.MaxPageSize = catalog.DefaultMaxPageSize
	}
	if cfg.MaxPathLength == 0 {
		cfg.MaxPathLength = catalog.DefaultMaxPathLength
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Listen == "" {
		cfg.Listen = metrics.DefaultListen
	}
}

// applyExportDefaults sets export sink defaults.
func applyExportDefaults(cfg *ExportConfig) {
	if cfg.Type == "" {
		cfg.Type = "file"
	}
	if cfg.Compression == "" {
		cfg.Compression = "none"
	}

	if cfg.File == nil {
		cfg.File = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}

	// Apply defaults for all sink types (for config file generation)
	if _, ok := cfg.File["path"]; !ok {
		cfg.File["path"] = "-"
	}
	if _, ok := cfg.S3["region"]; !ok {
		cfg.S3["region"] = "us-east-1"
	}
}

// applyGridsimDefaults sets simulator defaults. The simulated zone follows
// the account zone unless set explicitly.
func applyGridsimDefaults(cfg *GridsimConfig, zone string) {
	if cfg.Server.Zone == "" {
		cfg.Server.Zone = zone
	}
	cfg.Server.ApplyDefaults()

	if cfg.Store.Type == "" {
		cfg.Store.Type = "badger"
	}
	if cfg.Store.Badger == nil {
		cfg.Store.Badger = make(map[string]any)
	}
	if _, ok := cfg.Store.Badger["in_memory"]; !ok {
		if _, hasPath := cfg.Store.Badger["db_path"]; !hasPath {
			cfg.Store.Badger["in_memory"] = true
		}
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Export: ExportConfig{
			File: make(map[string]any),
			S3:   make(map[string]any),
		},
		Gridsim: GridsimConfig{
			Store: StoreConfig{
				Badger: make(map[string]any),
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
