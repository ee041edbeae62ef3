package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/dittogrid/pkg/gridsim"
	"github.com/spf13/viper"
)

// Config represents the complete dittogrid configuration.
//
// This structure captures every configurable aspect of the catalog client
// and the grid simulator:
//   - Logging configuration
//   - The grid account the client connects as
//   - Session transport limits
//   - Listing and walk behavior
//   - Metrics exposition
//   - Export sink selection and configuration (sink-specific)
//   - The simulator's server, store and fixture
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (DITTOGRID_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
//
// Sink and store configuration follows the same pattern: each implementation
// defines its own configuration type, the Config struct carries a map per
// implementation, and only the map matching the selected type is decoded.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Account identifies the grid server and user
	Account AccountConfig `mapstructure:"account" yaml:"account"`

	// Session contains transport limits for catalog sessions
	Session SessionConfig `mapstructure:"session" yaml:"session"`

	// Listing contains catalog listing settings
	Listing ListingConfig `mapstructure:"listing" yaml:"listing"`

	// Walk contains recursive traversal settings
	Walk WalkConfig `mapstructure:"walk" yaml:"walk"`

	// Metrics controls Prometheus exposition
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Export specifies the export sink type and type-specific configuration
	Export ExportConfig `mapstructure:"export" yaml:"export"`

	// Gridsim configures the grid simulator
	Gridsim GridsimConfig `mapstructure:"gridsim" yaml:"gridsim"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// AccountConfig identifies the grid server and the user a session acts as.
type AccountConfig struct {
	// Host is the catalog server host name
	Host string `mapstructure:"host" yaml:"host" validate:"required"`

	// Port is the catalog server port
	Port int `mapstructure:"port" yaml:"port" validate:"required,gt=0,lte=65535"`

	// Zone is the user's zone
	Zone string `mapstructure:"zone" yaml:"zone" validate:"required,excludes=/"`

	// User is the account name
	User string `mapstructure:"user" yaml:"user" validate:"required,excludes=/"`

	// Home overrides the conventional /<zone>/home/<user>
	Home string `mapstructure:"home" yaml:"home,omitempty" validate:"omitempty,startswith=/"`
}

// SessionConfig contains transport limits for catalog sessions.
type SessionConfig struct {
	// DialTimeout bounds connection establishment
	DialTimeout time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout" validate:"gte=0"`

	// RequestTimeout bounds one round trip
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout" validate:"gte=0"`

	// RequestsPerSecond throttles calls; 0 disables throttling
	RequestsPerSecond uint `mapstructure:"requests_per_second" yaml:"requests_per_second"`

	// Burst is the number of calls allowed above the steady rate
	Burst uint `mapstructure:"burst" yaml:"burst"`
}

// ListingConfig contains catalog listing settings.
type ListingConfig struct {
	// MaxPageSize is the row limit requested per GenQuery page
	MaxPageSize int `mapstructure:"max_page_size" yaml:"max_page_size" validate:"gte=0"`

	// MaxPathLength rejects longer paths before any round trip
	MaxPathLength int `mapstructure:"max_path_length" yaml:"max_path_length" validate:"gte=0"`

	// DisableFallback turns off synthesized listings for unreadable roots
	DisableFallback bool `mapstructure:"disable_fallback" yaml:"disable_fallback"`
}

// WalkConfig contains recursive traversal settings.
type WalkConfig struct {
	// MaxDepth stops descending below this depth; 0 means unlimited
	MaxDepth int `mapstructure:"max_depth" yaml:"max_depth" validate:"gte=0"`

	// SkipDataObjects visits collections only
	SkipDataObjects bool `mapstructure:"skip_data_objects" yaml:"skip_data_objects"`
}

// MetricsConfig controls Prometheus exposition.
type MetricsConfig struct {
	// Enabled turns on metrics collection and the HTTP endpoint
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Listen is the host:port of the metrics HTTP server
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// ExportConfig specifies export sink configuration.
//
// The Type field determines which sink implementation is used.
// Only the corresponding type-specific configuration section is used.
type ExportConfig struct {
	// Type specifies which sink implementation to use
	// Valid values: file, s3
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=file s3"`

	// Compression selects the record encoding
	// Valid values: none, zstd
	Compression string `mapstructure:"compression" yaml:"compression" validate:"required,oneof=none zstd"`

	// File contains file sink configuration
	// Only used when Type = "file"
	File map[string]any `mapstructure:"file" yaml:"file"`

	// S3 contains S3 sink configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3"`
}

// GridsimConfig configures the grid simulator.
type GridsimConfig struct {
	// Server contains the simulator's protocol settings.
	// Uses the gridsim.Config type directly to avoid duplication.
	Server gridsim.Config `mapstructure:"server" yaml:"server"`

	// Fixture is the YAML catalog seeded into the store at startup
	Fixture string `mapstructure:"fixture" yaml:"fixture"`

	// Store specifies the catalog store and its configuration
	Store StoreConfig `mapstructure:"store" yaml:"store"`
}

// StoreConfig specifies the simulator's catalog store.
type StoreConfig struct {
	// Type specifies which store implementation to use
	// Valid values: badger
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=badger"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DITTOGRID_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the DITTOGRID_ prefix and underscores,
	// e.g. DITTOGRID_ACCOUNT_ZONE=tempZone
	v.SetEnvPrefix("DITTOGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/dittogrid/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// bindEnvKeys registers the scalar keys so that environment variables are
// honored even when no config file mentions them. AutomaticEnv alone only
// applies to keys viper already knows.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"logging.level", "logging.format", "logging.output",
		"account.host", "account.port", "account.zone", "account.user", "account.home",
		"session.dial_timeout", "session.request_timeout", "session.requests_per_second", "session.burst",
		"listing.max_page_size", "listing.max_path_length", "listing.disable_fallback",
		"walk.max_depth", "walk.skip_data_objects",
		"metrics.enabled", "metrics.listen",
		"export.type", "export.compression",
		"gridsim.fixture", "gridsim.server.listen", "gridsim.server.zone",
		"gridsim.store.type",
	} {
		_ = v.BindEnv(key)
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is acceptable; defaults apply
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittogrid")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "dittogrid")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the init command).
func GetConfigDir() string {
	return getConfigDir()
}
