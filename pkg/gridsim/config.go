package gridsim

import (
	"fmt"
	"time"
)

// Config holds the simulator settings.
//
// Default values (applied by New if zero):
//   - Listen: "127.0.0.1:1247"
//   - ReleaseVersion: "rods4.3.0"
//   - APIVersion: "d"
//   - SpecCollPageSize: 256
//   - IdleTimeout: 5m
//   - ShutdownTimeout: 10s
type Config struct {
	// Listen is the host:port to bind. Port 0 picks a free port.
	Listen string `mapstructure:"listen" yaml:"listen"`

	// Zone is reported by the server info API.
	Zone string `mapstructure:"zone" yaml:"zone" validate:"required"`

	// ReleaseVersion is reported by the server info API, e.g. "rods4.3.0".
	// Clients use it to decide whether to send resource hierarchies.
	ReleaseVersion string `mapstructure:"release_version" yaml:"release_version"`

	// APIVersion is reported by the server info API.
	APIVersion string `mapstructure:"api_version" yaml:"api_version"`

	// SpecCollPageSize is the number of rows per special collection page.
	SpecCollPageSize int `mapstructure:"spec_coll_page_size" yaml:"spec_coll_page_size" validate:"min=0"`

	// MaxConnections limits concurrent connections. 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" yaml:"max_connections" validate:"min=0"`

	// IdleTimeout closes connections idle between requests.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout" validate:"min=0"`

	// ShutdownTimeout bounds the wait for active connections on Stop.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"min=0"`
}

// ApplyDefaults fills in zero values.
func (c *Config) ApplyDefaults() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:1247"
	}
	if c.ReleaseVersion == "" {
		c.ReleaseVersion = "rods4.3.0"
	}
	if c.APIVersion == "" {
		c.APIVersion = "d"
	}
	if c.SpecCollPageSize == 0 {
		c.SpecCollPageSize = 256
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

func (c *Config) validate() error {
	if c.Zone == "" {
		return fmt.Errorf("zone is required")
	}
	if c.SpecCollPageSize < 0 {
		return fmt.Errorf("invalid spec_coll_page_size %d: must be >= 0", c.SpecCollPageSize)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("invalid max_connections %d: must be >= 0", c.MaxConnections)
	}
	return nil
}
