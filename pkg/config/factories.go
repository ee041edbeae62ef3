package config

import (
	"context"
	"fmt"
	"io"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/pkg/catalog"
	"github.com/marmos91/dittogrid/pkg/export"
	badgerstore "github.com/marmos91/dittogrid/pkg/gridsim/badger"
	"github.com/marmos91/dittogrid/pkg/session"
	"github.com/marmos91/dittogrid/pkg/walk"
	"github.com/mitchellh/mapstructure"
)

// decodeOptions decodes a type-specific options map into out. Values coming
// from environment variables arrive as strings, so input is weakly typed.
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}

// CreateExportSink creates an export sink based on configuration.
//
// This factory function uses the Type field to determine which sink
// implementation to create, then decodes the type-specific configuration
// from the corresponding map and passes it to the sink's constructor.
//
// Supported types:
//   - "file": Local file, or standard output when path is "-"
//   - "s3": Amazon S3 or a compatible service
//
// The returned sink receives already-compressed bytes; compression is
// applied by the exporter.
func CreateExportSink(ctx context.Context, cfg *ExportConfig) (io.WriteCloser, error) {
	switch cfg.Type {
	case "file":
		return createFileSink(cfg.File)
	case "s3":
		return createS3Sink(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown export sink type: %q", cfg.Type)
	}
}

// createFileSink creates a local file sink.
func createFileSink(options map[string]any) (io.WriteCloser, error) {
	var sinkCfg export.FileConfig
	if err := decodeOptions(options, &sinkCfg); err != nil {
		return nil, fmt.Errorf("failed to decode file sink config: %w", err)
	}

	if sinkCfg.Path == "" {
		return nil, fmt.Errorf("file sink: path is required")
	}

	sink, err := export.NewFileSink(sinkCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create file sink: %w", err)
	}

	logger.Debug("File export sink initialized: path=%s, append=%v", sinkCfg.Path, sinkCfg.Append)
	return sink, nil
}

// createS3Sink creates an S3 sink.
func createS3Sink(ctx context.Context, options map[string]any) (io.WriteCloser, error) {
	var sinkCfg export.S3Config
	if err := decodeOptions(options, &sinkCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 sink config: %w", err)
	}

	if sinkCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 sink: bucket is required")
	}
	if sinkCfg.Region == "" {
		return nil, fmt.Errorf("S3 sink: region is required")
	}

	client, err := export.NewS3Client(ctx, sinkCfg)
	if err != nil {
		return nil, err
	}

	sink, err := export.NewS3Sink(ctx, client, sinkCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 sink: %w", err)
	}

	logger.Info("S3 export sink initialized: bucket=%s, region=%s, key=%s",
		sinkCfg.Bucket, sinkCfg.Region, sinkCfg.ObjectKey())

	return sink, nil
}

// CreateGridStore creates the simulator's catalog store based on configuration.
//
// Supported types:
//   - "badger": BadgerDB, on disk or in memory
func CreateGridStore(ctx context.Context, cfg *StoreConfig) (*badgerstore.Store, error) {
	switch cfg.Type {
	case "badger":
		var storeCfg badgerstore.Config
		if err := decodeOptions(cfg.Badger, &storeCfg); err != nil {
			return nil, fmt.Errorf("failed to decode badger store config: %w", err)
		}

		store, err := badgerstore.New(ctx, storeCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create badger store: %w", err)
		}

		if storeCfg.InMemory {
			logger.Info("Badger catalog store initialized in memory")
		} else {
			logger.Info("Badger catalog store initialized: path=%s", storeCfg.DBPath)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown grid store type: %q", cfg.Type)
	}
}

// NewSessionConfig builds the session settings for cfg's account.
func NewSessionConfig(cfg *Config) session.Config {
	return session.Config{
		Account: session.Account{
			Host:          cfg.Account.Host,
			Port:          cfg.Account.Port,
			Zone:          cfg.Account.Zone,
			User:          cfg.Account.User,
			HomeDirectory: cfg.Account.Home,
		},
		DialTimeout:       cfg.Session.DialTimeout,
		RequestTimeout:    cfg.Session.RequestTimeout,
		RequestsPerSecond: cfg.Session.RequestsPerSecond,
		Burst:             cfg.Session.Burst,
	}
}

// CatalogOptions builds the catalog options from cfg.
func CatalogOptions(cfg *Config) catalog.Options {
	return catalog.Options{
		MaxPageSize:     cfg.Listing.MaxPageSize,
		MaxPathLength:   cfg.Listing.MaxPathLength,
		FallbackEnabled: !cfg.Listing.DisableFallback,
	}
}

// NewWalkConfig builds the walker settings from cfg. Walks synthesize root
// children whenever listing fallback is enabled.
func NewWalkConfig(cfg *Config) walk.Config {
	return walk.Config{
		MaxDepth:        cfg.Walk.MaxDepth,
		SkipDataObjects: cfg.Walk.SkipDataObjects,
		Fallback:        !cfg.Listing.DisableFallback,
	}
}

// ExportCompression returns the configured record compression.
func ExportCompression(cfg *ExportConfig) export.Compression {
	if cfg.Compression == string(export.CompressionZstd) {
		return export.CompressionZstd
	}
	return export.CompressionNone
}
