package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileConfig configures a local file sink.
type FileConfig struct {
	// Path of the output file. "-" writes to standard output.
	Path string `mapstructure:"path"`

	// Append adds to an existing file instead of truncating it
	Append bool `mapstructure:"append"`
}

// NewFileSink opens the file named by cfg, creating parent directories.
func NewFileSink(cfg FileConfig) (io.WriteCloser, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("file sink: path is required")
	}
	if cfg.Path == "-" {
		return nopCloser{os.Stdout}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("file sink: create directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if cfg.Append {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(cfg.Path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("file sink: %w", err)
	}
	return f, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
