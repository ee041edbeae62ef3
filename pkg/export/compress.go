package export

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// Compression selects how records are encoded on the sink.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

// Extension returns the file suffix conventionally used for c.
func (c Compression) Extension() string {
	if c == CompressionZstd {
		return ".ndjson.zst"
	}
	return ".ndjson"
}

// zstdWriter compresses into an io.WriteCloser and closes it on Close.
type zstdWriter struct {
	zw     *zstd.Encoder
	closer io.Closer
}

func (w *zstdWriter) Write(p []byte) (int, error) {
	return w.zw.Write(p)
}

// Close flushes the encoder first, then closes the underlying writer.
func (w *zstdWriter) Close() error {
	if err := w.zw.Close(); err != nil {
		_ = w.closer.Close()
		return err
	}
	return w.closer.Close()
}

// wrap returns w encoded with c. Closing the result closes w.
func wrap(w io.WriteCloser, c Compression) (io.WriteCloser, error) {
	switch c {
	case "", CompressionNone:
		return w, nil
	case CompressionZstd:
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		return &zstdWriter{zw: zw, closer: w}, nil
	default:
		return nil, fmt.Errorf("unknown compression %q (supported: none, zstd)", c)
	}
}
