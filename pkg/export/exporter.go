package export

import (
	"context"
	"errors"
	"io"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/pkg/catalog"
	"github.com/marmos91/dittogrid/pkg/walk"
)

// Exporter writes walks as records.
type Exporter struct {
	walker      *walk.Walker
	compression Compression
}

// New creates an Exporter.
func New(walker *walk.Walker, compression Compression) *Exporter {
	if compression == "" {
		compression = CompressionNone
	}
	return &Exporter{walker: walker, compression: compression}
}

// Export walks root and writes every entry to sink, root first. The sink is
// closed before Export returns, on failure as well; a sink that fails to
// close makes the export fail.
func (e *Exporter) Export(ctx context.Context, root string, sink io.WriteCloser) (*walk.Stats, error) {
	encoded, err := wrap(sink, e.compression)
	if err != nil {
		_ = sink.Close()
		return nil, err
	}
	records := NewRecordWriter(encoded)

	stats, walkErr := e.walker.Walk(ctx, root, func(entry catalog.ListingEntry, depth int) error {
		return records.Write(FromEntry(entry, depth))
	})
	closeErr := records.Close()

	if err := errors.Join(walkErr, closeErr); err != nil {
		logger.Error("export %s: %v", root, err)
		return stats, err
	}

	logger.Info("export %s: %d records, %s", root, records.Count(), stats.Summary())
	return stats, nil
}
