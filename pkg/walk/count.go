package walk

import (
	"context"
	"time"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/pkg/catalog"
)

// Totals are recursive counts below a root, root excluded.
type Totals struct {
	Collections int
	DataObjects int
}

// CountRecursive sums the direct counts of every collection below root.
//
// Collections are counted as they are reached, so cycles through linked
// collections count the link once and never its target twice. A data
// object root yields zero totals.
func (w *Walker) CountRecursive(ctx context.Context, root string) (Totals, error) {
	var totals Totals

	counting := &Walker{
		catalog: w.catalog,
		config: Config{
			MaxDepth:        w.config.MaxDepth,
			SkipDataObjects: true,
			Fallback:        w.config.Fallback,
		},
	}

	st := &walkState{
		visit: func(entry catalog.ListingEntry, depth int) error {
			if depth > 0 {
				totals.Collections++
			}
			return nil
		},
		enter: func(status *catalog.ObjectStatus) error {
			n, err := w.catalog.CountDataObjectsUnderStatus(ctx, status)
			if err != nil {
				return err
			}
			totals.DataObjects += n
			return nil
		},
		visited: map[string]string{},
		stats:   &Stats{StartTime: time.Now()},
	}

	if err := counting.run(ctx, root, st); err != nil {
		return Totals{}, err
	}

	logger.Debug("count %s: collections=%d data_objects=%d duration=%s",
		root, totals.Collections, totals.DataObjects, time.Since(st.stats.StartTime))
	return totals, nil
}
