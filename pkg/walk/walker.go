// Package walk traverses collection subtrees through the catalog.
//
// The catalog answers for one collection at a time: its listings and counts
// cover direct children only. Walker builds recursive views on top of it:
//   - Walk visits every collection and data object below a root, depth first
//   - CountRecursive sums direct counts over a subtree
//
// Linked collections may point at an ancestor of themselves. The walker
// tracks the effective path of every collection it enters and never enters
// the same one twice.
package walk

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/pkg/catalog"
)

// SkipCollection is returned by a Visitor to skip the contents of the
// collection it was called for.
var SkipCollection = errors.New("skip this collection")

// Visitor is called once per entry. depth is 0 for the root.
type Visitor func(entry catalog.ListingEntry, depth int) error

// Catalog is the subset of catalog.Service a Walker needs.
type Catalog interface {
	Resolve(ctx context.Context, absolutePath string) (*catalog.ObjectStatus, error)
	AllCollectionsUnderStatus(ctx context.Context, status *catalog.ObjectStatus) iter.Seq2[catalog.ListingEntry, error]
	AllDataObjectsUnderStatus(ctx context.Context, status *catalog.ObjectStatus) iter.Seq2[catalog.ListingEntry, error]
	CountDataObjectsUnderStatus(ctx context.Context, status *catalog.ObjectStatus) (int, error)
	FallbackRootChildren(ctx context.Context, parentPath string) ([]catalog.ListingEntry, error)
}

// Config contains configuration for a Walker.
type Config struct {
	// MaxDepth stops descending below this depth; 0 means unlimited
	MaxDepth int

	// SkipDataObjects visits collections only
	SkipDataObjects bool

	// Fallback synthesizes the children of root-like collections that list
	// as empty (see catalog.Service.FallbackRootChildren)
	Fallback bool
}

// Walker walks collection subtrees.
//
// Thread Safety: a Walker holds no per-walk state and may be shared, but it
// inherits the threading contract of its Catalog.
type Walker struct {
	catalog Catalog
	config  Config
}

// New creates a Walker.
func New(c Catalog, config Config) *Walker {
	if config.MaxDepth < 0 {
		config.MaxDepth = 0
	}
	return &Walker{catalog: c, config: config}
}

// Stats contains statistics from a walk.
type Stats struct {
	StartTime   time.Time // When the walk started
	EndTime     time.Time // When the walk ended
	Collections uint64    // Collections visited, root excluded
	DataObjects uint64    // Data objects visited
	Bytes       int64     // Sum of data object sizes
	Skipped     uint64    // Collections not entered (cycle, depth, visitor or permission)
	Fallbacks   uint64    // Collections whose children were synthesized
}

// Duration returns the total walk duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the walk.
func (s *Stats) Summary() string {
	return fmt.Sprintf("collections=%d data_objects=%d bytes=%d skipped=%d fallbacks=%d duration=%s",
		s.Collections, s.DataObjects, s.Bytes, s.Skipped, s.Fallbacks, s.Duration())
}

// walkState is the per-walk bookkeeping.
type walkState struct {
	visit   Visitor
	enter   func(status *catalog.ObjectStatus) error
	visited map[string]string
	stats   *Stats
}

// Walk visits root and everything below it.
//
// A data object root is visited alone. The visitor may return SkipCollection
// for a collection entry to leave its contents out; any other error stops
// the walk and is returned.
func (w *Walker) Walk(ctx context.Context, root string, visit Visitor) (*Stats, error) {
	st := &walkState{
		visit:   visit,
		visited: map[string]string{},
		stats:   &Stats{StartTime: time.Now()},
	}

	err := w.run(ctx, root, st)
	st.stats.EndTime = time.Now()
	if err != nil {
		return st.stats, err
	}

	logger.Debug("walk %s: %s", root, st.stats.Summary())
	return st.stats, nil
}

func (w *Walker) run(ctx context.Context, root string, st *walkState) error {
	status, err := w.catalog.Resolve(ctx, root)
	if err != nil {
		return err
	}

	rootEntry := entryFromStatus(status)
	if st.visit != nil {
		if err := st.visit(rootEntry, 0); err != nil {
			if errors.Is(err, SkipCollection) {
				return nil
			}
			return err
		}
	}
	if !status.IsSomeTypeOfCollection() {
		return nil
	}

	return w.walkCollection(ctx, status, 0, st)
}

func (w *Walker) walkCollection(ctx context.Context, status *catalog.ObjectStatus, depth int, st *walkState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := catalog.EffectivePath(status)
	if via, seen := st.visited[key]; seen {
		logger.Warn("walk: %s resolves to %s, already entered via %s", status.AbsolutePath, key, via)
		st.stats.Skipped++
		return nil
	}
	st.visited[key] = status.AbsolutePath

	if st.enter != nil {
		if err := st.enter(status); err != nil {
			return err
		}
	}

	var children []catalog.ListingEntry
	for entry, err := range w.catalog.AllCollectionsUnderStatus(ctx, status) {
		if err != nil {
			return err
		}
		children = append(children, entry)
	}

	dataObjects := 0
	if !w.config.SkipDataObjects {
		for entry, err := range w.catalog.AllDataObjectsUnderStatus(ctx, status) {
			if err != nil {
				return err
			}
			dataObjects++
			st.stats.DataObjects++
			st.stats.Bytes += entry.Size
			if st.visit != nil {
				if err := st.visit(entry, depth+1); err != nil && !errors.Is(err, SkipCollection) {
					return err
				}
			}
		}
	}

	if len(children) == 0 && dataObjects == 0 && w.config.Fallback {
		synthesized, err := w.catalog.FallbackRootChildren(ctx, status.AbsolutePath)
		switch {
		case catalog.IsNotFound(err):
		case err != nil:
			return err
		default:
			if len(synthesized) > 0 {
				st.stats.Fallbacks++
			}
			children = synthesized
		}
	}

	for _, child := range children {
		if err := w.walkChild(ctx, child, depth+1, st); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) walkChild(ctx context.Context, child catalog.ListingEntry, depth int, st *walkState) error {
	st.stats.Collections++

	if st.visit != nil {
		if err := st.visit(child, depth); err != nil {
			if errors.Is(err, SkipCollection) {
				st.stats.Skipped++
				return nil
			}
			return err
		}
	}

	if w.config.MaxDepth > 0 && depth >= w.config.MaxDepth {
		st.stats.Skipped++
		return nil
	}

	status, err := w.catalog.Resolve(ctx, child.PathOrName)
	if catalog.IsNotFound(err) {
		logger.Info("walk: %s vanished or is not visible, skipping", child.PathOrName)
		st.stats.Skipped++
		return nil
	}
	if err != nil {
		return err
	}

	return w.walkCollection(ctx, status, depth, st)
}

// entryFromStatus presents a resolved root the way a listing would.
func entryFromStatus(status *catalog.ObjectStatus) catalog.ListingEntry {
	entry := catalog.ListingEntry{
		ObjectType:   status.ObjectType,
		SpecialKind:  status.Kind(),
		OwnerName:    status.OwnerName,
		OwnerZone:    status.OwnerZone,
		CreatedAt:    status.CreatedAt,
		ModifiedAt:   status.ModifiedAt,
		Size:         status.Size,
		ID:           status.DataID,
		Count:        1,
		LastResult:   true,
		TotalRecords: 1,
	}

	if status.IsSomeTypeOfCollection() {
		entry.PathOrName = status.AbsolutePath
		entry.ParentPath = catalog.ParentPath(status.AbsolutePath)
	} else {
		entry.PathOrName = catalog.LastComponent(status.AbsolutePath)
		entry.ParentPath = catalog.ParentPath(status.AbsolutePath)
	}
	if status.Kind() == catalog.KindLinked {
		entry.SpecialObjectPath = status.ObjectPath
	}
	return entry
}
