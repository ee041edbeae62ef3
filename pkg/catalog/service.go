// Package catalog resolves logical paths and lists their children.
//
// A path is first resolved to an ObjectStatus, which says whether it is an
// ordinary catalog collection, a soft link to another collection, a mounted
// directory or a structured file. Listings then run either as paged catalog
// queries (normal and linked collections) or as native special collection
// queries (mounted and struct-file collections). Results of a linked
// collection are always expressed in terms of the link, never the source.
package catalog

import (
	"context"
	"iter"
	"time"

	"github.com/marmos91/dittogrid/pkg/metrics"
	"github.com/marmos91/dittogrid/pkg/query"
	"github.com/marmos91/dittogrid/pkg/session"
)

// Service is the caller-facing entry point of the catalog.
//
// A Service issues its round trips on a single session and inherits the
// session's threading contract.
type Service struct {
	client   session.Client
	executor query.Executor
	resolver *Resolver
	opts     Options
	metrics  metrics.CatalogMetrics
}

// NewService creates a Service.
//
// Parameters:
//   - client: Session used for stat and special collection calls
//   - executor: Catalog query executor; nil uses a query.WireExecutor on client
//   - opts: Page size, path length limit and fallback policy
//   - m: Metrics collector; nil disables metrics
func NewService(client session.Client, executor query.Executor, opts Options, m metrics.CatalogMetrics) *Service {
	opts = opts.withDefaults()
	if executor == nil {
		executor = query.NewWireExecutor(client)
	}
	if m == nil {
		m = metrics.NewNoopCatalogMetrics()
	}

	return &Service{
		client:   client,
		executor: executor,
		resolver: NewResolver(client, opts),
		opts:     opts,
		metrics:  m,
	}
}

// Options returns the effective options.
func (s *Service) Options() Options {
	return s.opts
}

// Account returns the account the service acts as.
func (s *Service) Account() session.Account {
	return s.client.Account()
}

// Resolve returns the status of absolutePath. See Resolver.Resolve.
func (s *Service) Resolve(ctx context.Context, absolutePath string) (*ObjectStatus, error) {
	start := time.Now()
	status, err := s.resolver.Resolve(ctx, absolutePath)
	s.observe("resolve", "", start, err)
	return status, err
}

// ListCollectionsUnder lists one page of sub-collections of absolutePath,
// starting after offset entries.
//
// Listing "/" drops the root's own row. When that row is alone on the final
// page the result is empty and no entry carries LastResult; an empty page
// always ends the listing.
func (s *Service) ListCollectionsUnder(ctx context.Context, absolutePath string, offset int) ([]ListingEntry, error) {
	status, err := s.Resolve(ctx, absolutePath)
	if err != nil {
		return nil, err
	}
	return s.ListCollectionsUnderStatus(ctx, status, offset)
}

// ListCollectionsUnderStatus is ListCollectionsUnder for an already
// resolved status.
func (s *Service) ListCollectionsUnderStatus(ctx context.Context, status *ObjectStatus, offset int) ([]ListingEntry, error) {
	return s.list(ctx, operationListColls, status, offset, true)
}

// ListDataObjectsUnder lists one page of data objects in absolutePath,
// starting after offset entries.
func (s *Service) ListDataObjectsUnder(ctx context.Context, absolutePath string, offset int) ([]ListingEntry, error) {
	status, err := s.Resolve(ctx, absolutePath)
	if err != nil {
		return nil, err
	}
	return s.ListDataObjectsUnderStatus(ctx, status, offset)
}

// ListDataObjectsUnderStatus is ListDataObjectsUnder for an already
// resolved status.
func (s *Service) ListDataObjectsUnderStatus(ctx context.Context, status *ObjectStatus, offset int) ([]ListingEntry, error) {
	return s.list(ctx, operationListData, status, offset, false)
}

func (s *Service) list(ctx context.Context, operation string, status *ObjectStatus, offset int, wantCollections bool) (entries []ListingEntry, err error) {
	start := time.Now()
	strategy := strategyFor(status)
	defer func() {
		s.observe(operation, strategy, start, err)
		if err == nil {
			s.metrics.RecordEntries(operation, len(entries))
		}
	}()

	if !status.IsSomeTypeOfCollection() {
		return nil, newError(ErrNotACollection, status.AbsolutePath, "cannot list children of a data object", nil)
	}
	if err := CheckSpecialCollectionSupport(status); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	effectivePath := EffectivePath(status)

	if strategy == strategyGenQuery {
		return s.listViaQuery(ctx, status, effectivePath, offset, wantCollections)
	}

	all, err := s.listSpecialCollection(ctx, status, effectivePath, wantCollections)
	if err != nil {
		return nil, err
	}
	if offset >= len(all) {
		return []ListingEntry{}, nil
	}
	return all[offset:], nil
}

func strategyFor(status *ObjectStatus) string {
	switch status.Kind() {
	case KindStructFile, KindMounted:
		return strategySpecColl
	default:
		return strategyGenQuery
	}
}

// AllCollectionsUnder iterates every sub-collection of absolutePath,
// fetching further pages as needed. Iteration stops at the first error,
// which is yielded with a zero entry.
func (s *Service) AllCollectionsUnder(ctx context.Context, absolutePath string) iter.Seq2[ListingEntry, error] {
	return s.all(ctx, absolutePath, true)
}

// AllDataObjectsUnder iterates every data object in absolutePath.
func (s *Service) AllDataObjectsUnder(ctx context.Context, absolutePath string) iter.Seq2[ListingEntry, error] {
	return s.all(ctx, absolutePath, false)
}

func (s *Service) all(ctx context.Context, absolutePath string, wantCollections bool) iter.Seq2[ListingEntry, error] {
	return func(yield func(ListingEntry, error) bool) {
		status, err := s.Resolve(ctx, absolutePath)
		if err != nil {
			yield(ListingEntry{}, err)
			return
		}
		s.allUnderStatus(ctx, status, wantCollections)(yield)
	}
}

// AllCollectionsUnderStatus is AllCollectionsUnder for an already resolved
// status.
func (s *Service) AllCollectionsUnderStatus(ctx context.Context, status *ObjectStatus) iter.Seq2[ListingEntry, error] {
	return s.allUnderStatus(ctx, status, true)
}

// AllDataObjectsUnderStatus is AllDataObjectsUnder for an already resolved
// status.
func (s *Service) AllDataObjectsUnderStatus(ctx context.Context, status *ObjectStatus) iter.Seq2[ListingEntry, error] {
	return s.allUnderStatus(ctx, status, false)
}

func (s *Service) allUnderStatus(ctx context.Context, status *ObjectStatus, wantCollections bool) iter.Seq2[ListingEntry, error] {
	return func(yield func(ListingEntry, error) bool) {
		offset := 0
		lastPath := ""
		for {
			var page []ListingEntry
			var err error
			if wantCollections {
				page, err = s.ListCollectionsUnderStatus(ctx, status, offset)
			} else {
				page, err = s.ListDataObjectsUnderStatus(ctx, status, offset)
			}
			if err != nil {
				yield(ListingEntry{}, err)
				return
			}

			for i, entry := range page {
				// Replica rows of one data object can straddle a page boundary.
				if i == 0 && entry.FullPath() == lastPath {
					continue
				}
				if !yield(entry, nil) {
					return
				}
				lastPath = entry.FullPath()
			}

			if len(page) == 0 {
				return
			}
			last := page[len(page)-1]
			if last.LastResult || last.Count <= offset {
				return
			}
			offset = last.Count
		}
	}
}

// ListAllUnder returns every sub-collection of absolutePath followed by
// every data object in it.
func (s *Service) ListAllUnder(ctx context.Context, absolutePath string) ([]ListingEntry, error) {
	status, err := s.Resolve(ctx, absolutePath)
	if err != nil {
		return nil, err
	}

	var entries []ListingEntry
	for _, wantCollections := range []bool{true, false} {
		for entry, err := range s.allUnderStatus(ctx, status, wantCollections) {
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// CountDataObjectsUnder counts the data objects directly in absolutePath,
// each counted once regardless of replicas.
func (s *Service) CountDataObjectsUnder(ctx context.Context, absolutePath string) (int, error) {
	status, err := s.Resolve(ctx, absolutePath)
	if err != nil {
		return 0, err
	}
	return s.CountDataObjectsUnderStatus(ctx, status)
}

// CountDataObjectsUnderStatus is CountDataObjectsUnder for an already
// resolved status.
func (s *Service) CountDataObjectsUnderStatus(ctx context.Context, status *ObjectStatus) (int, error) {
	return s.count(ctx, "count_data_objects", status, true)
}

// CountCollectionsUnder counts the immediate sub-collections of absolutePath.
func (s *Service) CountCollectionsUnder(ctx context.Context, absolutePath string) (int, error) {
	status, err := s.Resolve(ctx, absolutePath)
	if err != nil {
		return 0, err
	}
	return s.CountCollectionsUnderStatus(ctx, status)
}

// CountCollectionsUnderStatus is CountCollectionsUnder for an already
// resolved status.
func (s *Service) CountCollectionsUnderStatus(ctx context.Context, status *ObjectStatus) (int, error) {
	return s.count(ctx, "count_collections", status, false)
}

func (s *Service) count(ctx context.Context, operation string, status *ObjectStatus, dataObjects bool) (n int, err error) {
	start := time.Now()
	strategy := strategyFor(status)
	defer func() { s.observe(operation, strategy, start, err) }()

	if err := CheckSpecialCollectionSupport(status); err != nil {
		return 0, err
	}
	if strategy == strategySpecColl {
		return s.countSpecialChildren(ctx, status, dataObjects)
	}
	return s.countChildren(ctx, status, dataObjects)
}

func (s *Service) observe(operation, strategy string, start time.Time, err error) {
	// A missing path is an answer, not a failure.
	if IsNotFound(err) {
		err = nil
	}
	s.metrics.RecordOperation(operation, strategy, time.Since(start), err)
}
