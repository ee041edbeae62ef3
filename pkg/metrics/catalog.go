package metrics

import "time"

// CatalogMetrics provides observability for catalog listing operations.
//
// Operation names are the catalog entry points: "resolve", "list_collections",
// "list_data_objects", "count_collections", "count_data_objects" and
// "fallback".
type CatalogMetrics interface {
	// RecordOperation records a completed catalog operation.
	//
	// Parameters:
	//   - operation: Operation name
	//   - strategy: Listing strategy used ("genquery", "speccoll" or "" when not a listing)
	//   - duration: Time taken, including every page round trip
	//   - err: Error if the operation failed, nil if successful
	RecordOperation(operation, strategy string, duration time.Duration, err error)

	// RecordEntries records how many entries a listing returned.
	RecordEntries(operation string, count int)

	// RecordPage increments the page counter for a paged listing strategy.
	RecordPage(strategy string)

	// RecordFallback records that entries were synthesized because the
	// catalog returned nothing visible for a well-known path.
	RecordFallback(level string)
}

// NewNoopCatalogMetrics returns a CatalogMetrics that discards everything.
func NewNoopCatalogMetrics() CatalogMetrics {
	return noopCatalogMetrics{}
}

type noopCatalogMetrics struct{}

func (noopCatalogMetrics) RecordOperation(operation, strategy string, duration time.Duration, err error) {
}
func (noopCatalogMetrics) RecordEntries(operation string, count int) {}
func (noopCatalogMetrics) RecordPage(strategy string)                {}
func (noopCatalogMetrics) RecordFallback(level string)               {}
