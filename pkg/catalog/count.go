package catalog

import (
	"context"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/pkg/query"
)

// countChildren counts direct children of effectivePath.
//
// Data objects are counted once regardless of replicas (replica 0 only).
// Collections are immediate sub-collections; recursive totals are computed
// by walking (see pkg/walk).
func (s *Service) countChildren(ctx context.Context, status *ObjectStatus, dataObjects bool) (int, error) {
	if !status.IsSomeTypeOfCollection() {
		return 0, newError(ErrNotACollection, status.AbsolutePath, "cannot count children of a data object", nil)
	}

	effectivePath := EffectivePath(status)

	var (
		q       *query.Query
		err     error
		counted query.Field
	)
	if dataObjects {
		counted = query.FieldDataName
		q, err = query.NewBuilder(true, false).
			SelectAggregate(query.AggregateCount, query.FieldDataName).
			Where(query.FieldCollName, query.OpEqual, effectivePath).
			Where(query.FieldDataReplNum, query.OpEqual, "0").
			Build(1)
	} else {
		counted = query.FieldCollName
		q, err = query.NewBuilder(true, false).
			SelectAggregate(query.AggregateCount, query.FieldCollName).
			Where(query.FieldCollParentName, query.OpEqual, effectivePath).
			Build(1)
	}
	if err != nil {
		logger.Error("build count query for %s: %v", effectivePath, err)
		return 0, newError(ErrQuery, status.AbsolutePath, "count query failed", err)
	}

	rs, err := s.executor.Execute(ctx, q, 0, ZoneFromPath(effectivePath))
	if err != nil {
		logger.Error("count query %s: %v", q, err)
		return 0, newError(ErrQuery, status.AbsolutePath, "count query failed", err)
	}

	if len(rs.Rows) == 0 {
		return 0, nil
	}
	return rs.Rows[0].IntOrZero(counted), nil
}

// countSpecialChildren counts the children of a mounted or struct-file
// collection. The catalog holds no rows for them, so they are listed.
func (s *Service) countSpecialChildren(ctx context.Context, status *ObjectStatus, dataObjects bool) (int, error) {
	if !status.IsSomeTypeOfCollection() {
		return 0, newError(ErrNotACollection, status.AbsolutePath, "cannot count children of a data object", nil)
	}

	entries, err := s.listSpecialCollection(ctx, status, EffectivePath(status), !dataObjects)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}
