package catalog

import (
	"context"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/pkg/query"
)

// Collection type values stored in COLL_TYPE.
const (
	collTypeLink       = "linkPoint"
	collTypeMount      = "mountPoint"
	collTypeTar        = "tarStructFile"
	collTypeHaaw       = "haawStructFile"
	collTypeMSSO       = "mssoStructFile"
	strategyGenQuery   = "genquery"
	strategySpecColl   = "speccoll"
	operationListColls = "list_collections"
	operationListData  = "list_data_objects"
)

func kindFromCollType(collType string) SpecialCollectionKind {
	switch collType {
	case collTypeLink:
		return KindLinked
	case collTypeMount:
		return KindMounted
	case collTypeTar, collTypeHaaw, collTypeMSSO:
		return KindStructFile
	default:
		return KindNormal
	}
}

func collectionsQuery(effectivePath string, maxRows int) (*query.Query, error) {
	return query.NewBuilder(true, true).
		Select(
			query.FieldCollName,
			query.FieldCollParentName,
			query.FieldCollCreateTime,
			query.FieldCollModifyTime,
			query.FieldCollID,
			query.FieldCollOwnerName,
			query.FieldCollOwnerZone,
			query.FieldCollType,
		).
		Where(query.FieldCollParentName, query.OpEqual, effectivePath).
		OrderBy(query.FieldCollName).
		Build(maxRows)
}

func dataObjectsQuery(effectivePath string, maxRows int) (*query.Query, error) {
	return query.NewBuilder(true, true).
		Select(
			query.FieldCollName,
			query.FieldDataName,
			query.FieldDataCreateTime,
			query.FieldDataModifyTime,
			query.FieldDataID,
			query.FieldDataSize,
			query.FieldDataReplNum,
			query.FieldDataOwnerName,
			query.FieldDataOwnerZone,
		).
		Where(query.FieldCollName, query.OpEqual, effectivePath).
		OrderBy(query.FieldDataName).
		Build(maxRows)
}

// listViaQuery lists one page of children of a normal or linked collection.
//
// Parameters:
//   - status: Status of the collection being listed
//   - effectivePath: Path the catalog stores the children under
//   - offset: Rows to skip; the Count of the last entry of a previous page
//   - wantCollections: List sub-collections (true) or data objects (false)
func (s *Service) listViaQuery(ctx context.Context, status *ObjectStatus, effectivePath string, offset int, wantCollections bool) ([]ListingEntry, error) {
	build := dataObjectsQuery
	if wantCollections {
		build = collectionsQuery
	}

	q, err := build(effectivePath, s.opts.MaxPageSize)
	if err != nil {
		logger.Error("build listing query for %s: %v", effectivePath, err)
		return nil, newError(ErrQuery, status.AbsolutePath, "listing query failed", err)
	}

	rs, err := s.executor.Execute(ctx, q, offset, ZoneFromPath(effectivePath))
	if err != nil {
		logger.Error("listing query %s: %v", q, err)
		return nil, newError(ErrQuery, status.AbsolutePath, "listing query failed", err)
	}
	s.metrics.RecordPage(strategyGenQuery)

	if wantCollections {
		return collectionEntries(status, rs), nil
	}
	return dataObjectEntries(status, rs), nil
}

func collectionEntries(status *ObjectStatus, rs *query.ResultSet) []ListingEntry {
	entries := make([]ListingEntry, 0, len(rs.Rows))

	for _, row := range rs.Rows {
		name, _ := row.String(query.FieldCollName)
		parent, _ := row.String(query.FieldCollParentName)
		collType, _ := row.String(query.FieldCollType)
		created, _ := row.Time(query.FieldCollCreateTime)
		modified, _ := row.Time(query.FieldCollModifyTime)
		owner, _ := row.String(query.FieldCollOwnerName)
		zone, _ := row.String(query.FieldCollOwnerZone)

		// A query for children of "/" also returns "/" itself.
		if name == "/" {
			if row.IsLast() && len(entries) > 0 {
				entries[len(entries)-1].LastResult = true
			}
			continue
		}

		entry := ListingEntry{
			PathOrName:   name,
			ParentPath:   parent,
			ObjectType:   ObjectTypeCollection,
			SpecialKind:  kindFromCollType(collType),
			OwnerName:    owner,
			OwnerZone:    zone,
			CreatedAt:    created,
			ModifiedAt:   modified,
			ID:           row.Int64OrZero(query.FieldCollID),
			Count:        row.RecordCount(),
			LastResult:   row.IsLast(),
			TotalRecords: rs.TotalRecords,
		}

		if status.Kind() == KindLinked {
			child := LastComponent(name)
			entry.SpecialObjectPath = JoinPath(status.ObjectPath, child)
			entry.PathOrName = JoinPath(status.AbsolutePath, child)
			entry.ParentPath = status.AbsolutePath
			entry.SpecialKind = KindLinked
		}

		entries = append(entries, entry)
	}

	return entries
}

func dataObjectEntries(status *ObjectStatus, rs *query.ResultSet) []ListingEntry {
	entries := make([]ListingEntry, 0, len(rs.Rows))
	previous := ""

	for _, row := range rs.Rows {
		parent, _ := row.String(query.FieldCollName)
		name, _ := row.String(query.FieldDataName)
		created, _ := row.Time(query.FieldDataCreateTime)
		modified, _ := row.Time(query.FieldDataModifyTime)
		owner, _ := row.String(query.FieldDataOwnerName)
		zone, _ := row.String(query.FieldDataOwnerZone)

		entry := ListingEntry{
			PathOrName:   name,
			ParentPath:   parent,
			ObjectType:   ObjectTypeDataObject,
			SpecialKind:  KindNormal,
			OwnerName:    owner,
			OwnerZone:    zone,
			CreatedAt:    created,
			ModifiedAt:   modified,
			Size:         row.Int64OrZero(query.FieldDataSize),
			ID:           row.Int64OrZero(query.FieldDataID),
			Count:        row.RecordCount(),
			LastResult:   row.IsLast(),
			TotalRecords: rs.TotalRecords,
		}

		if status.Kind() == KindLinked {
			entry.SpecialObjectPath = JoinPath(status.ObjectPath, name)
			entry.ParentPath = status.AbsolutePath
			entry.SpecialKind = KindLinked
		}

		// Replicas of one data object come back as consecutive rows.
		current := entry.ParentPath + "/" + entry.PathOrName
		if current == previous {
			last := &entries[len(entries)-1]
			last.Count = entry.Count
			last.LastResult = entry.LastResult
			continue
		}
		previous = current

		entries = append(entries, entry)
	}

	return entries
}
