package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/internal/protocol/packinstr"
	"github.com/marmos91/dittogrid/internal/protocol/rpc"
	"github.com/marmos91/dittogrid/pkg/query"
	"github.com/marmos91/dittogrid/pkg/session"
)

// specCollDescriptor assembles the descriptor sent with every page of a
// special collection listing.
func specCollDescriptor(status *ObjectStatus) packinstr.SpecCollInfo {
	info := packinstr.SpecCollInfo{
		CollectionClass: packinstr.CollClassStructFile,
		Type:            2,
		Collection:      status.AbsolutePath,
		ObjectPath:      status.ObjectPath,
		PhysicalPath:    status.ObjectPath,
		CacheDirectory:  status.CacheDirectory(),
		CacheDirty:      status.CacheDirty(),
		ReplicaNumber:   status.ReplicaNumber(),
	}
	if a := status.archive(); a != nil {
		info.Resource = a.Resource
		info.ResourceHierarchy = a.ResourceHierarchy
	}
	return info
}

// listSpecialCollection lists every child of a struct-file or mounted
// collection, following the server continuation index until it is
// exhausted. The listing is not resumable: every call starts at the first
// page.
//
// An empty collection is reported by the server either as "no data" or as a
// file driver error; both yield an empty result.
func (s *Service) listSpecialCollection(ctx context.Context, status *ObjectStatus, effectivePath string, wantCollections bool) ([]ListingEntry, error) {
	props, err := s.client.ServerProperties(ctx)
	if err != nil {
		return nil, newError(ErrTransport, status.AbsolutePath, "server properties unavailable", err)
	}

	selectType := packinstr.SelectDataObjects
	if wantCollections {
		selectType = packinstr.SelectCollections
	}

	descriptor := specCollDescriptor(status)
	withHierarchy := props.UsesResourceHierarchy()

	var entries []ListingEntry
	continueIndex := 0

	for {
		request := packinstr.QuerySpecCollRequest(effectivePath, descriptor, withHierarchy, selectType, continueIndex)

		body, err := s.client.Call(ctx, rpc.APIQuerySpecColl, request)
		if errors.Is(err, session.ErrNoData) {
			logger.Debug("special collection %s: end of data after %d entries", effectivePath, len(entries))
			break
		}
		if session.IsFileDriverError(err) {
			logger.Warn("special collection %s: file driver error treated as empty: %v", effectivePath, err)
			return []ListingEntry{}, nil
		}
		if err != nil {
			return nil, newError(ErrTransport, status.AbsolutePath, "special collection query failed", err)
		}

		out, err := packinstr.ParseGenQueryOutput(body)
		if err != nil {
			return nil, newError(ErrMalformedResponse, status.AbsolutePath, "invalid special collection reply", err)
		}
		s.metrics.RecordPage(strategySpecColl)

		for _, row := range query.RowsFromOutput(out, len(entries)) {
			entry := specCollEntry(status, row, wantCollections)
			entry.TotalRecords = out.TotalRowCount
			entries = append(entries, entry)
		}

		continueIndex = out.ContinueIndex
		if continueIndex <= 0 {
			break
		}
	}

	if len(entries) > 0 {
		entries[len(entries)-1].LastResult = true
	}
	if entries == nil {
		entries = []ListingEntry{}
	}
	return entries, nil
}

func specCollEntry(status *ObjectStatus, row query.Row, wantCollections bool) ListingEntry {
	entry := ListingEntry{
		OwnerName:   status.OwnerName,
		OwnerZone:   status.OwnerZone,
		SpecialKind: status.Kind(),
		Count:       row.RecordCount(),
	}

	collection, _ := row.String(query.FieldCollName)

	if wantCollections {
		entry.ObjectType = ObjectTypeCollection
		entry.PathOrName = collection
		entry.ParentPath = ParentPath(collection)
		// Servers may report collection times in the data object columns.
		entry.CreatedAt = firstTime(row, query.FieldCollCreateTime, query.FieldDataCreateTime)
		entry.ModifiedAt = firstTime(row, query.FieldCollModifyTime, query.FieldDataModifyTime)
		return entry
	}

	name, _ := row.String(query.FieldDataName)
	entry.ObjectType = ObjectTypeDataObject
	entry.ParentPath = collection
	entry.PathOrName = name
	entry.Size = row.Int64OrZero(query.FieldDataSize)
	entry.CreatedAt, _ = row.Time(query.FieldDataCreateTime)
	entry.ModifiedAt, _ = row.Time(query.FieldDataModifyTime)
	return entry
}

// firstTime returns the first non-empty time among fields.
func firstTime(row query.Row, fields ...query.Field) time.Time {
	for _, f := range fields {
		if t, err := row.Time(f); err == nil && !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}
