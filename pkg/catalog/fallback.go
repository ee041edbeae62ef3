package catalog

import (
	"context"
	"time"

	"github.com/marmos91/dittogrid/internal/logger"
)

// Fallback levels, used as metric labels.
const (
	fallbackRoot   = "root"
	fallbackZone   = "zone"
	fallbackHome   = "home"
	fallbackPublic = "public"
)

// publicCollection is the shared collection under every zone's home.
const publicCollection = "public"

// FallbackRootChildren synthesizes the children of a root-like path the
// account cannot list but can stat into.
//
// Callers use it after a real listing of parentPath came back empty:
//   - "/" yields the zone collection
//   - "/<zone>" yields the home collection
//   - "/<zone>/home" yields the public collection and the account home,
//     each only if a stat on it succeeds
//   - "/<zone>/home/public" yields the account home if a stat succeeds
//
// Any other path, or fallback disabled in Options, returns ErrNotFound.
func (s *Service) FallbackRootChildren(ctx context.Context, parentPath string) ([]ListingEntry, error) {
	start := time.Now()
	entries, level, err := s.fallback(ctx, NormalizePath(parentPath))
	s.metrics.RecordOperation("fallback", "", time.Since(start), err)
	if err == nil {
		s.metrics.RecordFallback(level)
		s.metrics.RecordEntries("fallback", len(entries))
	}
	return entries, err
}

func (s *Service) fallback(ctx context.Context, path string) ([]ListingEntry, string, error) {
	if !s.opts.FallbackEnabled {
		logger.Info("fallback listing disabled, %s treated as not found", path)
		return nil, "", newError(ErrNotFound, path, "collection cannot be listed", nil)
	}

	account := s.client.Account()
	zoneRoot := "/" + account.Zone
	homeRoot := HomeRoot(account.Zone)
	publicPath := JoinPath(homeRoot, publicCollection)

	switch path {
	case "/":
		logger.Info("fallback under root: synthesizing %s", zoneRoot)
		return numbered([]ListingEntry{standIn(zoneRoot, "/", account.Zone)}), fallbackRoot, nil

	case zoneRoot:
		logger.Info("fallback under zone: synthesizing %s", homeRoot)
		return numbered([]ListingEntry{standIn(homeRoot, zoneRoot, account.Zone)}), fallbackZone, nil

	case homeRoot:
		var entries []ListingEntry
		for _, candidate := range []string{publicPath, account.Home()} {
			entry, ok, err := s.probe(ctx, candidate, account.Zone)
			if err != nil {
				return nil, "", err
			}
			if ok {
				entries = append(entries, entry)
			}
		}
		return numbered(entries), fallbackHome, nil

	case publicPath:
		entry, ok, err := s.probe(ctx, account.Home(), account.Zone)
		if err != nil {
			return nil, "", err
		}
		if !ok {
			return []ListingEntry{}, fallbackPublic, nil
		}
		return numbered([]ListingEntry{entry}), fallbackPublic, nil
	}

	logger.Debug("fallback does not apply to %s", path)
	return nil, "", newError(ErrNotFound, path, "collection cannot be listed", nil)
}

// probe stats candidate and converts it to a stand-in entry. ok is false
// when the candidate does not exist.
func (s *Service) probe(ctx context.Context, candidate, zone string) (ListingEntry, bool, error) {
	status, err := s.resolver.Resolve(ctx, candidate)
	if IsNotFound(err) {
		logger.Info("fallback probe: %s not found", candidate)
		return ListingEntry{}, false, nil
	}
	if err != nil {
		return ListingEntry{}, false, err
	}

	entry := standIn(candidate, ParentPath(candidate), zone)
	entry.ObjectType = status.ObjectType
	entry.SpecialKind = status.Kind()
	entry.OwnerName = status.OwnerName
	entry.CreatedAt = status.CreatedAt
	entry.ModifiedAt = status.ModifiedAt
	entry.ID = status.DataID
	return entry, true, nil
}

func standIn(path, parent, zone string) ListingEntry {
	return ListingEntry{
		PathOrName:  path,
		ParentPath:  parent,
		ObjectType:  ObjectTypeCollection,
		SpecialKind: KindNormal,
		OwnerZone:   zone,
	}
}

// numbered assigns ordinals and marks the final entry.
func numbered(entries []ListingEntry) []ListingEntry {
	if entries == nil {
		return []ListingEntry{}
	}
	for i := range entries {
		entries[i].Count = i + 1
		entries[i].TotalRecords = len(entries)
		entries[i].LastResult = i == len(entries)-1
	}
	return entries
}
