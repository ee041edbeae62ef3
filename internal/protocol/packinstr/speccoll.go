package packinstr

import (
	"fmt"

	"github.com/marmos91/dittogrid/internal/protocol/tag"
)

// Collection class codes carried in SpecColl_PI.collClass.
const (
	CollClassNormal     = 0
	CollClassStructFile = 1
	CollClassMounted    = 2
	CollClassLinked     = 3
)

// Values for the selObjType keyword of a special collection query.
const (
	SelectCollections = "collection"
	SelectDataObjects = "dataObj"
)

// SpecCollInfo mirrors SpecColl_PI.
type SpecCollInfo struct {
	CollectionClass   int
	Type              int
	Collection        string
	ObjectPath        string
	Resource          string
	ResourceHierarchy string
	PhysicalPath      string
	CacheDirectory    string
	CacheDirty        bool
	ReplicaNumber     int
}

// Tag renders SpecColl_PI. withHierarchy controls whether rescHier is
// emitted; older servers reject the field.
func (s SpecCollInfo) Tag(withHierarchy bool) *tag.Tag {
	t := tag.New("SpecColl_PI",
		tag.NewValue("collClass", s.CollectionClass),
		tag.NewValue("type", s.Type),
		tag.NewValue("collection", s.Collection),
		tag.NewValue("objPath", s.ObjectPath),
		tag.NewValue("resource", s.Resource),
	)
	if withHierarchy {
		t.Add(tag.NewValue("rescHier", s.ResourceHierarchy))
	}
	t.Add(
		tag.NewValue("phyPath", s.PhysicalPath),
		tag.NewValue("cacheDir", s.CacheDirectory),
		tag.NewValue("cacheDirty", s.CacheDirty),
		tag.NewValue("replNum", s.ReplicaNumber),
	)
	return t
}

// ParseSpecCollInfo reads SpecColl_PI. collClass is required; the other
// fields default to their zero value when absent.
func ParseSpecCollInfo(t *tag.Tag) (SpecCollInfo, error) {
	if t == nil {
		return SpecCollInfo{}, fmt.Errorf("missing SpecColl_PI")
	}

	class, err := t.ChildInt("collClass")
	if err != nil {
		return SpecCollInfo{}, fmt.Errorf("SpecColl_PI: %w", err)
	}

	info := SpecCollInfo{
		CollectionClass:   class,
		Collection:        t.Tag("collection").StringValue(),
		ObjectPath:        t.Tag("objPath").StringValue(),
		Resource:          t.Tag("resource").StringValue(),
		ResourceHierarchy: t.Tag("rescHier").StringValue(),
		PhysicalPath:      t.Tag("phyPath").StringValue(),
		CacheDirectory:    t.Tag("cacheDir").StringValue(),
		CacheDirty:        t.Tag("cacheDirty").StringValue() == "1",
	}

	if typ := t.Tag("type"); typ != nil {
		if info.Type, err = typ.IntValue(); err != nil {
			return SpecCollInfo{}, fmt.Errorf("SpecColl_PI: %w", err)
		}
	}
	if repl := t.Tag("replNum"); repl != nil {
		if info.ReplicaNumber, err = repl.IntValue(); err != nil {
			return SpecCollInfo{}, fmt.Errorf("SpecColl_PI: %w", err)
		}
	}

	return info, nil
}

// QuerySpecCollRequest builds the DataObjInp_PI sent to APIQuerySpecColl.
//
// Parameters:
//   - absolutePath: Path to list (the effective path of the collection)
//   - info: Special collection descriptor assembled from the object status
//   - withHierarchy: Emit rescHier (server supports resource hierarchies)
//   - selectObjType: SelectCollections or SelectDataObjects
//   - continueIndex: 0 for the first page, else the value from the previous reply
func QuerySpecCollRequest(absolutePath string, info SpecCollInfo, withHierarchy bool, selectObjType string, continueIndex int) *tag.Tag {
	return tag.New("DataObjInp_PI",
		tag.NewValue("objPath", absolutePath),
		tag.NewValue("createMode", 0),
		tag.NewValue("openFlags", 0),
		tag.NewValue("offset", 0),
		tag.NewValue("dataSize", 0),
		tag.NewValue("numThreads", 0),
		tag.NewValue("oprType", 0),
		tag.NewValue("continueInx", continueIndex),
		info.Tag(withHierarchy),
		KeyValPair(KeyValue{Key: "selObjType", Value: selectObjType}),
	)
}

// SpecCollQuery is the server side view of a QuerySpecCollRequest.
type SpecCollQuery struct {
	Path          string
	Info          SpecCollInfo
	SelectObjType string
	ContinueIndex int
}

// ParseQuerySpecCollRequest decodes a QuerySpecCollRequest body.
func ParseQuerySpecCollRequest(t *tag.Tag) (SpecCollQuery, error) {
	info, err := ParseSpecCollInfo(t.Tag("SpecColl_PI"))
	if err != nil {
		return SpecCollQuery{}, err
	}

	kv, err := ParseKeyValPair(t.Tag("KeyValPair_PI"))
	if err != nil {
		return SpecCollQuery{}, err
	}

	q := SpecCollQuery{
		Path:          t.Tag("objPath").StringValue(),
		Info:          info,
		SelectObjType: kv["selObjType"],
	}
	if c := t.Tag("continueInx"); c != nil {
		if q.ContinueIndex, err = c.IntValue(); err != nil {
			return SpecCollQuery{}, err
		}
	}
	return q, nil
}
