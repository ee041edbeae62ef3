package catalog

import (
	"fmt"
	"time"
)

// ObjectType is the server's classification of a logical path.
type ObjectType int

const (
	ObjectTypeUnknown ObjectType = iota
	ObjectTypeDataObject
	ObjectTypeCollection
	ObjectTypeUnknownFile
	ObjectTypeLocalFile
	ObjectTypeLocalDir
	ObjectTypeNoInput
)

// ObjectTypeFromWire converts the objType code of a status reply.
func ObjectTypeFromWire(code int) (ObjectType, error) {
	if code < int(ObjectTypeUnknown) || code > int(ObjectTypeNoInput) {
		return ObjectTypeUnknown, fmt.Errorf("object type %d out of range", code)
	}
	return ObjectType(code), nil
}

func (t ObjectType) String() string {
	switch t {
	case ObjectTypeDataObject:
		return "DATA_OBJECT"
	case ObjectTypeCollection:
		return "COLLECTION"
	case ObjectTypeUnknownFile:
		return "UNKNOWN_FILE"
	case ObjectTypeLocalFile:
		return "LOCAL_FILE"
	case ObjectTypeLocalDir:
		return "LOCAL_DIR"
	case ObjectTypeNoInput:
		return "NO_INPUT"
	default:
		return "UNKNOWN"
	}
}

// SpecialCollectionKind says how a collection is backed.
type SpecialCollectionKind int

const (
	KindNormal SpecialCollectionKind = iota
	KindStructFile
	KindMounted
	KindLinked
)

func (k SpecialCollectionKind) String() string {
	switch k {
	case KindStructFile:
		return "STRUCT_FILE_COLLECTION"
	case KindMounted:
		return "MOUNTED_COLLECTION"
	case KindLinked:
		return "LINKED_COLLECTION"
	default:
		return "NORMAL"
	}
}

// SpecialCollection is the parsed special collection block of a status
// reply. The concrete types are NormalCollection, StructFileCollection,
// MountedCollection and LinkedCollection.
type SpecialCollection interface {
	Kind() SpecialCollectionKind
	isSpecialCollection()
}

// ArchiveInfo describes the archive or mount behind a struct-file or
// mounted collection.
type ArchiveInfo struct {
	Collection        string
	ObjectPath        string
	PhysicalPath      string
	Resource          string
	ResourceHierarchy string
	CacheDirectory    string
	CacheDirty        bool
	ReplicaNumber     int
}

// NormalCollection is a descriptor with class 0.
type NormalCollection struct {
	PhysicalPath  string
	ReplicaNumber int
}

// StructFileCollection is a collection served from a structured file
// (e.g. a tar archive registered in the catalog).
type StructFileCollection struct {
	Archive ArchiveInfo
}

// MountedCollection is a collection mounted from a resource directory.
type MountedCollection struct {
	Archive ArchiveInfo
}

// LinkedCollection is a soft link to another collection.
type LinkedCollection struct {
	// Collection is the top of the link (the alias root).
	Collection string

	// Source is the canonical collection the link points to.
	Source string

	ReplicaNumber int
}

func (NormalCollection) Kind() SpecialCollectionKind     { return KindNormal }
func (StructFileCollection) Kind() SpecialCollectionKind { return KindStructFile }
func (MountedCollection) Kind() SpecialCollectionKind    { return KindMounted }
func (LinkedCollection) Kind() SpecialCollectionKind     { return KindLinked }

func (NormalCollection) isSpecialCollection()     {}
func (StructFileCollection) isSpecialCollection() {}
func (MountedCollection) isSpecialCollection()    {}
func (LinkedCollection) isSpecialCollection()     {}

// ObjectStatus is the server's description of one logical path at the time
// it was resolved. It is never cached and must be treated as read-only.
type ObjectStatus struct {
	// AbsolutePath is the path as requested, possibly a link alias.
	AbsolutePath string

	ObjectType ObjectType

	// Special is nil when the reply carried no special collection block.
	Special SpecialCollection

	// ObjectPath is the canonical path. For a linked collection it is the
	// source path equivalent to AbsolutePath; for archive kinds it is the
	// archive path; without a descriptor it equals AbsolutePath.
	ObjectPath string

	// CollectionPath is the raw collection field of the descriptor.
	CollectionPath string

	Size       int64
	DataID     int64
	Mode       int
	Checksum   string
	OwnerName  string
	OwnerZone  string
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// Kind returns the special collection kind, KindNormal without a descriptor.
func (s *ObjectStatus) Kind() SpecialCollectionKind {
	if s.Special == nil {
		return KindNormal
	}
	return s.Special.Kind()
}

// IsSomeTypeOfCollection reports whether the path can have children.
func (s *ObjectStatus) IsSomeTypeOfCollection() bool {
	return s.ObjectType == ObjectTypeCollection || s.ObjectType == ObjectTypeLocalDir
}

// IsDataObject reports whether the path is a data object.
func (s *ObjectStatus) IsDataObject() bool {
	return s.ObjectType == ObjectTypeDataObject
}

func (s *ObjectStatus) archive() *ArchiveInfo {
	switch sc := s.Special.(type) {
	case StructFileCollection:
		return &sc.Archive
	case MountedCollection:
		return &sc.Archive
	}
	return nil
}

// CacheDirectory is the local cache of an archive collection, "" otherwise.
func (s *ObjectStatus) CacheDirectory() string {
	if a := s.archive(); a != nil {
		return a.CacheDirectory
	}
	return ""
}

// CacheDirty reports unsynchronised changes in an archive cache.
func (s *ObjectStatus) CacheDirty() bool {
	if a := s.archive(); a != nil {
		return a.CacheDirty
	}
	return false
}

// ReplicaNumber is the replica ordinal carried by the descriptor.
func (s *ObjectStatus) ReplicaNumber() int {
	switch sc := s.Special.(type) {
	case NormalCollection:
		return sc.ReplicaNumber
	case StructFileCollection:
		return sc.Archive.ReplicaNumber
	case MountedCollection:
		return sc.Archive.ReplicaNumber
	case LinkedCollection:
		return sc.ReplicaNumber
	}
	return 0
}

// ListingEntry is one child collection or data object.
type ListingEntry struct {
	// PathOrName is the full path for collections and the bare name for
	// data objects.
	PathOrName string
	ParentPath string

	ObjectType  ObjectType
	SpecialKind SpecialCollectionKind

	// SpecialObjectPath is the canonical equivalent of the entry when it
	// was listed through a linked collection.
	SpecialObjectPath string

	OwnerName  string
	OwnerZone  string
	CreatedAt  time.Time
	ModifiedAt time.Time
	Size       int64
	ID         int64

	// Count is the 1-based ordinal of the entry in the whole listing.
	// Passing the Count of the last entry as offset resumes a listing.
	Count int

	// LastResult is true on the final entry when no more pages remain.
	LastResult bool

	// TotalRecords is the server's total at query time.
	TotalRecords int
}

// IsCollection reports whether the entry is a collection.
func (e ListingEntry) IsCollection() bool {
	return e.ObjectType == ObjectTypeCollection
}

// FullPath returns the logical path of the entry.
func (e ListingEntry) FullPath() string {
	if e.IsCollection() {
		return e.PathOrName
	}
	return JoinPath(e.ParentPath, e.PathOrName)
}
