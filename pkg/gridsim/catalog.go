// Package gridsim is a wire-compatible data grid simulator.
//
// It answers the catalog APIs the client uses (object stat, general query,
// special collection query and server info) from a Store of Objects. It is
// meant for development and end-to-end tests, not as a data grid: there is
// no data transfer, no authentication and no write API.
//
// The simulated catalog supports ordinary collections and data objects with
// replicas, soft-linked collections, mounted directories and structured
// files. Members of mounted and struct-file collections are stored as
// virtual objects: they can be stat'ed and listed through the special
// collection API but are invisible to catalog queries, like on a real grid.
package gridsim

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrNoSuchObject is returned by a Store for an absent path.
var ErrNoSuchObject = errors.New("no such object")

// ObjectType distinguishes collections from data objects.
type ObjectType int

const (
	TypeCollection ObjectType = iota + 1
	TypeDataObject
)

// Collection types, stored in COLL_TYPE.
const (
	CollTypeLink       = "linkPoint"
	CollTypeMount      = "mountPoint"
	CollTypeStructFile = "tarStructFile"
)

// Replica is one copy of a data object.
type Replica struct {
	Number   int    `json:"number" yaml:"number"`
	Resource string `json:"resource" yaml:"resource"`
}

// Object is a catalog entry.
type Object struct {
	Path     string     `json:"path"`
	Type     ObjectType `json:"type"`
	ID       int64      `json:"id"`
	Owner    string     `json:"owner"`
	Zone     string     `json:"zone"`
	Size     int64      `json:"size,omitempty"`
	Checksum string     `json:"checksum,omitempty"`
	Mode     int        `json:"mode,omitempty"`
	Created  int64      `json:"created"`
	Modified int64      `json:"modified"`
	Replicas []Replica  `json:"replicas,omitempty"`

	// CollType marks a special collection (CollTypeLink, CollTypeMount or
	// CollTypeStructFile).
	CollType string `json:"coll_type,omitempty"`

	// Target is the link source for a linked collection, the archive data
	// object for a struct-file collection, and unused otherwise.
	Target string `json:"target,omitempty"`

	// PhysicalPath is the directory behind a mounted collection or the file
	// behind a struct-file collection.
	PhysicalPath string `json:"physical_path,omitempty"`

	Resource      string `json:"resource,omitempty"`
	CacheDir      string `json:"cache_dir,omitempty"`
	CacheDirty    bool   `json:"cache_dirty,omitempty"`
	ReplicaNumber int    `json:"replica_number,omitempty"`

	// Virtual marks a member of a mounted or struct-file collection.
	Virtual bool `json:"virtual,omitempty"`

	// Hidden objects do not stat.
	Hidden bool `json:"hidden,omitempty"`

	// Unlistable collections yield no rows to catalog queries for their
	// children, as if the account lacked read permission.
	Unlistable bool `json:"unlistable,omitempty"`
}

// Name returns the last path element.
func (o *Object) Name() string {
	return path.Base(o.Path)
}

// Parent returns the containing collection path.
func (o *Object) Parent() string {
	return ParentOf(o.Path)
}

// IsCollection reports whether o is a collection.
func (o *Object) IsCollection() bool {
	return o.Type == TypeCollection
}

// IsSpecial reports whether o is a linked, mounted or struct-file collection.
func (o *Object) IsSpecial() bool {
	return o.IsCollection() && o.CollType != ""
}

// ParentOf returns the parent of an absolute path; the root is its own
// parent.
func ParentOf(p string) string {
	if p == "/" {
		return "/"
	}
	return path.Dir(p)
}

// Store persists the simulated catalog.
//
// Implementations must be safe for concurrent use: every connection of the
// server reads from the same Store.
type Store interface {
	// Get returns the object at p or ErrNoSuchObject.
	Get(ctx context.Context, p string) (*Object, error)

	// Put creates or replaces an object. A zero ID is replaced with a new
	// unique one. The parent collection must exist except for the root.
	Put(ctx context.Context, obj *Object) error

	// Children returns the direct children of p sorted by name.
	Children(ctx context.Context, p string) ([]*Object, error)

	// Count returns the number of objects.
	Count(ctx context.Context) (int, error)

	// Close releases the store.
	Close() error
}

// Ancestors returns the ancestors of p from the root down, p excluded.
func Ancestors(p string) []string {
	if p == "/" {
		return nil
	}
	out := []string{"/"}
	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i := 1; i < len(parts); i++ {
		out = append(out, "/"+strings.Join(parts[:i], "/"))
	}
	return out
}
