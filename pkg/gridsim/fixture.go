package gridsim

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/marmos91/dittogrid/internal/logger"
	"gopkg.in/yaml.v3"
)

// Fixture defaults.
const (
	DefaultOwner    = "rods"
	DefaultResource = "demoResc"
)

// DefaultCreated is the timestamp given to fixture objects without one.
var DefaultCreated = time.Unix(1379087283, 0).UTC()

// Fixture describes a catalog to seed into a Store.
//
// Example:
//
//	zone: tempZone
//	objects:
//	  - path: /tempZone/home/alice
//	    owner: alice
//	  - path: /tempZone/home/alice/notes.txt
//	    type: data
//	    size: 120
//	    replicas: [demoResc, archiveResc]
//	  - path: /tempZone/home/alice/shared
//	    link: /tempZone/home/bob/public
//	  - path: /tempZone/home/alice/scratch
//	    mount: /data/scratch
//
// Missing parent collections are created with the default owner.
type Fixture struct {
	Zone    string          `yaml:"zone"`
	Owner   string          `yaml:"owner"`
	Created time.Time       `yaml:"created"`
	Objects []FixtureObject `yaml:"objects"`
}

// FixtureObject is one fixture entry. A non-empty Link, Mount or StructFile
// makes the entry a special collection.
type FixtureObject struct {
	Path         string    `yaml:"path"`
	Type         string    `yaml:"type"`
	Owner        string    `yaml:"owner"`
	Size         int64     `yaml:"size"`
	Checksum     string    `yaml:"checksum"`
	Replicas     []string  `yaml:"replicas"`
	Link         string    `yaml:"link"`
	Mount        string    `yaml:"mount"`
	StructFile   string    `yaml:"struct_file"`
	PhysicalPath string    `yaml:"physical_path"`
	Resource     string    `yaml:"resource"`
	CacheDir     string    `yaml:"cache_dir"`
	Created      time.Time `yaml:"created"`
	Modified     time.Time `yaml:"modified"`
	Hidden       bool      `yaml:"hidden"`
	Unlistable   bool      `yaml:"unlistable"`
}

// LoadFixture reads a YAML fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes a YAML fixture.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if f.Zone == "" {
		return nil, fmt.Errorf("fixture: zone is required")
	}
	for i, o := range f.Objects {
		if !strings.HasPrefix(o.Path, "/") {
			return nil, fmt.Errorf("fixture object %d: path %q is not absolute", i, o.Path)
		}
		special := 0
		for _, v := range []string{o.Link, o.Mount, o.StructFile} {
			if v != "" {
				special++
			}
		}
		if special > 1 {
			return nil, fmt.Errorf("fixture object %s: link, mount and struct_file are exclusive", o.Path)
		}
		if special == 1 && isDataType(o.Type) {
			return nil, fmt.Errorf("fixture object %s: a data object cannot be a special collection", o.Path)
		}
	}
	return &f, nil
}

func isDataType(t string) bool {
	return t == "data" || t == "data_object"
}

// Seed writes the fixture into store, creating missing ancestors.
func (f *Fixture) Seed(ctx context.Context, store Store) error {
	owner := f.Owner
	if owner == "" {
		owner = DefaultOwner
	}
	created := f.Created
	if created.IsZero() {
		created = DefaultCreated
	}

	for _, fo := range f.Objects {
		for _, ancestor := range Ancestors(fo.Path) {
			if err := f.ensureCollection(ctx, store, ancestor, owner, created); err != nil {
				return err
			}
		}

		obj, err := f.object(ctx, store, fo, owner, created)
		if err != nil {
			return err
		}
		if err := store.Put(ctx, obj); err != nil {
			return fmt.Errorf("seed %s: %w", fo.Path, err)
		}
	}

	n, err := store.Count(ctx)
	if err != nil {
		return err
	}
	logger.Info("Seeded zone %s: %d objects", f.Zone, n)
	return nil
}

func (f *Fixture) ensureCollection(ctx context.Context, store Store, p, owner string, created time.Time) error {
	_, err := store.Get(ctx, p)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNoSuchObject) {
		return err
	}

	virtual, err := underSpecial(ctx, store, p)
	if err != nil {
		return err
	}
	return store.Put(ctx, &Object{
		Path:     p,
		Type:     TypeCollection,
		Owner:    owner,
		Zone:     f.Zone,
		Created:  created.Unix(),
		Modified: created.Unix(),
		Virtual:  virtual,
	})
}

func (f *Fixture) object(ctx context.Context, store Store, fo FixtureObject, owner string, created time.Time) (*Object, error) {
	if fo.Owner != "" {
		owner = fo.Owner
	}
	if !fo.Created.IsZero() {
		created = fo.Created
	}
	modified := created
	if !fo.Modified.IsZero() {
		modified = fo.Modified
	}
	resource := fo.Resource
	if resource == "" {
		resource = DefaultResource
	}

	virtual, err := underSpecial(ctx, store, fo.Path)
	if err != nil {
		return nil, err
	}

	obj := &Object{
		Path:       fo.Path,
		Type:       TypeCollection,
		Owner:      owner,
		Zone:       f.Zone,
		Created:    created.Unix(),
		Modified:   modified.Unix(),
		Virtual:    virtual,
		Hidden:     fo.Hidden,
		Unlistable: fo.Unlistable,
	}

	switch {
	case isDataType(fo.Type):
		obj.Type = TypeDataObject
		obj.Size = fo.Size
		obj.Checksum = fo.Checksum
		replicas := fo.Replicas
		if len(replicas) == 0 {
			replicas = []string{resource}
		}
		for i, r := range replicas {
			obj.Replicas = append(obj.Replicas, Replica{Number: i, Resource: r})
		}

	case fo.Link != "":
		obj.CollType = CollTypeLink
		obj.Target = fo.Link

	case fo.Mount != "":
		obj.CollType = CollTypeMount
		obj.PhysicalPath = fo.Mount
		obj.Resource = resource
		obj.CacheDir = fo.CacheDir

	case fo.StructFile != "":
		obj.CollType = CollTypeStructFile
		obj.Target = fo.StructFile
		obj.PhysicalPath = fo.PhysicalPath
		obj.Resource = resource
		obj.CacheDir = fo.CacheDir
	}

	return obj, nil
}

// underSpecial reports whether an ancestor of p is a mounted or struct-file
// collection.
func underSpecial(ctx context.Context, store Store, p string) (bool, error) {
	for _, a := range Ancestors(p) {
		obj, err := store.Get(ctx, a)
		if errors.Is(err, ErrNoSuchObject) {
			continue
		}
		if err != nil {
			return false, err
		}
		if obj.CollType == CollTypeMount || obj.CollType == CollTypeStructFile {
			return true, nil
		}
	}
	return false, nil
}
