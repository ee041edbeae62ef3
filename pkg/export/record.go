// Package export streams catalog walks as newline-delimited JSON.
//
// An export visits every entry below a root (see pkg/walk) and writes one
// Record per line to a sink: a local file or an S3 object, optionally
// zstd-compressed.
//
// Basic usage:
//
//	sink, _ := export.NewFileSink(export.FileConfig{Path: "tree.ndjson.zst"})
//	exporter := export.New(walk.New(service, walk.Config{}), export.CompressionZstd)
//	stats, err := exporter.Export(ctx, "/zone/home/alice", sink)
package export

import (
	"time"

	"github.com/marmos91/dittogrid/pkg/catalog"
)

// Record is one exported line.
type Record struct {
	Path              string    `json:"path"`
	Parent            string    `json:"parent"`
	Type              string    `json:"type"`
	Kind              string    `json:"kind"`
	SpecialObjectPath string    `json:"special_object_path,omitempty"`
	Size              int64     `json:"size"`
	Owner             string    `json:"owner,omitempty"`
	Zone              string    `json:"zone,omitempty"`
	ID                int64     `json:"id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	ModifiedAt        time.Time `json:"modified_at"`
	Depth             int       `json:"depth"`
}

// FromEntry converts a listing entry reached at depth.
func FromEntry(entry catalog.ListingEntry, depth int) Record {
	return Record{
		Path:              entry.FullPath(),
		Parent:            entry.ParentPath,
		Type:              entry.ObjectType.String(),
		Kind:              entry.SpecialKind.String(),
		SpecialObjectPath: entry.SpecialObjectPath,
		Size:              entry.Size,
		Owner:             entry.OwnerName,
		Zone:              entry.OwnerZone,
		ID:                entry.ID,
		CreatedAt:         entry.CreatedAt.UTC(),
		ModifiedAt:        entry.ModifiedAt.UTC(),
		Depth:             depth,
	}
}
