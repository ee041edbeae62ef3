package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/internal/protocol/packinstr"
	"github.com/marmos91/dittogrid/internal/protocol/rpc"
	"github.com/marmos91/dittogrid/internal/protocol/tag"
	"github.com/marmos91/dittogrid/pkg/query"
	"github.com/marmos91/dittogrid/pkg/session"
)

// Resolver fetches object status records.
type Resolver struct {
	caller session.Caller
	opts   Options
}

// NewResolver returns a Resolver issuing stat calls on caller.
func NewResolver(caller session.Caller, opts Options) *Resolver {
	return &Resolver{caller: caller, opts: opts.withDefaults()}
}

// Resolve returns the status of absolutePath.
//
// Returns:
//   - ErrInvalidArgument for an empty or relative path
//   - ErrPathTooLong when the path exceeds Options.MaxPathLength
//   - ErrNotFound when the server reports the path absent
//   - ErrPathComputation or ErrUnknownSpecialCollection for a descriptor
//     that cannot be interpreted
//   - ErrTransport for any other failure of the call
func (r *Resolver) Resolve(ctx context.Context, absolutePath string) (*ObjectStatus, error) {
	if absolutePath == "" {
		return nil, newError(ErrInvalidArgument, "", "path is empty", nil)
	}
	if !strings.HasPrefix(absolutePath, "/") {
		return nil, newError(ErrInvalidArgument, absolutePath, "path is not absolute", nil)
	}
	if len(absolutePath) > r.opts.MaxPathLength {
		return nil, newError(ErrPathTooLong, absolutePath,
			fmt.Sprintf("path length %d exceeds maximum %d", len(absolutePath), r.opts.MaxPathLength), nil)
	}

	absolutePath = NormalizePath(absolutePath)

	body, err := r.caller.Call(ctx, rpc.APIObjStat, packinstr.ObjStatRequest(absolutePath))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			logger.Debug("stat %s: not found", absolutePath)
			return nil, newError(ErrNotFound, absolutePath, "path does not exist", err)
		}
		return nil, newError(ErrTransport, absolutePath, "stat failed", err)
	}

	status, err := parseObjectStatus(absolutePath, body)
	if err != nil {
		return nil, err
	}

	logger.Debug("stat %s: type=%s kind=%s objectPath=%s", absolutePath, status.ObjectType, status.Kind(), status.ObjectPath)
	return status, nil
}

// parseObjectStatus reads a RodsObjStat_PI reply.
func parseObjectStatus(absolutePath string, body *tag.Tag) (*ObjectStatus, error) {
	if body == nil {
		return nil, newError(ErrMalformedResponse, absolutePath, "empty stat reply", nil)
	}

	malformed := func(err error) error {
		return newError(ErrMalformedResponse, absolutePath, "invalid stat reply", err)
	}

	typeCode, err := body.ChildInt("objType")
	if err != nil {
		return nil, malformed(err)
	}
	objectType, err := ObjectTypeFromWire(typeCode)
	if err != nil {
		return nil, malformed(err)
	}

	size, err := body.ChildInt64("objSize")
	if err != nil {
		return nil, malformed(err)
	}

	status := &ObjectStatus{
		AbsolutePath: absolutePath,
		ObjectType:   objectType,
		ObjectPath:   absolutePath,
		Size:         size,
		Checksum:     body.Tag("chksum").StringValue(),
		OwnerName:    body.Tag("ownerName").StringValue(),
		OwnerZone:    body.Tag("ownerZone").StringValue(),
	}

	if t := body.Tag("dataId"); t != nil && t.Value != "" {
		if status.DataID, err = t.Int64Value(); err != nil {
			return nil, malformed(err)
		}
	}
	if t := body.Tag("dataMode"); t != nil && t.Value != "" {
		if status.Mode, err = t.IntValue(); err != nil {
			return nil, malformed(err)
		}
	}
	if status.CreatedAt, err = query.ParseTimestamp(body.Tag("createTime").StringValue()); err != nil {
		return nil, malformed(err)
	}
	if status.ModifiedAt, err = query.ParseTimestamp(body.Tag("modifyTime").StringValue()); err != nil {
		return nil, malformed(err)
	}

	if block := body.Tag("SpecColl_PI"); block != nil {
		if err := applySpecialCollection(status, block); err != nil {
			return nil, err
		}
	}

	return status, nil
}

// applySpecialCollection classifies the descriptor and derives ObjectPath.
func applySpecialCollection(status *ObjectStatus, block *tag.Tag) error {
	info, err := packinstr.ParseSpecCollInfo(block)
	if err != nil {
		return newError(ErrMalformedResponse, status.AbsolutePath, "invalid special collection block", err)
	}

	status.CollectionPath = info.Collection

	archive := ArchiveInfo{
		Collection:        info.Collection,
		ObjectPath:        info.ObjectPath,
		PhysicalPath:      info.PhysicalPath,
		Resource:          info.Resource,
		ResourceHierarchy: info.ResourceHierarchy,
		CacheDirectory:    info.CacheDirectory,
		CacheDirty:        info.CacheDirty,
		ReplicaNumber:     info.ReplicaNumber,
	}

	switch info.CollectionClass {
	case packinstr.CollClassNormal:
		status.Special = NormalCollection{PhysicalPath: info.PhysicalPath, ReplicaNumber: info.ReplicaNumber}
		status.ObjectPath = info.PhysicalPath

	case packinstr.CollClassStructFile:
		status.Special = StructFileCollection{Archive: archive}
		return setArchivePath(status, archive)

	case packinstr.CollClassMounted:
		status.Special = MountedCollection{Archive: archive}
		return setArchivePath(status, archive)

	case packinstr.CollClassLinked:
		source, err := linkedSourcePath(status.AbsolutePath, info.Collection, info.PhysicalPath)
		if err != nil {
			return err
		}
		status.Special = LinkedCollection{Collection: info.Collection, Source: info.PhysicalPath, ReplicaNumber: info.ReplicaNumber}
		status.ObjectPath = source

	default:
		return newError(ErrUnknownSpecialCollection, status.AbsolutePath,
			fmt.Sprintf("unsupported collection class %d", info.CollectionClass), nil)
	}

	return nil
}

// linkedSourcePath maps an alias path to its canonical source: the suffix
// of absolutePath past the link root is appended to the source root.
func linkedSourcePath(absolutePath, linkRoot, sourceRoot string) (string, error) {
	if len(linkRoot) > len(absolutePath) {
		return "", newError(ErrPathComputation, absolutePath,
			fmt.Sprintf("link collection %q is longer than the path", linkRoot), nil)
	}
	if sourceRoot == "" {
		return "", newError(ErrPathComputation, absolutePath, "linked collection has no source path", nil)
	}
	return sourceRoot + absolutePath[len(linkRoot):], nil
}

func setArchivePath(status *ObjectStatus, archive ArchiveInfo) error {
	switch {
	case archive.ObjectPath != "":
		status.ObjectPath = archive.ObjectPath
	case archive.PhysicalPath != "":
		status.ObjectPath = archive.PhysicalPath
	default:
		return newError(ErrPathComputation, status.AbsolutePath,
			fmt.Sprintf("%s has neither object nor physical path", status.Kind()), nil)
	}
	return nil
}

// EffectivePath returns the path catalog queries must run against: the
// canonical source for a linked collection, the requested path otherwise.
func EffectivePath(status *ObjectStatus) string {
	if status.Kind() == KindLinked {
		return status.ObjectPath
	}
	return status.AbsolutePath
}

// CheckSpecialCollectionSupport returns ErrUnknownSpecialCollection when
// the status carries a kind the listing strategies cannot handle.
func CheckSpecialCollectionSupport(status *ObjectStatus) error {
	switch status.Kind() {
	case KindNormal, KindStructFile, KindMounted, KindLinked:
		return nil
	default:
		return newError(ErrUnknownSpecialCollection, status.AbsolutePath,
			fmt.Sprintf("unsupported special collection kind %s", status.Kind()), nil)
	}
}
