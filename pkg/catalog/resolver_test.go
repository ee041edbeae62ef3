package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/dittogrid/internal/protocol/packinstr"
	"github.com/marmos91/dittogrid/internal/protocol/rpc"
	"github.com/marmos91/dittogrid/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveNormalCollection(t *testing.T) {
	client := newFakeClient()
	client.stats["/zoneA/home/alice"] = collectionStat("alice")

	status, err := NewResolver(client, DefaultOptions()).Resolve(context.Background(), "/zoneA/home/alice/")
	require.NoError(t, err)

	assert.Equal(t, "/zoneA/home/alice", status.AbsolutePath)
	assert.Equal(t, ObjectTypeCollection, status.ObjectType)
	assert.Equal(t, KindNormal, status.Kind())
	assert.Nil(t, status.Special)
	assert.Equal(t, "/zoneA/home/alice", status.ObjectPath)
	assert.Equal(t, "alice", status.OwnerName)
	assert.Equal(t, time.Unix(1379087283, 0).UTC(), status.CreatedAt)
	assert.True(t, status.IsSomeTypeOfCollection())
	assert.Equal(t, "/zoneA/home/alice", EffectivePath(status))
}

func TestResolveDataObject(t *testing.T) {
	client := newFakeClient()
	client.stats["/zoneA/home/alice/file.txt"] = packinstr.ObjStat{
		Type:      packinstr.ObjTypeDataObject,
		Size:      4096,
		DataID:    10042,
		Checksum:  "sha2:abc",
		OwnerName: "alice",
		OwnerZone: "zoneA",
	}

	status, err := NewResolver(client, DefaultOptions()).Resolve(context.Background(), "/zoneA/home/alice/file.txt")
	require.NoError(t, err)

	assert.True(t, status.IsDataObject())
	assert.False(t, status.IsSomeTypeOfCollection())
	assert.Equal(t, int64(4096), status.Size)
	assert.Equal(t, int64(10042), status.DataID)
	assert.Equal(t, "sha2:abc", status.Checksum)
}

func TestResolveSpecialCollections(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		spec           packinstr.SpecCollInfo
		wantKind       SpecialCollectionKind
		wantObjectPath string
		wantEffective  string
		wantCode       *ErrorCode
	}{
		{
			name:           "normal descriptor uses physical path",
			path:           "/zoneA/home/alice",
			spec:           packinstr.SpecCollInfo{CollectionClass: 0, PhysicalPath: "/vault/home/alice"},
			wantKind:       KindNormal,
			wantObjectPath: "/vault/home/alice",
			wantEffective:  "/zoneA/home/alice",
		},
		{
			name: "linked collection below link root",
			path: "/zoneA/home/alice/link/sub",
			spec: packinstr.SpecCollInfo{
				CollectionClass: 3,
				Collection:      "/zoneA/home/alice/link",
				PhysicalPath:    "/zoneA/home/alice/real",
			},
			wantKind:       KindLinked,
			wantObjectPath: "/zoneA/home/alice/real/sub",
			wantEffective:  "/zoneA/home/alice/real/sub",
		},
		{
			name: "linked collection at link root",
			path: "/zoneA/home/alice/link",
			spec: packinstr.SpecCollInfo{
				CollectionClass: 3,
				Collection:      "/zoneA/home/alice/link",
				PhysicalPath:    "/zoneA/home/alice/real",
			},
			wantKind:       KindLinked,
			wantObjectPath: "/zoneA/home/alice/real",
			wantEffective:  "/zoneA/home/alice/real",
		},
		{
			name: "linked collection longer than path",
			path: "/zoneA/home/alice/l",
			spec: packinstr.SpecCollInfo{
				CollectionClass: 3,
				Collection:      "/zoneA/home/alice/link/deeper",
				PhysicalPath:    "/zoneA/home/alice/real",
			},
			wantCode: codePtr(ErrPathComputation),
		},
		{
			name: "struct file uses object path",
			path: "/zoneA/home/alice/archive",
			spec: packinstr.SpecCollInfo{
				CollectionClass: 1,
				Collection:      "/zoneA/home/alice/archive",
				ObjectPath:      "/zoneA/home/alice/archive.tar",
				CacheDirectory:  "/cache/archive",
				CacheDirty:      true,
				ReplicaNumber:   2,
			},
			wantKind:       KindStructFile,
			wantObjectPath: "/zoneA/home/alice/archive.tar",
			wantEffective:  "/zoneA/home/alice/archive",
		},
		{
			name: "mounted falls back to physical path",
			path: "/zoneA/home/alice/mnt",
			spec: packinstr.SpecCollInfo{
				CollectionClass: 2,
				Collection:      "/zoneA/home/alice/mnt",
				PhysicalPath:    "/data/export",
			},
			wantKind:       KindMounted,
			wantObjectPath: "/data/export",
			wantEffective:  "/zoneA/home/alice/mnt",
		},
		{
			name:     "mounted without any path",
			path:     "/zoneA/home/alice/mnt",
			spec:     packinstr.SpecCollInfo{CollectionClass: 2},
			wantCode: codePtr(ErrPathComputation),
		},
		{
			name:     "unknown class",
			path:     "/zoneA/home/alice/odd",
			spec:     packinstr.SpecCollInfo{CollectionClass: 9},
			wantCode: codePtr(ErrUnknownSpecialCollection),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeClient()
			stat := collectionStat("alice")
			spec := tt.spec
			stat.SpecColl = &spec
			client.stats[tt.path] = stat

			status, err := NewResolver(client, DefaultOptions()).Resolve(context.Background(), tt.path)
			if tt.wantCode != nil {
				require.Error(t, err)
				assert.True(t, IsCode(err, *tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tt.wantKind, status.Kind())
			assert.Equal(t, tt.wantObjectPath, status.ObjectPath)
			assert.NotEmpty(t, status.ObjectPath)
			assert.Equal(t, tt.wantEffective, EffectivePath(status))
			assert.Equal(t, tt.spec.Collection, status.CollectionPath)
		})
	}
}

func TestResolveArchiveAccessors(t *testing.T) {
	client := newFakeClient()
	stat := collectionStat("alice")
	stat.SpecColl = &packinstr.SpecCollInfo{
		CollectionClass: 1,
		ObjectPath:      "/zoneA/home/alice/archive.tar",
		CacheDirectory:  "/cache/archive",
		CacheDirty:      true,
		ReplicaNumber:   2,
	}
	client.stats["/zoneA/home/alice/archive"] = stat

	status, err := NewResolver(client, DefaultOptions()).Resolve(context.Background(), "/zoneA/home/alice/archive")
	require.NoError(t, err)

	assert.Equal(t, "/cache/archive", status.CacheDirectory())
	assert.True(t, status.CacheDirty())
	assert.Equal(t, 2, status.ReplicaNumber())
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		statErr  error
		wantCode ErrorCode
	}{
		{name: "empty path", path: "", wantCode: ErrInvalidArgument},
		{name: "relative path", path: "zoneA/home", wantCode: ErrInvalidArgument},
		{name: "too long", path: "/" + strings.Repeat("a", DefaultMaxPathLength), wantCode: ErrPathTooLong},
		{name: "not found", path: "/zoneA/missing", wantCode: ErrNotFound},
		{
			name:     "parent missing",
			path:     "/zoneA/missing/child",
			statErr:  &session.StatusError{API: rpc.APIObjStat, Status: rpc.StatusObjPathDoesNotExist},
			wantCode: ErrNotFound,
		},
		{
			name:     "transport failure",
			path:     "/zoneA/home",
			statErr:  errors.New("connection reset"),
			wantCode: ErrTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeClient()
			if tt.statErr != nil {
				client.statErrs[tt.path] = tt.statErr
			}

			_, err := NewResolver(client, DefaultOptions()).Resolve(context.Background(), tt.path)
			require.Error(t, err)
			assert.True(t, IsCode(err, tt.wantCode), "got %v", err)
			if tt.statErr != nil {
				assert.ErrorIs(t, err, tt.statErr)
			}
		})
	}
}

func TestResolveRejectsBeforeRoundTrip(t *testing.T) {
	client := newFakeClient()
	_, err := NewResolver(client, Options{MaxPathLength: 10}).Resolve(context.Background(), "/zoneA/home/alice")
	assert.True(t, IsCode(err, ErrPathTooLong))
	assert.Empty(t, client.statCalls)
}

func TestResolveDeterministic(t *testing.T) {
	client := newFakeClient()
	stat := collectionStat("alice")
	stat.SpecColl = &packinstr.SpecCollInfo{CollectionClass: 3, Collection: "/zoneA/l", PhysicalPath: "/zoneA/r"}
	client.stats["/zoneA/l/x"] = stat

	resolver := NewResolver(client, DefaultOptions())
	first, err := resolver.Resolve(context.Background(), "/zoneA/l/x")
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), "/zoneA/l/x")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestObjectTypeFromWire(t *testing.T) {
	for code := 0; code <= 6; code++ {
		typ, err := ObjectTypeFromWire(code)
		require.NoError(t, err)
		assert.Equal(t, ObjectType(code), typ)
	}

	_, err := ObjectTypeFromWire(7)
	assert.Error(t, err)
	_, err = ObjectTypeFromWire(-1)
	assert.Error(t, err)
}

func codePtr(c ErrorCode) *ErrorCode {
	return &c
}
