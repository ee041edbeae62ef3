package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/marmos91/dittogrid/internal/protocol/packinstr"
	"github.com/marmos91/dittogrid/internal/protocol/rpc"
	"github.com/marmos91/dittogrid/internal/protocol/tag"
	"github.com/marmos91/dittogrid/pkg/query"
	"github.com/marmos91/dittogrid/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mountedClient() *fakeClient {
	client := newFakeClient()
	stat := collectionStat("alice")
	stat.SpecColl = &packinstr.SpecCollInfo{
		CollectionClass: 2,
		Collection:      "/zoneA/home/alice/mnt",
		PhysicalPath:    "/data/export",
		Resource:        "unixfs",
		CacheDirty:      true,
		ReplicaNumber:   1,
	}
	client.stats["/zoneA/home/alice/mnt"] = stat
	return client
}

func dataPage(continueIndex, total int, names ...string) *tag.Tag {
	out := packinstr.GenQueryOutput{
		RowCount:      len(names),
		ContinueIndex: continueIndex,
		TotalRowCount: total,
	}
	colls := make([]string, len(names))
	sizes := make([]string, len(names))
	times := make([]string, len(names))
	for i := range names {
		colls[i] = "/zoneA/home/alice/mnt"
		sizes[i] = "100"
		times[i] = "01379087283"
	}
	out.Columns = []packinstr.Column{
		{AttributeIndex: int(query.FieldCollName), Values: colls},
		{AttributeIndex: int(query.FieldDataName), Values: names},
		{AttributeIndex: int(query.FieldDataSize), Values: sizes},
		{AttributeIndex: int(query.FieldDataCreateTime), Values: times},
		{AttributeIndex: int(query.FieldDataModifyTime), Values: times},
	}
	return out.Tag()
}

func TestSpecialListingPages(t *testing.T) {
	client := mountedClient()
	client.specColl = []specCollReply{
		{body: dataPage(4, 5, "a", "b")},
		{body: dataPage(9, 5, "c", "d")},
		{body: dataPage(0, 5, "e")},
	}

	entries, err := newTestService(client, &fakeExecutor{}, DefaultOptions()).ListDataObjectsUnder(context.Background(), "/zoneA/home/alice/mnt", 0)
	require.NoError(t, err)

	require.Len(t, entries, 5)
	for i, e := range entries {
		assert.Equal(t, i+1, e.Count)
		assert.Equal(t, i == 4, e.LastResult, "entry %d", i+1)
		assert.Equal(t, "alice", e.OwnerName)
		assert.Equal(t, KindMounted, e.SpecialKind)
		assert.Equal(t, "/zoneA/home/alice/mnt", e.ParentPath)
		assert.Equal(t, int64(100), e.Size)
	}
	assert.Equal(t, "e", entries[4].PathOrName)

	require.Len(t, client.specReqs, 3)
	assert.Equal(t, []int{0, 4, 9}, []int{client.specReqs[0].ContinueIndex, client.specReqs[1].ContinueIndex, client.specReqs[2].ContinueIndex})

	first := client.specReqs[0]
	assert.Equal(t, "/zoneA/home/alice/mnt", first.Path)
	assert.Equal(t, packinstr.SelectDataObjects, first.SelectObjType)
	assert.Equal(t, packinstr.CollClassStructFile, first.Info.CollectionClass)
	assert.Equal(t, 2, first.Info.Type)
	assert.Equal(t, "/zoneA/home/alice/mnt", first.Info.Collection)
	assert.Equal(t, "/data/export", first.Info.ObjectPath)
	assert.Equal(t, "/data/export", first.Info.PhysicalPath)
	assert.True(t, first.Info.CacheDirty)
	assert.Equal(t, 1, first.Info.ReplicaNumber)
}

func TestSpecialListingCollections(t *testing.T) {
	client := mountedClient()
	out := packinstr.GenQueryOutput{
		RowCount:      2,
		TotalRowCount: 2,
		Columns: []packinstr.Column{
			{AttributeIndex: int(query.FieldCollName), Values: []string{"/zoneA/home/alice/mnt/x", "/zoneA/home/alice/mnt/y"}},
		},
	}
	client.specColl = []specCollReply{{body: out.Tag()}}

	entries, err := newTestService(client, &fakeExecutor{}, DefaultOptions()).ListCollectionsUnder(context.Background(), "/zoneA/home/alice/mnt", 0)
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "/zoneA/home/alice/mnt/y", entries[1].PathOrName)
	assert.Equal(t, "/zoneA/home/alice/mnt", entries[1].ParentPath)
	assert.Equal(t, ObjectTypeCollection, entries[1].ObjectType)
	assert.Equal(t, packinstr.SelectCollections, client.specReqs[0].SelectObjType)
}

func TestSpecialListingCollectionTimes(t *testing.T) {
	client := mountedClient()
	out := packinstr.GenQueryOutput{
		RowCount:      2,
		TotalRowCount: 2,
		Columns: []packinstr.Column{
			{AttributeIndex: int(query.FieldCollName), Values: []string{"/zoneA/home/alice/mnt/x", "/zoneA/home/alice/mnt/y"}},
			{AttributeIndex: int(query.FieldCollCreateTime), Values: []string{"01379087000", ""}},
			{AttributeIndex: int(query.FieldCollModifyTime), Values: []string{"01379087001", ""}},
			{AttributeIndex: int(query.FieldDataCreateTime), Values: []string{"01379087283", "01379087283"}},
			{AttributeIndex: int(query.FieldDataModifyTime), Values: []string{"01379087290", "01379087290"}},
		},
	}
	client.specColl = []specCollReply{{body: out.Tag()}}

	entries, err := newTestService(client, &fakeExecutor{}, DefaultOptions()).ListCollectionsUnder(context.Background(), "/zoneA/home/alice/mnt", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, int64(1379087000), entries[0].CreatedAt.Unix())
	assert.Equal(t, int64(1379087001), entries[0].ModifiedAt.Unix())

	// Only the data object columns carry times for y.
	assert.Equal(t, int64(1379087283), entries[1].CreatedAt.Unix())
	assert.Equal(t, int64(1379087290), entries[1].ModifiedAt.Unix())
}

func TestSpecialListingEmptyTerminals(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "no data", err: &session.StatusError{API: rpc.APIQuerySpecColl, Status: rpc.StatusNoRowsFound}},
		{name: "file driver error", err: &session.StatusError{API: rpc.APIQuerySpecColl, Status: rpc.StatusStructFileEmpty}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := mountedClient()
			client.specColl = []specCollReply{{err: tt.err}}

			entries, err := newTestService(client, &fakeExecutor{}, DefaultOptions()).ListDataObjectsUnder(context.Background(), "/zoneA/home/alice/mnt", 0)
			require.NoError(t, err)
			assert.NotNil(t, entries)
			assert.Empty(t, entries)
		})
	}
}

func TestSpecialListingNoDataAfterFirstPage(t *testing.T) {
	client := mountedClient()
	client.specColl = []specCollReply{
		{body: dataPage(3, 4, "a", "b")},
		{err: &session.StatusError{API: rpc.APIQuerySpecColl, Status: rpc.StatusNoRowsFound}},
	}

	entries, err := newTestService(client, &fakeExecutor{}, DefaultOptions()).ListDataObjectsUnder(context.Background(), "/zoneA/home/alice/mnt", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[1].LastResult)
}

func TestSpecialListingTransportError(t *testing.T) {
	client := mountedClient()
	boom := errors.New("connection reset")
	client.specColl = []specCollReply{{err: boom}}

	_, err := newTestService(client, &fakeExecutor{}, DefaultOptions()).ListDataObjectsUnder(context.Background(), "/zoneA/home/alice/mnt", 0)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrTransport))
	assert.ErrorIs(t, err, boom)
}

func TestSpecialListingResourceHierarchy(t *testing.T) {
	tests := []struct {
		release string
		want    bool
	}{
		{release: "rods4.2.11", want: true},
		{release: "erods3.0", want: true},
		{release: "rods3.3.1", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.release, func(t *testing.T) {
			client := mountedClient()
			client.props = session.NewServerProperties(tt.release, "d", "zoneA")

			var captured *tag.Tag
			wrapped := &capturingClient{fakeClient: client, capture: func(req *tag.Tag) { captured = req }}
			svc := NewService(wrapped, &fakeExecutor{}, DefaultOptions(), nil)

			_, err := svc.ListDataObjectsUnder(context.Background(), "/zoneA/home/alice/mnt", 0)
			require.NoError(t, err)
			require.NotNil(t, captured)
			assert.Equal(t, tt.want, captured.Tag("SpecColl_PI").Tag("rescHier") != nil)
		})
	}
}

func TestSpecialListingOffset(t *testing.T) {
	client := mountedClient()
	client.specColl = []specCollReply{{body: dataPage(0, 3, "a", "b", "c")}}

	entries, err := newTestService(client, &fakeExecutor{}, DefaultOptions()).ListDataObjectsUnder(context.Background(), "/zoneA/home/alice/mnt", 2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "c", entries[0].PathOrName)
	assert.Equal(t, 3, entries[0].Count)
}

// capturingClient records special collection requests.
type capturingClient struct {
	*fakeClient
	capture func(*tag.Tag)
}

func (c *capturingClient) Call(ctx context.Context, api int32, request *tag.Tag) (*tag.Tag, error) {
	if api == rpc.APIQuerySpecColl {
		c.capture(request)
	}
	return c.fakeClient.Call(ctx, api, request)
}
