package catalog

import (
	"context"
	"testing"

	"github.com/marmos91/dittogrid/internal/protocol/packinstr"
	"github.com/marmos91/dittogrid/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collRow(name, parent string) map[query.Field]string {
	return map[query.Field]string{
		query.FieldCollName:       name,
		query.FieldCollParentName: parent,
		query.FieldCollCreateTime: "01379087283",
		query.FieldCollModifyTime: "01379087290",
		query.FieldCollID:         "10",
		query.FieldCollOwnerName:  "rods",
		query.FieldCollOwnerZone:  "zoneA",
		query.FieldCollType:       "",
	}
}

func dataRow(parent, name, repl, size string) map[query.Field]string {
	return map[query.Field]string{
		query.FieldCollName:       parent,
		query.FieldDataName:       name,
		query.FieldDataCreateTime: "01379087283",
		query.FieldDataModifyTime: "01379087290",
		query.FieldDataID:         "200",
		query.FieldDataSize:       size,
		query.FieldDataReplNum:    repl,
		query.FieldDataOwnerName:  "alice",
		query.FieldDataOwnerZone:  "zoneA",
	}
}

func TestListCollectionsDiscardsRoot(t *testing.T) {
	client := newFakeClient()
	client.stats["/"] = collectionStat("rods")
	executor := &fakeExecutor{results: []*query.ResultSet{
		resultSet(0, 3, true,
			collRow("/", "/"),
			collRow("/zoneA", "/"),
			collRow("/zoneB", "/"),
		),
	}}

	entries, err := newTestService(client, executor, DefaultOptions()).ListCollectionsUnder(context.Background(), "/", 0)
	require.NoError(t, err)

	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.NotEqual(t, "/", e.PathOrName)
	}
	assert.Equal(t, "/zoneA", entries[0].PathOrName)
	assert.Equal(t, 2, entries[0].Count)
	assert.True(t, entries[1].LastResult)
	assert.False(t, entries[0].LastResult)

	require.Len(t, executor.calls, 1)
	assert.Equal(t, "", executor.calls[0].zone)
	assert.Equal(t, DefaultMaxPageSize, executor.calls[0].query.MaxRows)
}

func TestListCollectionsRootRowAloneOnFinalPage(t *testing.T) {
	pages := func() *fakeExecutor {
		return &fakeExecutor{results: []*query.ResultSet{
			resultSet(0, 3, false,
				collRow("/zoneA", "/"),
				collRow("/zoneB", "/"),
			),
			resultSet(2, 3, true, collRow("/", "/")),
		}}
	}
	client := newFakeClient()
	client.stats["/"] = collectionStat("rods")

	executor := pages()
	svc := newTestService(client, executor, Options{MaxPageSize: 2})
	_, err := svc.ListCollectionsUnder(context.Background(), "/", 0)
	require.NoError(t, err)
	final, err := svc.ListCollectionsUnder(context.Background(), "/", 2)
	require.NoError(t, err)
	assert.Empty(t, final)

	executor = pages()
	svc = newTestService(client, executor, Options{MaxPageSize: 2})
	var got []string
	for entry, err := range svc.AllCollectionsUnder(context.Background(), "/") {
		require.NoError(t, err)
		got = append(got, entry.PathOrName)
	}
	assert.Equal(t, []string{"/zoneA", "/zoneB"}, got)
	assert.Len(t, executor.calls, 2)
}

func TestListCollectionsQueryShape(t *testing.T) {
	client := newFakeClient()
	client.stats["/zoneB/home"] = collectionStat("rods")
	executor := &fakeExecutor{}

	entries, err := newTestService(client, executor, Options{MaxPageSize: 50}).ListCollectionsUnder(context.Background(), "/zoneB/home", 100)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.Len(t, executor.calls, 1)
	call := executor.calls[0]
	assert.Equal(t, 100, call.offset)
	assert.Equal(t, "zoneB", call.zone)
	assert.Equal(t, 50, call.query.MaxRows)
	require.Len(t, call.query.Conditions, 1)
	assert.Equal(t, query.FieldCollParentName, call.query.Conditions[0].Field)
	assert.Equal(t, "/zoneB/home", call.query.Conditions[0].Value)
}

func TestListCollectionsUnderLink(t *testing.T) {
	client := newFakeClient()
	stat := collectionStat("alice")
	stat.SpecColl = &packinstr.SpecCollInfo{
		CollectionClass: 3,
		Collection:      "/zoneA/home/alice/link",
		PhysicalPath:    "/zoneA/home/alice/real",
	}
	client.stats["/zoneA/home/alice/link"] = stat

	executor := &fakeExecutor{results: []*query.ResultSet{
		resultSet(0, 2, true,
			collRow("/zoneA/home/alice/real/a", "/zoneA/home/alice/real"),
			collRow("/zoneA/home/alice/real/b", "/zoneA/home/alice/real"),
		),
	}}

	entries, err := newTestService(client, executor, DefaultOptions()).ListCollectionsUnder(context.Background(), "/zoneA/home/alice/link", 0)
	require.NoError(t, err)

	assert.Equal(t, "/zoneA/home/alice/real", executor.calls[0].query.Conditions[0].Value)

	require.Len(t, entries, 2)
	for i, child := range []string{"a", "b"} {
		assert.Equal(t, "/zoneA/home/alice/link/"+child, entries[i].PathOrName)
		assert.Equal(t, "/zoneA/home/alice/link", entries[i].ParentPath)
		assert.Equal(t, "/zoneA/home/alice/real/"+child, entries[i].SpecialObjectPath)
		assert.Equal(t, KindLinked, entries[i].SpecialKind)
	}
}

func TestListDataObjectsDeduplicatesReplicas(t *testing.T) {
	client := newFakeClient()
	client.stats["/zoneA/home/alice"] = collectionStat("alice")
	executor := &fakeExecutor{results: []*query.ResultSet{
		resultSet(0, 5, true,
			dataRow("/zoneA/home/alice", "a.txt", "0", "10"),
			dataRow("/zoneA/home/alice", "a.txt", "1", "10"),
			dataRow("/zoneA/home/alice", "b.txt", "0", "20"),
			dataRow("/zoneA/home/alice", "c.txt", "0", "30"),
			dataRow("/zoneA/home/alice", "c.txt", "1", "30"),
		),
	}}

	entries, err := newTestService(client, executor, DefaultOptions()).ListDataObjectsUnder(context.Background(), "/zoneA/home/alice", 0)
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, []string{entries[0].PathOrName, entries[1].PathOrName, entries[2].PathOrName})
	assert.Equal(t, int64(20), entries[1].Size)
	assert.Equal(t, ObjectTypeDataObject, entries[1].ObjectType)
	assert.Equal(t, "/zoneA/home/alice/b.txt", entries[1].FullPath())

	// The last logical file absorbs its replica row.
	assert.True(t, entries[2].LastResult)
	assert.Equal(t, 5, entries[2].Count)

	assert.Equal(t, "zoneA", executor.calls[0].zone)
	assert.Equal(t, query.FieldCollName, executor.calls[0].query.Conditions[0].Field)
}

func TestListDataObjectsUnderLink(t *testing.T) {
	client := newFakeClient()
	stat := collectionStat("alice")
	stat.SpecColl = &packinstr.SpecCollInfo{
		CollectionClass: 3,
		Collection:      "/zoneA/home/alice/link",
		PhysicalPath:    "/zoneA/home/alice/real",
	}
	client.stats["/zoneA/home/alice/link"] = stat

	executor := &fakeExecutor{results: []*query.ResultSet{
		resultSet(0, 1, true, dataRow("/zoneA/home/alice/real", "x.dat", "0", "7")),
	}}

	entries, err := newTestService(client, executor, DefaultOptions()).ListDataObjectsUnder(context.Background(), "/zoneA/home/alice/link", 0)
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "x.dat", entries[0].PathOrName)
	assert.Equal(t, "/zoneA/home/alice/link", entries[0].ParentPath)
	assert.Equal(t, "/zoneA/home/alice/real/x.dat", entries[0].SpecialObjectPath)
}

func TestListQueryFailure(t *testing.T) {
	client := newFakeClient()
	client.stats["/zoneA/home"] = collectionStat("rods")
	executor := &fakeExecutor{errs: []error{query.ErrExecute}}

	_, err := newTestService(client, executor, DefaultOptions()).ListCollectionsUnder(context.Background(), "/zoneA/home", 0)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrQuery))
	assert.ErrorIs(t, err, query.ErrExecute)
}

func TestListRejectsDataObject(t *testing.T) {
	client := newFakeClient()
	client.stats["/zoneA/home/alice/f"] = packinstr.ObjStat{Type: packinstr.ObjTypeDataObject}

	_, err := newTestService(client, &fakeExecutor{}, DefaultOptions()).ListCollectionsUnder(context.Background(), "/zoneA/home/alice/f", 0)
	assert.True(t, IsCode(err, ErrNotACollection))
}

func TestKindFromCollType(t *testing.T) {
	assert.Equal(t, KindLinked, kindFromCollType("linkPoint"))
	assert.Equal(t, KindMounted, kindFromCollType("mountPoint"))
	assert.Equal(t, KindStructFile, kindFromCollType("tarStructFile"))
	assert.Equal(t, KindNormal, kindFromCollType(""))
}
