package gridsim_test

import (
	"context"
	"testing"

	"github.com/marmos91/dittogrid/internal/protocol/packinstr"
	"github.com/marmos91/dittogrid/internal/protocol/rpc"
	"github.com/marmos91/dittogrid/internal/protocol/tag"
	"github.com/marmos91/dittogrid/pkg/gridsim"
	badgerstore "github.com/marmos91/dittogrid/pkg/gridsim/badger"
	"github.com/marmos91/dittogrid/pkg/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const home = "/tempZone/home/alice"

func seededStore(t *testing.T) gridsim.Store {
	t.Helper()
	ctx := context.Background()

	store, err := badgerstore.New(ctx, badgerstore.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	fixture, err := gridsim.LoadFixture("testdata/grid.yaml")
	require.NoError(t, err)
	require.NoError(t, fixture.Seed(ctx, store))
	return store
}

func testConfig() gridsim.Config {
	cfg := gridsim.Config{Zone: "tempZone", SpecCollPageSize: 2}
	cfg.ApplyDefaults()
	return cfg
}

type handlerHarness struct {
	handler *gridsim.Handler
	cursors *gridsim.Cursors
}

func newHarness(t *testing.T) *handlerHarness {
	return &handlerHarness{
		handler: gridsim.NewHandler(seededStore(t), testConfig()),
		cursors: gridsim.NewCursors(),
	}
}

func (h *handlerHarness) call(api int32, body *tag.Tag) (*tag.Tag, int32) {
	msg := &rpc.Message{
		Header: rpc.MessageHeader{XID: 1, APINumber: api, HasBody: body != nil},
		Body:   body,
	}
	return h.handler.Handle(context.Background(), h.cursors, msg)
}

func (h *handlerHarness) genQuery(t *testing.T, in packinstr.GenQueryInput) (*packinstr.GenQueryOutput, int32) {
	t.Helper()
	body, status := h.call(rpc.APIGenQuery, in.Tag())
	if status != rpc.StatusOK {
		return nil, status
	}
	out, err := packinstr.ParseGenQueryOutput(body)
	require.NoError(t, err)
	return out, status
}

func buildQuery(t *testing.T, b *query.Builder, maxRows int) packinstr.GenQueryInput {
	t.Helper()
	q, err := b.Build(maxRows)
	require.NoError(t, err)
	return q.Input(0, "")
}

func TestHandleServerInfo(t *testing.T) {
	h := newHarness(t)

	body, status := h.call(rpc.APIMiscServerInfo, nil)
	require.Equal(t, rpc.StatusOK, status)

	info, err := packinstr.ParseServerInfo(body)
	require.NoError(t, err)
	assert.Equal(t, "rods4.3.0", info.ReleaseVersion)
	assert.Equal(t, "d", info.APIVersion)
	assert.Equal(t, "tempZone", info.Zone)
	assert.NotZero(t, info.ServerBootTime)
}

func TestHandleUnknownAPI(t *testing.T) {
	h := newHarness(t)

	body, status := h.call(9999, nil)
	assert.Nil(t, body)
	assert.Equal(t, rpc.StatusAPINotSupported, status)
}

func TestHandleObjStat(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name     string
		path     string
		status   int32
		objType  int
		size     int64
		specColl *packinstr.SpecCollInfo
	}{
		{
			name:    "collection",
			path:    home,
			objType: packinstr.ObjTypeCollection,
		},
		{
			name:    "data object",
			path:    home + "/notes.txt",
			objType: packinstr.ObjTypeDataObject,
			size:    120,
		},
		{
			name:   "missing",
			path:   home + "/nope",
			status: rpc.StatusUserFileDoesNotExist,
		},
		{
			name:   "missing parent",
			path:   "/otherZone/home",
			status: rpc.StatusUserFileDoesNotExist,
		},
		{
			name:   "hidden",
			path:   "/tempZone/home/public",
			status: rpc.StatusUserFileDoesNotExist,
		},
		{
			name:    "linked collection",
			path:    home + "/linked",
			objType: packinstr.ObjTypeCollection,
			specColl: &packinstr.SpecCollInfo{
				CollectionClass: packinstr.CollClassLinked,
				Collection:      home + "/linked",
				PhysicalPath:    "/tempZone/home/bob/shared",
			},
		},
		{
			name:    "below a link",
			path:    home + "/linked/readme.md",
			objType: packinstr.ObjTypeDataObject,
			size:    42,
			specColl: &packinstr.SpecCollInfo{
				CollectionClass: packinstr.CollClassLinked,
				Collection:      home + "/linked",
				PhysicalPath:    "/tempZone/home/bob/shared",
			},
		},
		{
			name:    "mounted collection",
			path:    home + "/scratch",
			objType: packinstr.ObjTypeCollection,
			specColl: &packinstr.SpecCollInfo{
				CollectionClass:   packinstr.CollClassMounted,
				Collection:        home + "/scratch",
				PhysicalPath:      "/data/scratch",
				Resource:          "scratchResc",
				ResourceHierarchy: "scratchResc",
			},
		},
		{
			name:    "mounted member",
			path:    home + "/scratch/run1/out.log",
			objType: packinstr.ObjTypeDataObject,
			size:    7,
			specColl: &packinstr.SpecCollInfo{
				CollectionClass:   packinstr.CollClassMounted,
				Collection:        home + "/scratch",
				PhysicalPath:      "/data/scratch",
				Resource:          "scratchResc",
				ResourceHierarchy: "scratchResc",
			},
		},
		{
			name:    "struct file collection",
			path:    home + "/bundle",
			objType: packinstr.ObjTypeCollection,
			specColl: &packinstr.SpecCollInfo{
				CollectionClass:   packinstr.CollClassStructFile,
				Type:              2,
				Collection:        home + "/bundle",
				ObjectPath:        home + "/bundle.tar",
				PhysicalPath:      "/vault/alice/bundle.tar",
				Resource:          gridsim.DefaultResource,
				ResourceHierarchy: gridsim.DefaultResource,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, status := h.call(rpc.APIObjStat, packinstr.ObjStatRequest(tt.path))
			require.Equal(t, tt.status, status)
			if tt.status != rpc.StatusOK {
				assert.Nil(t, body)
				return
			}

			objType, err := body.ChildInt("objType")
			require.NoError(t, err)
			assert.Equal(t, tt.objType, objType)

			size, err := body.ChildInt64("objSize")
			require.NoError(t, err)
			assert.Equal(t, tt.size, size)

			block := body.Tag("SpecColl_PI")
			if tt.specColl == nil {
				assert.Nil(t, block)
				return
			}
			info, err := packinstr.ParseSpecCollInfo(block)
			require.NoError(t, err)
			assert.Equal(t, *tt.specColl, info)
		})
	}
}

func TestHandleGenQueryDataObjects(t *testing.T) {
	h := newHarness(t)

	in := buildQuery(t, query.NewBuilder(true, true).
		Select(query.FieldDataName, query.FieldDataReplNum, query.FieldDataSize).
		Where(query.FieldCollName, query.OpEqual, home).
		OrderBy(query.FieldDataName), 10)

	out, status := h.genQuery(t, in)
	require.Equal(t, rpc.StatusOK, status)
	assert.Equal(t, 4, out.RowCount)
	assert.Equal(t, 4, out.TotalRowCount)
	assert.Zero(t, out.ContinueIndex)

	var got []string
	for _, row := range query.RowsFromOutput(out, 0) {
		name, _ := row.String(query.FieldDataName)
		repl, _ := row.String(query.FieldDataReplNum)
		got = append(got, name+"#"+repl)
	}
	assert.Equal(t, []string{"bundle.tar#0", "data.csv#0", "notes.txt#0", "notes.txt#1"}, got)
}

func TestHandleGenQueryAggregates(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name    string
		builder *query.Builder
		field   query.Field
		want    string
	}{
		{
			name: "count data objects",
			builder: query.NewBuilder(true, false).
				SelectAggregate(query.AggregateCount, query.FieldDataName).
				Where(query.FieldCollName, query.OpEqual, home).
				Where(query.FieldDataReplNum, query.OpEqual, "0"),
			field: query.FieldDataName,
			want:  "3",
		},
		{
			name: "count sub-collections",
			builder: query.NewBuilder(true, false).
				SelectAggregate(query.AggregateCount, query.FieldCollName).
				Where(query.FieldCollParentName, query.OpEqual, home),
			field: query.FieldCollName,
			want:  "5",
		},
		{
			name: "sum of sizes",
			builder: query.NewBuilder(true, false).
				SelectAggregate(query.AggregateSum, query.FieldDataSize).
				Where(query.FieldCollName, query.OpEqual, home).
				Where(query.FieldDataReplNum, query.OpEqual, "0"),
			field: query.FieldDataSize,
			want:  "1224",
		},
		{
			name: "count of nothing",
			builder: query.NewBuilder(true, false).
				SelectAggregate(query.AggregateCount, query.FieldDataName).
				Where(query.FieldCollName, query.OpEqual, home).
				Where(query.FieldDataName, query.OpLike, "%.zip"),
			field: query.FieldDataName,
			want:  "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, status := h.genQuery(t, buildQuery(t, tt.builder, 1))
			require.Equal(t, rpc.StatusOK, status)

			rows := query.RowsFromOutput(out, 0)
			require.Len(t, rows, 1)
			got, err := rows[0].String(tt.field)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandleGenQueryConditions(t *testing.T) {
	h := newHarness(t)

	in := buildQuery(t, query.NewBuilder(true, false).
		Select(query.FieldDataName).
		Where(query.FieldCollName, query.OpEqual, home).
		Where(query.FieldDataName, query.OpLike, "%.c_v").
		Where(query.FieldDataSize, query.OpGreaterThan, "10"), 10)

	out, status := h.genQuery(t, in)
	require.Equal(t, rpc.StatusOK, status)
	require.Len(t, out.Columns, 1)
	assert.Equal(t, []string{"data.csv"}, out.Columns[0].Values)
}

func TestHandleGenQueryCursor(t *testing.T) {
	h := newHarness(t)

	in := buildQuery(t, query.NewBuilder(true, false).
		Select(query.FieldDataName).
		Where(query.FieldCollName, query.OpEqual, home).
		OrderBy(query.FieldDataName), 2)

	first, status := h.genQuery(t, in)
	require.Equal(t, rpc.StatusOK, status)
	assert.Equal(t, 2, first.RowCount)
	require.NotZero(t, first.ContinueIndex)
	assert.Equal(t, 1, h.cursors.Len())

	in.ContinueIndex = first.ContinueIndex
	second, status := h.genQuery(t, in)
	require.Equal(t, rpc.StatusOK, status)
	assert.Equal(t, []string{"notes.txt"}, second.Columns[0].Values)
	assert.Zero(t, second.ContinueIndex)
	assert.Zero(t, h.cursors.Len())

	t.Run("close releases the cursor", func(t *testing.T) {
		in := in
		in.ContinueIndex = 0
		page, _ := h.genQuery(t, in)
		require.NotZero(t, page.ContinueIndex)

		in.ContinueIndex = page.ContinueIndex
		in.MaxRows = 0
		_, status := h.call(rpc.APIGenQuery, in.Tag())
		assert.Equal(t, rpc.StatusOK, status)
		assert.Zero(t, h.cursors.Len())
	})

	t.Run("unknown cursor", func(t *testing.T) {
		in := in
		in.ContinueIndex = 42
		_, status := h.call(rpc.APIGenQuery, in.Tag())
		assert.Equal(t, rpc.StatusCatalogInvalidArgument, status)
	})

	t.Run("offset past the end", func(t *testing.T) {
		in := in
		in.ContinueIndex = 0
		in.RowOffset = 10
		_, status := h.call(rpc.APIGenQuery, in.Tag())
		assert.Equal(t, rpc.StatusNoRowsFound, status)
	})
}

func TestHandleGenQueryNoRows(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name   string
		parent string
	}{
		{name: "unlistable parent", parent: "/tempZone/home"},
		{name: "missing parent", parent: "/tempZone/home/nobody"},
		{name: "mounted collection", parent: home + "/scratch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := buildQuery(t, query.NewBuilder(true, false).
				Select(query.FieldCollName).
				Where(query.FieldCollParentName, query.OpEqual, tt.parent), 10)
			_, status := h.genQuery(t, in)
			assert.Equal(t, rpc.StatusNoRowsFound, status)
		})
	}
}

func TestHandleGenQueryUnpinned(t *testing.T) {
	h := newHarness(t)

	in := buildQuery(t, query.NewBuilder(true, false).
		Select(query.FieldDataName).
		Where(query.FieldDataName, query.OpLike, "%"), 10)
	_, status := h.genQuery(t, in)
	assert.Equal(t, rpc.StatusCatalogInvalidArgument, status)
}

func specCollPage(t *testing.T, h *handlerHarness, p, selectType string, continueIndex int) (*packinstr.GenQueryOutput, int32) {
	t.Helper()
	request := packinstr.QuerySpecCollRequest(p, packinstr.SpecCollInfo{Collection: p}, true, selectType, continueIndex)
	body, status := h.call(rpc.APIQuerySpecColl, request)
	if status != rpc.StatusOK {
		return nil, status
	}
	out, err := packinstr.ParseGenQueryOutput(body)
	require.NoError(t, err)
	return out, status
}

func TestHandleQuerySpecColl(t *testing.T) {
	h := newHarness(t)
	scratch := home + "/scratch"

	t.Run("data objects page by page", func(t *testing.T) {
		first, status := specCollPage(t, h, scratch, packinstr.SelectDataObjects, 0)
		require.Equal(t, rpc.StatusOK, status)
		assert.Equal(t, 2, first.RowCount)
		assert.Equal(t, 3, first.TotalRowCount)
		assert.Equal(t, 2, first.ContinueIndex)

		second, status := specCollPage(t, h, scratch, packinstr.SelectDataObjects, first.ContinueIndex)
		require.Equal(t, rpc.StatusOK, status)
		assert.Equal(t, 1, second.RowCount)
		assert.Zero(t, second.ContinueIndex)

		rows := query.RowsFromOutput(second, 2)
		name, _ := rows[0].String(query.FieldDataName)
		parent, _ := rows[0].String(query.FieldCollName)
		assert.Equal(t, "c.txt", name)
		assert.Equal(t, scratch, parent)
		assert.Equal(t, int64(3), rows[0].Int64OrZero(query.FieldDataSize))
	})

	t.Run("collections", func(t *testing.T) {
		out, status := specCollPage(t, h, scratch, packinstr.SelectCollections, 0)
		require.Equal(t, rpc.StatusOK, status)
		assert.Equal(t, []string{scratch + "/run1"}, out.Columns[0].Values)
	})

	t.Run("virtual sub-collection", func(t *testing.T) {
		out, status := specCollPage(t, h, scratch+"/run1", packinstr.SelectDataObjects, 0)
		require.Equal(t, rpc.StatusOK, status)
		assert.Equal(t, 1, out.RowCount)
	})

	t.Run("nothing of the selected type", func(t *testing.T) {
		_, status := specCollPage(t, h, home+"/bundle", packinstr.SelectCollections, 0)
		assert.Equal(t, rpc.StatusNoRowsFound, status)
	})

	t.Run("empty struct file", func(t *testing.T) {
		_, status := specCollPage(t, h, home+"/empty", packinstr.SelectDataObjects, 0)
		assert.Equal(t, rpc.StatusStructFileEmpty, status)
		assert.True(t, rpc.IsFileDriverStatus(status))
	})

	t.Run("ordinary collection", func(t *testing.T) {
		_, status := specCollPage(t, h, home, packinstr.SelectDataObjects, 0)
		assert.Equal(t, rpc.StatusCatalogInvalidArgument, status)
	})

	t.Run("missing collection", func(t *testing.T) {
		_, status := specCollPage(t, h, home+"/gone", packinstr.SelectDataObjects, 0)
		assert.Equal(t, rpc.StatusObjPathDoesNotExist, status)
	})
}
