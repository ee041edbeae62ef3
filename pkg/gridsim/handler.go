package gridsim

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/internal/protocol/packinstr"
	"github.com/marmos91/dittogrid/internal/protocol/rpc"
	"github.com/marmos91/dittogrid/internal/protocol/tag"
	"github.com/marmos91/dittogrid/pkg/query"
)

// Handler answers catalog API calls from a Store.
type Handler struct {
	store    Store
	config   Config
	bootTime time.Time
}

// NewHandler returns a Handler over store. config must have defaults
// applied.
func NewHandler(store Store, config Config) *Handler {
	return &Handler{store: store, config: config, bootTime: time.Now()}
}

// Cursors holds the open general query cursors of one connection.
type Cursors struct {
	next int
	open map[int]*cursor
}

type cursor struct {
	result *queryResult
	offset int
	total  int
}

// NewCursors returns an empty cursor table.
func NewCursors() *Cursors {
	return &Cursors{open: make(map[int]*cursor)}
}

// Len returns the number of open cursors.
func (c *Cursors) Len() int {
	return len(c.open)
}

// Handle dispatches one request and returns the reply body and status.
// A nil body goes with a non-zero status.
func (h *Handler) Handle(ctx context.Context, cursors *Cursors, msg *rpc.Message) (*tag.Tag, int32) {
	switch msg.Header.APINumber {
	case rpc.APIMiscServerInfo:
		return h.serverInfo(), rpc.StatusOK
	case rpc.APIObjStat:
		if msg.Body == nil {
			return nil, rpc.StatusCatalogInvalidArgument
		}
		return h.objStat(ctx, packinstr.ObjStatPath(msg.Body))
	case rpc.APIGenQuery:
		if msg.Body == nil {
			return nil, rpc.StatusCatalogInvalidArgument
		}
		return h.genQuery(ctx, cursors, msg.Body)
	case rpc.APIQuerySpecColl:
		if msg.Body == nil {
			return nil, rpc.StatusCatalogInvalidArgument
		}
		return h.querySpecColl(ctx, msg.Body)
	default:
		logger.Debug("Unsupported API %d", msg.Header.APINumber)
		return nil, rpc.StatusAPINotSupported
	}
}

func (h *Handler) serverInfo() *tag.Tag {
	return packinstr.ServerInfo{
		ServerType:     1,
		ServerBootTime: h.bootTime.Unix(),
		ReleaseVersion: h.config.ReleaseVersion,
		APIVersion:     h.config.APIVersion,
		Zone:           h.config.Zone,
	}.Tag()
}

func (h *Handler) objStat(ctx context.Context, p string) (*tag.Tag, int32) {
	if !strings.HasPrefix(p, "/") {
		return nil, rpc.StatusUserFileDoesNotExist
	}

	obj, link, err := h.lookup(ctx, p)
	if errors.Is(err, ErrNoSuchObject) {
		return nil, rpc.StatusUserFileDoesNotExist
	}
	if err != nil {
		logger.Error("stat %s: %v", p, err)
		return nil, rpc.StatusSysInternalError
	}
	if obj.Hidden {
		return nil, rpc.StatusUserFileDoesNotExist
	}

	stat := packinstr.ObjStat{
		Size:       obj.Size,
		Type:       packinstr.ObjTypeCollection,
		Mode:       obj.Mode,
		DataID:     obj.ID,
		Checksum:   obj.Checksum,
		OwnerName:  obj.Owner,
		OwnerZone:  obj.Zone,
		CreateTime: timestamp(obj.Created),
		ModifyTime: timestamp(obj.Modified),
	}
	if obj.Type == TypeDataObject {
		stat.Type = packinstr.ObjTypeDataObject
	}

	switch {
	case link != nil:
		stat.SpecColl = &packinstr.SpecCollInfo{
			CollectionClass: packinstr.CollClassLinked,
			Collection:      link.Path,
			PhysicalPath:    link.Target,
		}
	case obj.CollType == CollTypeMount || obj.CollType == CollTypeStructFile:
		stat.SpecColl = specCollInfo(obj)
	case obj.Virtual:
		owner, err := h.specialOwner(ctx, obj)
		if err != nil {
			logger.Error("stat %s: %v", p, err)
			return nil, rpc.StatusSysInternalError
		}
		stat.SpecColl = specCollInfo(owner)
	}

	return stat.Tag(), rpc.StatusOK
}

// lookup finds the object at p. When p is a linked collection or lies below
// one, the object comes from the link target and the link is returned too.
func (h *Handler) lookup(ctx context.Context, p string) (*Object, *Object, error) {
	for _, a := range append(Ancestors(p), p) {
		obj, err := h.store.Get(ctx, a)
		if err != nil {
			return nil, nil, err
		}
		if obj.CollType != CollTypeLink {
			continue
		}
		if a == p {
			return obj, obj, nil
		}
		target, err := h.store.Get(ctx, obj.Target+p[len(a):])
		if err != nil {
			return nil, nil, err
		}
		return target, obj, nil
	}
	// Unreachable: the loop returns on the last element.
	return nil, nil, ErrNoSuchObject
}

// specialOwner returns the nearest mounted or struct-file collection
// containing obj.
func (h *Handler) specialOwner(ctx context.Context, obj *Object) (*Object, error) {
	if obj.CollType == CollTypeMount || obj.CollType == CollTypeStructFile {
		return obj, nil
	}
	ancestors := Ancestors(obj.Path)
	for i := len(ancestors) - 1; i >= 0; i-- {
		a, err := h.store.Get(ctx, ancestors[i])
		if err != nil {
			return nil, err
		}
		if a.CollType == CollTypeMount || a.CollType == CollTypeStructFile {
			return a, nil
		}
	}
	return nil, ErrNoSuchObject
}

func specCollInfo(owner *Object) *packinstr.SpecCollInfo {
	info := &packinstr.SpecCollInfo{
		Collection:        owner.Path,
		PhysicalPath:      owner.PhysicalPath,
		Resource:          owner.Resource,
		ResourceHierarchy: owner.Resource,
		CacheDirectory:    owner.CacheDir,
		CacheDirty:        owner.CacheDirty,
		ReplicaNumber:     owner.ReplicaNumber,
	}
	if owner.CollType == CollTypeMount {
		info.CollectionClass = packinstr.CollClassMounted
	} else {
		info.CollectionClass = packinstr.CollClassStructFile
		info.Type = 2
		info.ObjectPath = owner.Target
	}
	return info
}

func (h *Handler) genQuery(ctx context.Context, cursors *Cursors, body *tag.Tag) (*tag.Tag, int32) {
	in, err := packinstr.ParseGenQueryInput(body)
	if err != nil {
		logger.Debug("gen query: %v", err)
		return nil, rpc.StatusCatalogInvalidArgument
	}

	if in.ContinueIndex > 0 {
		return cursors.resume(in)
	}
	if in.MaxRows <= 0 {
		return nil, rpc.StatusNoRowsFound
	}

	result, err := runQuery(ctx, h.store, in)
	if err != nil {
		logger.Debug("gen query: %v", err)
		return nil, rpc.StatusCatalogInvalidArgument
	}

	start := min(max(in.RowOffset, 0), len(result.rows))
	if start == len(result.rows) {
		return nil, rpc.StatusNoRowsFound
	}

	c := &cursor{result: result, offset: start}
	if in.Options&packinstr.OptionReturnTotalRowCount != 0 {
		c.total = len(result.rows)
	}
	return cursors.read(c, in.MaxRows, 0)
}

// read returns the next n rows of c, registering or closing the cursor as
// needed.
func (c *Cursors) read(cur *cursor, n, id int) (*tag.Tag, int32) {
	out := cur.result.page(cur.offset, n)
	out.TotalRowCount = cur.total
	cur.offset += out.RowCount

	switch {
	case cur.offset >= len(cur.result.rows):
		delete(c.open, id)
	case id == 0:
		c.next++
		id = c.next
		c.open[id] = cur
		out.ContinueIndex = id
	default:
		out.ContinueIndex = id
	}
	return out.Tag(), rpc.StatusOK
}

func (c *Cursors) resume(in packinstr.GenQueryInput) (*tag.Tag, int32) {
	cur, ok := c.open[in.ContinueIndex]
	if !ok {
		return nil, rpc.StatusCatalogInvalidArgument
	}
	if in.MaxRows <= 0 {
		delete(c.open, in.ContinueIndex)
		return packinstr.GenQueryOutput{}.Tag(), rpc.StatusOK
	}
	return c.read(cur, in.MaxRows, in.ContinueIndex)
}

func (h *Handler) querySpecColl(ctx context.Context, body *tag.Tag) (*tag.Tag, int32) {
	q, err := packinstr.ParseQuerySpecCollRequest(body)
	if err != nil {
		logger.Debug("query spec coll: %v", err)
		return nil, rpc.StatusCatalogInvalidArgument
	}

	obj, err := h.store.Get(ctx, q.Path)
	if errors.Is(err, ErrNoSuchObject) {
		return nil, rpc.StatusObjPathDoesNotExist
	}
	if err != nil {
		logger.Error("query spec coll %s: %v", q.Path, err)
		return nil, rpc.StatusSysInternalError
	}
	if !obj.IsCollection() || (!obj.Virtual && obj.CollType != CollTypeMount && obj.CollType != CollTypeStructFile) {
		return nil, rpc.StatusCatalogInvalidArgument
	}

	children, err := h.store.Children(ctx, q.Path)
	if err != nil {
		logger.Error("query spec coll %s: %v", q.Path, err)
		return nil, rpc.StatusSysInternalError
	}
	if len(children) == 0 {
		owner, err := h.specialOwner(ctx, obj)
		if err == nil && owner.CollType == CollTypeStructFile {
			return nil, rpc.StatusStructFileEmpty
		}
		return nil, rpc.StatusNoRowsFound
	}

	wantCollections := q.SelectObjType == packinstr.SelectCollections
	var selected []*Object
	for _, child := range children {
		if child.IsCollection() == wantCollections {
			selected = append(selected, child)
		}
	}

	start := max(q.ContinueIndex, 0)
	if start >= len(selected) {
		return nil, rpc.StatusNoRowsFound
	}
	end := min(start+h.config.SpecCollPageSize, len(selected))

	result := &queryResult{}
	if wantCollections {
		result.columns = []int{int(query.FieldCollName), int(query.FieldCollCreateTime), int(query.FieldCollModifyTime)}
		for _, child := range selected {
			result.rows = append(result.rows, []string{child.Path, timestamp(child.Created), timestamp(child.Modified)})
		}
	} else {
		result.columns = []int{
			int(query.FieldCollName), int(query.FieldDataName), int(query.FieldDataSize),
			int(query.FieldDataCreateTime), int(query.FieldDataModifyTime),
		}
		for _, child := range selected {
			result.rows = append(result.rows, []string{
				q.Path, child.Name(), strconv.FormatInt(child.Size, 10), timestamp(child.Created), timestamp(child.Modified),
			})
		}
	}

	out := result.page(start, end-start)
	out.TotalRowCount = len(selected)
	if end < len(selected) {
		out.ContinueIndex = end
	}
	return out.Tag(), rpc.StatusOK
}
