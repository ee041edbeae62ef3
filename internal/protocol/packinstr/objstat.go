package packinstr

import (
	"github.com/marmos91/dittogrid/internal/protocol/tag"
)

// Object type codes as reported in RodsObjStat_PI.objType.
const (
	ObjTypeUnknown     = 0
	ObjTypeDataObject  = 1
	ObjTypeCollection  = 2
	ObjTypeUnknownFile = 3
	ObjTypeLocalFile   = 4
	ObjTypeLocalDir    = 5
	ObjTypeNoInput     = 6
)

// ObjStatRequest builds the DataObjInp_PI sent to APIObjStat.
func ObjStatRequest(absolutePath string) *tag.Tag {
	return tag.New("DataObjInp_PI",
		tag.NewValue("objPath", absolutePath),
		tag.NewValue("createMode", 0),
		tag.NewValue("openFlags", 0),
		tag.NewValue("offset", 0),
		tag.NewValue("dataSize", 0),
		tag.NewValue("numThreads", 0),
		tag.NewValue("oprType", 0),
		KeyValPair(),
	)
}

// ObjStat is the server side view of RodsObjStat_PI. The client parses the
// tag directly (see pkg/catalog) because it must classify the special
// collection block while reading it.
type ObjStat struct {
	Size       int64
	Type       int
	Mode       int
	DataID     int64
	Checksum   string
	OwnerName  string
	OwnerZone  string
	CreateTime string
	ModifyTime string

	// SpecColl is nil when the path is an ordinary catalog entry.
	SpecColl *SpecCollInfo
}

// Tag renders the RodsObjStat_PI reply body.
func (o ObjStat) Tag() *tag.Tag {
	t := tag.New("RodsObjStat_PI",
		tag.NewValue("objSize", o.Size),
		tag.NewValue("objType", o.Type),
		tag.NewValue("dataMode", o.Mode),
		tag.NewValue("dataId", o.DataID),
		tag.NewValue("chksum", o.Checksum),
		tag.NewValue("ownerName", o.OwnerName),
		tag.NewValue("ownerZone", o.OwnerZone),
		tag.NewValue("createTime", o.CreateTime),
		tag.NewValue("modifyTime", o.ModifyTime),
	)
	if o.SpecColl != nil {
		t.Add(o.SpecColl.Tag(true))
	}
	return t
}

// ObjStatPath extracts objPath from a DataObjInp_PI request.
func ObjStatPath(request *tag.Tag) string {
	return request.Tag("objPath").StringValue()
}
