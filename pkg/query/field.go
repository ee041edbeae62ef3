// Package query builds and executes general catalog queries.
//
// A Query selects catalog columns (Field) under equality or pattern
// conditions. Results come back as named-field rows, so callers read
// columns by Field instead of by position.
package query

import "fmt"

// Field is a catalog column. Values are the server's column numbers.
type Field int

// Data object columns.
const (
	FieldDataID         Field = 401
	FieldDataName       Field = 403
	FieldDataReplNum    Field = 404
	FieldDataSize       Field = 407
	FieldDataOwnerName  Field = 411
	FieldDataOwnerZone  Field = 412
	FieldDataChecksum   Field = 415
	FieldDataCreateTime Field = 419
	FieldDataModifyTime Field = 420
)

// Collection columns.
const (
	FieldCollID         Field = 500
	FieldCollName       Field = 501
	FieldCollParentName Field = 502
	FieldCollOwnerName  Field = 503
	FieldCollOwnerZone  Field = 504
	FieldCollCreateTime Field = 508
	FieldCollModifyTime Field = 509
	FieldCollType       Field = 510
	FieldCollInfo1      Field = 511
	FieldCollInfo2      Field = 512
)

var fieldNames = map[Field]string{
	FieldDataID:         "DATA_ID",
	FieldDataName:       "DATA_NAME",
	FieldDataReplNum:    "DATA_REPL_NUM",
	FieldDataSize:       "DATA_SIZE",
	FieldDataOwnerName:  "DATA_OWNER_NAME",
	FieldDataOwnerZone:  "DATA_OWNER_ZONE",
	FieldDataChecksum:   "DATA_CHECKSUM",
	FieldDataCreateTime: "DATA_CREATE_TIME",
	FieldDataModifyTime: "DATA_MODIFY_TIME",
	FieldCollID:         "COLL_ID",
	FieldCollName:       "COLL_NAME",
	FieldCollParentName: "COLL_PARENT_NAME",
	FieldCollOwnerName:  "COLL_OWNER_NAME",
	FieldCollOwnerZone:  "COLL_OWNER_ZONE",
	FieldCollCreateTime: "COLL_CREATE_TIME",
	FieldCollModifyTime: "COLL_MODIFY_TIME",
	FieldCollType:       "COLL_TYPE",
	FieldCollInfo1:      "COLL_INFO1",
	FieldCollInfo2:      "COLL_INFO2",
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("FIELD_%d", int(f))
}

// Aggregate is a column aggregation function. The values are the select
// flags the server expects.
type Aggregate int

const (
	AggregateNone  Aggregate = 1
	AggregateMin   Aggregate = 2
	AggregateMax   Aggregate = 3
	AggregateSum   Aggregate = 4
	AggregateAvg   Aggregate = 5
	AggregateCount Aggregate = 6
)

func (a Aggregate) String() string {
	switch a {
	case AggregateMin:
		return "MIN"
	case AggregateMax:
		return "MAX"
	case AggregateSum:
		return "SUM"
	case AggregateAvg:
		return "AVG"
	case AggregateCount:
		return "COUNT"
	default:
		return ""
	}
}

// Operator is a condition comparison.
type Operator string

const (
	OpEqual       Operator = "="
	OpNotEqual    Operator = "<>"
	OpLike        Operator = "like"
	OpNotLike     Operator = "not like"
	OpGreaterThan Operator = ">"
	OpLessThan    Operator = "<"
)
