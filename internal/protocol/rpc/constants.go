package rpc

// API Numbers
// These identify the server-side function a request is routed to.
const (
	// APIQuerySpecColl lists the contents of a mounted or structured-file collection
	APIQuerySpecColl int32 = 613

	// APIObjStat returns the status descriptor of a logical path
	APIObjStat int32 = 633

	// APIMiscServerInfo returns release and variant information about the server
	APIMiscServerInfo int32 = 700

	// APIGenQuery executes a general catalog query
	APIGenQuery int32 = 702
)

// APIName returns a short label for logs and metrics.
func APIName(api int32) string {
	switch api {
	case APIQuerySpecColl:
		return "query_spec_coll"
	case APIObjStat:
		return "obj_stat"
	case APIMiscServerInfo:
		return "misc_server_info"
	case APIGenQuery:
		return "gen_query"
	default:
		return "unknown"
	}
}

// Status codes carried in the message header.
// Zero is success; the negative values mirror the data grid's error table.
const (
	StatusOK int32 = 0

	// StatusUserFileDoesNotExist is returned by objstat for an absent path
	StatusUserFileDoesNotExist int32 = -310000

	// StatusObjPathDoesNotExist is returned when a parent path is absent
	StatusObjPathDoesNotExist int32 = -358000

	// StatusNoRowsFound is returned by queries with an empty result
	StatusNoRowsFound int32 = -808000

	// StatusCatalogInvalidArgument is returned for a malformed query
	StatusCatalogInvalidArgument int32 = -816000

	// StatusSysInternalError is a generic server-side failure
	StatusSysInternalError int32 = -154000

	// StatusAPINotSupported is returned for an unknown API number
	StatusAPINotSupported int32 = -12000

	// File driver errors occupy [-599999, -500000].
	StatusFileDriverErrorMin int32 = -599999
	StatusFileDriverErrorMax int32 = -500000

	// StatusStructFileEmpty is the file driver error raised when a
	// structured file has no members to list
	StatusStructFileEmpty int32 = -507000
)

// IsFileDriverStatus reports whether status is in the file driver range.
func IsFileDriverStatus(status int32) bool {
	return status >= StatusFileDriverErrorMin && status <= StatusFileDriverErrorMax
}

// IsNotFoundStatus reports whether status means the target does not exist.
func IsNotFoundStatus(status int32) bool {
	return status == StatusUserFileDoesNotExist || status == StatusObjPathDoesNotExist
}

// maxMessageSize bounds a single reassembled message (64 MiB).
const maxMessageSize = 64 << 20
