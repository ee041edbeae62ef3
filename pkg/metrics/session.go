package metrics

import "time"

// SessionMetrics provides observability for the client side of a grid
// connection: one observation per API round trip.
type SessionMetrics interface {
	// RecordCall records a completed API call.
	//
	// Parameters:
	//   - api: API label (see rpc.APIName)
	//   - duration: Round trip time including rate limiter wait
	//   - status: Server status code, 0 on success
	//   - err: Transport error, nil when a reply was received
	RecordCall(api string, duration time.Duration, status int32, err error)

	// RecordBytes records bytes sent or received.
	//
	// Parameters:
	//   - direction: "sent" or "received"
	//   - bytes: Number of bytes
	RecordBytes(direction string, bytes int)
}

// NewNoopSessionMetrics returns a SessionMetrics that discards everything.
func NewNoopSessionMetrics() SessionMetrics {
	return noopSessionMetrics{}
}

type noopSessionMetrics struct{}

func (noopSessionMetrics) RecordCall(api string, duration time.Duration, status int32, err error) {}
func (noopSessionMetrics) RecordBytes(direction string, bytes int)                                {}
