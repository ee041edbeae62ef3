package metrics

import "time"

// ServerMetrics provides observability for the grid simulator.
//
// Implementations collect request latency per API and connection lifecycle
// counters.
type ServerMetrics interface {
	// RecordRequest records a handled request.
	//
	// Parameters:
	//   - api: API label (see rpc.APIName)
	//   - duration: Time spent in the handler
	//   - status: Status code written in the reply header
	RecordRequest(api string, duration time.Duration, status int32)

	// SetActiveConnections updates the current connection count.
	SetActiveConnections(count int32)

	// RecordConnectionAccepted increments the total accepted connections counter.
	RecordConnectionAccepted()

	// RecordConnectionClosed increments the total closed connections counter.
	RecordConnectionClosed()
}

// NewNoopServerMetrics returns a ServerMetrics that discards everything.
func NewNoopServerMetrics() ServerMetrics {
	return noopServerMetrics{}
}

type noopServerMetrics struct{}

func (noopServerMetrics) RecordRequest(api string, duration time.Duration, status int32) {}
func (noopServerMetrics) SetActiveConnections(count int32)                               {}
func (noopServerMetrics) RecordConnectionAccepted()                                      {}
func (noopServerMetrics) RecordConnectionClosed()                                        {}
