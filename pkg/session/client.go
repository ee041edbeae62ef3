// Package session provides the remote-call substrate used by the catalog:
// one TCP connection per account, serial request/reply round trips, and the
// status-code mapping the resolution and listing layers branch on.
package session

import (
	"context"

	"github.com/marmos91/dittogrid/internal/protocol/tag"
)

// Caller sends one request body to an API and returns the reply body.
//
// Implementations return an error matching ErrNotFound when the server
// reports the entity absent, ErrNoData for empty or exhausted results, and
// a *StatusError for every other non-zero status.
type Caller interface {
	Call(ctx context.Context, api int32, request *tag.Tag) (*tag.Tag, error)
}

// PropertiesProvider exposes what the connected server supports.
type PropertiesProvider interface {
	ServerProperties(ctx context.Context) (ServerProperties, error)
}

// Client is everything the catalog needs from a session.
type Client interface {
	Caller
	PropertiesProvider
	Account() Account
}
