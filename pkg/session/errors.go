package session

import (
	"errors"
	"fmt"

	"github.com/marmos91/dittogrid/internal/protocol/rpc"
)

var (
	// ErrNotFound is matched by a StatusError whose status means the
	// requested entity does not exist.
	ErrNotFound = errors.New("session: not found")

	// ErrNoData is matched by a StatusError signalling an empty result or
	// the end of a paged result.
	ErrNoData = errors.New("session: no data")

	// ErrClosed is returned by Call after Close.
	ErrClosed = errors.New("session: closed")
)

// StatusError is a non-zero status returned by the server.
type StatusError struct {
	API    int32
	Status int32
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed with status %d", rpc.APIName(e.API), e.Status)
}

// Is lets errors.Is match ErrNotFound and ErrNoData against the status.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return rpc.IsNotFoundStatus(e.Status)
	case ErrNoData:
		return e.Status == rpc.StatusNoRowsFound
	}
	return false
}

// IsFileDriverError reports whether the status is in the file driver range.
// Listing an empty structured file ends with such a status.
func (e *StatusError) IsFileDriverError() bool {
	return rpc.IsFileDriverStatus(e.Status)
}

// IsFileDriverError reports whether err wraps a file driver StatusError.
func IsFileDriverError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.IsFileDriverError()
}
