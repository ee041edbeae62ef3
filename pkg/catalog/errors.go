package catalog

import (
	"errors"
	"fmt"
)

// CatalogError is a domain error from resolution, listing or counting.
//
// Callers branch on Code; Err keeps the underlying transport or query
// failure for diagnostics.
type CatalogError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the logical path the operation was working on (if applicable)
	Path string

	// Err is the underlying cause, if any
	Err error
}

// Error implements the error interface.
func (e *CatalogError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *CatalogError) Unwrap() error {
	return e.Err
}

// ErrorCode represents the category of a catalog error.
type ErrorCode int

const (
	// ErrInvalidArgument indicates bad caller input (empty or relative path)
	ErrInvalidArgument ErrorCode = iota

	// ErrNotFound indicates the path does not exist, or a fallback listing
	// does not apply to it. This is an expected outcome, not a failure.
	ErrNotFound

	// ErrPathTooLong indicates the path exceeds the protocol maximum
	ErrPathTooLong

	// ErrPathComputation indicates a special collection descriptor from
	// which no canonical path can be derived
	ErrPathComputation

	// ErrUnknownSpecialCollection indicates an unsupported collection class
	ErrUnknownSpecialCollection

	// ErrQuery indicates a catalog query could not be built or executed
	ErrQuery

	// ErrNotACollection indicates a collection-only operation on a data object
	ErrNotACollection

	// ErrMalformedResponse indicates a reply missing required fields
	ErrMalformedResponse

	// ErrTransport indicates any other failure of the remote call
	ErrTransport
)

func (c ErrorCode) String() string {
	switch c {
	case ErrInvalidArgument:
		return "invalid argument"
	case ErrNotFound:
		return "not found"
	case ErrPathTooLong:
		return "path too long"
	case ErrPathComputation:
		return "path computation"
	case ErrUnknownSpecialCollection:
		return "unknown special collection"
	case ErrQuery:
		return "query"
	case ErrNotACollection:
		return "not a collection"
	case ErrMalformedResponse:
		return "malformed response"
	case ErrTransport:
		return "transport"
	default:
		return fmt.Sprintf("code %d", int(c))
	}
}

func newError(code ErrorCode, path, message string, err error) *CatalogError {
	return &CatalogError{Code: code, Message: message, Path: path, Err: err}
}

// IsCode reports whether err is a CatalogError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var ce *CatalogError
	return errors.As(err, &ce) && ce.Code == code
}

// IsNotFound reports whether err means the path does not exist.
func IsNotFound(err error) bool {
	return IsCode(err, ErrNotFound)
}
