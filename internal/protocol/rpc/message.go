package rpc

import "github.com/marmos91/dittogrid/internal/protocol/tag"

// MessageHeader precedes every body on the wire.
//
// Requests carry Status 0. Replies echo the request XID and APINumber and
// set Status to the outcome. HasBody is false for error replies and for
// requests without parameters.
type MessageHeader struct {
	XID       uint32
	APINumber int32
	Status    int32
	HasBody   bool
}

// Message is a decoded header plus its optional body.
type Message struct {
	Header MessageHeader
	Body   *tag.Tag
}
