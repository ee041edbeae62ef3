package rpc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/marmos91/dittogrid/internal/protocol/tag"
	xdr "github.com/rasky/go-xdr/xdr2"
)

// ============================================================================
// Record Marking - Message Framing over a Stream
// ============================================================================
//
// Each message is sent as one or more fragments. A fragment starts with a
// 4-byte big-endian header: the high bit marks the last fragment and the low
// 31 bits hold the fragment length. Writers always emit a single fragment;
// readers accept any number.

type fragmentHeader struct {
	IsLast bool
	Length uint32
}

func readFragmentHeader(r io.Reader) (fragmentHeader, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return fragmentHeader{}, err
	}

	header := binary.BigEndian.Uint32(buf[:])
	return fragmentHeader{
		IsLast: (header & 0x80000000) != 0,
		Length: header & 0x7FFFFFFF,
	}, nil
}

// readRecord reassembles one record from its fragments.
func readRecord(r io.Reader) ([]byte, error) {
	var record []byte
	for {
		header, err := readFragmentHeader(r)
		if err != nil {
			if len(record) > 0 && err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}

		if len(record)+int(header.Length) > maxMessageSize {
			return nil, fmt.Errorf("message exceeds maximum size %d", maxMessageSize)
		}

		fragment := make([]byte, header.Length)
		if _, err := io.ReadFull(r, fragment); err != nil {
			return nil, fmt.Errorf("read fragment: %w", err)
		}
		record = append(record, fragment...)

		if header.IsLast {
			return record, nil
		}
	}
}

// WriteMessage encodes header and body and writes them as one record.
//
// Parameters:
//   - w: Destination stream (a net.Conn in practice)
//   - header: Message header; HasBody is set from body
//   - body: Optional tag tree (nil for none)
func WriteMessage(w io.Writer, header MessageHeader, body *tag.Tag) error {
	header.HasBody = body != nil

	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0}) // fragment header placeholder

	if _, err := xdr.Marshal(&buf, &header); err != nil {
		return fmt.Errorf("marshal header: %w", err)
	}

	if body != nil {
		if err := tag.Encode(&buf, body); err != nil {
			return err
		}
	}

	data := buf.Bytes()
	length := len(data) - 4
	if length > maxMessageSize {
		return fmt.Errorf("message exceeds maximum size %d", maxMessageSize)
	}
	binary.BigEndian.PutUint32(data[:4], 0x80000000|uint32(length))

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// ReadMessage reads and decodes one record.
//
// Returns io.EOF unchanged when the stream ends cleanly between messages so
// server loops can tell a closed connection from a protocol error.
func ReadMessage(r io.Reader) (*Message, error) {
	record, err := readRecord(r)
	if err != nil {
		return nil, err
	}

	reader := bytes.NewReader(record)

	var header MessageHeader
	if _, err := xdr.Unmarshal(reader, &header); err != nil {
		return nil, fmt.Errorf("unmarshal header: %w", err)
	}

	msg := &Message{Header: header}
	if header.HasBody {
		body, err := tag.Decode(reader)
		if err != nil {
			return nil, err
		}
		msg.Body = body
	}

	return msg, nil
}
