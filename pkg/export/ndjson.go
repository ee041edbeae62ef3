package export

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"sync"
)

// DefaultBufferSize is the default buffer size for record writers.
const DefaultBufferSize = 64 * 1024

// ErrWriterClosed is returned by writes after Close.
var ErrWriterClosed = errors.New("export: writer closed")

// RecordWriter writes one JSON document per line.
type RecordWriter struct {
	w      *bufio.Writer
	enc    *json.Encoder
	closer io.Closer
	closed bool
	count  int
	mu     sync.Mutex
}

// NewRecordWriter creates a RecordWriter on w. Closing the RecordWriter
// closes w.
func NewRecordWriter(w io.WriteCloser) *RecordWriter {
	bw := bufio.NewWriterSize(w, DefaultBufferSize)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &RecordWriter{w: bw, enc: enc, closer: w}
}

// Write encodes r as a single line.
func (w *RecordWriter) Write(r Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}
	if err := w.enc.Encode(r); err != nil {
		return err
	}
	w.count++
	return nil
}

// Count returns the number of records written.
func (w *RecordWriter) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close flushes buffered records and closes the underlying writer.
func (w *RecordWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.w.Flush(); err != nil {
		_ = w.closer.Close()
		return err
	}
	return w.closer.Close()
}
