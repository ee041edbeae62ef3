package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/marmos91/dittogrid/internal/protocol/packinstr"
)

// Row is one result row with values addressed by Field.
type Row struct {
	values      map[Field]string
	recordCount int
	last        bool
}

// NewRow builds a row, mainly for tests and the simulator.
func NewRow(values map[Field]string, recordCount int, last bool) Row {
	return Row{values: values, recordCount: recordCount, last: last}
}

// String returns the raw value of f.
func (r Row) String(f Field) (string, error) {
	v, ok := r.values[f]
	if !ok {
		return "", fmt.Errorf("column %s not in result", f)
	}
	return v, nil
}

// Int parses f as an int.
func (r Row) Int(f Field) (int, error) {
	v, err := r.String(f)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", f, err)
	}
	return n, nil
}

// IntOrZero parses f as an int, returning 0 for a missing, empty or
// malformed value.
func (r Row) IntOrZero(f Field) int {
	n, err := r.Int(f)
	if err != nil {
		return 0
	}
	return n
}

// Int64OrZero is the int64 variant of IntOrZero.
func (r Row) Int64OrZero(f Field) int64 {
	v, err := r.String(f)
	if err != nil {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Time parses f as seconds since the epoch. Values are zero-padded
// decimal strings such as "01379087283".
func (r Row) Time(f Field) (time.Time, error) {
	v, err := r.String(f)
	if err != nil {
		return time.Time{}, err
	}
	return ParseTimestamp(v)
}

// RecordCount is the 1-based position of the row in the whole result,
// counting rows from earlier pages.
func (r Row) RecordCount() int {
	return r.recordCount
}

// IsLast reports whether no further rows exist after this one.
func (r Row) IsLast() bool {
	return r.last
}

// ParseTimestamp parses an epoch-seconds string. An empty value yields the
// zero time.
func ParseTimestamp(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", v, err)
	}
	return time.Unix(secs, 0).UTC(), nil
}

// FormatTimestamp renders t the way the server does.
func FormatTimestamp(t time.Time) string {
	return fmt.Sprintf("%011d", t.Unix())
}

// ResultSet is one page of results.
type ResultSet struct {
	Rows []Row

	// TotalRecords is the server's total row count when it was requested,
	// otherwise the number of rows seen so far.
	TotalRecords int

	// HasMore reports that the server holds further rows.
	HasMore bool

	// ContinuationIndex is the server cursor for the next page, 0 when done.
	ContinuationIndex int
}

// RowsFromOutput converts a GenQueryOut_PI payload into named rows.
//
// Parameters:
//   - out: Parsed reply
//   - offset: Number of rows that precede this page, for RecordCount
//
// The final row is marked last when the reply carries no continuation.
func RowsFromOutput(out *packinstr.GenQueryOutput, offset int) []Row {
	rows := make([]Row, out.RowCount)
	for i := range rows {
		values := make(map[Field]string, len(out.Columns))
		for _, col := range out.Columns {
			values[Field(col.AttributeIndex)] = col.Values[i]
		}
		rows[i] = Row{values: values, recordCount: offset + i + 1}
	}
	if len(rows) > 0 && out.ContinueIndex == 0 {
		rows[len(rows)-1].last = true
	}
	return rows
}
