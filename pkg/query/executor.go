package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/internal/protocol/packinstr"
	"github.com/marmos91/dittogrid/internal/protocol/rpc"
	"github.com/marmos91/dittogrid/pkg/session"
)

// Executor runs a query and returns one page.
//
// Parameters:
//   - q: Built query
//   - offset: Rows to skip (0 for the first page)
//   - zone: Zone to query, "" for the session's zone
type Executor interface {
	Execute(ctx context.Context, q *Query, offset int, zone string) (*ResultSet, error)
}

// WireExecutor executes queries over a session.
type WireExecutor struct {
	caller session.Caller
}

// NewWireExecutor returns an Executor issuing GenQuery calls on caller.
func NewWireExecutor(caller session.Caller) *WireExecutor {
	return &WireExecutor{caller: caller}
}

// Execute runs q starting at offset.
//
// An empty result is a ResultSet with no rows, not an error. When the
// server keeps a cursor open for more rows, the cursor is closed before
// returning: paging is done by offset, one query per page.
func (e *WireExecutor) Execute(ctx context.Context, q *Query, offset int, zone string) (*ResultSet, error) {
	in := q.Input(offset, zone)

	body, err := e.caller.Call(ctx, rpc.APIGenQuery, in.Tag())
	if errors.Is(err, session.ErrNoData) {
		return &ResultSet{TotalRecords: offset}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrExecute, q, err)
	}

	out, err := packinstr.ParseGenQueryOutput(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrExecute, q, err)
	}

	rs := &ResultSet{
		Rows:              RowsFromOutput(out, offset),
		HasMore:           out.ContinueIndex > 0,
		ContinuationIndex: out.ContinueIndex,
		TotalRecords:      out.TotalRowCount,
	}
	if !q.ComputeTotal || rs.TotalRecords == 0 {
		rs.TotalRecords = offset + len(rs.Rows)
	}

	if rs.HasMore {
		e.close(ctx, in, out.ContinueIndex)
	}

	return rs, nil
}

// close releases a server cursor by asking for zero more rows.
func (e *WireExecutor) close(ctx context.Context, in packinstr.GenQueryInput, continueIndex int) {
	in.MaxRows = 0
	in.ContinueIndex = continueIndex

	if _, err := e.caller.Call(ctx, rpc.APIGenQuery, in.Tag()); err != nil && !errors.Is(err, session.ErrNoData) {
		logger.Warn("close query cursor %d: %v", continueIndex, err)
	}
}
