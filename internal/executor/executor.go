package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/relq/internal/relerr"
	"github.com/roach88/relq/internal/sqlrel"
)

// Execute runs a formatted query and returns the lazy row sequence. Nothing
// is fetched until the first Next; each Next fetches one row and applies
// the projection's projector.
func Execute(ctx context.Context, sess Session, commandText string, proj *sqlrel.Projection, params []Param) (*Rows, error) {
	execID := uuid.NewString()
	eval, err := newProjEval(proj)
	if err != nil {
		return nil, relerr.NewExecution(execID, "prepare", err)
	}
	cursor, err := sess.PrepareAndExecute(ctx, commandText, params)
	if err != nil {
		return nil, relerr.NewExecution(execID, "prepare", err)
	}
	return &Rows{execID: execID, cursor: cursor, eval: eval}, nil
}

// ExecuteValue runs a query whose projection collapses to a single value
// and applies the aggregator semantics: Scalar and First require a row,
// FirstOrDefault yields nil on none, Single rejects more than one.
func ExecuteValue(ctx context.Context, sess Session, commandText string, proj *sqlrel.Projection, params []Param) (any, error) {
	rows, err := Execute(ctx, sess, commandText, proj, params)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		switch proj.Aggregator {
		case sqlrel.AggregatorFirstOrDefault:
			return nil, nil
		default:
			return nil, relerr.NewExecution(rows.execID, "fetch", fmt.Errorf("result has no rows"))
		}
	}
	value := rows.Row()

	if proj.Aggregator == sqlrel.AggregatorSingle && rows.Next() {
		return nil, relerr.NewExecution(rows.execID, "fetch", fmt.Errorf("result has more than one row"))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return value, nil
}

// ExecuteCommand runs a non-query command and returns the affected row
// count.
func ExecuteCommand(ctx context.Context, sess Session, commandText string, params []Param) (int64, error) {
	execID := uuid.NewString()
	n, err := sess.ExecuteCommand(ctx, commandText, params)
	if err != nil {
		return 0, relerr.NewExecution(execID, "prepare", err)
	}
	return n, nil
}

// Rows is a lazy, single-consumer result sequence. It is not restartable;
// Close releases the cursor exactly once regardless of how iteration ends.
type Rows struct {
	execID string
	cursor Cursor
	eval   *projEval

	row any
	err error

	closeOnce sync.Once
	closeErr  error
}

// ExecID identifies this execution in error context.
func (r *Rows) ExecID() string { return r.execID }

// Next fetches and projects the next row. It returns false at the end of
// the result or on failure, closing the cursor either way; rows already
// yielded stand.
func (r *Rows) Next() bool {
	if r.err != nil {
		return false
	}
	if !r.cursor.Advance() {
		if cerr := r.cursor.Err(); cerr != nil {
			r.err = relerr.NewExecution(r.execID, "fetch", cerr)
		}
		r.Close()
		return false
	}
	value, err := r.eval.project(r.cursor)
	if err != nil {
		r.err = relerr.NewExecution(r.execID, "project", err)
		r.Close()
		return false
	}
	r.row = value
	return true
}

// Row returns the value projected by the last successful Next.
func (r *Rows) Row() any { return r.row }

// Err returns the failure that terminated iteration, if any.
func (r *Rows) Err() error { return r.err }

// Close releases the cursor. Safe to call at any point and from any exit
// path; only the first call reaches the cursor.
func (r *Rows) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.cursor.Close()
	})
	return r.closeErr
}
