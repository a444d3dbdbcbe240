// Package executor runs formatted commands against a storage session and
// materializes result rows back through a projection's projector.
package executor

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Param is one named command parameter.
type Param struct {
	Name  string
	Value any
}

// Cursor is a single-pass reader over a command's result rows.
type Cursor interface {
	// Advance moves to the next row, returning false at the end or on
	// failure.
	Advance() bool

	// Value returns the current row's i-th column value.
	Value(i int) any

	// Err returns the failure that ended iteration, if any.
	Err() error

	// Close releases the cursor. Safe to call more than once.
	Close() error
}

// Session is the storage collaborator boundary. Implementations own
// connection management; the executor only prepares, fetches and closes.
type Session interface {
	// Quote returns the dialect quoting of an identifier.
	Quote(ident string) string

	// PrepareAndExecute runs a query command and returns a cursor over its
	// rows.
	PrepareAndExecute(ctx context.Context, commandText string, params []Param) (Cursor, error)

	// ExecuteCommand runs a non-query command and returns the affected row
	// count.
	ExecuteCommand(ctx context.Context, commandText string, params []Param) (int64, error)
}

// SQLiteSession is the database/sql + mattn/go-sqlite3 Session.
type SQLiteSession struct {
	db *sql.DB
}

// Open opens (creating if absent) a SQLite database and applies the
// standing pragma configuration.
func Open(path string) (*SQLiteSession, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return &SQLiteSession{db: db}, nil
}

// NewSQLiteSession wraps an already-configured database handle. Used by
// tests that manage the handle themselves.
func NewSQLiteSession(db *sql.DB) *SQLiteSession {
	return &SQLiteSession{db: db}
}

// Close closes the underlying handle.
func (s *SQLiteSession) Close() error { return s.db.Close() }

// DB exposes the underlying handle for schema setup.
func (s *SQLiteSession) DB() *sql.DB { return s.db }

// Quote implements Session.
func (s *SQLiteSession) Quote(ident string) string {
	return `"` + ident + `"`
}

// PrepareAndExecute implements Session.
func (s *SQLiteSession) PrepareAndExecute(ctx context.Context, commandText string, params []Param) (Cursor, error) {
	rows, err := s.db.QueryContext(ctx, commandText, namedArgs(params)...)
	if err != nil {
		return nil, err
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, err
	}
	return &sqlCursor{rows: rows, buf: make([]any, len(cols))}, nil
}

// ExecuteCommand implements Session.
func (s *SQLiteSession) ExecuteCommand(ctx context.Context, commandText string, params []Param) (int64, error) {
	res, err := s.db.ExecContext(ctx, commandText, namedArgs(params)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func namedArgs(params []Param) []any {
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = sql.Named(p.Name, p.Value)
	}
	return args
}

type sqlCursor struct {
	rows   *sql.Rows
	buf    []any
	err    error
	closed bool
}

func (c *sqlCursor) Advance() bool {
	if c.err != nil || c.closed {
		return false
	}
	if !c.rows.Next() {
		c.err = c.rows.Err()
		return false
	}
	ptrs := make([]any, len(c.buf))
	for i := range c.buf {
		ptrs[i] = &c.buf[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		c.err = err
		return false
	}
	return true
}

func (c *sqlCursor) Value(i int) any { return c.buf[i] }

func (c *sqlCursor) Err() error { return c.err }

func (c *sqlCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rows.Close()
}
