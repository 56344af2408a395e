package sql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/syssam/om/dialect"
)

// connSource yields the connection a statement runs on and takes it back
// together with the error observed while it was out.
type connSource interface {
	acquire(ctx context.Context) (*Conn, error)
	release(c *Conn, err error)
}

// Database binds statements to a bounded pool of reusable connections.
// Every statement allocates a connection, validates that it is healthy,
// executes, and returns the connection to the pool in a deferred block,
// passing along any error so the pool can retire a bad connection.
type Database struct {
	session
	pool *Pool

	dialect string
	maxIdle time.Duration
	wait    time.Duration

	stats         *QueryStats
	slowThreshold time.Duration
	slowHook      SlowQueryHook
	debug         bool
}

// Option configures a Database.
type Option func(*Database)

// WithMaxIdleTime bounds how long a freed connection may sit idle before
// the health gate retires it on the next checkout. Zero or less disables
// the bound.
func WithMaxIdleTime(d time.Duration) Option {
	return func(db *Database) { db.maxIdle = d }
}

// WithAllocateTimeout sets how long a statement may block waiting for a
// pooled connection. Zero fails immediately on an exhausted pool; negative
// waits indefinitely. The default fails immediately.
func WithAllocateTimeout(d time.Duration) Option {
	return func(db *Database) { db.wait = d }
}

// WithDebugLog logs every statement and its arguments through slog before
// execution.
func WithDebugLog() Option {
	return func(db *Database) { db.debug = true }
}

// NewDatabase returns a Database executing over a pool of at most maxOpen
// connections opened through drv.
func NewDatabase(drv *Driver, maxOpen int, opts ...Option) *Database {
	db := &Database{
		pool:          NewPool(drv, maxOpen),
		dialect:       drv.Dialect(),
		stats:         &QueryStats{},
		slowThreshold: defaultSlowThreshold,
	}
	db.session = session{src: db, db: db}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Pool returns the underlying connection pool.
func (db *Database) Pool() *Pool { return db.pool }

// acquire allocates a healthy connection, retiring stale or closed ones
// until the pool yields a usable session.
func (db *Database) acquire(ctx context.Context) (*Conn, error) {
	for {
		c, err := db.pool.Allocate(ctx, db.wait)
		if err != nil {
			return nil, err
		}
		if db.healthy(c) {
			return c, nil
		}
		_ = db.pool.Close(c)
	}
}

// healthy reports whether a checked-out connection may run a statement:
// not closed, and idle no longer than the configured max-idle bound.
func (db *Database) healthy(c *Conn) bool {
	if c.Closed() {
		return false
	}
	return db.maxIdle <= 0 || time.Since(c.LastUsed()) <= db.maxIdle
}

func (db *Database) release(c *Conn, err error) {
	db.pool.Free(c, err)
}

// Tx allocates a connection, begins a transaction on it, and returns an
// execution context pinned to that connection until Close.
func (db *Database) Tx(ctx context.Context) (*Tx, error) {
	c, err := db.acquire(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.Begin(ctx); err != nil {
		err = wrapError(err)
		db.release(c, err)
		return nil, err
	}
	tx := &Tx{conn: c, pool: db.pool}
	tx.session = session{src: tx, db: db}
	return tx, nil
}

// session carries the statement methods shared by Database and Tx. The
// source decides where connections come from; the database supplies
// dialect, statistics, and logging.
type session struct {
	src connSource
	db  *Database
}

// Dialect returns the backend dialect name.
func (s *session) Dialect() string { return s.db.dialect }

// prepare expands slice-valued IN arguments and rewrites placeholders for
// dialects that do not use `?`.
func (s *session) prepare(query string, args []any) (string, []any, error) {
	query, args, err := expandArgs(query, args)
	if err != nil {
		return "", nil, err
	}
	if s.db.dialect == dialect.Postgres {
		query = rebind(query)
	}
	return query, args, nil
}

// Iter executes a query and returns a lazy row iterator holding the
// checked-out connection until it is exhausted or closed.
func (s *session) Iter(ctx context.Context, query string, args ...any) (dialect.RowIter, error) {
	query, args, err := s.prepare(query, args)
	if err != nil {
		return nil, err
	}
	s.logStatement(ctx, "query", query, args)
	c, err := s.src.acquire(ctx)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := c.QueryContext(ctx, query, args...)
	s.db.record(ctx, query, args, start, err, true)
	if err != nil {
		err = wrapError(err)
		s.src.release(c, err)
		return nil, err
	}
	return newRows(rows, func(err error) { s.src.release(c, err) })
}

// Query executes a query and returns all rows.
func (s *session) Query(ctx context.Context, query string, args ...any) ([]dialect.Row, error) {
	it, err := s.Iter(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var rows []dialect.Row
	for it.Next() {
		rows = append(rows, it.Row())
	}
	return rows, it.Err()
}

// Get returns the single row produced by the query, nil if it matched
// nothing, and ErrMultipleRows if it matched more than one.
func (s *session) Get(ctx context.Context, query string, args ...any) (dialect.Row, error) {
	it, err := s.Iter(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer it.Close()
	var row dialect.Row
	for it.Next() {
		if row != nil {
			return nil, fmt.Errorf("%w: %s", ErrMultipleRows, query)
		}
		row = it.Row()
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *session) execResult(ctx context.Context, query string, args []any) (res sql.Result, err error) {
	query, args, err = s.prepare(query, args)
	if err != nil {
		return nil, err
	}
	s.logStatement(ctx, "exec", query, args)
	c, err := s.src.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { s.src.release(c, err) }()
	start := time.Now()
	res, err = c.ExecContext(ctx, query, args...)
	err = wrapError(err)
	s.db.record(ctx, query, args, start, err, false)
	return res, err
}

// ExecAffected executes a statement and returns the affected row count.
func (s *session) ExecAffected(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.execResult(ctx, query, args)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return n, wrapError(err)
}

// ExecLastID executes a statement and returns the last inserted id.
func (s *session) ExecLastID(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.execResult(ctx, query, args)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return id, wrapError(err)
}

func (s *session) logStatement(ctx context.Context, kind, query string, args []any) {
	if s.db.debug {
		slog.InfoContext(ctx, kind, "query", query, "args", args)
	}
}

var (
	_ dialect.ExecQuerier = (*Database)(nil)
	_ dialect.ExecQuerier = (*Tx)(nil)
)
