package sql

import (
	"context"
	"database/sql"
	"time"
)

// Conn is one pooled database session. It tracks its creation time, the
// time it last executed a statement, and whether it has been closed.
//
// A Conn is owned by exactly one caller at a time; the pool's checkout and
// checkin protocol is the sole enforcement mechanism, so the struct itself
// carries no lock. The freed flag and freedAt stamp are pool bookkeeping,
// guarded by the pool mutex.
type Conn struct {
	raw *sql.Conn
	tx  *sql.Tx // non-nil while a transaction is open on this session

	createdAt time.Time
	lastUsed  time.Time
	closed    bool

	freed   bool
	freedAt time.Time
	index   int // heap position in the pool's free list
}

func newConn(raw *sql.Conn) *Conn {
	now := time.Now()
	return &Conn{raw: raw, createdAt: now, lastUsed: now, index: -1}
}

// CreatedAt returns the time the session was opened.
func (c *Conn) CreatedAt() time.Time { return c.createdAt }

// LastUsed returns the time the session last executed a statement.
func (c *Conn) LastUsed() time.Time { return c.lastUsed }

// Closed reports whether the session has been closed.
func (c *Conn) Closed() bool { return c.closed }

func (c *Conn) touch() { c.lastUsed = time.Now() }

// ExecContext executes a statement on this session, routing through the
// open transaction if one exists.
func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	c.touch()
	if c.tx != nil {
		return c.tx.ExecContext(ctx, query, args...)
	}
	return c.raw.ExecContext(ctx, query, args...)
}

// QueryContext executes a query on this session, routing through the open
// transaction if one exists.
func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	c.touch()
	if c.tx != nil {
		return c.tx.QueryContext(ctx, query, args...)
	}
	return c.raw.QueryContext(ctx, query, args...)
}

// Begin opens a transaction on this session.
func (c *Conn) Begin(ctx context.Context) error {
	if c.tx != nil {
		return nil
	}
	c.touch()
	tx, err := c.raw.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	c.tx = tx
	return nil
}

// Commit commits the open transaction, if any.
func (c *Conn) Commit() error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Commit()
	c.tx = nil
	return err
}

// Rollback rolls back the open transaction, if any.
func (c *Conn) Rollback() error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Rollback()
	c.tx = nil
	return err
}

// Close closes the underlying session. It is a no-op on an already-closed
// connection. An open transaction is rolled back first.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.tx != nil {
		_ = c.tx.Rollback()
		c.tx = nil
	}
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}
