package sql

import "context"

// Tx is an execution context pinned to one pooled connection for its whole
// lifetime. Statements run through the same session methods as Database,
// but acquire always yields the pinned connection and release only records
// errors. A Tx is owned by one goroutine by contract, like the connection
// it pins.
type Tx struct {
	session
	conn   *Conn
	pool   *Pool
	inner  bool
	err    error
	closed bool
}

// Tx returns a nested transaction sharing this transaction's connection.
// Nested transactions cannot commit; only the outermost commit is
// effective.
func (tx *Tx) Tx(_ context.Context) (*Tx, error) {
	if tx.closed {
		return nil, ErrTxDone
	}
	inner := &Tx{conn: tx.conn, pool: tx.pool, inner: true}
	inner.session = session{src: inner, db: tx.session.db}
	return inner, nil
}

func (tx *Tx) acquire(_ context.Context) (*Conn, error) {
	if tx.closed {
		return nil, ErrTxDone
	}
	return tx.conn, nil
}

// release records the statement error; an operational failure closes the
// transaction so the pool can retire the connection.
func (tx *Tx) release(_ *Conn, err error) {
	if err == nil {
		return
	}
	tx.err = err
	_ = tx.Close()
}

// Commit commits the transaction and reports whether the commit actually
// happened: a nested transaction returns false and defers to the outermost
// transaction's eventual commit or rollback.
func (tx *Tx) Commit() (bool, error) {
	if tx.inner {
		return false, nil
	}
	if tx.closed {
		return false, ErrTxDone
	}
	err := wrapError(tx.conn.Commit())
	if err != nil {
		tx.err = err
	}
	return err == nil, err
}

// Rollback rolls back the transaction.
func (tx *Tx) Rollback() error {
	if tx.closed {
		return ErrTxDone
	}
	err := wrapError(tx.conn.Rollback())
	if err != nil {
		tx.err = err
	}
	return err
}

// Close returns the pinned connection to the pool exactly once, carrying
// forward the last observed error so the pool can retire it if needed. A
// nested transaction's Close leaves the connection with the outermost
// transaction.
func (tx *Tx) Close() error {
	if tx.closed {
		return nil
	}
	tx.closed = true
	if tx.inner {
		return nil
	}
	// An uncommitted transaction must not leak into the next checkout.
	if err := wrapError(tx.conn.Rollback()); err != nil && tx.err == nil {
		tx.err = err
	}
	tx.pool.Free(tx.conn, tx.err)
	return nil
}
