package sql

import (
	"errors"
	"fmt"
)

// Sentinel errors of the connection layer.
var (
	// ErrPoolExhausted is returned by Pool.Allocate when no connection
	// became available within the caller's blocking timeout.
	ErrPoolExhausted = errors.New("sql: connection pool exhausted")

	// ErrMultipleRows is returned by Get when a single-row query
	// produced more than one row.
	ErrMultipleRows = errors.New("sql: multiple rows returned for single-row query")

	// ErrTxDone is returned when a statement runs on a closed transaction.
	ErrTxDone = errors.New("sql: transaction has already been closed")
)

// OperationalError wraps a backend connectivity or statement failure so that
// callers never depend on a driver-specific error type. The pool retires any
// connection freed with an operational error.
type OperationalError struct {
	err error
}

// Error returns the error string.
func (e *OperationalError) Error() string {
	return fmt.Sprintf("sql: operational: %v", e.err)
}

// Unwrap returns the underlying driver error.
func (e *OperationalError) Unwrap() error { return e.err }

// IsOperational reports whether err is, or wraps, an operational failure of
// the underlying connection.
func IsOperational(err error) bool {
	if err == nil {
		return false
	}
	var oe *OperationalError
	return errors.As(err, &oe)
}
