// Package dialect defines the statement contract between the mapping layer
// and the connection layer, together with per-backend identifier formatting.
//
// The interfaces here are implemented by the dialect/sql package. Keeping the
// contract in its own package allows the mapping layer to run on anything
// that can execute parameterized SQL: a pooled database, a transaction
// pinned to one connection, or a test double.
package dialect

import "context"

// Dialects supported out of the box.
const (
	MySQL    = "mysql"
	Postgres = "postgres"
	SQLite   = "sqlite"
)

// ExecQuerier is the minimal statement surface a query plan executes on.
// It is implemented by both sql.Database and sql.Tx.
type ExecQuerier interface {
	// Dialect returns the name of the backend dialect.
	Dialect() string
	// Iter executes a query and returns a lazy, one-pass row iterator.
	// The iterator holds a checked-out connection until it is exhausted
	// or closed; callers that abandon it leak the connection.
	Iter(ctx context.Context, query string, args ...any) (RowIter, error)
	// Get returns the single row produced by the query, or nil if the
	// query matched nothing. More than one row is an error.
	Get(ctx context.Context, query string, args ...any) (Row, error)
	// ExecAffected executes a statement and returns the affected row count.
	ExecAffected(ctx context.Context, query string, args ...any) (int64, error)
	// ExecLastID executes a statement and returns the last inserted id.
	ExecLastID(ctx context.Context, query string, args ...any) (int64, error)
}

// Row is one result row with positional order preserved.
type Row interface {
	// Columns returns the column names in projection order.
	Columns() []string
	// Values returns the scanned values in projection order.
	Values() []any
	// Value returns the value of the named column.
	Value(name string) (any, bool)
}

// RowIter is a lazy, finite, one-pass sequence of rows.
type RowIter interface {
	Next() bool
	Row() Row
	Err() error
	Close() error
}

// Quoter formats identifiers for one dialect.
type Quoter struct {
	quote string
}

// Quote returns the quoted form of a single identifier.
func (q Quoter) Quote(ident string) string {
	return q.quote + ident + q.quote
}

// Column returns an alias-qualified, quoted column reference, e.g. `t1`.`id`.
func (q Quoter) Column(alias, column string) string {
	return q.Quote(alias) + "." + q.Quote(column)
}

var quoters = map[string]Quoter{
	MySQL:    {quote: "`"},
	SQLite:   {quote: "`"},
	Postgres: {quote: `"`},
}

// QuoterFor returns the identifier quoter for the named dialect. Unknown
// dialects fall back to backtick quoting.
func QuoterFor(dialect string) Quoter {
	if q, ok := quoters[dialect]; ok {
		return q
	}
	return Quoter{quote: "`"}
}
