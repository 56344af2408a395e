package sql

import (
	"database/sql"

	"github.com/syssam/om/dialect"
)

// Row is one scanned result row. Column order matches the projection, so
// positional access via Values stays aligned with the query's select list.
type Row struct {
	columns []string
	values  []any
	index   map[string]int
}

// Columns returns the column names in projection order.
func (r *Row) Columns() []string { return r.columns }

// Values returns the scanned values in projection order.
func (r *Row) Values() []any { return r.values }

// Value returns the value of the named column.
func (r *Row) Value(name string) (any, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Rows is a lazy, finite, one-pass sequence of rows. The checked-out
// connection backing it is released when iteration completes or Close is
// called; abandoning a Rows without either leaks the connection.
type Rows struct {
	rows    *sql.Rows
	columns []string
	index   map[string]int
	release func(error)
	cur     *Row
	err     error
	closed  bool
}

func newRows(rows *sql.Rows, release func(error)) (*Rows, error) {
	columns, err := rows.Columns()
	if err != nil {
		err = wrapError(err)
		_ = rows.Close()
		release(err)
		return nil, err
	}
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		index[name] = i
	}
	return &Rows{rows: rows, columns: columns, index: index, release: release}, nil
}

// Next advances to the next row. It returns false when the sequence is
// exhausted or a scan fails, releasing the connection either way.
func (r *Rows) Next() bool {
	if r.closed {
		return false
	}
	if !r.rows.Next() {
		r.err = wrapError(r.rows.Err())
		_ = r.Close()
		return false
	}
	values := make([]any, len(r.columns))
	dest := make([]any, len(values))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := r.rows.Scan(dest...); err != nil {
		r.err = wrapError(err)
		_ = r.Close()
		return false
	}
	r.cur = &Row{columns: r.columns, values: values, index: r.index}
	return true
}

// Row returns the current row. It is valid only after a successful Next.
func (r *Rows) Row() dialect.Row { return r.cur }

// Err returns the first error observed during iteration.
func (r *Rows) Err() error { return r.err }

// Close releases the underlying cursor and returns the connection to the
// pool, carrying forward any error observed so a bad connection is retired.
// It is idempotent.
func (r *Rows) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	cerr := wrapError(r.rows.Close())
	if r.err == nil {
		r.err = cerr
	}
	r.release(r.err)
	return cerr
}
