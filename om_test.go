package om

import (
	"context"

	"github.com/syssam/om/dialect"
)

// fakeDB records every statement it is handed and replays canned rows,
// so plan tests can assert on the exact SQL text and argument order.
type fakeDB struct {
	dialect  string
	queries  []string
	args     [][]any
	columns  []string
	rows     [][]any
	affected int64
	lastID   int64
	err      error
}

func (f *fakeDB) Dialect() string {
	if f.dialect == "" {
		return dialect.MySQL
	}
	return f.dialect
}

func (f *fakeDB) record(query string, args []any) {
	f.queries = append(f.queries, query)
	f.args = append(f.args, args)
}

func (f *fakeDB) Iter(_ context.Context, query string, args ...any) (dialect.RowIter, error) {
	f.record(query, args)
	if f.err != nil {
		return nil, f.err
	}
	return &fakeIter{columns: f.columns, rows: f.rows, index: -1}, nil
}

func (f *fakeDB) Get(_ context.Context, query string, args ...any) (dialect.Row, error) {
	f.record(query, args)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.rows) == 0 {
		return nil, nil
	}
	return &fakeRow{columns: f.columns, values: f.rows[0]}, nil
}

func (f *fakeDB) ExecAffected(_ context.Context, query string, args ...any) (int64, error) {
	f.record(query, args)
	return f.affected, f.err
}

func (f *fakeDB) ExecLastID(_ context.Context, query string, args ...any) (int64, error) {
	f.record(query, args)
	return f.lastID, f.err
}

func (f *fakeDB) lastQuery() string {
	if len(f.queries) == 0 {
		return ""
	}
	return f.queries[len(f.queries)-1]
}

func (f *fakeDB) lastArgs() []any {
	if len(f.args) == 0 {
		return nil
	}
	return f.args[len(f.args)-1]
}

type fakeRow struct {
	columns []string
	values  []any
}

func (r *fakeRow) Columns() []string { return r.columns }

func (r *fakeRow) Values() []any { return r.values }

func (r *fakeRow) Value(name string) (any, bool) {
	for i, c := range r.columns {
		if c == name {
			return r.values[i], true
		}
	}
	return nil, false
}

type fakeIter struct {
	columns []string
	rows    [][]any
	index   int
	closed  bool
}

func (it *fakeIter) Next() bool {
	if it.closed || it.index+1 >= len(it.rows) {
		return false
	}
	it.index++
	return true
}

func (it *fakeIter) Row() dialect.Row {
	return &fakeRow{columns: it.columns, values: it.rows[it.index]}
}

func (it *fakeIter) Err() error { return nil }

func (it *fakeIter) Close() error {
	it.closed = true
	return nil
}

// Library fixtures shared across tests.
var (
	bookID     = IntField("id")
	bookName   = StringField("name")
	bookRating = IntField("rating")

	authorID   = IntField("id")
	authorName = StringField("name")

	abID       = IntField("id")
	abAuthorID = IntField("author_id")
	abBookID   = IntField("book_id")

	bookType       = MustEntityType("Book", bookID, bookName, bookRating)
	authorType     = MustEntityType("Author", authorID, authorName)
	authorBookType = MustEntityType("AuthorBook", abID, abAuthorID, abBookID)
)

type fixtures struct {
	db          *fakeDB
	books       *TableMapping
	authors     *TableMapping
	authorBooks *TableMapping
}

func newFixtures() *fixtures {
	db := &fakeDB{}
	return &fixtures{
		db: db,
		books: NewMapping("books", db).
			Column(bookID).
			Column(bookName).
			Column(bookRating).
			Identifiers(bookID).
			Manage(bookType).
			MustBuild(),
		authors: NewMapping("authors", db).
			Column(authorID).
			Column(authorName).
			Identifiers(authorID).
			Manage(authorType).
			MustBuild(),
		authorBooks: NewMapping("author_books", db).
			Column(abID).
			Column(abAuthorID).
			Column(abBookID).
			Identifiers(abID).
			Manage(authorBookType).
			MustBuild(),
	}
}
