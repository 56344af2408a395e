package om

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/om/dialect"
	omsql "github.com/syssam/om/dialect/sql"
)

type library struct {
	db          *omsql.Database
	books       *TableMapping
	authors     *TableMapping
	authorBooks *TableMapping
}

// openLibrary spins up a file-backed sqlite database with the book, author
// and author_books tables. A file is used instead of :memory: since every
// pooled connection of an in-memory database would see its own database.
func openLibrary(t *testing.T) *library {
	t.Helper()
	drv, err := omsql.Open(dialect.SQLite, filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, drv.Close()) })

	db := omsql.NewDatabase(drv, 2)
	ctx := context.Background()
	for _, stmt := range []string{
		"CREATE TABLE books (id INTEGER PRIMARY KEY, name TEXT, rating INTEGER)",
		"CREATE TABLE authors (id INTEGER PRIMARY KEY, name TEXT)",
		"CREATE TABLE author_books (id INTEGER PRIMARY KEY, author_id INTEGER, book_id INTEGER)",
	} {
		_, err := db.ExecAffected(ctx, stmt)
		require.NoError(t, err)
	}
	return &library{
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

func newBook(id int64, name string, rating int64) *Record {
	return bookType.New().
		MustSet("id", id).
		MustSet("name", name).
		MustSet("rating", rating)
}

func newAuthor(id int64, name string) *Record {
	return authorType.New().
		MustSet("id", id).
		MustSet("name", name)
}

func newAuthorBook(id, author, book int64) *Record {
	return authorBookType.New().
		MustSet("id", id).
		MustSet("author_id", author).
		MustSet("book_id", book)
}

func TestSQLiteRoundTrip(t *testing.T) {
	t.Parallel()
	lib := openLibrary(t)
	ctx := context.Background()

	res, err := lib.books.Query().Insert(
		newBook(1, "dune", 9),
		newBook(2, "emma", 7),
		newBook(3, "it", 4),
	).Exec(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.LastID)
	assert.Equal(t, int64(3), res.Count)

	rating := lib.books.C(bookRating)
	rows, err := lib.books.
		Where(rating.GT(0).And(rating.LT(8))).
		Select(bookType).
		OrderBy(lib.books.C(bookID).Asc()).
		All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "emma", rows[0][0].GetString("name"))
	assert.Equal(t, "it", rows[1][0].GetString("name"))

	// Mutate one loaded instance and write only the dirty field back.
	book := rows[0][0]
	assert.False(t, book.Tracking().IsDirty())
	require.NoError(t, book.Set("rating", int64(8)))
	assert.Equal(t, map[string]any{"rating": int64(8)}, book.Tracking().Dirty())

	n, err := lib.books.Query().Save(book).Exec(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.False(t, book.Tracking().IsDirty())

	reloaded, err := lib.books.Where(lib.books.C(bookID).EQ(int64(2))).Select(bookType).First(ctx)
	require.NoError(t, err)
	require.Len(t, reloaded, 1)
	assert.Equal(t, int64(8), reloaded[0].GetInt("rating"))

	// An update whose identifier matches nothing affects zero rows.
	ghost := newBook(404, "ghost", 1)
	n, err = lib.books.Query().Save(ghost).Exec(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Instance deletion binds all identifiers to one IN clause.
	n, err = lib.books.Query().Delete(rows[0][0], rows[1][0]).Exec(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left, err := lib.books.Query().Select(bookType).All(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "dune", left[0][0].GetString("name"))
}

func TestSQLiteJoins(t *testing.T) {
	t.Parallel()
	lib := openLibrary(t)
	ctx := context.Background()

	_, err := lib.books.Query().Insert(newBook(1, "dune", 9), newBook(2, "messiah", 8)).Exec(ctx)
	require.NoError(t, err)
	_, err = lib.authors.Query().Insert(newAuthor(1, "herbert")).Exec(ctx)
	require.NoError(t, err)
	_, err = lib.authorBooks.Query().Insert(
		newAuthorBook(1, 1, 1),
		newAuthorBook(2, 1, 2),
	).Exec(ctx)
	require.NoError(t, err)

	join := func() *Context {
		return lib.authorBooks.
			LeftJoin(lib.books, lib.authorBooks.C(abBookID).EQ(lib.books.C(bookID))).
			LeftJoin(lib.authors, lib.authorBooks.C(abAuthorID).EQ(lib.authors.C(authorID)))
	}

	rows, err := join().
		Select(bookType, authorType).
		OrderBy(lib.books.C(bookRating).Desc()).
		All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "dune", rows[0][0].GetString("name"))
	assert.Equal(t, "herbert", rows[0][1].GetString("name"))
	assert.Equal(t, "messiah", rows[1][0].GetString("name"))

	// The same join with a filter matching nothing yields no rows.
	rows, err = join().
		Where(lib.books.C(bookRating).GT(100)).
		Select(bookType, authorType).
		All(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSQLiteInExpansion(t *testing.T) {
	t.Parallel()
	lib := openLibrary(t)
	ctx := context.Background()

	_, err := lib.books.Query().Insert(
		newBook(1, "a", 1),
		newBook(2, "b", 2),
		newBook(3, "c", 3),
	).Exec(ctx)
	require.NoError(t, err)

	rows, err := lib.books.
		Where(lib.books.C(bookID).In(int64(1), int64(3))).
		Select(bookType).
		OrderBy(lib.books.C(bookID).Asc()).
		All(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0][0].GetString("name"))
	assert.Equal(t, "c", rows[1][0].GetString("name"))
}

func TestSQLiteTransaction(t *testing.T) {
	t.Parallel()
	lib := openLibrary(t)
	ctx := context.Background()

	tx, err := lib.db.Tx(ctx)
	require.NoError(t, err)
	_, err = lib.books.Query().Via(tx).Insert(newBook(1, "dune", 9)).Exec(ctx)
	require.NoError(t, err)
	committed, err := tx.Commit()
	require.NoError(t, err)
	assert.True(t, committed)
	require.NoError(t, tx.Close())

	rows, err := lib.books.Query().Select(bookType).All(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	// A rolled back transaction leaves no trace.
	tx, err = lib.db.Tx(ctx)
	require.NoError(t, err)
	_, err = lib.books.Query().Via(tx).Insert(newBook(2, "emma", 7)).Exec(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	require.NoError(t, tx.Close())

	rows, err = lib.books.Query().Select(bookType).All(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
