package om

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadedBook(t *testing.T, id int64, name string, rating int64) *Record {
	t.Helper()
	rec := bookType.New()
	rec.Tracking().Reset(map[string]any{"id": id, "name": name, "rating": rating})
	return rec
}

func TestUpdateDirtyFields(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	f.db.affected = 1
	book := loadedBook(t, 3, "dune", 9)
	require.NoError(t, book.Set("name", "dune II"))

	n, err := f.books.Query().Save(book).Exec(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, "UPDATE `books` SET `name` = ? WHERE `id` = ?", f.db.lastQuery())
	assert.Equal(t, []any{"dune II", int64(3)}, f.db.lastArgs())
	assert.False(t, book.Tracking().IsDirty(), "a successful save resets tracking")
}

func TestUpdateAllFields(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	book := loadedBook(t, 3, "dune", 9)

	n, err := f.books.Query().Save(book).AllFields().Exec(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t,
		"UPDATE `books` SET `id` = ?, `name` = ?, `rating` = ? WHERE `id` = ?",
		f.db.lastQuery())
	assert.Equal(t, []any{int64(3), "dune", int64(9), int64(3)}, f.db.lastArgs())
}

func TestUpdateCleanInstancesSkipStatement(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	book := loadedBook(t, 3, "dune", 9)

	n, err := f.books.Query().Save(book).Exec(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, f.db.queries, "nothing dirty means no SQL at all")
}

func TestUpdateMultipleInstances(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	first := loadedBook(t, 1, "a", 1)
	second := loadedBook(t, 2, "b", 2)
	require.NoError(t, first.Set("rating", int64(5)))
	require.NoError(t, second.Set("name", "bb"))

	// All assignments render before any identifier clause, so the argument
	// order is every SET value first, then every identifier value.
	_, err := f.books.Query().Save(first, second).Exec(context.Background())
	require.NoError(t, err)
	assert.Equal(t,
		"UPDATE `books` SET `rating` = ?, `name` = ? WHERE `id` = ? AND `id` = ?",
		f.db.lastQuery())
	assert.Equal(t, []any{int64(5), "bb", int64(1), int64(2)}, f.db.lastArgs())
}

func TestUpdateMultipleInstancesWithWhere(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	first := loadedBook(t, 1, "a", 1)
	second := loadedBook(t, 2, "b", 2)
	require.NoError(t, first.Set("rating", int64(5)))
	require.NoError(t, second.Set("rating", int64(6)))

	_, err := f.books.
		Where(f.books.C(bookName).NEQ("frozen")).
		Save(first, second).
		Exec(context.Background())
	require.NoError(t, err)
	assert.Equal(t,
		"UPDATE `books` SET `rating` = ?, `rating` = ?"+
			" WHERE `id` = ? AND `id` = ? AND `name` <> ?",
		f.db.lastQuery())
	assert.Equal(t, []any{int64(5), int64(6), int64(1), int64(2), "frozen"}, f.db.lastArgs())
}

func TestUpdateNonComparableValue(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	book := loadedBook(t, 1, "a", 1)
	require.NoError(t, book.Set("name", []byte("dune")))

	_, err := f.books.Query().Save(book).Exec(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{[]byte("dune"), int64(1)}, f.db.lastArgs())
}

func TestUpdateWithExplicitWhere(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	book := loadedBook(t, 3, "dune", 9)
	require.NoError(t, book.Set("rating", int64(10)))

	_, err := f.books.
		Where(f.books.C(bookRating).LT(10)).
		Save(book).
		Exec(context.Background())
	require.NoError(t, err)
	assert.Equal(t,
		"UPDATE `books` SET `rating` = ? WHERE `id` = ? AND `rating` < ?",
		f.db.lastQuery())
	assert.Equal(t, []any{int64(10), int64(3), 10}, f.db.lastArgs())
}

func TestUpdateWithJoinQualifiesColumns(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	book := loadedBook(t, 3, "dune", 9)
	require.NoError(t, book.Set("rating", int64(10)))

	c := f.books.Join(f.authorBooks, f.books.C(bookID).EQ(f.authorBooks.C(abBookID)))
	_, err := c.Where(f.authorBooks.C(abAuthorID).EQ(7)).Save(book).Exec(context.Background())
	require.NoError(t, err)
	assert.Equal(t,
		"UPDATE `books` AS `t1` INNER JOIN `author_books` AS `t2` ON `t1`.`id` = `t2`.`book_id`"+
			" SET `t1`.`rating` = ? WHERE `t1`.`id` = ? AND `t2`.`author_id` = ?",
		f.db.lastQuery())
	assert.Equal(t, []any{int64(10), int64(3), 7}, f.db.lastArgs())
}

func TestUpdateRejectsUnsetValue(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	book := bookType.New()
	require.NoError(t, book.Set("name", "dune"))

	// The identifier was never assigned.
	_, err := f.books.Query().Save(book).Exec(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnsetValue(err))

	// An unset value inside an AllFields write is just as fatal.
	book = bookType.New()
	book.Tracking().Reset(map[string]any{"id": int64(3), "name": "dune"})
	_, err = f.books.Query().Save(book).AllFields().Exec(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnsetValue(err))
}

func TestUpdateValidation(t *testing.T) {
	t.Parallel()
	f := newFixtures()

	_, err := f.books.Query().Save().Exec(context.Background())
	assert.True(t, IsConfiguration(err), "saving nothing is a misuse, not a no-op")

	author := authorType.New()
	require.NoError(t, author.Set("name", "herbert"))
	_, err = f.books.Query().Save(author).Exec(context.Background())
	assert.True(t, IsConfiguration(err), "unmanaged entity types are rejected")
}
