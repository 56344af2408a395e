package om

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bare renders columns by their field name, without quoting or aliasing,
// to keep assertions on the chaining algorithm readable.
func bare(c *Column) (string, error) { return c.field.name, nil }

func build(t *testing.T, e *Expr) (string, []any) {
	t.Helper()
	var args []any
	s, err := e.Build(bare, &args)
	require.NoError(t, err)
	return s, args
}

func TestExprChaining(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	rating := f.books.C(bookRating)
	name := f.books.C(bookName)

	s, args := build(t, rating.GT(0).And(rating.LT(8)))
	assert.Equal(t, "rating > ? AND (rating < ?)", s)
	assert.Equal(t, []any{0, 8}, args)

	s, args = build(t, rating.GT(0).Or(rating.LT(9)).And(name.LT(8)))
	assert.Equal(t, "rating > ? OR (rating < ?) AND (name < ?)", s)
	assert.Equal(t, []any{0, 9, 8}, args)
}

func TestExprChainingNestsTrailingChains(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	id := f.books.C(bookID)
	rating := f.books.C(bookRating)

	// The second node carries its own chain, which renders inside the
	// parentheses of the wrapping conjunction.
	s, args := build(t, id.EQ(1).And(rating.GT(2).Or(rating.LT(3))))
	assert.Equal(t, "id = ? AND (rating > ? OR (rating < ?))", s)
	assert.Equal(t, []any{1, 2, 3}, args)
}

func TestExprOperators(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	id := f.books.C(bookID)
	name := f.books.C(bookName)

	s, args := build(t, id.In(1, 2, 3))
	assert.Equal(t, "id IN ?", s)
	require.Len(t, args, 1)
	assert.Equal(t, []any{1, 2, 3}, args[0])

	s, args = build(t, id.Between(1, 2))
	assert.Equal(t, "id BETWEEN ? AND ?", s)
	assert.Equal(t, []any{1, 2}, args)

	s, args = build(t, id.IsNull())
	assert.Equal(t, "id IS NULL", s)
	assert.Empty(t, args)

	s, args = build(t, id.NotNull())
	assert.Equal(t, "id IS NOT NULL", s)
	assert.Empty(t, args)

	s, args = build(t, id.EQ(nil))
	assert.Equal(t, "id IS NULL", s)
	assert.Empty(t, args)

	s, args = build(t, id.NEQ(nil))
	assert.Equal(t, "id IS NOT NULL", s)
	assert.Empty(t, args)

	s, args = build(t, name.Like("go%"))
	assert.Equal(t, "name LIKE ?", s)
	assert.Equal(t, []any{"go%"}, args)

	s, args = build(t, id.GTE(1).And(id.LTE(2)).And(id.NEQ(3)))
	assert.Equal(t, "id >= ? AND (id <= ?) AND (id <> ?)", s)
	assert.Equal(t, []any{1, 2, 3}, args)
}

func TestExprDeterminism(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	id := f.books.C(bookID)
	rating := f.books.C(bookRating)
	e := id.GT(0).Or(id.In(1, 2)).And(rating.Between(3, 4))

	first, firstArgs := build(t, e)
	second, secondArgs := build(t, e)
	assert.Equal(t, first, second)
	assert.Equal(t, firstArgs, secondArgs)
}
