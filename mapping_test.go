package om

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMappingBuilderValidation(t *testing.T) {
	t.Parallel()
	db := &fakeDB{}

	_, err := NewMapping("", db).Column(bookID).Manage(bookType).Build()
	assert.True(t, IsConfiguration(err))

	_, err = NewMapping("books", nil).Column(bookID).Manage(bookType).Build()
	assert.True(t, IsConfiguration(err))

	_, err = NewMapping("books", db).Manage(bookType).Build()
	assert.True(t, IsConfiguration(err), "a mapping without columns is rejected")

	_, err = NewMapping("books", db).Column(bookID).Build()
	assert.True(t, IsConfiguration(err), "a mapping without managed types is rejected")

	_, err = NewMapping("books", db).Column(bookID).Column(bookID).Manage(bookType).Build()
	assert.True(t, IsConfiguration(err), "mapping the same field twice is rejected")

	_, err = NewMapping("books", db).Column(bookID).Identifiers(bookName).Manage(bookType).Build()
	assert.True(t, IsConfiguration(err), "identifiers must be mapped columns")

	_, err = NewMapping("books", db).Column(bookName).Manage(bookType).Build()
	assert.True(t, IsConfiguration(err), "every managed type needs an identifier")
}

func TestMappingColumnLookup(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	col := f.books.C(bookID)
	assert.Equal(t, "id", col.DBName())
	assert.Same(t, f.books, col.Mapping())

	_, ok := f.books.Column("publisher")
	assert.False(t, ok)
	assert.Panics(t, func() { f.books.C(authorName) })
}

func TestMappingColumnAs(t *testing.T) {
	t.Parallel()
	db := &fakeDB{}
	legacy := NewMapping("legacy_books", db).
		ColumnAs(bookID, "book_id").
		Column(bookName).
		Column(bookRating).
		Identifiers(bookID).
		Manage(bookType).
		MustBuild()
	assert.Equal(t, "book_id", legacy.C(bookID).DBName())
	assert.Equal(t, "name", legacy.C(bookName).DBName())
}

func TestMappingIdentifierFor(t *testing.T) {
	t.Parallel()
	db := &fakeDB{}
	// Both id and name are identifiers; the first eligible field in the
	// entity type's declaration order wins.
	m := NewMapping("books", db).
		Column(bookID).
		Column(bookName).
		Column(bookRating).
		Identifiers(bookName, bookID).
		Manage(bookType).
		MustBuild()
	id, err := m.identifierFor(bookType)
	require.NoError(t, err)
	assert.Equal(t, "id", id.Name())
}

func TestMappingManages(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	assert.True(t, f.books.Manages(bookType))
	assert.False(t, f.books.Manages(authorType))
}

func TestColumnIdentityPerMapping(t *testing.T) {
	t.Parallel()
	f := newFixtures()
	db := &fakeDB{}
	other := NewMapping("books_archive", db).
		Column(bookID).
		Column(bookName).
		Column(bookRating).
		Identifiers(bookID).
		Manage(bookType).
		MustBuild()
	assert.NotSame(t, f.books.C(bookID), other.C(bookID),
		"the same field mapped by two tables yields two distinct columns")
}
