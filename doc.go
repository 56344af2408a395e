// Package om is a lightweight relational mapper. Entity types are declared
// explicitly as ordered field sets, instances track which fields were
// mutated since load, and table mappings turn instances and predicate
// expressions into SQL statements executed through a pooled database.
//
// Declaring an entity type and its table:
//
//	var (
//		id   = om.IntField("id")
//		name = om.StringField("name")
//		Book = om.MustEntityType("Book", id, name)
//	)
//
//	books := om.NewMapping("books", db).
//		Column(id).
//		Column(name).
//		Identifiers(id).
//		Manage(Book).
//		MustBuild()
//
// Querying, with predicates chained strictly left to right:
//
//	rows, err := books.
//		Where(books.C(id).GT(0).And(books.C(name).Like("go%"))).
//		Select(Book).
//		OrderBy(books.C(id).Asc()).
//		All(ctx)
//
// Loaded instances start clean. Mutating a field marks it dirty, and
// Save writes only the dirty fields back:
//
//	book := rows[0][0]
//	book.Set("name", "The Go Programming Language")
//	affected, err := books.Query().Save(book).Exec(ctx)
package om
