package om

import (
	"fmt"

	"github.com/syssam/om/dialect"
)

// Column binds a tracked field to a database column on one mapping.
// Identity matters: the same field mapped by two different tables
// produces two distinct columns, each qualified by its own alias.
type Column struct {
	field   *Field
	db      string
	mapping *TableMapping
}

// Field returns the tracked field backing the column.
func (c *Column) Field() *Field { return c.field }

// Name returns the tracked field name.
func (c *Column) Name() string { return c.field.name }

// DBName returns the database column name.
func (c *Column) DBName() string { return c.db }

// Mapping returns the table mapping the column belongs to.
func (c *Column) Mapping() *TableMapping { return c.mapping }

func (c *Column) String() string {
	return fmt.Sprintf("%s.%s", c.mapping.table, c.db)
}

// TableMapping binds entity types to one database table through an
// executor. All statement construction starts from a mapping.
type TableMapping struct {
	table       string
	db          dialect.ExecQuerier
	cols        []*Column
	index       map[string]*Column
	identifiers map[string]struct{}
	managed     []*EntityType
}

// MappingBuilder assembles a TableMapping. Configuration errors are
// collected and surfaced once by Build.
type MappingBuilder struct {
	m   *TableMapping
	err error
}

// NewMapping starts a mapping for the named table over the given executor.
func NewMapping(table string, db dialect.ExecQuerier) *MappingBuilder {
	return &MappingBuilder{m: &TableMapping{
		table:       table,
		db:          db,
		index:       make(map[string]*Column),
		identifiers: make(map[string]struct{}),
	}}
}

func (b *MappingBuilder) fail(format string, args ...any) *MappingBuilder {
	if b.err == nil {
		b.err = configErrorf(format, args...)
	}
	return b
}

// Column maps a field onto a database column of the same name.
func (b *MappingBuilder) Column(f *Field) *MappingBuilder {
	return b.ColumnAs(f, f.name)
}

// ColumnAs maps a field onto an explicitly named database column.
func (b *MappingBuilder) ColumnAs(f *Field, dbColumn string) *MappingBuilder {
	if f == nil {
		return b.fail("table %q maps a nil field", b.m.table)
	}
	if _, dup := b.m.index[f.name]; dup {
		return b.fail("table %q maps field %q twice", b.m.table, f.name)
	}
	c := &Column{field: f, db: dbColumn, mapping: b.m}
	b.m.cols = append(b.m.cols, c)
	b.m.index[f.name] = c
	return b
}

// Identifiers declares which mapped fields identify a row for updates
// and deletes.
func (b *MappingBuilder) Identifiers(fields ...*Field) *MappingBuilder {
	for _, f := range fields {
		if _, ok := b.m.index[f.name]; !ok {
			return b.fail("table %q declares identifier %q without mapping it", b.m.table, f.name)
		}
		b.m.identifiers[f.name] = struct{}{}
	}
	return b
}

// Manage declares which entity types the mapping persists.
func (b *MappingBuilder) Manage(types ...*EntityType) *MappingBuilder {
	b.m.managed = append(b.m.managed, types...)
	return b
}

// Build validates the mapping and returns it.
func (b *MappingBuilder) Build() (*TableMapping, error) {
	if b.err != nil {
		return nil, b.err
	}
	switch {
	case b.m.table == "":
		return nil, configErrorf("mapping needs a table name")
	case b.m.db == nil:
		return nil, configErrorf("table %q needs an executor", b.m.table)
	case len(b.m.cols) == 0:
		return nil, configErrorf("table %q maps no columns", b.m.table)
	case len(b.m.managed) == 0:
		return nil, configErrorf("table %q manages no entity types", b.m.table)
	}
	for _, t := range b.m.managed {
		if _, err := b.m.identifierFor(t); err != nil {
			return nil, err
		}
	}
	return b.m, nil
}

// MustBuild is like Build but panics on error. Mappings are declared at
// startup, where misconfiguration should fail loudly.
func (b *MappingBuilder) MustBuild() *TableMapping {
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	return m
}

// Table returns the database table name.
func (m *TableMapping) Table() string { return m.table }

// DB returns the executor the mapping issues statements through.
func (m *TableMapping) DB() dialect.ExecQuerier { return m.db }

// Columns returns the mapped columns in declaration order.
func (m *TableMapping) Columns() []*Column { return m.cols }

// Column returns the column mapped for the named field.
func (m *TableMapping) Column(name string) (*Column, bool) {
	c, ok := m.index[name]
	return c, ok
}

// C returns the column mapped for the field. It panics on unmapped
// fields since lookups happen at declaration time while composing
// expressions.
func (m *TableMapping) C(f *Field) *Column {
	c, ok := m.index[f.name]
	if !ok {
		panic(configErrorf("table %q does not map field %q", m.table, f.name))
	}
	return c
}

// Manages reports whether the mapping persists the entity type.
func (m *TableMapping) Manages(t *EntityType) bool {
	for _, mt := range m.managed {
		if mt == t {
			return true
		}
	}
	return false
}

// identifierFor returns the identifying column for an entity type: the
// first declared identifier field, in the entity type's field declaration
// order, that the mapping also maps.
func (m *TableMapping) identifierFor(t *EntityType) (*Column, error) {
	for _, f := range t.fields {
		if _, ok := m.identifiers[f.name]; !ok {
			continue
		}
		if c, ok := m.index[f.name]; ok {
			return c, nil
		}
	}
	return nil, configErrorf("table %q has no identifier for entity type %q", m.table, t.name)
}

// Query starts a statement context rooted at the mapping.
func (m *TableMapping) Query() *Context {
	return newContext(m)
}

// Where starts a statement context with an initial filter.
func (m *TableMapping) Where(e *Expr) *Context {
	return newContext(m).Where(e)
}

// Join starts a statement context with an inner join to another mapping.
func (m *TableMapping) Join(other *TableMapping, on *Expr) *Context {
	return newContext(m).Join(other, on)
}

// LeftJoin starts a statement context with a left outer join.
func (m *TableMapping) LeftJoin(other *TableMapping, on *Expr) *Context {
	return newContext(m).LeftJoin(other, on)
}

// RightJoin starts a statement context with a right outer join.
func (m *TableMapping) RightJoin(other *TableMapping, on *Expr) *Context {
	return newContext(m).RightJoin(other, on)
}
