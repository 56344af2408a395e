package om

import (
	"fmt"
	"strings"

	"github.com/syssam/om/dialect"
)

type joinSpec struct {
	kind    string
	mapping *TableMapping
	left    *Column
	right   *Column
}

// Context carries the table mappings, aliases, joins and filters one
// statement is built from. The first mapping seen becomes t1, the next
// t2, and so on; registering the same mapping again is a no-op.
type Context struct {
	db      dialect.ExecQuerier
	base    *TableMapping
	joins   []joinSpec
	aliases map[*TableMapping]string
	order   []*TableMapping
	where   *Expr
	err     error
}

func newContext(base *TableMapping) *Context {
	c := &Context{
		db:      base.db,
		base:    base,
		aliases: make(map[*TableMapping]string),
	}
	c.addMapping(base)
	return c
}

func (c *Context) fail(format string, args ...any) *Context {
	if c.err == nil {
		c.err = configErrorf(format, args...)
	}
	return c
}

// addMapping assigns the mapping its alias on first sight.
func (c *Context) addMapping(m *TableMapping) string {
	if alias, ok := c.aliases[m]; ok {
		return alias
	}
	alias := fmt.Sprintf("t%d", len(c.order)+1)
	c.aliases[m] = alias
	c.order = append(c.order, m)
	return alias
}

// Via redirects statement execution through another executor, typically a
// transaction, leaving the mapping's own executor untouched.
func (c *Context) Via(db dialect.ExecQuerier) *Context {
	c.db = db
	return c
}

// Where attaches the filter expression, replacing any previous one.
func (c *Context) Where(e *Expr) *Context {
	c.where = e
	return c
}

// Join adds an inner join to another mapping.
func (c *Context) Join(other *TableMapping, on *Expr) *Context {
	return c.join("INNER JOIN", other, on)
}

// LeftJoin adds a left outer join to another mapping.
func (c *Context) LeftJoin(other *TableMapping, on *Expr) *Context {
	return c.join("LEFT JOIN", other, on)
}

// RightJoin adds a right outer join to another mapping.
func (c *Context) RightJoin(other *TableMapping, on *Expr) *Context {
	return c.join("RIGHT JOIN", other, on)
}

func (c *Context) join(kind string, other *TableMapping, on *Expr) *Context {
	if on == nil || on.kind != exprCompare || on.op != "=" || len(on.chain) > 0 {
		return c.fail("join condition must be a single column equality")
	}
	right, ok := on.value.(*Column)
	if !ok {
		return c.fail("join condition must compare two columns")
	}
	c.addMapping(other)
	c.joins = append(c.joins, joinSpec{kind: kind, mapping: other, left: on.column, right: right})
	return c
}

func (c *Context) quoter() dialect.Quoter {
	return dialect.QuoterFor(c.db.Dialect())
}

// alias returns the alias for a mapping already registered in the context.
func (c *Context) alias(m *TableMapping) (string, error) {
	if a, ok := c.aliases[m]; ok {
		return a, nil
	}
	return "", configErrorf("table %q is not part of this statement", m.table)
}

// qualify renders a column as alias.column, using the alias of the
// column's declaring mapping within this context.
func (c *Context) qualify(col *Column) (string, error) {
	alias, err := c.alias(col.mapping)
	if err != nil {
		return "", err
	}
	return c.quoter().Column(alias, col.db), nil
}

// mappingFor resolves the mapping managing an entity type, searching in
// registration order.
func (c *Context) mappingFor(t *EntityType) (*TableMapping, error) {
	for _, m := range c.order {
		if m.Manages(t) {
			return m, nil
		}
	}
	return nil, configErrorf("no table in this statement manages entity type %q", t.name)
}

// fromClause renders the base table followed by each join in registration
// order.
func (c *Context) fromClause() (string, error) {
	q := c.quoter()
	var b strings.Builder
	b.WriteString(q.Quote(c.base.table))
	b.WriteString(" AS ")
	b.WriteString(q.Quote(c.aliases[c.base]))
	for _, j := range c.joins {
		left, err := c.qualify(j.left)
		if err != nil {
			return "", err
		}
		right, err := c.qualify(j.right)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, " %s %s AS %s ON %s = %s",
			j.kind, q.Quote(j.mapping.table), q.Quote(c.aliases[j.mapping]), left, right)
	}
	return b.String(), nil
}

// whereClause renders the attached filter, or nothing if none is set.
func (c *Context) whereClause(name func(*Column) (string, error), args *[]any) (string, error) {
	if c.where == nil {
		return "", nil
	}
	return c.where.Build(name, args)
}

// Select builds a select plan producing instances of the given entity
// types, in order.
func (c *Context) Select(types ...*EntityType) *SelectPlan {
	return newSelectPlan(c, types)
}

// Save builds an update plan writing the instances' dirty fields.
func (c *Context) Save(instances ...*Record) *UpdatePlan {
	return newUpdatePlan(c, instances)
}

// Insert builds an insert plan for the instances.
func (c *Context) Insert(instances ...*Record) *InsertPlan {
	return newInsertPlan(c, instances)
}

// Delete builds a delete plan for the instances.
func (c *Context) Delete(instances ...*Record) *DeletePlan {
	return newDeletePlan(c, instances)
}
