package om

import (
	"context"
	"fmt"
	"strings"

	"github.com/syssam/om/dialect"
)

// sliceBound marks where one entity's columns end within the projection.
type sliceBound struct {
	typ     *EntityType
	mapping *TableMapping
	end     int
}

// SelectPlan builds and executes one projection over the context's tables.
// Each requested entity type contributes its declared fields, in order, to
// a single wide row that is de-multiplexed back into one instance per type.
type SelectPlan struct {
	ctx    *Context
	types  []*EntityType
	bounds []sliceBound
	cols   []*Column
	order  []OrderTerm
	offset int64
	count  int64
	limit  bool
	err    error
}

func newSelectPlan(c *Context, types []*EntityType) *SelectPlan {
	p := &SelectPlan{ctx: c, err: c.err}
	if p.err == nil && len(types) == 0 {
		p.err = configErrorf("select needs at least one entity type")
	}
	for _, t := range types {
		if p.err != nil {
			break
		}
		m, err := c.mappingFor(t)
		if err != nil {
			p.err = err
			break
		}
		for _, f := range t.fields {
			col, ok := m.Column(f.name)
			if !ok {
				p.err = configErrorf("table %q does not map field %q of entity type %q", m.table, f.name, t.name)
				break
			}
			p.cols = append(p.cols, col)
		}
		p.types = append(p.types, t)
		p.bounds = append(p.bounds, sliceBound{typ: t, mapping: m, end: len(p.cols)})
	}
	return p
}

// OrderBy appends sort terms to the statement.
func (p *SelectPlan) OrderBy(terms ...OrderTerm) *SelectPlan {
	p.order = append(p.order, terms...)
	return p
}

// Limit restricts the statement to count rows starting at offset.
func (p *SelectPlan) Limit(offset, count int64) *SelectPlan {
	p.offset, p.count, p.limit = offset, count, true
	return p
}

func (p *SelectPlan) build() (string, []any, error) {
	if p.err != nil {
		return "", nil, p.err
	}
	var b strings.Builder
	b.WriteString("SELECT ")
	for i, col := range p.cols {
		if i > 0 {
			b.WriteString(", ")
		}
		q, err := p.ctx.qualify(col)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(q)
	}
	from, err := p.ctx.fromClause()
	if err != nil {
		return "", nil, err
	}
	b.WriteString(" FROM ")
	b.WriteString(from)
	var args []any
	where, err := p.ctx.whereClause(p.ctx.qualify, &args)
	if err != nil {
		return "", nil, err
	}
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	for i, term := range p.order {
		if i == 0 {
			b.WriteString(" ORDER BY ")
		} else {
			b.WriteString(", ")
		}
		q, err := p.ctx.qualify(term.column)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(q)
		if term.desc {
			b.WriteString(" DESC")
		}
	}
	if p.limit {
		if p.ctx.db.Dialect() == dialect.Postgres {
			fmt.Fprintf(&b, " LIMIT %d OFFSET %d", p.count, p.offset)
		} else {
			fmt.Fprintf(&b, " LIMIT %d, %d", p.offset, p.count)
		}
	}
	return b.String(), args, nil
}

// Iter executes the statement and returns a cursor over the results. The
// cursor holds a pooled connection until it is exhausted or closed.
func (p *SelectPlan) Iter(ctx context.Context) (*Cursor, error) {
	query, args, err := p.build()
	if err != nil {
		return nil, err
	}
	rows, err := p.ctx.db.Iter(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &Cursor{plan: p, rows: rows}, nil
}

// All executes the statement and collects every result row. Each row holds
// one instance per requested entity type, in request order.
func (p *SelectPlan) All(ctx context.Context) ([][]*Record, error) {
	cur, err := p.Iter(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	var out [][]*Record
	for cur.Next() {
		out = append(out, cur.Records())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// First executes the statement and returns the first result row, or nil if
// the statement matched nothing.
func (p *SelectPlan) First(ctx context.Context) ([]*Record, error) {
	cur, err := p.Iter(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	if !cur.Next() {
		return nil, cur.Err()
	}
	recs := cur.Records()
	if err := cur.Close(); err != nil {
		return nil, err
	}
	return recs, nil
}

// Cursor is a lazy, one-pass sequence of select results. It must be
// exhausted or closed, otherwise the underlying connection stays checked
// out of the pool.
type Cursor struct {
	plan *SelectPlan
	rows dialect.RowIter
	cur  []*Record
	err  error
}

// EntityTypes returns the entity types each result row is composed of.
func (c *Cursor) EntityTypes() []*EntityType { return c.plan.types }

// Next advances to the next result row. It returns false when the sequence
// is exhausted or a row fails to load; Err distinguishes the two.
func (c *Cursor) Next() bool {
	if c.err != nil || !c.rows.Next() {
		c.cur = nil
		return false
	}
	recs, err := c.plan.demux(c.rows.Row())
	if err != nil {
		c.err = err
		c.Close()
		return false
	}
	c.cur = recs
	return true
}

// Records returns the instances loaded from the current row, one per
// requested entity type.
func (c *Cursor) Records() []*Record { return c.cur }

// Err returns the first error observed while iterating.
func (c *Cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

// Close releases the cursor and its connection. It is safe to call more
// than once.
func (c *Cursor) Close() error { return c.rows.Close() }

// demux splits one wide row into instances, slicing the value vector at
// each entity boundary. Instances come out clean: values loaded from
// storage are not dirty.
func (p *SelectPlan) demux(row dialect.Row) ([]*Record, error) {
	values := row.Values()
	if len(values) != len(p.cols) {
		return nil, fmt.Errorf("om: expected %d columns, scanned %d", len(p.cols), len(values))
	}
	recs := make([]*Record, 0, len(p.bounds))
	start := 0
	for _, bound := range p.bounds {
		rec := bound.typ.New()
		initial := make(map[string]any, bound.end-start)
		for i, f := range bound.typ.fields {
			v, err := f.fromSQL(values[start+i])
			if err != nil {
				return nil, err
			}
			initial[f.name] = v
		}
		rec.Tracking().Reset(initial)
		recs = append(recs, rec)
		start = bound.end
	}
	return recs, nil
}
