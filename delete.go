package om

import (
	"context"
	"strings"
)

// DeletePlan removes rows either by instance identifiers, by an explicit
// filter, or both. Columns render unqualified since a delete targets a
// single table.
type DeletePlan struct {
	ctx       *Context
	instances []*Record
}

func newDeletePlan(c *Context, instances []*Record) *DeletePlan {
	return &DeletePlan{ctx: c, instances: instances}
}

// Exec builds and executes the statement, returning the affected row
// count. A delete with neither instances nor a filter is refused.
func (p *DeletePlan) Exec(ctx context.Context) (int64, error) {
	if p.ctx.err != nil {
		return 0, p.ctx.err
	}
	if len(p.instances) == 0 && p.ctx.where == nil {
		return 0, configErrorf("delete needs instances or a filter, refusing an unconditional delete")
	}
	m := p.ctx.base
	q := p.ctx.quoter()
	var (
		args   []any
		wheres []string
	)
	if len(p.instances) > 0 {
		typ := p.instances[0].typ
		for _, rec := range p.instances[1:] {
			if rec.typ != typ {
				return 0, configErrorf("cannot delete %q and %q in one batch", typ.name, rec.typ.name)
			}
		}
		if !m.Manages(typ) {
			return 0, configErrorf("table %q does not manage entity type %q", m.table, typ.name)
		}
		id, err := m.identifierFor(typ)
		if err != nil {
			return 0, err
		}
		ids := make([]any, 0, len(p.instances))
		for _, rec := range p.instances {
			v := rec.Tracking().Get(id.field.name)
			if isUnset(v) {
				return 0, &UnsetValueError{Field: id.field.name}
			}
			ids = append(ids, v)
		}
		wheres = append(wheres, q.Quote(id.db)+" IN ?")
		args = append(args, ids)
	}
	if p.ctx.where != nil {
		clause, err := p.ctx.where.Build(func(col *Column) (string, error) {
			return q.Quote(col.db), nil
		}, &args)
		if err != nil {
			return 0, err
		}
		wheres = append(wheres, clause)
	}
	query := "DELETE FROM " + q.Quote(m.table) + " WHERE " + strings.Join(wheres, " AND ")
	return p.ctx.db.ExecAffected(ctx, query, args...)
}
