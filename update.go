package om

import (
	"context"
	"strings"
)

// UpdatePlan writes instances back to their tables. By default only dirty
// fields are written; AllFields switches to every declared field. Arguments
// are ordered as the placeholders render: every instance's SET values
// first, then the identifier values, then any explicit filter.
type UpdatePlan struct {
	ctx       *Context
	instances []*Record
	allFields bool
}

func newUpdatePlan(c *Context, instances []*Record) *UpdatePlan {
	return &UpdatePlan{ctx: c, instances: instances}
}

// AllFields writes every declared field instead of only dirty ones.
func (p *UpdatePlan) AllFields() *UpdatePlan {
	p.allFields = true
	return p
}

// Exec builds and executes the statement, returning the affected row
// count. If no instance has anything to write, no statement is issued and
// zero is returned. An update with neither identifier clauses nor an
// explicit filter is refused.
func (p *UpdatePlan) Exec(ctx context.Context) (int64, error) {
	if p.ctx.err != nil {
		return 0, p.ctx.err
	}
	if len(p.instances) == 0 {
		return 0, configErrorf("nothing to save")
	}
	name := p.columnName()
	var (
		args    []any
		idArgs  []any
		sets    []string
		wheres  []string
		touched []*Holder
	)
	for _, rec := range p.instances {
		m, err := p.ctx.mappingFor(rec.typ)
		if err != nil {
			return 0, err
		}
		holder := rec.Tracking()
		dirty := holder.Dirty()
		if len(dirty) == 0 && !p.allFields {
			continue
		}
		before := len(sets)
		for _, f := range rec.typ.fields {
			var v any
			if p.allFields {
				v = holder.Get(f.name)
			} else {
				var ok bool
				if v, ok = dirty[f.name]; !ok {
					continue
				}
			}
			if isUnset(v) {
				return 0, &UnsetValueError{Field: f.name}
			}
			col, ok := m.Column(f.name)
			if !ok {
				return 0, configErrorf("table %q does not map field %q", m.table, f.name)
			}
			cn, err := name(col)
			if err != nil {
				return 0, err
			}
			sets = append(sets, cn+" = ?")
			args = append(args, v)
		}
		if len(sets) == before {
			continue
		}
		// All SET placeholders render before any WHERE placeholder, so
		// identifier arguments are collected apart and appended once the
		// assignment arguments are complete.
		id, err := m.identifierFor(rec.typ)
		if err != nil {
			return 0, err
		}
		v := holder.Get(id.field.name)
		if isUnset(v) {
			return 0, &UnsetValueError{Field: id.field.name}
		}
		cn, err := name(id)
		if err != nil {
			return 0, err
		}
		wheres = append(wheres, cn+" = ?")
		idArgs = append(idArgs, v)
		touched = append(touched, holder)
	}
	if len(sets) == 0 {
		return 0, nil
	}
	args = append(args, idArgs...)
	if p.ctx.where != nil {
		clause, err := p.ctx.where.Build(name, &args)
		if err != nil {
			return 0, err
		}
		wheres = append(wheres, clause)
	}
	if len(wheres) == 0 {
		return 0, configErrorf("update needs an identifier or a filter, refusing an unconditional update")
	}
	target, err := p.target()
	if err != nil {
		return 0, err
	}
	query := "UPDATE " + target + " SET " + strings.Join(sets, ", ") +
		" WHERE " + strings.Join(wheres, " AND ")
	n, err := p.ctx.db.ExecAffected(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	for _, h := range touched {
		h.Reset(nil)
	}
	return n, nil
}

// columnName picks how columns render. A joined statement qualifies every
// column with its table alias, a single-table statement quotes the bare
// column name so the same statement runs on backends that reject aliased
// update targets.
func (p *UpdatePlan) columnName() func(*Column) (string, error) {
	if len(p.ctx.joins) > 0 {
		return p.ctx.qualify
	}
	q := p.ctx.quoter()
	return func(col *Column) (string, error) {
		if _, err := p.ctx.alias(col.mapping); err != nil {
			return "", err
		}
		return q.Quote(col.db), nil
	}
}

func (p *UpdatePlan) target() (string, error) {
	if len(p.ctx.joins) > 0 {
		return p.ctx.fromClause()
	}
	return p.ctx.quoter().Quote(p.ctx.base.table), nil
}
