package om

import (
	"context"
	"strings"
)

// InsertResult reports the outcome of a batched insert.
type InsertResult struct {
	// LastID is the last backend-assigned identifier of the batch. Which
	// row "last" refers to follows the backend's batch-insert contract.
	LastID int64
	// Count is the number of rows inserted.
	Count int64
}

// InsertPlan persists one or more instances of a single entity type with
// one multi-row statement.
type InsertPlan struct {
	ctx       *Context
	instances []*Record
}

func newInsertPlan(c *Context, instances []*Record) *InsertPlan {
	return &InsertPlan{ctx: c, instances: instances}
}

// Exec builds and executes the statement. Every declared field of every
// instance must be set; an unset field aborts the whole batch.
func (p *InsertPlan) Exec(ctx context.Context) (*InsertResult, error) {
	if p.ctx.err != nil {
		return nil, p.ctx.err
	}
	if len(p.instances) == 0 {
		return nil, configErrorf("nothing to insert")
	}
	typ := p.instances[0].typ
	for _, rec := range p.instances[1:] {
		if rec.typ != typ {
			return nil, configErrorf("cannot insert %q and %q in one batch", typ.name, rec.typ.name)
		}
	}
	m, err := p.ctx.mappingFor(typ)
	if err != nil {
		return nil, err
	}
	q := p.ctx.quoter()
	cols := make([]string, 0, len(typ.fields))
	for _, f := range typ.fields {
		col, ok := m.Column(f.name)
		if !ok {
			return nil, configErrorf("table %q does not map field %q", m.table, f.name)
		}
		cols = append(cols, q.Quote(col.db))
	}
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(typ.fields)), ", ") + ")"
	args := make([]any, 0, len(p.instances)*len(typ.fields))
	rows := make([]string, 0, len(p.instances))
	for _, rec := range p.instances {
		holder := rec.Tracking()
		for _, f := range typ.fields {
			v := holder.Get(f.name)
			if isUnset(v) {
				return nil, &UnsetValueError{Field: f.name}
			}
			args = append(args, v)
		}
		rows = append(rows, row)
	}
	query := "INSERT INTO " + q.Quote(m.table) +
		" (" + strings.Join(cols, ", ") + ") VALUES " + strings.Join(rows, ", ")
	lastID, err := p.ctx.db.ExecLastID(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	for _, rec := range p.instances {
		rec.Tracking().Reset(nil)
	}
	return &InsertResult{LastID: lastID, Count: int64(len(p.instances))}, nil
}
