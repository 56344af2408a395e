package om

import "strings"

// exprKind discriminates how a predicate node renders and how many
// parameter slots it consumes.
type exprKind uint8

const (
	exprCompare exprKind = iota + 1 // column OP ?          one slot
	exprIn                          // column IN ?          one slot, bound to the whole sequence
	exprBetween                     // column BETWEEN ? AND ?   two slots
	exprNull                        // column IS [NOT] NULL no slots
)

type chained struct {
	conj string
	next *Expr
}

// Expr is one predicate node. Chaining And/Or appends further nodes to
// this node's chain; rendering wraps each chained node (including its own
// chain) in parentheses after the conjunction. Grouping therefore follows
// call order strictly left to right, not conventional AND/OR precedence.
type Expr struct {
	column *Column
	op     string
	kind   exprKind
	value  any
	hi     any
	chain  []chained
}

func compare(c *Column, op string, v any) *Expr {
	return &Expr{column: c, op: op, kind: exprCompare, value: v}
}

// EQ builds an equality predicate. A nil value renders IS NULL.
func (c *Column) EQ(v any) *Expr {
	if v == nil {
		return c.IsNull()
	}
	return compare(c, "=", v)
}

// NEQ builds an inequality predicate. A nil value renders IS NOT NULL.
func (c *Column) NEQ(v any) *Expr {
	if v == nil {
		return c.NotNull()
	}
	return compare(c, "<>", v)
}

// GT builds a strictly-greater predicate.
func (c *Column) GT(v any) *Expr { return compare(c, ">", v) }

// GTE builds a greater-or-equal predicate.
func (c *Column) GTE(v any) *Expr { return compare(c, ">=", v) }

// LT builds a strictly-less predicate.
func (c *Column) LT(v any) *Expr { return compare(c, "<", v) }

// LTE builds a less-or-equal predicate.
func (c *Column) LTE(v any) *Expr { return compare(c, "<=", v) }

// Like builds a pattern-match predicate.
func (c *Column) Like(pattern string) *Expr { return compare(c, "LIKE", pattern) }

// In builds a set-membership predicate. The whole value set is bound to a
// single placeholder; the executor expands it per dialect at execution
// time.
func (c *Column) In(vs ...any) *Expr {
	return &Expr{column: c, op: "IN", kind: exprIn, value: vs}
}

// Between builds a range predicate consuming two parameter slots.
func (c *Column) Between(lo, hi any) *Expr {
	return &Expr{column: c, op: "BETWEEN", kind: exprBetween, value: lo, hi: hi}
}

// IsNull builds a null test. It consumes no parameter slots.
func (c *Column) IsNull() *Expr {
	return &Expr{column: c, op: "IS NULL", kind: exprNull}
}

// NotNull builds a not-null test. It consumes no parameter slots.
func (c *Column) NotNull() *Expr {
	return &Expr{column: c, op: "IS NOT NULL", kind: exprNull}
}

// And chains another predicate onto the receiver with AND and returns the
// receiver.
func (e *Expr) And(next *Expr) *Expr {
	e.chain = append(e.chain, chained{conj: "AND", next: next})
	return e
}

// Or chains another predicate onto the receiver with OR and returns the
// receiver.
func (e *Expr) Or(next *Expr) *Expr {
	e.chain = append(e.chain, chained{conj: "OR", next: next})
	return e
}

// Build renders the predicate tree. Column references are resolved through
// name; collected arguments are appended to args in the same order their
// placeholders are emitted. Rendering never consults argument values, so
// the same tree always yields the same SQL text.
func (e *Expr) Build(name func(*Column) (string, error), args *[]any) (string, error) {
	col, err := name(e.column)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, 1+2*len(e.chain))
	switch e.kind {
	case exprNull:
		parts = append(parts, col+" "+e.op)
	case exprBetween:
		parts = append(parts, col+" BETWEEN ? AND ?")
		*args = append(*args, e.value, e.hi)
	default:
		parts = append(parts, col+" "+e.op+" ?")
		*args = append(*args, e.value)
	}
	for _, ch := range e.chain {
		nested, err := ch.next.Build(name, args)
		if err != nil {
			return "", err
		}
		parts = append(parts, ch.conj, "("+nested+")")
	}
	return strings.Join(parts, " "), nil
}

// OrderTerm pairs a column with a sort direction for ORDER BY clauses.
type OrderTerm struct {
	column *Column
	desc   bool
}

// Asc orders by the column ascending.
func (c *Column) Asc() OrderTerm { return OrderTerm{column: c} }

// Desc orders by the column descending.
func (c *Column) Desc() OrderTerm { return OrderTerm{column: c, desc: true} }
