package om

// unsetValue is the type of the Unset sentinel.
type unsetValue struct{}

func (unsetValue) String() string { return "<unset>" }

// Unset is the value read from a field that was never assigned. It is
// distinguishable from every valid value, including nil, so persistence
// logic can tell "never assigned" from "explicitly assigned to zero".
var Unset any = unsetValue{}

// isUnset reports whether v is the Unset sentinel. A type assertion is used
// rather than ==, which would panic on non-comparable field values.
func isUnset(v any) bool {
	_, ok := v.(unsetValue)
	return ok
}

// Holder is the per-instance tracking ledger: current values by field name
// plus the set of names written since the last reset. A Holder belongs to
// exactly one Record and is not safe for concurrent mutation without
// external synchronization.
type Holder struct {
	typ    *EntityType
	values map[string]any
	dirty  map[string]struct{}
}

func newHolder(typ *EntityType) *Holder {
	return &Holder{
		typ:    typ,
		values: make(map[string]any, len(typ.fields)),
		dirty:  make(map[string]struct{}),
	}
}

// Get returns the current value of the named field, or Unset if the field
// was never assigned.
func (h *Holder) Get(name string) any {
	v, ok := h.values[name]
	if !ok {
		return Unset
	}
	return v
}

// Set updates the field value and marks it dirty, unless the field is
// unwatched. Unknown fields are a configuration error.
func (h *Holder) Set(name string, v any) error {
	f, ok := h.typ.index[name]
	if !ok {
		return configErrorf("entity %q has no field %q", h.typ.name, name)
	}
	if !f.unwatched {
		h.dirty[name] = struct{}{}
	}
	h.values[name] = v
	return nil
}

// IsDirty reports whether any field was written since the last reset.
func (h *Holder) IsDirty() bool {
	return len(h.dirty) > 0
}

// FieldDirty reports whether the named field was written since the last reset.
func (h *Holder) FieldDirty(name string) bool {
	_, ok := h.dirty[name]
	return ok
}

// Dirty returns the dirty fields and their current values.
func (h *Holder) Dirty() map[string]any {
	m := make(map[string]any, len(h.dirty))
	for name := range h.dirty {
		m[name] = h.values[name]
	}
	return m
}

// Values returns every declared field with its current value, Unset for
// fields never assigned.
func (h *Holder) Values() map[string]any {
	m := make(map[string]any, len(h.typ.fields))
	for _, f := range h.typ.fields {
		m[f.name] = h.Get(f.name)
	}
	return m
}

// Reset clears the dirty set. If initial values are supplied, as on load
// from storage, they are merged into the ledger first. Reset is the only
// way dirty state returns to empty.
func (h *Holder) Reset(initial map[string]any) {
	for name, v := range initial {
		h.values[name] = v
	}
	clear(h.dirty)
}
