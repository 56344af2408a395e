package om

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// A Kind identifies the primitive type of a tracked field. The set is
// closed: extending it is a pure addition of another recognizer to
// Field.fromSQL.
type Kind uint8

// Field kinds eligible for tracking.
const (
	KindInt Kind = iota + 1
	KindString
	KindFloat64
	KindBool
	KindTime
	KindUUID
)

// Field describes one tracked attribute of an entity type.
type Field struct {
	name      string
	kind      Kind
	unwatched bool
}

// IntField declares an integer field.
func IntField(name string) *Field { return &Field{name: name, kind: KindInt} }

// StringField declares a string field.
func StringField(name string) *Field { return &Field{name: name, kind: KindString} }

// Float64Field declares a float field.
func Float64Field(name string) *Field { return &Field{name: name, kind: KindFloat64} }

// BoolField declares a boolean field.
func BoolField(name string) *Field { return &Field{name: name, kind: KindBool} }

// TimeField declares a timestamp field.
func TimeField(name string) *Field { return &Field{name: name, kind: KindTime} }

// UUIDField declares a UUID field.
func UUIDField(name string) *Field { return &Field{name: name, kind: KindUUID} }

// Unwatched marks the field as excluded from dirty-based diffing: writes
// still update the value but never mark the field dirty.
func (f *Field) Unwatched() *Field {
	f.unwatched = true
	return f
}

// Name returns the field name.
func (f *Field) Name() string { return f.name }

// Kind returns the field kind.
func (f *Field) Kind() Kind { return f.kind }

// fromSQL converts a driver value into the field's Go representation.
func (f *Field) fromSQL(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.kind {
	case KindInt:
		switch v := v.(type) {
		case int64:
			return v, nil
		case []byte:
			return strconv.ParseInt(string(v), 10, 64)
		}
	case KindString:
		switch v := v.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		}
	case KindFloat64:
		switch v := v.(type) {
		case float64:
			return v, nil
		case []byte:
			return strconv.ParseFloat(string(v), 64)
		}
	case KindBool:
		switch v := v.(type) {
		case bool:
			return v, nil
		case int64:
			return v != 0, nil
		}
	case KindTime:
		switch v := v.(type) {
		case time.Time:
			return v, nil
		case []byte:
			return parseTime(string(v))
		case string:
			return parseTime(v)
		}
	case KindUUID:
		switch v := v.(type) {
		case string:
			return uuid.Parse(v)
		case []byte:
			if len(v) == 16 {
				return uuid.FromBytes(v)
			}
			return uuid.Parse(string(v))
		}
	}
	return nil, fmt.Errorf("om: cannot load %T into field %q", v, f.name)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.DateTime, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("om: cannot parse time %q", s)
}

// EntityType describes a tracked entity: an ordered set of field
// descriptors derived once, at declaration time, by explicit registration.
type EntityType struct {
	name   string
	fields []*Field
	index  map[string]*Field
	newFn  func() *Record
}

// NewEntityType registers an entity type with its declared fields.
func NewEntityType(name string, fields ...*Field) (*EntityType, error) {
	if name == "" {
		return nil, configErrorf("entity type needs a name")
	}
	if len(fields) == 0 {
		return nil, configErrorf("entity type %q declares no fields", name)
	}
	t := &EntityType{
		name:   name,
		fields: fields,
		index:  make(map[string]*Field, len(fields)),
	}
	for _, f := range fields {
		if _, dup := t.index[f.name]; dup {
			return nil, configErrorf("entity type %q declares field %q twice", name, f.name)
		}
		t.index[f.name] = f
	}
	t.newFn = func() *Record { return newRecord(t) }
	return t, nil
}

// MustEntityType is like NewEntityType but panics on error. Entity types
// are declared at package initialization, where a bad declaration should
// fail loudly.
func MustEntityType(name string, fields ...*Field) *EntityType {
	t, err := NewEntityType(name, fields...)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the entity type name.
func (t *EntityType) Name() string { return t.name }

// Fields returns the declared fields in declaration order.
func (t *EntityType) Fields() []*Field { return t.fields }

// Field returns the named field descriptor.
func (t *EntityType) Field(name string) (*Field, bool) {
	f, ok := t.index[name]
	return f, ok
}

// SetNew overrides the zero-argument instantiation hook used when select
// results are wrapped into instances.
func (t *EntityType) SetNew(fn func() *Record) {
	t.newFn = fn
}

// New returns a fresh, clean instance of the entity type.
func (t *EntityType) New() *Record { return t.newFn() }

// Record is one tracked instance of an entity type. Field reads and writes
// go through its tracking ledger, so the instance always knows which
// fields were mutated since it was loaded or last persisted.
type Record struct {
	typ    *EntityType
	holder *Holder
}

func newRecord(typ *EntityType) *Record {
	return &Record{typ: typ, holder: newHolder(typ)}
}

// Type returns the entity type of the record.
func (r *Record) Type() *EntityType { return r.typ }

// Tracking returns the record's tracking ledger.
func (r *Record) Tracking() *Holder { return r.holder }

// Set writes a field value and marks it dirty (unless unwatched).
func (r *Record) Set(name string, v any) error {
	return r.holder.Set(name, v)
}

// MustSet is like Set but panics on unknown fields.
func (r *Record) MustSet(name string, v any) *Record {
	if err := r.holder.Set(name, v); err != nil {
		panic(err)
	}
	return r
}

// Get returns the current field value, or Unset if never assigned.
func (r *Record) Get(name string) any { return r.holder.Get(name) }

// GetInt returns the named field as an int64, zero if unset or null.
func (r *Record) GetInt(name string) int64 {
	if v, ok := r.holder.Get(name).(int64); ok {
		return v
	}
	return 0
}

// GetString returns the named field as a string, empty if unset or null.
func (r *Record) GetString(name string) string {
	if v, ok := r.holder.Get(name).(string); ok {
		return v
	}
	return ""
}

// GetFloat64 returns the named field as a float64, zero if unset or null.
func (r *Record) GetFloat64(name string) float64 {
	if v, ok := r.holder.Get(name).(float64); ok {
		return v
	}
	return 0
}

// GetBool returns the named field as a bool, false if unset or null.
func (r *Record) GetBool(name string) bool {
	if v, ok := r.holder.Get(name).(bool); ok {
		return v
	}
	return false
}

// GetTime returns the named field as a time.Time, zero if unset or null.
func (r *Record) GetTime(name string) time.Time {
	if v, ok := r.holder.Get(name).(time.Time); ok {
		return v
	}
	return time.Time{}
}

// GetUUID returns the named field as a uuid.UUID, uuid.Nil if unset or null.
func (r *Record) GetUUID(name string) uuid.UUID {
	if v, ok := r.holder.Get(name).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// String renders the record for debugging.
func (r *Record) String() string {
	var b strings.Builder
	b.WriteByte('<')
	b.WriteString(r.typ.name)
	for _, f := range r.typ.fields {
		fmt.Fprintf(&b, " %s=%v", f.name, r.holder.Get(f.name))
	}
	b.WriteByte('>')
	return b.String()
}
