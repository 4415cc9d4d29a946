package headerrules

import "strings"

// Lookup reads the first value of a header. Names are case-insensitive.
type Lookup interface {
	Get(name string) (string, bool)
}

// Map is the mutable header set of one direction of an exchange. A name may
// occur more than once.
type Map interface {
	Lookup

	// Add appends a value, keeping any existing occurrences.
	Add(name, value string)

	// Set replaces every occurrence of name with a single value.
	Set(name, value string)

	// SetFirst replaces the value of the first occurrence of name. It is a
	// no-op when name is absent.
	SetFirst(name, value string)

	// Del removes every occurrence of name.
	Del(name string)
}

// ReadOnly is implemented by maps that refuse writes to some names, such as
// request pseudo-headers. Rules targeting such a name report no change.
type ReadOnly interface {
	ReadOnly(name string) bool
}

func writable(h Map, name string) bool {
	ro, ok := h.(ReadOnly)
	return !ok || !ro.ReadOnly(name)
}

// Field is one header line.
type Field struct {
	Name  string
	Value string
}

// List is an ordered header set that keeps duplicates and insertion order.
// The zero value is empty and ready to use.
type List struct {
	fields []Field
}

var _ Map = (*List)(nil)

// NewList returns a List holding fields in order.
func NewList(fields ...Field) *List {
	l := &List{fields: make([]Field, 0, len(fields))}
	l.fields = append(l.fields, fields...)
	return l
}

// Get implements Lookup.
func (l *List) Get(name string) (string, bool) {
	for _, f := range l.fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// Values returns every value of name in order.
func (l *List) Values(name string) []string {
	var out []string
	for _, f := range l.fields {
		if strings.EqualFold(f.Name, name) {
			out = append(out, f.Value)
		}
	}
	return out
}

// Add implements Map.
func (l *List) Add(name, value string) {
	l.fields = append(l.fields, Field{Name: name, Value: value})
}

// Set implements Map. The single remaining value takes the position of the
// first occurrence, or is appended when name was absent.
func (l *List) Set(name, value string) {
	for i, f := range l.fields {
		if strings.EqualFold(f.Name, name) {
			l.fields[i].Value = value
			l.delFrom(name, i+1)
			return
		}
	}
	l.Add(name, value)
}

// SetFirst implements Map.
func (l *List) SetFirst(name, value string) {
	for i, f := range l.fields {
		if strings.EqualFold(f.Name, name) {
			l.fields[i].Value = value
			return
		}
	}
}

// Del implements Map.
func (l *List) Del(name string) {
	l.delFrom(name, 0)
}

func (l *List) delFrom(name string, start int) {
	kept := l.fields[:start]
	for _, f := range l.fields[start:] {
		if !strings.EqualFold(f.Name, name) {
			kept = append(kept, f)
		}
	}
	l.fields = kept
}

// Fields returns a copy of the header lines in order.
func (l *List) Fields() []Field {
	out := make([]Field, len(l.fields))
	copy(out, l.fields)
	return out
}

// Len returns the number of header lines.
func (l *List) Len() int {
	return len(l.fields)
}
