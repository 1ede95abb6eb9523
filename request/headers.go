package request

import "strings"

// Field is a single header name/value pair.
type Field struct {
	Name  string
	Value string
}

// Headers is an ordered header set whose names are unique ignoring case.
type Headers struct {
	fields []Field
}

// Set replaces the value of an existing header in place, or appends it.
func (h *Headers) Set(name, value string) {
	for i := range h.fields {
		if strings.EqualFold(h.fields[i].Name, name) {
			h.fields[i].Value = value
			return
		}
	}

	h.fields = append(h.fields, Field{Name: name, Value: value})
}

// Get returns the value of name, ignoring case.
func (h Headers) Get(name string) (string, bool) {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}

	return "", false
}

// Len returns the number of headers.
func (h Headers) Len() int { return len(h.fields) }

// Fields returns a copy of the headers in insertion order.
func (h Headers) Fields() []Field {
	out := make([]Field, len(h.fields))
	copy(out, h.fields)

	return out
}
