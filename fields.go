package rowmap

import (
	"fmt"
	"strings"
)

// Fields is an ordered mapping of column name to value. The insertion order
// of keys is preserved and drives the column order of generated statements.
// The zero value is ready to use.
type Fields struct {
	keys   []string
	values map[string]any
}

// NewFields returns a Fields holding the given keys, each set to nil.
func NewFields(keys ...string) *Fields {
	f := &Fields{}
	for _, k := range keys {
		f.Set(k, nil)
	}
	return f
}

// Len returns the number of fields.
func (f *Fields) Len() int {
	return len(f.keys)
}

// Has reports whether the key exists.
func (f *Fields) Has(key string) bool {
	_, ok := f.values[key]
	return ok
}

// Get returns the value stored under key, or nil if the key is absent.
func (f *Fields) Get(key string) any {
	return f.values[key]
}

// Lookup returns the value stored under key and whether the key exists.
func (f *Fields) Lookup(key string) (any, bool) {
	v, ok := f.values[key]
	return v, ok
}

// Set stores value under key. New keys are appended at the end.
func (f *Fields) Set(key string, value any) {
	if f.values == nil {
		f.values = make(map[string]any)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Keys returns the keys in insertion order.
func (f *Fields) Keys() []string {
	keys := make([]string, len(f.keys))
	copy(keys, f.keys)
	return keys
}

// Values returns the values in key order.
func (f *Fields) Values() []any {
	vs := make([]any, len(f.keys))
	for i, k := range f.keys {
		vs[i] = f.values[k]
	}
	return vs
}

// Map returns an unordered copy of the fields.
func (f *Fields) Map() map[string]any {
	m := make(map[string]any, len(f.keys))
	for _, k := range f.keys {
		m[k] = f.values[k]
	}
	return m
}

// Clone returns a copy that shares no state with f.
func (f *Fields) Clone() *Fields {
	c := &Fields{
		keys:   make([]string, len(f.keys)),
		values: make(map[string]any, len(f.keys)),
	}
	copy(c.keys, f.keys)
	for k, v := range f.values {
		if b, ok := v.([]byte); ok {
			v = append([]byte(nil), b...)
		}
		c.values[k] = v
	}
	return c
}

// String returns the fields formatted as {k1: v1, k2: v2}.
func (f *Fields) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range f.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(formatValue(f.values[k]))
	}
	b.WriteByte('}')
	return b.String()
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return fmt.Sprintf("%q", v)
	case []byte:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprint(v)
	}
}
