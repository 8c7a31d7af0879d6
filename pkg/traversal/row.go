package traversal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Row is an ordered mapping from output key to property value produced by a
// Project step. Keys keep the order in which the fields were declared. A
// property missing on the vertex shows up as a nil value.
type Row struct {
	keys   []string
	values []any
}

// NewRow builds a Row from parallel key and value slices.
func NewRow(keys []string, values []any) (Row, error) {
	if len(keys) != len(values) {
		return Row{}, fmt.Errorf("traversal: row has %d keys and %d values", len(keys), len(values))
	}
	return Row{keys: slices.Clone(keys), values: slices.Clone(values)}, nil
}

// Len returns the number of fields.
func (r Row) Len() int { return len(r.keys) }

// Keys returns the output keys in declaration order.
func (r Row) Keys() []string { return slices.Clone(r.keys) }

// Values returns the values in declaration order.
func (r Row) Values() []any { return slices.Clone(r.values) }

// Get returns the value for key. ok is false only if the row has no such
// key; a field whose property was absent reports (nil, true).
func (r Row) Get(key string) (value any, ok bool) {
	i := slices.Index(r.keys, key)
	if i < 0 {
		return nil, false
	}
	return r.values[i], true
}

// Map returns the row as an unordered map.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.keys))
	for i, k := range r.keys {
		m[k] = r.values[i]
	}
	return m
}

// MarshalJSON encodes the row as a JSON object preserving key order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r Row) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", k, r.values[i])
	}
	b.WriteByte('}')
	return b.String()
}
