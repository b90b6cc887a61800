// Package row defines the ordered record exchanged between decoders,
// filters and encoders.
//
// A Row maps unique column names to dynamically typed values and remembers
// insertion order, which encoders that emit a header (CSV, Avro, Arrow) rely
// on. Rows are value-like: filters receive a copy and return a new row.
package row

import (
	"bytes"
	stdjson "encoding/json"
	"fmt"
	"io"
	"math"
	"reflect"
	"strings"

	"github.com/ajitpratap0/rowstream/pkg/json"
)

// Row is an ordered mapping of column name to value.
// The zero value is an empty row ready to use.
type Row struct {
	keys   []string
	values map[string]interface{}
}

// New returns an empty row with room for capacity columns.
func New(capacity int) *Row {
	return &Row{
		keys:   make([]string, 0, capacity),
		values: make(map[string]interface{}, capacity),
	}
}

// FromPairs builds a row from alternating key/value arguments.
// It panics if the argument count is odd or a key is not a string.
func FromPairs(kv ...interface{}) *Row {
	if len(kv)%2 != 0 {
		panic("row: FromPairs requires an even number of arguments")
	}
	r := New(len(kv) / 2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("row: FromPairs key at position %d is %T, not string", i, kv[i]))
		}
		r.Set(key, kv[i+1])
	}
	return r
}

// Set stores value under key. An existing key keeps its position.
func (r *Row) Set(key string, value interface{}) {
	if r.values == nil {
		r.values = make(map[string]interface{})
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value stored under key.
func (r *Row) Get(key string) (interface{}, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether key is present, including keys holding nil.
func (r *Row) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Delete removes key. Deleting an absent key is a no-op.
func (r *Row) Delete(key string) {
	if !r.Has(key) {
		return
	}
	delete(r.values, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the column names in insertion order.
func (r *Row) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Values returns the values in column order.
func (r *Row) Values() []interface{} {
	if r == nil {
		return nil
	}
	out := make([]interface{}, len(r.keys))
	for i, k := range r.keys {
		out[i] = r.values[k]
	}
	return out
}

// Len returns the number of columns.
func (r *Row) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Range calls fn for each column in order until fn returns false.
func (r *Row) Range(fn func(key string, value interface{}) bool) {
	if r == nil {
		return
	}
	for _, k := range r.keys {
		if !fn(k, r.values[k]) {
			return
		}
	}
}

// Clone returns a shallow copy. Cloning nil yields an empty row.
func (r *Row) Clone() *Row {
	if r == nil {
		return New(0)
	}
	c := New(len(r.keys))
	for _, k := range r.keys {
		c.Set(k, r.values[k])
	}
	return c
}

// Equal reports whether both rows hold the same columns, in the same order,
// with deeply equal values.
func (r *Row) Equal(other *Row) bool {
	if r.Len() != other.Len() {
		return false
	}
	if r.Len() == 0 {
		return true
	}
	for i, k := range r.keys {
		if other.keys[i] != k {
			return false
		}
		if !valuesEqual(r.values[k], other.values[k]) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b interface{}) bool {
	ar, aok := a.(*Row)
	br, bok := b.(*Row)
	if aok && bok {
		return ar.Equal(br)
	}
	return reflect.DeepEqual(a, b)
}

// String renders the row as ordered JSON, falling back to fmt on failure.
func (r *Row) String() string {
	data, err := r.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%v", r.Values())
	}
	return string(data)
}

// MarshalJSON encodes the row as a JSON object preserving column order.
func (r *Row) MarshalJSON() ([]byte, error) {
	buf := json.GetBuffer()
	defer json.PutBuffer(buf)

	out := buf.AvailableBuffer()
	out = append(out, '{')
	var err error
	for i, k := range r.Keys() {
		if i > 0 {
			out = append(out, ',')
		}
		if out, err = json.AppendValue(out, k); err != nil {
			return nil, err
		}
		out = append(out, ':')
		if out, err = json.AppendValue(out, r.values[k]); err != nil {
			return nil, fmt.Errorf("row: column %q: %w", k, err)
		}
	}
	out = append(out, '}')

	result := make([]byte, len(out))
	copy(result, out)
	return result, nil
}

// UnmarshalJSON decodes a JSON object into the row, keeping the document's
// key order. Integral numbers become int32 when they fit and int64
// otherwise, other numbers float64 and nested objects *Row.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := stdjson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(stdjson.Delim); !ok || delim != '{' {
		return fmt.Errorf("row: expected JSON object, got %v", tok)
	}
	decoded, err := decodeObject(dec)
	if err != nil {
		return err
	}
	*r = *decoded
	return nil
}

func decodeObject(dec *stdjson.Decoder) (*Row, error) {
	r := New(8)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("row: expected object key, got %v", tok)
		}
		value, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		r.Set(key, value)
	}
	// closing brace
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return r, nil
}

func decodeValue(dec *stdjson.Decoder) (interface{}, error) {
	tok, err := dec.Token()
	if err == io.EOF {
		return nil, io.ErrUnexpectedEOF
	}
	if err != nil {
		return nil, err
	}
	switch v := tok.(type) {
	case stdjson.Delim:
		switch v {
		case '{':
			return decodeObject(dec)
		case '[':
			var items []interface{}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return items, nil
		}
		return nil, fmt.Errorf("row: unexpected delimiter %v", v)
	case stdjson.Number:
		return numberValue(v), nil
	default:
		return v, nil
	}
}

func numberValue(n stdjson.Number) interface{} {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			if i >= math.MinInt32 && i <= math.MaxInt32 {
				return int32(i)
			}
			return i
		}
	}
	f, err := n.Float64()
	if err != nil {
		return s
	}
	return f
}
