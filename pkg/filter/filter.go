// Package filter provides row transformers and the ordered, de-duplicated
// pipeline every decoder, encoder and converter owns.
package filter

import (
	"reflect"

	"github.com/ajitpratap0/rowstream/pkg/row"
)

// Filter transforms a row. Implementations must not mutate the row they
// receive beyond what they return. Pipelines de-duplicate filters with
// Equal.
type Filter interface {
	Apply(r *row.Row) *row.Row
}

// FuncFilter adapts a function to Filter. Each call to Func returns a
// distinct filter, so two adapters of the same function are not equal.
type FuncFilter struct {
	name string
	fn   func(*row.Row) *row.Row
}

// Func wraps fn as a named Filter.
func Func(name string, fn func(*row.Row) *row.Row) *FuncFilter {
	return &FuncFilter{name: name, fn: fn}
}

// Apply implements Filter.
func (f *FuncFilter) Apply(r *row.Row) *row.Row {
	return f.fn(r)
}

// String returns the filter name.
func (f *FuncFilter) String() string {
	return f.name
}

// Equal reports whether a and b are the same filter. Comparable filters
// compare with ==, map filters by identity and slice filters by backing
// array and length. Other non-comparable filters are never equal, even to
// themselves: func values expose only their code pointer, which closures
// of one literal share, and structs holding a slice have no identity.
// Wrap those in Func or pass a pointer.
func Equal(a, b Filter) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch ta.Kind() {
	case reflect.Map:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	default:
		return false
	}
}
