// Package column provides a filter that projects rows onto a fixed,
// ordered set of columns.
package column

import (
	"strings"

	"github.com/ajitpratap0/rowstream/pkg/row"
)

// Filter keeps exactly the configured columns, in configured order.
// Requested columns missing from the input are emitted as nil.
type Filter struct {
	columns []string
}

// New returns a column filter. Duplicate names collapse to their first
// occurrence.
func New(columns ...string) *Filter {
	seen := make(map[string]struct{}, len(columns))
	unique := make([]string, 0, len(columns))
	for _, c := range columns {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		unique = append(unique, c)
	}
	return &Filter{columns: unique}
}

// Parse builds a filter from a comma separated list, trimming blanks.
func Parse(list string) *Filter {
	var columns []string
	for _, c := range strings.Split(list, ",") {
		if c = strings.TrimSpace(c); c != "" {
			columns = append(columns, c)
		}
	}
	return New(columns...)
}

// Columns returns the projected column names.
func (f *Filter) Columns() []string {
	out := make([]string, len(f.columns))
	copy(out, f.columns)
	return out
}

// Apply implements filter.Filter.
func (f *Filter) Apply(r *row.Row) *row.Row {
	out := row.New(len(f.columns))
	for _, c := range f.columns {
		v, _ := r.Get(c)
		out.Set(c, v)
	}
	return out
}

func (f *Filter) String() string {
	return "columns(" + strings.Join(f.columns, ",") + ")"
}
