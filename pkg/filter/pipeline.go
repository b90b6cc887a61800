package filter

import (
	"github.com/ajitpratap0/rowstream/pkg/row"
)

// Pipeline is an ordered set of filters. The zero value is an empty
// pipeline. A Pipeline is not safe for concurrent mutation.
type Pipeline struct {
	filters []Filter
}

// NewPipeline returns a pipeline holding fs in first-seen order.
func NewPipeline(fs ...Filter) *Pipeline {
	p := &Pipeline{}
	p.AddAll(fs...)
	return p
}

// Add appends f unless an equal filter is already present. Func-typed
// filters and structs holding slices never match anything, so adding one
// twice keeps both; see Equal.
func (p *Pipeline) Add(f Filter) {
	if f == nil || p.Contains(f) {
		return
	}
	p.filters = append(p.filters, f)
}

// AddAll adds each filter in order.
func (p *Pipeline) AddAll(fs ...Filter) {
	for _, f := range fs {
		p.Add(f)
	}
}

// Remove drops f. Removing an absent filter is a no-op.
func (p *Pipeline) Remove(f Filter) {
	for i, existing := range p.filters {
		if Equal(existing, f) {
			p.filters = append(p.filters[:i:i], p.filters[i+1:]...)
			return
		}
	}
}

// Clear empties the pipeline.
func (p *Pipeline) Clear() {
	p.filters = []Filter{}
}

// Contains reports whether an equal filter is present.
func (p *Pipeline) Contains(f Filter) bool {
	for _, existing := range p.filters {
		if Equal(existing, f) {
			return true
		}
	}
	return false
}

// List returns a copy of the filters in insertion order. It is never nil.
func (p *Pipeline) List() []Filter {
	out := make([]Filter, len(p.filters))
	copy(out, p.filters)
	return out
}

// Len returns the number of filters.
func (p *Pipeline) Len() int {
	return len(p.filters)
}

// Apply folds a copy of r through every filter in order. The caller's row
// is never handed to a filter, and an empty pipeline returns an equal copy.
// A nil row is treated as empty.
func (p *Pipeline) Apply(r *row.Row) *row.Row {
	out := r.Clone()
	for _, f := range p.filters {
		out = f.Apply(out)
	}
	return out
}
