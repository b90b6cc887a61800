package core

import (
	"errors"
	"io"
	"iter"

	"go.uber.org/zap"

	"github.com/ajitpratap0/rowstream/pkg/filter"
	"github.com/ajitpratap0/rowstream/pkg/row"
)

// FilteredIterator lazily pulls rows from a RowSource, runs each through a
// filter pipeline and stops at its bound without advancing the source.
//
//	it := dec.Iterate()
//	for it.Next() {
//	    use(it.Row())
//	}
//	if err := it.Err(); err != nil { ... }
type FilteredIterator struct {
	src     RowSource
	filters *filter.Pipeline
	bound   Bound
	logger  *zap.Logger

	emitted uint64
	current *row.Row
	err     error
	done    bool
}

// NewFilteredIterator composes src with filters and bound. A nil source
// yields nothing; a nil pipeline applies no filters.
func NewFilteredIterator(src RowSource, filters *filter.Pipeline, bound Bound, logger *zap.Logger) *FilteredIterator {
	if filters == nil {
		filters = filter.NewPipeline()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FilteredIterator{
		src:     src,
		filters: filters,
		bound:   bound,
		logger:  logger,
	}
}

// Empty returns an iterator that yields nothing.
func Empty() *FilteredIterator {
	return NewFilteredIterator(nil, nil, Unlimited(), nil)
}

// Next advances to the next filtered row. It returns false once the bound
// is reached, the source is exhausted or a read fails.
func (it *FilteredIterator) Next() bool {
	if it.done {
		return false
	}
	if it.src == nil || it.bound.Reached(it.emitted) {
		it.finish()
		return false
	}

	raw, err := it.src.Next()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			it.logger.Error("row source failed, ending iteration early",
				zap.Uint64("emitted", it.emitted),
				zap.Error(err))
			it.err = err
		}
		it.finish()
		return false
	}

	it.current = it.filters.Apply(raw)
	it.emitted++
	return true
}

func (it *FilteredIterator) finish() {
	it.done = true
	it.current = nil
}

// Row returns the current filtered row, or nil outside of iteration.
func (it *FilteredIterator) Row() *row.Row {
	return it.current
}

// Err returns the read error that ended iteration early, if any.
func (it *FilteredIterator) Err() error {
	return it.err
}

// Emitted returns how many rows have been yielded.
func (it *FilteredIterator) Emitted() uint64 {
	return it.emitted
}

// Remove forwards to the source when it supports removal.
func (it *FilteredIterator) Remove() {
	if r, ok := it.src.(Remover); ok {
		r.Remove()
	}
}

// All adapts the iterator to a range-over-func sequence.
func (it *FilteredIterator) All() iter.Seq[*row.Row] {
	return func(yield func(*row.Row) bool) {
		for it.Next() {
			if !yield(it.Row()) {
				return
			}
		}
	}
}
