package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/rowstream/pkg/filter"
	"github.com/ajitpratap0/rowstream/pkg/row"
	"github.com/ajitpratap0/rowstream/pkg/testutil"
)

func drain(it *FilteredIterator) []*row.Row {
	var out []*row.Row
	for it.Next() {
		out = append(out, it.Row())
	}
	return out
}

func TestBoundedIteration(t *testing.T) {
	for _, size := range []int{0, 1, 5} {
		for _, max := range []uint64{0, 1, 3, 5, 10} {
			t.Run(fmt.Sprintf("size=%d/max=%d", size, max), func(t *testing.T) {
				rows := testutil.SampleRows(size)
				src := testutil.NewSliceSource(rows...)
				it := NewFilteredIterator(src, nil, Limit(max), testutil.TestLogger(t))

				got := drain(it)

				want := int(min(max, uint64(size)))
				require.Len(t, got, want)
				for i := range got {
					assert.True(t, rows[i].Equal(got[i]), "row %d out of order", i)
				}
				assert.Equal(t, uint64(want), it.Emitted())
				if max == 0 {
					assert.Equal(t, 0, src.Calls, "bound 0 must not touch the source")
				}
				if uint64(size) >= max {
					assert.Equal(t, want, src.Calls, "source advanced past the bound")
				}
			})
		}
	}
}

func TestUnlimitedIterationExhaustsSource(t *testing.T) {
	rows := testutil.SampleRows(7)
	src := testutil.NewSliceSource(rows...)
	it := NewFilteredIterator(src, nil, Unlimited(), nil)

	assert.Len(t, drain(it), 7)
	assert.Nil(t, it.Err())
	assert.False(t, it.Next())
	assert.Equal(t, 8, src.Calls)
}

func TestZeroBoundIsUnlimited(t *testing.T) {
	var b Bound
	_, limited := b.Limited()
	assert.False(t, limited)
	assert.Equal(t, "unlimited", b.String())
	assert.Equal(t, "3", Limit(3).String())
}

func TestFiltersAppliedPerRow(t *testing.T) {
	p := filter.NewPipeline(filter.Func("tag", func(r *row.Row) *row.Row {
		r.Set("tagged", true)
		return r
	}))
	rows := testutil.SampleRows(3)
	it := NewFilteredIterator(testutil.NewSliceSource(rows...), p, Unlimited(), nil)

	for r := range it.All() {
		v, ok := r.Get("tagged")
		require.True(t, ok)
		assert.Equal(t, true, v)
	}
	assert.Equal(t, uint64(3), it.Emitted())
	for _, r := range rows {
		assert.False(t, r.Has("tagged"), "source row mutated")
	}
}

func TestReadErrorEndsIteration(t *testing.T) {
	boom := errors.New("corrupt input")
	src := testutil.NewSliceSource(testutil.SampleRows(5)...)
	src.FailAt = 2
	src.Err = boom
	log, logs := testutil.ObservedLogger()

	it := NewFilteredIterator(src, nil, Unlimited(), log)

	assert.Len(t, drain(it), 2)
	assert.ErrorIs(t, it.Err(), boom)
	assert.False(t, it.Next())
	assert.Equal(t, 3, src.Calls)
	assert.Equal(t, 1, logs.FilterMessage("row source failed, ending iteration early").Len())
}

func TestRowIsNilOutsideIteration(t *testing.T) {
	it := NewFilteredIterator(testutil.NewSliceSource(testutil.SampleRows(1)...), nil, Unlimited(), nil)
	assert.Nil(t, it.Row())
	require.True(t, it.Next())
	assert.NotNil(t, it.Row())
	require.False(t, it.Next())
	assert.Nil(t, it.Row())
}

func TestRemoveForwarded(t *testing.T) {
	src := testutil.NewSliceSource(testutil.SampleRows(2)...)
	it := NewFilteredIterator(src, nil, Unlimited(), nil)
	require.True(t, it.Next())
	it.Remove()
	assert.Equal(t, 1, src.Removed)
}

type plainSource struct{}

func (plainSource) Next() (*row.Row, error) { return row.New(0), nil }

func TestRemoveWithoutSupportIsNoop(t *testing.T) {
	it := NewFilteredIterator(plainSource{}, nil, Limit(1), nil)
	require.True(t, it.Next())
	assert.NotPanics(t, it.Remove)
	assert.False(t, it.Next())
}

func TestEmpty(t *testing.T) {
	it := Empty()
	assert.False(t, it.Next())
	assert.NotPanics(t, it.Remove)
	assert.Nil(t, it.Err())
}

func TestAllStopsWhenYieldReturnsFalse(t *testing.T) {
	src := testutil.NewSliceSource(testutil.SampleRows(10)...)
	it := NewFilteredIterator(src, nil, Unlimited(), nil)

	n := 0
	for range it.All() {
		n++
		if n == 4 {
			break
		}
	}
	assert.Equal(t, 4, n)
	assert.Equal(t, 4, src.Calls)
}
