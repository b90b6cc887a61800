package arrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/rowstream/pkg/codec/core"
	"github.com/ajitpratap0/rowstream/pkg/row"
	"github.com/ajitpratap0/rowstream/pkg/testutil"
)

func encode(t *testing.T, rows ...*row.Row) *testutil.Handle {
	t.Helper()
	enc := NewEncoder()
	enc.SetLogger(testutil.TestLogger(t))
	h := testutil.NewHandle(nil)
	enc.Open(h)
	for _, r := range rows {
		require.NoError(t, enc.Write(r))
	}
	enc.Close()
	return h
}

func decode(t *testing.T, data []byte, bound core.Bound) ([]*row.Row, error) {
	t.Helper()
	dec := NewDecoder()
	dec.SetLogger(testutil.TestLogger(t))
	dec.SetMaxRows(bound)
	dec.Open(testutil.NewHandle(data))
	defer dec.Close()

	var out []*row.Row
	it := dec.Iterate()
	for r := range it.All() {
		out = append(out, r)
	}
	return out, it.Err()
}

func TestRoundTripTypes(t *testing.T) {
	in := []*row.Row{
		row.FromPairs("i", int32(1), "l", int64(2), "f", float32(0.5), "d", 1.25, "b", true, "s", "x"),
		row.FromPairs("i", nil, "l", int64(-2), "f", float32(1), "d", 0.0, "b", false, "s", nil),
	}

	out, err := decode(t, encode(t, in...).Bytes(), core.Unlimited())
	require.NoError(t, err)
	require.Len(t, out, 2)
	for i := range in {
		assert.True(t, in[i].Equal(out[i]), "row %d: %v", i, out[i].Values())
	}
}

func TestMultipleBatches(t *testing.T) {
	in := testutil.SampleRows(batchSize*2 + 5)
	out, err := decode(t, encode(t, in...).Bytes(), core.Unlimited())
	require.NoError(t, err)
	require.Len(t, out, len(in))
	assert.True(t, in[batchSize].Equal(out[batchSize]))
	assert.True(t, in[len(in)-1].Equal(out[len(out)-1]))
}

func TestBoundAcrossBatches(t *testing.T) {
	in := testutil.SampleRows(batchSize + 1)
	out, err := decode(t, encode(t, in...).Bytes(), core.Limit(3))
	require.NoError(t, err)
	assert.Len(t, out, 3)
}

func TestEncoderDoesNotCloseTwice(t *testing.T) {
	h := encode(t, testutil.SampleRows(1)...)
	assert.Equal(t, 1, h.Closed)
}

func TestTypeMismatch(t *testing.T) {
	enc := NewEncoder()
	enc.Open(testutil.NewHandle(nil))
	defer enc.Close()

	require.NoError(t, enc.Write(row.FromPairs("n", int64(1))))
	assert.Error(t, enc.Write(row.FromPairs("n", "nope")))
}

func TestEmptyInput(t *testing.T) {
	out, err := decode(t, nil, core.Unlimited())
	assert.NoError(t, err)
	assert.Empty(t, out)
}
