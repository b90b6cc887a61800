package msgpack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/rowstream/pkg/row"
	"github.com/ajitpratap0/rowstream/pkg/testutil"
)

func roundTrip(t *testing.T, data []byte) ([]*row.Row, error) {
	t.Helper()
	dec := NewDecoder()
	dec.SetLogger(testutil.TestLogger(t))
	dec.Open(testutil.NewHandle(data))
	defer dec.Close()

	var out []*row.Row
	it := dec.Iterate()
	for r := range it.All() {
		out = append(out, r)
	}
	return out, it.Err()
}

func TestRoundTripPreservesTypesAndOrder(t *testing.T) {
	in := row.FromPairs(
		"z", int64(1),
		"a", int32(-2),
		"f", float32(0.5),
		"d", 0.25,
		"s", "x",
		"b", true,
		"n", nil,
		"nested", row.FromPairs("q", int64(3), "p", "y"),
	)

	enc := NewEncoder()
	h := testutil.NewHandle(nil)
	enc.Open(h)
	require.NoError(t, enc.Write(in))
	require.NoError(t, enc.Write(row.FromPairs("plain", 7)))
	enc.Close()

	out, err := roundTrip(t, h.Bytes())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, in.Equal(out[0]), "got %v", out[0].Values())
	assert.True(t, out[1].Equal(row.FromPairs("plain", int64(7))))
}

func TestNonMapEndsIteration(t *testing.T) {
	// fixint 1 is not a map
	out, err := roundTrip(t, []byte{0x01})
	assert.Empty(t, out)
	assert.Error(t, err)
}

func TestEmptyInput(t *testing.T) {
	out, err := roundTrip(t, nil)
	assert.NoError(t, err)
	assert.Empty(t, out)
}
