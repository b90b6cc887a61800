package avro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/rowstream/pkg/row"
	"github.com/ajitpratap0/rowstream/pkg/testutil"
)

func roundTrip(t *testing.T, rows ...*row.Row) ([]*row.Row, error) {
	t.Helper()
	enc := NewEncoder()
	enc.SetLogger(testutil.TestLogger(t))
	h := testutil.NewHandle(nil)
	enc.Open(h)
	for _, r := range rows {
		require.NoError(t, enc.Write(r))
	}
	enc.Close()

	dec := NewDecoder()
	dec.SetLogger(testutil.TestLogger(t))
	dec.Open(testutil.NewHandle(h.Bytes()))
	defer dec.Close()

	var out []*row.Row
	it := dec.Iterate()
	for r := range it.All() {
		out = append(out, r)
	}
	return out, it.Err()
}

func TestRoundTripPreservesTypesAndOrder(t *testing.T) {
	first := row.FromPairs(
		"zeta", int64(9),
		"alpha", "a",
		"i", int32(3),
		"f", float32(1.5),
		"d", 2.25,
		"ok", true,
	)
	second := row.FromPairs(
		"zeta", nil,
		"alpha", "b",
		"i", int32(4),
		"f", float32(0),
		"d", -1.0,
		"ok", false,
	)

	out, err := roundTrip(t, first, second)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, first.Equal(out[0]), "got %v", out[0].Values())
	assert.True(t, second.Equal(out[1]), "got %v", out[1].Values())
}

func TestManyRowsSpanBlocks(t *testing.T) {
	in := testutil.SampleRows(blockSize + 10)
	out, err := roundTrip(t, in...)
	require.NoError(t, err)
	require.Len(t, out, len(in))
	assert.True(t, in[blockSize+9].Equal(out[blockSize+9]))
}

func TestTypeChangeIsWriteError(t *testing.T) {
	enc := NewEncoder()
	enc.Open(testutil.NewHandle(nil))
	defer enc.Close()

	require.NoError(t, enc.Write(row.FromPairs("n", int64(1))))
	assert.Error(t, enc.Write(row.FromPairs("n", true)))
}

func TestMissingColumnsWrittenAsNull(t *testing.T) {
	out, err := roundTrip(t, row.FromPairs("a", "x", "b", int64(1)), row.FromPairs("a", "y"))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[1].Equal(row.FromPairs("a", "y", "b", nil)))
}

func TestEmptyInput(t *testing.T) {
	dec := NewDecoder()
	dec.Open(testutil.NewHandle(nil))
	defer dec.Close()
	assert.False(t, dec.Iterate().Next())
}

func TestGarbageInputYieldsNothing(t *testing.T) {
	dec := NewDecoder()
	dec.Open(testutil.NewHandle([]byte("definitely not avro")))
	defer dec.Close()
	assert.False(t, dec.Iterate().Next())
}

func TestInvalidColumnNamesSurviveRoundTrip(t *testing.T) {
	in := row.FromPairs(
		"first name", "ann",
		"first_name", "dup",
		"1st", int32(1),
		"e-mail", "a@b.c",
		"", true,
	)

	out, err := roundTrip(t, in)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, in.Keys(), out[0].Keys())
	assert.True(t, in.Equal(out[0]), "got %v", out[0].Values())
}

func TestFieldName(t *testing.T) {
	used := map[string]bool{}
	assert.Equal(t, "id", fieldName("id", used))
	assert.Equal(t, "first_name", fieldName("first name", used))
	assert.Equal(t, "first_name_2", fieldName("first-name", used))
	assert.Equal(t, "_1st", fieldName("1st", used))
	assert.Equal(t, "_", fieldName("", used))
	assert.Equal(t, "caf_", fieldName("café", used))
}
