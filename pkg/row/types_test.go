package row

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeOf(t *testing.T) {
	tests := []struct {
		value interface{}
		want  Type
	}{
		{"s", String},
		{int32(1), Integer},
		{int64(1), Long},
		{float32(1), Float},
		{float64(1), Double},
		{true, Boolean},
		{nil, String},
		{[]byte("x"), String},
		{1, String},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, TypeOf(tt.value))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, int64(5), Normalize(5))
	assert.Equal(t, int64(-3), Normalize(int8(-3)))
	assert.Equal(t, int64(7), Normalize(uint32(7)))
	assert.Equal(t, "18446744073709551615", Normalize(uint64(18446744073709551615)))
	assert.Equal(t, int32(2), Normalize(int32(2)))
	assert.Equal(t, "x", Normalize("x"))
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "abc", Stringify("abc"))
	assert.Equal(t, "12", Stringify(int64(12)))
	assert.Equal(t, "1.5", Stringify(1.5))
	assert.Equal(t, "true", Stringify(true))
}
