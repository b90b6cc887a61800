package row

import (
	"fmt"
	"math"
)

// Type classifies a row value.
type Type int

const (
	// String covers strings and every value without a more specific type, nil included.
	String Type = iota
	// Integer is a 32-bit signed integer.
	Integer
	// Long is a 64-bit signed integer.
	Long
	// Float is a 32-bit float.
	Float
	// Double is a 64-bit float.
	Double
	// Boolean is a bool.
	Boolean
)

var typeNames = [...]string{
	String:  "string",
	Integer: "integer",
	Long:    "long",
	Float:   "float",
	Double:  "double",
	Boolean: "boolean",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// TypeOf classifies v. Only the canonical value kinds are recognised.
func TypeOf(v interface{}) Type {
	switch v.(type) {
	case int32:
		return Integer
	case int64:
		return Long
	case float32:
		return Float
	case float64:
		return Double
	case bool:
		return Boolean
	default:
		return String
	}
}

// Normalize maps Go-native scalar kinds onto the canonical value set.
// Platform ints and narrower signed ints become int64; unsigned ints become
// int64 when they fit and a decimal string otherwise. Other values are
// returned unchanged.
func Normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint:
		return normalizeUnsigned(uint64(x))
	case uint64:
		return normalizeUnsigned(x)
	default:
		return v
	}
}

func normalizeUnsigned(u uint64) interface{} {
	if u > math.MaxInt64 {
		return fmt.Sprintf("%d", u)
	}
	return int64(u)
}

// Stringify renders a scalar value the way text formats store it.
// nil becomes the empty string.
func Stringify(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}
