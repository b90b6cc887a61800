package core

import "strconv"

// Bound caps how many rows an iterator yields. The zero value is unlimited.
type Bound struct {
	max     uint64
	limited bool
}

// Unlimited returns a bound that never stops iteration.
func Unlimited() Bound {
	return Bound{}
}

// Limit returns a bound of n rows. Limit(0) yields nothing.
func Limit(n uint64) Bound {
	return Bound{max: n, limited: true}
}

// Limited returns the cap and whether one is set.
func (b Bound) Limited() (uint64, bool) {
	return b.max, b.limited
}

// Reached reports whether emitted rows exhaust the bound.
func (b Bound) Reached(emitted uint64) bool {
	return b.limited && emitted >= b.max
}

func (b Bound) String() string {
	if !b.limited {
		return "unlimited"
	}
	return strconv.FormatUint(b.max, 10)
}
