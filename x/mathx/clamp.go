package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Between reports lo <= v && v <= hi (order-insensitive).
func Between[T constraints.Ordered](v, lo, hi T) bool {
	if hi < lo {
		lo, hi = hi, lo
	}
	return v >= lo && v <= hi
}

// ScaleClamped maps v from [0, inMax] onto [0, outMax] and clamps the result.
// A non-positive inMax yields 0.
func ScaleClamped[T constraints.Float](v, inMax, outMax T) T {
	if inMax <= 0 {
		return 0
	}
	return Clamp(outMax*(v/inMax), 0, outMax)
}
