// Package stability decides whether a time-series solution has stopped
// evolving, within a relative tolerance.
package stability

import "math"

// Settled reports whether the solution tail no longer changes
// meaningfully: each variable at the final time point is compared
// against its value roughly two thirds of the way through the
// simulated window, relative to the variable's magnitude over that
// span. Fewer than two rows can never be judged settled.
func Settled(u [][]float64, t []float64, rtol float64) bool {
	if len(u) < 2 || len(t) != len(u) {
		return false
	}

	ref := refIndex(t)
	last := len(u) - 1
	if ref >= last {
		ref = last - 1
	}

	for j := range u[last] {
		a := u[ref][j]
		b := u[last][j]
		scale := math.Max(math.Abs(a), math.Abs(b))
		if scale < rtol {
			// Both effectively zero for this variable.
			continue
		}
		if math.Abs(b-a)/scale > rtol {
			return false
		}
	}
	return true
}

// refIndex picks the first time point at or beyond 2/3 of the final
// time.
func refIndex(t []float64) int {
	cut := 2.0 / 3.0 * t[len(t)-1]
	for i, v := range t {
		if v >= cut {
			return i
		}
	}
	return len(t) - 1
}
