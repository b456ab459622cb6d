// Package analysis post-processes stabilized runs. It assumes a
// complete solution; the stabilization loop disables it while partial
// runs are still possible.
package analysis

import (
	"fmt"
	"math"
)

// Summary describes how a run approached steady state.
type Summary struct {
	// SettlingTime is the earliest time after which every variable
	// stays within rtol of its final value.
	SettlingTime float64

	// Drift is the largest relative change any variable still shows
	// across the final third of the run.
	Drift float64

	FinalState []float64
}

func Summarize(u [][]float64, t []float64, rtol float64) (Summary, error) {
	if len(u) < 2 || len(t) != len(u) {
		return Summary{}, fmt.Errorf("analysis: need at least 2 rows, got %d", len(u))
	}

	last := len(u) - 1
	final := u[last]

	settleIdx := last
	for i := last - 1; i >= 0; i-- {
		if !within(u[i], final, rtol) {
			break
		}
		settleIdx = i
	}

	refIdx := 0
	cut := 2.0 / 3.0 * t[last]
	for i, v := range t {
		if v >= cut {
			refIdx = i
			break
		}
	}
	if refIdx >= last {
		refIdx = last - 1
	}

	drift := 0.0
	for j := range final {
		scale := math.Max(math.Abs(u[refIdx][j]), math.Abs(final[j]))
		if scale == 0 {
			continue
		}
		drift = math.Max(drift, math.Abs(final[j]-u[refIdx][j])/scale)
	}

	out := Summary{
		SettlingTime: t[settleIdx],
		Drift:        drift,
		FinalState:   make([]float64, len(final)),
	}
	copy(out.FinalState, final)
	return out, nil
}

func within(row, final []float64, rtol float64) bool {
	for j := range final {
		scale := math.Max(math.Abs(row[j]), math.Abs(final[j]))
		if scale < rtol {
			continue
		}
		if math.Abs(row[j]-final[j])/scale > rtol {
			return false
		}
	}
	return true
}
