package device

import "math"

// Solution is one solver run: a time-series solution matrix U with one
// row per time point reached, the matching time vector T, and the
// parameter record the run was produced with.
type Solution struct {
	U   [][]float64
	T   []float64
	Par Params
}

// Rows reports how many time points the run actually reached. A run
// that reached fewer rows than Par.TPoints was truncated by the solver.
func (s Solution) Rows() int {
	return len(s.U)
}

// Final returns the last solution row, or nil for an empty solution.
func (s Solution) Final() []float64 {
	if len(s.U) == 0 {
		return nil
	}
	return s.U[len(s.U)-1]
}

func (s Solution) Clone() Solution {
	c := Solution{Par: s.Par}
	if s.T != nil {
		c.T = make([]float64, len(s.T))
		copy(c.T, s.T)
	}
	if s.U != nil {
		c.U = make([][]float64, len(s.U))
		for i, row := range s.U {
			r := make([]float64, len(row))
			copy(r, row)
			c.U[i] = r
		}
	}
	return c
}

// IsValid reports whether the solution contains no NaN or Inf entries.
func (s Solution) IsValid() bool {
	for _, row := range s.U {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
