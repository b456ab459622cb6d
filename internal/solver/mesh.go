package solver

import (
	"math"

	"github.com/helio-sim/driftsim/internal/device"
)

// Times builds the output time mesh for one run: par.TPoints samples
// from t0 to tmax, log-spaced for device.MeshLog and uniform
// otherwise.
func Times(par device.Params) []float64 {
	n := par.TPoints
	t := make([]float64, n)
	if n == 1 {
		t[0] = par.TMax
		return t
	}

	if par.Mesh == device.MeshLog && par.T0 > 0 {
		lo := math.Log10(par.T0)
		hi := math.Log10(par.TMax)
		for i := range t {
			t[i] = math.Pow(10, lo+(hi-lo)*float64(i)/float64(n-1))
		}
		// Guard against rounding on the endpoints.
		t[0] = par.T0
		t[n-1] = par.TMax
		return t
	}

	for i := range t {
		t[i] = par.TMax * float64(i) / float64(n-1)
	}
	return t
}
