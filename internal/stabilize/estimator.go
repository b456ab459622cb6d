package stabilize

import (
	"errors"
	"math"
)

// ErrNoTransport is returned when both mobilities are zero: with no
// mobile species there is no equilibration time scale to estimate.
var ErrNoTransport = errors.New("stabilize: both mobilities are zero, no transport to equilibrate")

// Horizon is the estimator's output: the initial simulation horizon
// and the regime's minimum meaningful horizon.
type Horizon struct {
	TMax    float64
	MinTMax float64
}

// Ceilings and floor per transport regime. With ionic transport active
// the device needs up to 10 time units to equilibrate; electronic-only
// devices settle within 1 even at very low illumination.
const (
	ionicCeiling      = 10.0
	electronicCeiling = 1.0
	hintScale         = 1e4
)

// EstimateHorizon picks a safe initial horizon from the mobility
// parameters and a (possibly stale) prior horizon hint. Lower mobility
// means slower equilibration and a larger mobility-derived estimate;
// the regime ceiling and the scaled hint bound it from above.
func EstimateHorizon(muIonic, muElectronic, tmaxHint float64) (Horizon, error) {
	switch {
	case muIonic != 0 && muElectronic != 0:
		est := math.Exp2(-math.Log10(muIonic))/10 + math.Exp2(-math.Log10(muElectronic))
		return Horizon{
			TMax:    min3(ionicCeiling, tmaxHint*hintScale, est),
			MinTMax: ionicCeiling,
		}, nil

	case muElectronic != 0:
		est := math.Exp2(-math.Log10(muElectronic))
		return Horizon{
			TMax:    min3(electronicCeiling, tmaxHint*hintScale, est),
			MinTMax: electronicCeiling,
		}, nil

	default:
		return Horizon{}, ErrNoTransport
	}
}

func min3(a, b, c float64) float64 {
	return math.Min(a, math.Min(b, c))
}
