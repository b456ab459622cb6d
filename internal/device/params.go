package device

import "fmt"

// MeshType selects how output time points are spaced across the horizon.
type MeshType int

const (
	MeshLinear MeshType = iota
	MeshLog
)

func (m MeshType) String() string {
	switch m {
	case MeshLinear:
		return "linear"
	case MeshLog:
		return "log"
	default:
		return fmt.Sprintf("mesh(%d)", int(m))
	}
}

// Params is the configuration handed to the solver for one invocation.
// It is a value type: updates produce a new Params rather than mutating
// a shared record.
type Params struct {
	// TMax is the simulation horizon and T0 the initial time step.
	// T0 is always TMax/1e8; use WithHorizon to change them together.
	TMax float64
	T0   float64

	// TPoints is the number of output time samples a completed run
	// produces.
	TPoints int

	Mesh MeshType

	// AnalysisEnabled gates post-run analysis in the caller. The
	// stabilization loop holds it off and restores it on return.
	AnalysisEnabled bool

	AppliedVoltage float64

	// Mobilities in cm^2/(V*s). Zero disables transport for that
	// species.
	MuIonic      float64
	MuElectronic float64
}

// WithHorizon returns a copy of p with the horizon set to tmax and the
// initial step rederived as tmax/1e8.
func (p Params) WithHorizon(tmax float64) Params {
	p.TMax = tmax
	p.T0 = tmax / 1e8
	return p
}

// WithAnalysis returns a copy of p with AnalysisEnabled set.
func (p Params) WithAnalysis(on bool) Params {
	p.AnalysisEnabled = on
	return p
}
