package solver

import (
	"context"
	"fmt"
	"math"

	"github.com/helio-sim/driftsim/internal/device"
	"github.com/helio-sim/driftsim/internal/diag"
	"github.com/helio-sim/driftsim/internal/stability"
)

// Tolerance for the post-run steady-state advisory.
const settleWarnTol = 1e-3

// Relaxation variables: index 0 is the ionic species, index 1 the
// electronic one.
const relaxVars = 2

// Relaxation is the built-in reference solver. Each active species
// decays exponentially toward a voltage-dependent equilibrium with a
// time constant derived from its mobility; a species with zero
// mobility stays frozen at its initial value.
type Relaxation struct {
	// MaxSteps bounds the internal integration steps of one run.
	// Exhausting the budget truncates the run at the rows reached so
	// far, the same failure shape a diverging integrator produces.
	MaxSteps int

	Reporter *diag.Reporter
}

func NewRelaxation() *Relaxation {
	return &Relaxation{MaxSteps: 200000}
}

// relaxTime maps a mobility to its relaxation time constant. Lower
// mobility means slower equilibration. Zero disables the species.
func relaxTime(mu float64) float64 {
	if mu == 0 {
		return math.Inf(1)
	}
	return math.Exp2(-math.Log10(mu)) / 20
}

// equilibrium is the state each species relaxes toward under the
// applied voltage.
func equilibrium(par device.Params) [relaxVars]float64 {
	return [relaxVars]float64{
		1 + 0.5*par.AppliedVoltage,
		1 + par.AppliedVoltage,
	}
}

// Solve runs the relaxation model over the mesh defined by par,
// starting from the final row of prev (or the equilibrium-free default
// when prev is empty).
func (r *Relaxation) Solve(ctx context.Context, prev device.Solution, par device.Params) (device.Solution, error) {
	if par.TMax <= 0 {
		return device.Solution{Par: par}, fmt.Errorf("solver: tmax must be positive, got %g", par.TMax)
	}
	if par.TPoints < 2 {
		return device.Solution{Par: par}, fmt.Errorf("solver: tpoints must be at least 2, got %d", par.TPoints)
	}

	tau := [relaxVars]float64{relaxTime(par.MuIonic), relaxTime(par.MuElectronic)}
	eq := equilibrium(par)

	u0 := initialState(prev)
	mesh := Times(par)

	// The internal step cost of a segment scales with its length over
	// the fastest active time constant, mirroring how a stiff system
	// drives up an adaptive integrator's step count.
	dtMin := math.Inf(1)
	for _, tc := range tau {
		if tc < dtMin {
			dtMin = tc
		}
	}
	dtMin /= 10

	sol := device.Solution{
		U:   make([][]float64, 0, par.TPoints),
		T:   make([]float64, 0, par.TPoints),
		Par: par,
	}

	steps := 0
	prevT := 0.0
	for _, t := range mesh {
		if err := ctx.Err(); err != nil {
			return sol, err
		}

		if !math.IsInf(dtMin, 1) {
			steps += int(math.Ceil((t - prevT) / dtMin))
			if r.MaxSteps > 0 && steps > r.MaxSteps {
				r.Reporter.Warnf(diag.ClassSolver,
					"step budget exhausted at t=%.3g (%d/%d points)", t, sol.Rows(), par.TPoints)
				return sol, nil
			}
		}

		row := make([]float64, relaxVars)
		for j := 0; j < relaxVars; j++ {
			if math.IsInf(tau[j], 1) {
				row[j] = u0[j]
				continue
			}
			row[j] = eq[j] + (u0[j]-eq[j])*math.Exp(-t/tau[j])
		}
		sol.U = append(sol.U, row)
		sol.T = append(sol.T, t)
		prevT = t
	}

	if !stability.Settled(sol.U, sol.T, settleWarnTol) {
		r.Reporter.Warnf(diag.ClassStability, "run ended at t=%.3g before settling", par.TMax)
	}

	return sol, nil
}

func initialState(prev device.Solution) [relaxVars]float64 {
	u0 := [relaxVars]float64{1, 1}
	last := prev.Final()
	for j := 0; j < relaxVars && j < len(last); j++ {
		u0[j] = last[j]
	}
	return u0
}
