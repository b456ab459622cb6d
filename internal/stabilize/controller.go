package stabilize

import (
	"context"
	"fmt"
	"math"

	"github.com/helio-sim/driftsim/internal/device"
	"github.com/helio-sim/driftsim/internal/diag"
	"github.com/helio-sim/driftsim/internal/stability"
)

// Horizon growth is capped so a string of Completed runs can not push
// the simulated window to absurd lengths.
const maxHorizon = 1e4

// targetPoints is the number of output samples requested from every
// solver call inside the loop.
const targetPoints = 10

// Solver is the external collaborator: one call consumes a prior
// solution and a parameter record and produces a fresh solution. A
// truncated result (fewer rows than par.TPoints) or an error both mean
// the run failed.
type Solver interface {
	Solve(ctx context.Context, prev device.Solution, par device.Params) (device.Solution, error)
}

// StabilityFunc is the external stability predicate contract.
type StabilityFunc func(u [][]float64, t []float64, rtol float64) bool

// Iteration is the per-iteration diagnostic record handed to the
// observer.
type Iteration struct {
	N              int
	TMax           float64
	MinTMax        float64
	AppliedVoltage float64
	Outcome        Outcome
	Rows           int
}

type IterationObserver interface {
	OnIteration(it Iteration)
}

// ObserverFunc adapts a plain function to IterationObserver.
type ObserverFunc func(Iteration)

func (f ObserverFunc) OnIteration(it Iteration) { f(it) }

// TimeoutError reports that the iteration or context guard fired
// before the solution settled. The controller still returns the last
// best-effort solution alongside it.
type TimeoutError struct {
	Iterations int
	Cause      error
}

func (e *TimeoutError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("stabilize: gave up after %d iterations: %v", e.Iterations, e.Cause)
	}
	return fmt.Sprintf("stabilize: not settled after %d iterations", e.Iterations)
}

func (e *TimeoutError) Unwrap() error { return e.Cause }

type Options struct {
	// RelTol is the relative tolerance handed to the stability
	// predicate. Defaults to 1e-3.
	RelTol float64

	// MaxIterations bounds the retry loop; 0 keeps the loop
	// unbounded. Exceeding the bound returns the last solution with a
	// *TimeoutError.
	MaxIterations int

	// Settled is the stability predicate. Defaults to
	// stability.Settled.
	Settled StabilityFunc

	Observer IterationObserver
	Reporter *diag.Reporter
}

// Controller owns the retry loop. It is safe to reuse across calls but
// not to call concurrently if the underlying solver has shared state.
type Controller struct {
	solver Solver
	opts   Options
}

func New(s Solver, opts Options) *Controller {
	if opts.RelTol == 0 {
		opts.RelTol = 1e-3
	}
	if opts.Settled == nil {
		opts.Settled = stability.Settled
	}
	return &Controller{solver: s, opts: opts}
}

// Stabilize drives the solver until the solution settles. When force
// is false the loop is still entered if the input solution is itself
// incomplete, or was computed over a shorter horizon than the fresh
// estimate: a snapshot of stability is only meaningful relative to the
// horizon it was computed over.
//
// The returned solution carries the caller's original AnalysisEnabled
// value on every path; inside the loop analysis is held off so partial
// runs do not trip post-processing.
func (c *Controller) Stabilize(ctx context.Context, in device.Solution, force bool) (device.Solution, error) {
	// Repeated not-settled warnings are expected while the loop works;
	// silence that class until we return.
	defer c.opts.Reporter.Suppress(diag.ClassStability)()

	hz, err := EstimateHorizon(in.Par.MuIonic, in.Par.MuElectronic, in.Par.TMax)
	if err != nil {
		return in, err
	}

	par := in.Par.WithHorizon(hz.TMax)
	par.TPoints = targetPoints
	par.Mesh = device.MeshLog
	par.AnalysisEnabled = false

	origAnalysis := in.Par.AnalysisEnabled
	finish := func(s device.Solution) device.Solution {
		s.Par.AnalysisEnabled = origAnalysis
		return s
	}

	if !force {
		if in.Rows() != par.TPoints {
			force = true // prior run was itself incomplete
		} else if in.Par.TMax < hz.TMax {
			force = true // prior horizon too short to trust
		}
	}

	out := in
	iters := 0

	for force || !c.opts.Settled(out.U, out.T, c.opts.RelTol) {
		if err := ctx.Err(); err != nil {
			return finish(out), &TimeoutError{Iterations: iters, Cause: err}
		}
		if c.opts.MaxIterations > 0 && iters >= c.opts.MaxIterations {
			return finish(out), &TimeoutError{Iterations: iters}
		}

		next, err := c.solver.Solve(ctx, out, par)
		iters++

		var oc Outcome
		switch {
		case err != nil || next.Rows() != par.TPoints:
			oc = OutcomeFailed
		case par.TMax < hz.MinTMax:
			oc = OutcomeUnderrun
		default:
			oc = OutcomeCompleted
		}

		c.observe(Iteration{
			N:              iters,
			TMax:           par.TMax,
			MinTMax:        hz.MinTMax,
			AppliedVoltage: par.AppliedVoltage,
			Outcome:        oc,
			Rows:           next.Rows(),
		})

		switch oc {
		case OutcomeFailed:
			if err != nil {
				c.opts.Reporter.Warnf(diag.ClassSolver, "solver failed at tmax=%.3g: %v", par.TMax, err)
			} else {
				c.opts.Reporter.Warnf(diag.ClassSolver, "run truncated at %d/%d points (tmax=%.3g)", next.Rows(), par.TPoints, par.TMax)
				out = next
			}
			par = par.WithHorizon(par.TMax / 10)
			force = true

		case OutcomeUnderrun:
			out = next
			par = par.WithHorizon(math.Min(par.TMax*5, maxHorizon))
			force = true

		case OutcomeCompleted:
			out = next
			par = par.WithHorizon(math.Min(par.TMax*5, maxHorizon))
			force = false
		}
	}

	return finish(out), nil
}

func (c *Controller) observe(it Iteration) {
	if c.opts.Observer != nil {
		c.opts.Observer.OnIteration(it)
	}
}
