// Package solver provides the built-in reference solver for the
// stabilization loop.
//
// [Relaxation] integrates a two-species relaxation model (one ionic,
// one electronic variable, each decaying toward a voltage-dependent
// equilibrium with a mobility-derived time constant) over a log-spaced
// time mesh honoring t0, tmax and tpoints. A bounded internal step
// budget makes overlong horizons fail the way a real integrator does:
// the run is truncated at however many time points were reached, which
// the stabilization controller classifies as a failed run.
//
// The full drift-diffusion discretization lives outside this repo; any
// solver satisfying the stabilize.Solver contract can be driven by the
// loop.
package solver
