// Package stabilize drives a time-dependent device solver to a
// converged steady state without user intervention.
//
// Two pieces collaborate:
//
//   - [EstimateHorizon]: picks an initial simulation horizon (and its
//     minimum floor) from the device's mobility parameters, before any
//     solver call.
//   - [Controller]: a retry loop that invokes the solver, classifies
//     each run as [OutcomeFailed], [OutcomeUnderrun] or
//     [OutcomeCompleted], and shrinks or grows the horizon until the
//     stability predicate is satisfied.
//
// A solver failure is never fatal: a truncated run shrinks the horizon
// by 10x and retries; a run shorter than the physical floor grows it
// by 5x (capped at 10000). The returned solution is either
// verified-stable or, if an iteration or context guard fires, the last
// best-effort state together with a [*TimeoutError].
//
//	ctrl := stabilize.New(solver, stabilize.Options{})
//	out, err := ctrl.Stabilize(ctx, in, true)
package stabilize
