package stabilize

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/helio-sim/driftsim/internal/device"
)

// fakeSolver returns scripted row counts (the last entry repeats) and
// records every call's parameter record and input row count.
type fakeSolver struct {
	rows     []int
	errs     []error
	calls    int
	pars     []device.Params
	prevRows []int
}

func (f *fakeSolver) Solve(ctx context.Context, prev device.Solution, par device.Params) (device.Solution, error) {
	i := f.calls
	f.calls++
	f.pars = append(f.pars, par)
	f.prevRows = append(f.prevRows, prev.Rows())

	if i < len(f.errs) && f.errs[i] != nil {
		return device.Solution{Par: par}, f.errs[i]
	}

	rows := f.rows[len(f.rows)-1]
	if i < len(f.rows) {
		rows = f.rows[i]
	}
	return rowsSolution(par, rows), nil
}

func rowsSolution(par device.Params, rows int) device.Solution {
	u := make([][]float64, rows)
	t := make([]float64, rows)
	for i := 0; i < rows; i++ {
		u[i] = []float64{1.0}
		t[i] = par.TMax * float64(i+1) / float64(rows)
	}
	return device.Solution{U: u, T: t, Par: par}
}

// ionicInput is a trusted prior run: both mobilities active, horizon
// already at the fresh estimate (10), full row count.
func ionicInput() device.Solution {
	par := device.Params{
		TPoints:         targetPoints,
		AnalysisEnabled: true,
		AppliedVoltage:  0.8,
		MuIonic:         1e-6,
		MuElectronic:    1e-6,
	}.WithHorizon(10)
	return rowsSolution(par, targetPoints)
}

func alwaysSettled(u [][]float64, t []float64, rtol float64) bool { return true }
func neverSettled(u [][]float64, t []float64, rtol float64) bool  { return false }

type recorder struct {
	its []Iteration
}

func (r *recorder) OnIteration(it Iteration) { r.its = append(r.its, it) }

func TestStabilizeNoOpWhenInputTrusted(t *testing.T) {
	fs := &fakeSolver{rows: []int{targetPoints}}
	c := New(fs, Options{Settled: alwaysSettled})

	in := ionicInput()
	out, err := c.Stabilize(context.Background(), in, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.calls != 0 {
		t.Errorf("expected zero solver calls, got %d", fs.calls)
	}
	if !reflect.DeepEqual(out, in) {
		t.Error("trusted settled input should be returned unchanged")
	}
}

func TestStabilizeIdempotent(t *testing.T) {
	fs := &fakeSolver{rows: []int{targetPoints}}
	c := New(fs, Options{Settled: alwaysSettled})

	first, err := c.Stabilize(context.Background(), ionicInput(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.calls != 1 {
		t.Fatalf("forced call should run the solver once, got %d calls", fs.calls)
	}
	if !first.Par.AnalysisEnabled {
		t.Error("analysis flag not restored after the forced run")
	}

	second, err := c.Stabilize(context.Background(), first, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.calls != 1 {
		t.Errorf("second call should be a no-op, got %d extra calls", fs.calls-1)
	}
	if !reflect.DeepEqual(second, first) {
		t.Error("second call changed an already-stabilized solution")
	}
}

func TestStabilizeEscalatesIncompleteInput(t *testing.T) {
	fs := &fakeSolver{rows: []int{targetPoints}}
	c := New(fs, Options{Settled: alwaysSettled})

	in := ionicInput()
	in.U = in.U[:7]
	in.T = in.T[:7]

	if _, err := c.Stabilize(context.Background(), in, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.calls != 1 {
		t.Errorf("incomplete input must force a run, got %d calls", fs.calls)
	}
}

func TestStabilizeEscalatesShortHorizonInput(t *testing.T) {
	fs := &fakeSolver{rows: []int{targetPoints}}
	c := New(fs, Options{Settled: alwaysSettled})

	in := ionicInput()
	in.Par = in.Par.WithHorizon(1) // fresh estimate will be 10

	if _, err := c.Stabilize(context.Background(), in, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.calls != 1 {
		t.Errorf("short-horizon input must force a run, got %d calls", fs.calls)
	}
}

func TestStabilizeFailedShrinksThenRecovers(t *testing.T) {
	fs := &fakeSolver{rows: []int{7, targetPoints}}
	rec := &recorder{}
	settledChecks := 0
	c := New(fs, Options{
		Observer: rec,
		Settled: func(u [][]float64, tt []float64, rtol float64) bool {
			settledChecks++
			return true
		},
	})

	out, err := c.Stabilize(context.Background(), ionicInput(), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantTMax := []float64{10, 1, 5, 25}
	wantOutcome := []Outcome{OutcomeFailed, OutcomeUnderrun, OutcomeUnderrun, OutcomeCompleted}
	if fs.calls != len(wantTMax) {
		t.Fatalf("expected %d solver calls, got %d", len(wantTMax), fs.calls)
	}
	for i, par := range fs.pars {
		if par.TMax != wantTMax[i] {
			t.Errorf("call %d: tmax = %g, want %g", i, par.TMax, wantTMax[i])
		}
		if par.T0 != par.TMax/1e8 {
			t.Errorf("call %d: t0 = %g, want tmax/1e8", i, par.T0)
		}
		if par.TPoints != targetPoints {
			t.Errorf("call %d: tpoints = %d, want %d", i, par.TPoints, targetPoints)
		}
		if par.AnalysisEnabled {
			t.Errorf("call %d: analysis must be held off inside the loop", i)
		}
	}
	for i, it := range rec.its {
		if it.Outcome != wantOutcome[i] {
			t.Errorf("iteration %d: outcome %v, want %v", i, it.Outcome, wantOutcome[i])
		}
		if it.MinTMax != 10 {
			t.Errorf("iteration %d: minTmax = %g, want 10", i, it.MinTMax)
		}
		if it.AppliedVoltage != 0.8 {
			t.Errorf("iteration %d: vapp = %g, want 0.8", i, it.AppliedVoltage)
		}
	}

	// The truncated run is still fed into the next invocation.
	if fs.prevRows[1] != 7 {
		t.Errorf("second call should start from the truncated run, got %d rows", fs.prevRows[1])
	}

	// The predicate is only consulted once force is cleared.
	if settledChecks != 1 {
		t.Errorf("predicate consulted %d times, want 1", settledChecks)
	}

	if !out.Par.AnalysisEnabled {
		t.Error("analysis flag not restored on exit")
	}
}

func TestStabilizeUnderrunGrowsFromEstimate(t *testing.T) {
	// Moderate mobilities put the estimate (4.4) below the ionic floor
	// (10): the first full-length run is an underrun and the horizon
	// grows fivefold before the predicate gets a say.
	par := device.Params{
		TPoints:      targetPoints,
		MuIonic:      1e-2,
		MuElectronic: 1e-2,
	}.WithHorizon(1e-3)

	fs := &fakeSolver{rows: []int{targetPoints}}
	rec := &recorder{}
	c := New(fs, Options{Settled: alwaysSettled, Observer: rec})

	if _, err := c.Stabilize(context.Background(), device.Solution{Par: par}, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fs.calls != 2 {
		t.Fatalf("expected 2 solver calls, got %d", fs.calls)
	}
	if got := fs.pars[0].TMax; got != 4.4 {
		t.Errorf("first horizon = %g, want the 4.4 estimate", got)
	}
	if got := fs.pars[1].TMax; got != 22.0 {
		t.Errorf("second horizon = %g, want 22", got)
	}
	if rec.its[0].Outcome != OutcomeUnderrun || rec.its[1].Outcome != OutcomeCompleted {
		t.Errorf("outcomes = %v, %v; want underrun then completed", rec.its[0].Outcome, rec.its[1].Outcome)
	}
}

func TestStabilizeSolverErrorIsAbsorbed(t *testing.T) {
	fs := &fakeSolver{
		rows: []int{targetPoints},
		errs: []error{errors.New("integrator diverged")},
	}
	c := New(fs, Options{Settled: alwaysSettled})

	in := ionicInput()
	out, err := c.Stabilize(context.Background(), in, true)
	if err != nil {
		t.Fatalf("solver error must not surface, got %v", err)
	}

	// The errored run is discarded: the retry starts from the input.
	if fs.prevRows[1] != in.Rows() {
		t.Errorf("retry should reuse the prior state, got %d rows", fs.prevRows[1])
	}
	if fs.pars[1].TMax != 1 {
		t.Errorf("horizon after failure = %g, want 1", fs.pars[1].TMax)
	}
	if out.Rows() != targetPoints {
		t.Errorf("final rows = %d, want %d", out.Rows(), targetPoints)
	}
}

func TestStabilizeGrowthCappedAt10000(t *testing.T) {
	fs := &fakeSolver{rows: []int{targetPoints}}
	c := New(fs, Options{Settled: neverSettled, MaxIterations: 10})

	out, err := c.Stabilize(context.Background(), ionicInput(), true)

	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TimeoutError, got %v", err)
	}
	if te.Iterations != 10 {
		t.Errorf("iterations = %d, want 10", te.Iterations)
	}
	if out.Rows() != targetPoints {
		t.Error("timeout must still return the last best-effort solution")
	}
	if !out.Par.AnalysisEnabled {
		t.Error("analysis flag not restored on the timeout path")
	}

	prev := 0.0
	for i, par := range fs.pars {
		if par.TMax < prev {
			t.Errorf("call %d: horizon shrank on success (%g -> %g)", i, prev, par.TMax)
		}
		if par.TMax > 1e4 {
			t.Errorf("call %d: horizon %g exceeds the 1e4 cap", i, par.TMax)
		}
		prev = par.TMax
	}
	if last := fs.pars[len(fs.pars)-1].TMax; last != 1e4 {
		t.Errorf("final horizon = %g, want the 1e4 cap", last)
	}
}

func TestStabilizeContextCancelled(t *testing.T) {
	fs := &fakeSolver{rows: []int{targetPoints}}
	c := New(fs, Options{Settled: neverSettled})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := c.Stabilize(ctx, ionicInput(), true)

	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TimeoutError, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("timeout error should wrap the context error")
	}
	if fs.calls != 0 {
		t.Errorf("expected zero solver calls, got %d", fs.calls)
	}
	if !out.Par.AnalysisEnabled {
		t.Error("analysis flag not restored on the cancellation path")
	}
}

func TestStabilizeNoTransport(t *testing.T) {
	fs := &fakeSolver{rows: []int{targetPoints}}
	c := New(fs, Options{Settled: alwaysSettled})

	in := ionicInput()
	in.Par.MuIonic = 0
	in.Par.MuElectronic = 0

	out, err := c.Stabilize(context.Background(), in, true)
	if !errors.Is(err, ErrNoTransport) {
		t.Fatalf("expected ErrNoTransport, got %v", err)
	}
	if fs.calls != 0 {
		t.Error("no solver call should happen without transport")
	}
	if !reflect.DeepEqual(out, in) {
		t.Error("input should be returned unchanged on the precondition error")
	}
}
