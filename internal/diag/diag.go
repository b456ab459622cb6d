// Package diag provides an instance-scoped warning reporter with
// per-class suppression, so a caller can silence an expected warning
// class for the duration of one call without touching process-wide
// state.
package diag

import (
	"fmt"
	"io"
	"sync"
)

// Warning classes used across the repo.
const (
	ClassSolver    = "solver"
	ClassStability = "stability"
)

type Reporter struct {
	mu         sync.Mutex
	w          io.Writer
	suppressed map[string]int
}

// NewReporter returns a Reporter writing warnings to w. A nil w
// discards everything.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w, suppressed: make(map[string]int)}
}

// Discard is a reporter that drops all warnings.
var Discard = NewReporter(nil)

// Warnf emits a warning in the given class unless the class is
// currently suppressed.
func (r *Reporter) Warnf(class, format string, args ...any) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil || r.suppressed[class] > 0 {
		return
	}
	fmt.Fprintf(r.w, "warning [%s]: %s\n", class, fmt.Sprintf(format, args...))
}

// Suppress silences a warning class and returns a restore func.
// Suppressions nest: the class stays silent until every restore has
// run.
func (r *Reporter) Suppress(class string) func() {
	if r == nil {
		return func() {}
	}
	r.mu.Lock()
	r.suppressed[class]++
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			r.suppressed[class]--
			r.mu.Unlock()
		})
	}
}
