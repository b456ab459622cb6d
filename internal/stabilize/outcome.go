package stabilize

// Outcome classifies one completed solver invocation.
type Outcome int

const (
	// OutcomeFailed: the solver returned fewer time points than
	// requested (or an error). The run is untrustworthy; the horizon
	// shrinks.
	OutcomeFailed Outcome = iota

	// OutcomeUnderrun: the run completed but the horizon was below
	// the minimum physically meaningful time, so its endpoint can not
	// be taken as steady state. The horizon grows.
	OutcomeUnderrun

	// OutcomeCompleted: the run reached the requested time points at
	// a horizon at or above the floor. The stability predicate gets
	// to decide whether to stop.
	OutcomeCompleted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFailed:
		return "failed"
	case OutcomeUnderrun:
		return "underrun"
	case OutcomeCompleted:
		return "completed"
	default:
		return "unknown"
	}
}
