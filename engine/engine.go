// Package engine abstracts how a sequence.Runner is driven to completion:
// in-process (the default, see engine/inmem) or durably via an external
// workflow engine (see engine/temporal). Generalized from the teacher's
// Engine/WorkflowHandle abstraction (runtime/agent/engine/engine.go),
// narrowed from a generic workflow/activity registry down to this domain's
// one real workload: running one sequence.Runner's steps to a terminal
// status without losing progress across a process restart.
package engine

import "context"

// Engine starts a durable or in-process execution of a sequence run and
// returns a Handle for observing and controlling it. Implementations must
// not mutate r's exported behavior; they drive it by calling Step (directly,
// as inmem.Engine does, or indirectly through an activity, as
// engine/temporal does).
type Engine interface {
	// StartRun begins executing r under runID, returning a Handle once the
	// run has been durably accepted (or, for the in-memory engine,
	// scheduled). runID must be unique for the engine instance.
	StartRun(ctx context.Context, runID string, r Runner) (Handle, error)
}

// Runner is the subset of *sequence.Runner that an Engine needs. Declared
// here (rather than importing package sequence directly into every
// implementation) so the abstraction reads the same way the teacher's
// Engine interface does: engine-agnostic, with the concrete run type
// supplied by the caller.
type Runner interface {
	// Step advances the run by exactly one step and reports whether the run
	// is now in a terminal state.
	Step(ctx context.Context) (terminal bool, failed bool, err error)
}

// Canceller is implemented by Runners that support cooperative
// cancellation at the next step boundary. engine/inmem type-asserts for it
// when Handle.Cancel is called; engine/temporal cancels the workflow
// instead and does not use it.
type Canceller interface {
	Cancel()
}

// Handle lets callers wait for, signal, or cancel a started run regardless
// of which Engine started it.
type Handle interface {
	// Wait blocks until the run reaches a terminal state.
	Wait(ctx context.Context) error

	// Cancel requests cooperative cancellation of the run.
	Cancel(ctx context.Context) error
}
