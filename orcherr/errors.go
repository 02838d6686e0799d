// Package orcherr defines the error-kind hierarchy used by the
// orchestrator's run-facing failures. The constructors below build an
// *Error carrying one of the kinds, optionally wrapping a cause, so callers
// can recover structured fields with errors.As (or test the kind with Is)
// while %v/%s still reads as a normal Go error. Lower-level packages may
// return plain errors that a caller then wraps in one of these kinds.
package orcherr

import "fmt"

// Kind classifies a failure into one of spec §7's error taxonomy buckets.
type Kind string

const (
	// KindConfiguration covers unknown agent ids, invalid regex, unknown
	// sequence names, and missing tools for an agent. Surfaced to the
	// caller of Run before any state is created.
	KindConfiguration Kind = "configuration"
	// KindStep covers a step that raised or produced a malformed output.
	// The run transitions to failed.
	KindStep Kind = "step"
	// KindTool covers a failure captured inside a monitored proxy.
	KindTool Kind = "tool"
	// KindInput covers a submit/cancel for an unknown or already-completed
	// input request id.
	KindInput Kind = "input"
	// KindCancellation is not a failure in the usual sense; it marks a run
	// or rendezvous wait that ended because of a cooperative cancellation.
	KindCancellation Kind = "cancellation"
	// KindTransport covers a disconnected observer; no run is affected.
	KindTransport Kind = "transport"
)

// Error is the concrete error type carried by every orcherr-raised failure.
// RunID and Step are populated whenever the failure happened in the context
// of a specific run, per spec §7's "user-visible failure" requirement that
// every terminal event be reconstructable from run id, step, and cause.
type Error struct {
	Kind  Kind
	RunID string
	Step  string
	Msg   string
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.RunID != "" && e.Step != "":
		return fmt.Sprintf("orchestrator: %s error in run %s at step %s: %s", e.Kind, e.RunID, e.Step, e.describe())
	case e.RunID != "":
		return fmt.Sprintf("orchestrator: %s error in run %s: %s", e.Kind, e.RunID, e.describe())
	default:
		return fmt.Sprintf("orchestrator: %s error: %s", e.Kind, e.describe())
	}
}

func (e *Error) describe() string {
	if e.Err != nil {
		if e.Msg != "" {
			return e.Msg + ": " + e.Err.Error()
		}
		return e.Err.Error()
	}
	return e.Msg
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Err }

// Configuration builds a KindConfiguration error.
func Configuration(msg string, cause error) *Error {
	return &Error{Kind: KindConfiguration, Msg: msg, Err: cause}
}

// Step builds a KindStep error scoped to a run and step name.
func Step(runID, step, msg string, cause error) *Error {
	return &Error{Kind: KindStep, RunID: runID, Step: step, Msg: msg, Err: cause}
}

// Tool builds a KindTool error scoped to a run.
func Tool(runID, msg string, cause error) *Error {
	return &Error{Kind: KindTool, RunID: runID, Msg: msg, Err: cause}
}

// Input builds a KindInput error (unknown or already-completed request id).
func Input(msg string) *Error {
	return &Error{Kind: KindInput, Msg: msg}
}

// Cancellation builds a KindCancellation sentinel error scoped to a run.
func Cancellation(runID, step string) *Error {
	return &Error{Kind: KindCancellation, RunID: runID, Step: step, Msg: "cancelled"}
}

// Transport builds a KindTransport error.
func Transport(msg string, cause error) *Error {
	return &Error{Kind: KindTransport, Msg: msg, Err: cause}
}

// Is reports whether err carries the given Kind, looking through wrapping.
func Is(err error, kind Kind) bool {
	var oe *Error
	for err != nil {
		if asErr, ok := err.(*Error); ok {
			oe = asErr
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return oe != nil && oe.Kind == kind
}
