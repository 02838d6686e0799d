package engine

import (
	"context"

	"github.com/normcode/orchestrator/sequence"
)

// sequenceRunner adapts *sequence.Runner to the Runner interface so it can
// be driven by any Engine implementation without those implementations
// importing package sequence directly.
type sequenceRunner struct {
	r *sequence.Runner
}

// WrapSequenceRunner exposes r as an engine.Runner.
func WrapSequenceRunner(r *sequence.Runner) Runner {
	return sequenceRunner{r: r}
}

func (s sequenceRunner) Step(ctx context.Context) (terminal bool, failed bool, err error) {
	cursor, stepErr := s.r.Step(ctx)
	switch cursor.Status {
	case sequence.StatusCompleted:
		return true, false, stepErr
	case sequence.StatusFailed:
		return true, true, stepErr
	case sequence.StatusCancelled:
		return true, true, stepErr
	default:
		return false, false, stepErr
	}
}

// Cancel implements Canceller.
func (s sequenceRunner) Cancel() { s.r.Cancel() }

// Unwrap returns the underlying *sequence.Runner, for engines (like
// engine/temporal) that need direct access to the runner's other methods
// rather than just Step/Cancel.
func (s sequenceRunner) Unwrap() *sequence.Runner { return s.r }
