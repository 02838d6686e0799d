// Package inmem implements the default engine.Engine backend: it drives a
// run's steps in a goroutine within the same process, with no durability
// across restarts. Grounded on the teacher's in-memory engine adapter
// (runtime/agent/engine/inmem), simplified to this domain's single
// workload (stepping a sequence.Runner to completion) instead of the
// teacher's generic workflow/activity registry.
package inmem

import (
	"context"
	"fmt"
	"sync"

	"github.com/normcode/orchestrator/engine"
	"github.com/normcode/orchestrator/telemetry"
)

// Engine runs each started run on its own goroutine, calling Step until
// the runner reports terminal. Cancelling the run's context (or its
// Handle) forwards Cancel to a runner implementing engine.Canceller and
// keeps stepping until that runner stops. It never persists progress: a process
// restart loses any run started here, which is the tradeoff this backend
// makes for zero operational dependencies.
type Engine struct {
	logger telemetry.Logger

	mu   sync.Mutex
	runs map[string]*handle
}

// New constructs an in-memory engine. A nil logger defaults to a no-op one.
func New(logger telemetry.Logger) *Engine {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Engine{logger: logger, runs: make(map[string]*handle)}
}

// StartRun implements engine.Engine.
func (e *Engine) StartRun(ctx context.Context, runID string, r engine.Runner) (engine.Handle, error) {
	e.mu.Lock()
	if _, exists := e.runs[runID]; exists {
		e.mu.Unlock()
		return nil, fmt.Errorf("inmem engine: run %q already started", runID)
	}
	h := &handle{done: make(chan struct{}), runner: r}
	e.runs[runID] = h
	e.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	h.cancelFunc = cancel

	go func() {
		defer close(h.done)
		defer func() {
			e.mu.Lock()
			delete(e.runs, runID)
			e.mu.Unlock()
		}()
		for {
			select {
			case <-runCtx.Done():
				if c, ok := r.(engine.Canceller); ok {
					c.Cancel()
				}
			default:
			}
			terminal, _, err := r.Step(runCtx)
			if err != nil {
				h.err = err
			}
			if terminal {
				return
			}
		}
	}()

	return h, nil
}

type handle struct {
	runner     engine.Runner
	done       chan struct{}
	cancelFunc context.CancelFunc
	err        error
}

func (h *handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *handle) Cancel(ctx context.Context) error {
	if c, ok := h.runner.(engine.Canceller); ok {
		c.Cancel()
	}
	if h.cancelFunc != nil {
		h.cancelFunc()
	}
	return nil
}
