// Package sequence implements SequenceRunner: the cooperative scheduler
// that drives one inference sequence through its ordered steps over one
// ReferenceInterpretationState, publishing inference:* lifecycle events
// and cooperating with cancellation at step boundaries. Grounded on
// spec.md §4.1 and, for its event-around-a-phase shape, on the teacher's
// ExecuteWorkflow (runtime/agents/runtime/workflow.go), reshaped from a
// Temporal workflow function into a plain, engine-agnostic state machine:
// this spec's core targets an in-memory scheduler, with go.temporal.io/sdk
// wired as an optional alternate backend in engine/temporal rather than
// baked into the runner itself.
package sequence

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/normcode/orchestrator/agentregistry"
	"github.com/normcode/orchestrator/hooks"
	"github.com/normcode/orchestrator/orcherr"
	"github.com/normcode/orchestrator/state"
	"github.com/normcode/orchestrator/telemetry"
	"github.com/normcode/orchestrator/tools"
)

// Status is one run's position in the state machine
// new -> running -> (paused)* -> {completed | failed | cancelled}.
type Status string

const (
	StatusNew       Status = "new"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// StepFunc is one step's implementation: a pure function from state to
// state, plus side effects through the injected tool set. desc is the
// StepDescriptor being executed; implementations are expected to call
// st.Record with a populated StepDescriptor of the same Kind/StepName if
// they produce a reference block entry. Returning a non-cancellation
// error transitions the run to StatusFailed.
type StepFunc func(ctx context.Context, st *state.ReferenceInterpretationState, desc state.StepDescriptor, bound tools.Bundle) error

// Registry resolves a step name (e.g. "MFP", "TIP") to its StepFunc. A
// plain map satisfies this; Runner takes the interface so callers can
// layer lookup logging or hot-reload without changing Runner.
type Registry interface {
	StepFunc(stepName string) (StepFunc, bool)
}

// MapRegistry is the trivial Registry backed by a map.
type MapRegistry map[string]StepFunc

// StepFunc implements Registry.
func (m MapRegistry) StepFunc(stepName string) (StepFunc, bool) {
	fn, ok := m[stepName]
	return fn, ok
}

// Cursor is the runner's read-only position, returned by Current.
type Cursor struct {
	StepName  string
	StepIndex int
	FlowIndex string
	Status    Status
}

// Runner executes one sequence, step by step, over one
// ReferenceInterpretationState. Grounded on spec.md §4.1's SequenceRunner
// contract. Not safe to Start twice; Step/Run/Cancel/Current are safe for
// concurrent use once started.
type Runner struct {
	runID        string
	agentID      string
	sequenceName string

	registry      Registry
	registryAgent *agentregistry.AgentRegistry
	bus           hooks.Bus
	logger        telemetry.Logger
	tracer        telemetry.Tracer
	metrics       telemetry.Metrics

	mu      sync.Mutex
	st      *state.ReferenceInterpretationState
	steps   []state.StepDescriptor
	index   int // 0-based index into steps; steps[index] is the next to run
	status  Status
	lastErr error

	cancelled atomic.Bool
}

// New builds a Runner for one run of agentID, publishing inference:* and
// execution:* events on bus through reg (the agent registry that owns
// agentID's bound tools and current-flow-index tracking). tracer and
// metrics default to no-ops when nil; when set, tracer brackets each Step
// in a span and metrics records a histogram of human-input wait latency
// (spec's AMBIENT STACK tracing/metrics promise), alongside the
// tool-call-scoped instrumentation monitor.Proxy records independently.
func New(runID, agentID string, reg *agentregistry.AgentRegistry, bus hooks.Bus, logger telemetry.Logger, tracer telemetry.Tracer, metrics telemetry.Metrics) *Runner {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Runner{
		runID:         runID,
		agentID:       agentID,
		registryAgent: reg,
		bus:           bus,
		logger:        logger,
		tracer:        tracer,
		metrics:       metrics,
		status:        StatusNew,
	}
}

// Start begins at step index 1 with the given registry and step
// descriptors, and the given starting state (typically state.New()).
func (r *Runner) Start(sequenceName string, st *state.ReferenceInterpretationState, steps []state.StepDescriptor, registry Registry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sequenceName = sequenceName
	r.st = st
	r.steps = steps
	r.registry = registry
	r.index = 0
	r.status = StatusRunning
	r.bus.Publish(hooks.NewExecutionEvent(hooks.ExecutionStarted, r.runID, r.agentID, sequenceName))
}

// Current returns the runner's cursor: step name, step index, flow index,
// and status. While the run is non-terminal they describe the *next* step
// to run; a failed or cancelled run keeps reporting the step at which it
// stopped, and once every step has run only Status is set.
func (r *Runner) Current() Cursor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentLocked()
}

func (r *Runner) currentLocked() Cursor {
	if r.index >= len(r.steps) {
		return Cursor{Status: r.status}
	}
	desc := r.steps[r.index]
	return Cursor{StepName: desc.StepName, StepIndex: desc.StepIndex, FlowIndex: flowIndexOf(desc), Status: r.status}
}

// flowIndexOf derives the dotted-decimal flow index from a step's
// position, e.g. step index 3 -> "3". Sub-sequence flow indices (nested
// loop iterations) are threaded by the step implementations themselves
// through state, not by the runner.
func flowIndexOf(desc state.StepDescriptor) string {
	return itoa(desc.StepIndex)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Step advances exactly one step: sets the current flow index on the
// agent registry, emits inference:started, invokes the step function,
// emits inference:completed/failed, and either advances or transitions to
// terminal. Returns the new cursor. Fails with orcherr.KindStep if the run
// is already terminal, per spec.md §4.1 "fails if terminal".
func (r *Runner) Step(ctx context.Context) (cursor Cursor, err error) {
	ctx, span := r.tracer.Start(ctx, "sequence.Runner.Step")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	r.mu.Lock()
	if r.status.terminal() {
		r.mu.Unlock()
		return r.Current(), orcherr.Step(r.runID, "", "run is already terminal", nil)
	}
	if r.cancelled.Load() {
		r.status = StatusCancelled
		r.mu.Unlock()
		r.bus.Publish(hooks.NewExecutionEvent(hooks.ExecutionCancelled, r.runID, r.agentID, r.sequenceName))
		return r.Current(), orcherr.Cancellation(r.runID, "")
	}
	if r.index >= len(r.steps) {
		r.status = StatusCompleted
		r.mu.Unlock()
		r.bus.Publish(hooks.NewExecutionEvent(hooks.ExecutionCompleted, r.runID, r.agentID, r.sequenceName))
		return r.Current(), nil
	}
	desc := r.steps[r.index]
	flowIndex := flowIndexOf(desc)
	r.mu.Unlock()

	fn, ok := r.registry.StepFunc(desc.StepName)
	if !ok {
		err := orcherr.Configuration("no step implementation registered", nil)
		r.fail(err)
		return r.Current(), err
	}

	bound, err := r.registryAgent.BoundTools(ctx, r.agentID)
	if err != nil {
		wrapped := orcherr.Tool(r.runID, "obtaining bound tools", err)
		r.fail(wrapped)
		return r.Current(), wrapped
	}

	r.registryAgent.SetCurrentRunID(r.runID)
	r.registryAgent.SetCurrentFlowIndex(flowIndex)

	if bound.HumanInput != nil {
		bound.HumanInput = &pausingHumanInput{runner: r, delegate: bound.HumanInput}
	}

	r.bus.Publish(hooks.NewInferenceEvent(hooks.InferenceStarted, r.runID, flowIndex, desc.StepName, desc.StepIndex))
	r.logger.Info(ctx, "step started", "run_id", r.runID, "step", desc.StepName, "flow_index", flowIndex)

	stepErr := fn(ctx, r.st, desc, bound)

	if stepErr != nil {
		if orcherr.Is(stepErr, orcherr.KindCancellation) {
			r.mu.Lock()
			r.status = StatusCancelled
			r.mu.Unlock()
			failedEv := hooks.NewInferenceEvent(hooks.InferenceFailed, r.runID, flowIndex, desc.StepName, desc.StepIndex)
			failedEv.Error = stepErr
			r.bus.Publish(failedEv)
			r.bus.Publish(hooks.NewExecutionEvent(hooks.ExecutionCancelled, r.runID, r.agentID, r.sequenceName))
			return r.Current(), stepErr
		}
		wrapped := orcherr.Step(r.runID, desc.StepName, "step failed", stepErr)
		r.fail(wrapped)
		failedEv := hooks.NewInferenceEvent(hooks.InferenceFailed, r.runID, flowIndex, desc.StepName, desc.StepIndex)
		failedEv.Error = wrapped
		r.bus.Publish(failedEv)
		return r.Current(), wrapped
	}

	r.bus.Publish(hooks.NewInferenceEvent(hooks.InferenceCompleted, r.runID, flowIndex, desc.StepName, desc.StepIndex))

	r.mu.Lock()
	r.index++
	if r.index >= len(r.steps) {
		r.status = StatusCompleted
	}
	terminal := r.status.terminal()
	r.mu.Unlock()

	if terminal {
		r.bus.Publish(hooks.NewExecutionEvent(hooks.ExecutionCompleted, r.runID, r.agentID, r.sequenceName))
	}
	return r.Current(), nil
}

// pausingHumanInput wraps a step's HumanInput tool so the run is visibly
// StatusPaused for the duration of AwaitInput, per spec.md §4.1 "paused is
// entered only while the human-input rendezvous is blocking." The blocking
// call happens synchronously inside the step function, so Runner has no
// other vantage point from which to observe it; wrapping the tool the step
// actually calls is the only point that brackets the wait precisely.
type pausingHumanInput struct {
	runner   *Runner
	delegate tools.HumanInput
}

func (p *pausingHumanInput) AwaitInput(ctx context.Context, prompt string, kind string, options []string) (string, error) {
	p.runner.enterPaused()
	start := time.Now()
	defer func() {
		p.runner.exitPaused()
		p.runner.metrics.RecordTimer("human_input.wait_duration", time.Since(start), "kind", kind)
	}()
	return p.delegate.AwaitInput(ctx, prompt, kind, options)
}

func (r *Runner) enterPaused() {
	r.mu.Lock()
	if !r.status.terminal() {
		r.status = StatusPaused
	}
	r.mu.Unlock()
	r.bus.Publish(hooks.NewExecutionEvent(hooks.ExecutionPaused, r.runID, r.agentID, r.sequenceName))
}

func (r *Runner) exitPaused() {
	r.mu.Lock()
	if r.status == StatusPaused {
		r.status = StatusRunning
	}
	r.mu.Unlock()
	r.bus.Publish(hooks.NewExecutionEvent(hooks.ExecutionResumed, r.runID, r.agentID, r.sequenceName))
}

func (r *Runner) fail(err error) {
	r.mu.Lock()
	r.status = StatusFailed
	r.lastErr = err
	r.mu.Unlock()
	ev := hooks.NewExecutionEvent(hooks.ExecutionFailed, r.runID, r.agentID, r.sequenceName)
	ev.Error = err
	r.bus.Publish(ev)
}

// Run repeats Step until the run reaches a terminal state or ctx is
// cancelled. A cancelled ctx is treated the same as Cancel: the run stops
// at the next step boundary with StatusCancelled.
func (r *Runner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.Cancel()
		default:
		}
		cursor, err := r.Step(ctx)
		if cursor.Status.terminal() {
			return err
		}
		if err != nil {
			return err
		}
	}
}

// Cancel requests cooperative cancellation: the runner observes this at
// its next step boundary (Step's next call), not mid-step. Safe to call
// from any goroutine.
func (r *Runner) Cancel() {
	r.cancelled.Store(true)
}

// Err returns the error that transitioned this run to StatusFailed, or
// nil if it never failed.
func (r *Runner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// State returns the runner's ReferenceInterpretationState.
func (r *Runner) State() *state.ReferenceInterpretationState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st
}
