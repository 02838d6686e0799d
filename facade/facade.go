// Package facade implements OrchestrationFacade (spec.md §4.8): the single
// entry point that ties the agent registry, mapping service, event bus,
// rendezvous, run log, and sequence runner together, starting each run on
// its own dedicated worker goroutine. Grounded on the teacher's
// runtime/agent/run package for the run-identity/handle/status shape
// (Context/Handle/Record/Status), reshaped from a durable-workflow-metadata
// model into this spec's synchronous, in-process run registry — this
// package's Handle/Status track one running sequence.Runner, not a
// Temporal workflow execution.
package facade

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/normcode/orchestrator/agentregistry"
	"github.com/normcode/orchestrator/config"
	"github.com/normcode/orchestrator/engine"
	"github.com/normcode/orchestrator/engine/inmem"
	"github.com/normcode/orchestrator/hooks"
	"github.com/normcode/orchestrator/mapping"
	"github.com/normcode/orchestrator/orcherr"
	"github.com/normcode/orchestrator/rendezvous"
	"github.com/normcode/orchestrator/runlog"
	"github.com/normcode/orchestrator/sequence"
	"github.com/normcode/orchestrator/state"
	"github.com/normcode/orchestrator/telemetry"
)

// Handle is the lightweight result of Run: enough to track, cancel, and
// query the run, omitting the runner/state internals (spec.md §4.8's
// "returns the handle"; ownership stays with the facade per §4.1's
// "the facade owns the run handle").
type Handle struct {
	RunID   string
	AgentID string
}

// Status is the read-only snapshot Status(runID) returns.
type Status struct {
	RunID           string
	AgentID         string
	SequenceName    string
	State           sequence.Status
	CurrentStep     string
	CurrentFlowIdx  string
	Err             error
}

// Overrides lets a caller steer agent selection for one run without
// mutating the mapping service's persistent rules, e.g. a caller that
// already knows which agent should handle this request.
type Overrides struct {
	AgentID      string
	ConceptName  string
	FlowIndex    string
}

type runEntry struct {
	runner  *sequence.Runner
	agentID string
	name    string
	handle  engine.Handle
	done    chan struct{}
}

// OrchestrationFacade is the single entry point described by spec.md §4.8.
// Not safe to copy; construct with New and share the pointer.
type OrchestrationFacade struct {
	doc        *config.Document
	registry   *agentregistry.AgentRegistry
	mapper     *mapping.Service
	bus        hooks.Bus
	rendezvous *rendezvous.HumanInputRendezvous
	runlog     runlog.Store
	steps      sequence.Registry
	logger     telemetry.Logger
	tracer     telemetry.Tracer
	metrics    telemetry.Metrics
	engine     engine.Engine

	mu   sync.Mutex
	runs map[string]*runEntry

	persisterSub hooks.Subscription
	persisterDone chan struct{}
}

// New builds an OrchestrationFacade over the given process-wide
// singletons (spec.md §5 "Shared-resource policy": registry, mapper, bus,
// and rendezvous are process-wide with internal synchronization, injected
// here rather than reached through ambient globals). doc supplies the
// sequence definitions Run validates sequence names against; steps
// resolves a sequence's step names to their StepFunc implementations.
//
// eng drives every started run's steps to completion; a nil eng defaults
// to engine/inmem.Engine, the in-process backend with no durability across
// restarts. Pass an engine/temporal-backed engine.Engine instead for a
// durable workflow backend, without any other change to the facade. tracer
// and metrics default to no-ops when nil; when set, every run's
// sequence.Runner is built with them, producing a span per step and a
// histogram of human-input wait latency.
func New(doc *config.Document, registry *agentregistry.AgentRegistry, mapper *mapping.Service, bus hooks.Bus, rz *rendezvous.HumanInputRendezvous, store runlog.Store, steps sequence.Registry, logger telemetry.Logger, eng engine.Engine, tracer telemetry.Tracer, metrics telemetry.Metrics) *OrchestrationFacade {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	if eng == nil {
		eng = inmem.New(logger)
	}
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	f := &OrchestrationFacade{
		doc:           doc,
		registry:      registry,
		mapper:        mapper,
		bus:           bus,
		rendezvous:    rz,
		runlog:        store,
		steps:         steps,
		logger:        logger,
		tracer:        tracer,
		metrics:       metrics,
		engine:        eng,
		runs:          make(map[string]*runEntry),
		persisterDone: make(chan struct{}),
	}
	f.persisterSub = bus.Subscribe(0)
	go f.persist()
	return f
}

// persist drains the facade's own bus subscription into runlog.Store for
// every event carrying a run id, so Events(runID, since) can serve
// observers that connect after those events were published. Grounded on
// runlog's doc comment distinguishing the bus (best-effort live fan-out)
// from the store (canonical record for late observers).
func (f *OrchestrationFacade) persist() {
	defer close(f.persisterDone)
	done := make(chan struct{})
	for {
		event, ok := f.persisterSub.Next(done)
		if !ok {
			return
		}
		runID := event.RunID()
		if runID == "" {
			continue
		}
		agentID := f.agentIDFor(runID)
		entry := runlog.FromHookEvent(runID, agentID, event)
		if err := f.runlog.Append(context.Background(), entry); err != nil {
			f.logger.Warn(context.Background(), "run log append failed", "run_id", runID, "error", err)
		}
	}
}

func (f *OrchestrationFacade) agentIDFor(runID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.runs[runID]; ok {
		return e.agentID
	}
	return ""
}

// Run validates sequenceName against the registered sequence set,
// allocates a run id and state, consults the mapping service for the
// agent (unless overrides pins one directly), obtains the agent's bound
// tools (failing fast with a configuration error rather than starting a
// doomed worker), starts the SequenceRunner on a dedicated goroutine, and
// returns the handle. Matches spec.md §4.8's Run contract.
func (f *OrchestrationFacade) Run(ctx context.Context, sequenceName string, overrides Overrides) (Handle, error) {
	steps, ok := f.doc.StepsFor(sequenceName)
	if !ok {
		return Handle{}, orcherr.Configuration(fmt.Sprintf("unknown sequence %q", sequenceName), nil)
	}

	agentID := overrides.AgentID
	if agentID == "" {
		agentID = f.mapper.AgentFor(mapping.Inference{
			FlowIndex:    overrides.FlowIndex,
			ConceptName:  overrides.ConceptName,
			SequenceType: sequenceName,
		})
	}

	runID := uuid.NewString()

	if _, err := f.registry.BoundTools(ctx, agentID); err != nil {
		return Handle{}, orcherr.Configuration(fmt.Sprintf("agent %q has no usable tool set", agentID), err)
	}

	runner := sequence.New(runID, agentID, f.registry, f.bus, f.logger, f.tracer, f.metrics)
	runner.Start(sequenceName, state.New(), steps, f.steps)

	engHandle, err := f.engine.StartRun(context.Background(), runID, engine.WrapSequenceRunner(runner))
	if err != nil {
		return Handle{}, orcherr.Configuration(fmt.Sprintf("run %q could not be started", runID), err)
	}

	entry := &runEntry{runner: runner, agentID: agentID, name: sequenceName, handle: engHandle, done: make(chan struct{})}

	f.mu.Lock()
	f.runs[runID] = entry
	f.mu.Unlock()

	go func() {
		defer close(entry.done)
		if err := engHandle.Wait(context.Background()); err != nil {
			f.logger.Info(ctx, "run ended", "run_id", runID, "agent_id", agentID, "error", err)
		}
	}()

	return Handle{RunID: runID, AgentID: agentID}, nil
}

// Cancel transitions runID to cancelled: the runner is asked to abort at
// its next step boundary, and the run's own context is cancelled so any
// ctx-aware blocking call in flight (a rendezvous wait, a tool request)
// unblocks too, per spec.md §5's cancellation model. Returns a
// configuration error if runID is unknown.
func (f *OrchestrationFacade) Cancel(runID string) error {
	f.mu.Lock()
	entry, ok := f.runs[runID]
	f.mu.Unlock()
	if !ok {
		return orcherr.Configuration(fmt.Sprintf("unknown run %q", runID), nil)
	}
	return entry.handle.Cancel(context.Background())
}

// Status returns runID's current cursor and terminal error, if any.
// Read-only, per spec.md §4.8.
func (f *OrchestrationFacade) Status(runID string) (Status, error) {
	f.mu.Lock()
	entry, ok := f.runs[runID]
	f.mu.Unlock()
	if !ok {
		return Status{}, orcherr.Configuration(fmt.Sprintf("unknown run %q", runID), nil)
	}
	cursor := entry.runner.Current()
	return Status{
		RunID:          runID,
		AgentID:        entry.agentID,
		SequenceName:   entry.name,
		State:          cursor.Status,
		CurrentStep:    cursor.StepName,
		CurrentFlowIdx: cursor.FlowIndex,
		Err:            entry.runner.Err(),
	}, nil
}

// Events returns the next forward page of already-emitted events for
// runID, for an observer that connects after those events were
// published. since is an opaque cursor from a previous call, or empty to
// start from the beginning. Read-only, per spec.md §4.8.
func (f *OrchestrationFacade) Events(ctx context.Context, runID string, since string, limit int) (runlog.Page, error) {
	return f.runlog.List(ctx, runID, since, limit)
}

// SubmitInput forwards an observer's answer to the pending request
// identified by requestID, per spec.md §6's input:submit command.
func (f *OrchestrationFacade) SubmitInput(requestID, value string) bool {
	return f.rendezvous.Submit(requestID, value)
}

// CancelInput forwards an observer's input:cancel command to the pending
// request identified by requestID.
func (f *OrchestrationFacade) CancelInput(requestID string) bool {
	return f.rendezvous.Cancel(requestID)
}

// Close stops the facade's internal event-log persister subscription.
// Active runs are not affected; call Cancel on each run id first if a
// clean shutdown of in-flight work is required.
func (f *OrchestrationFacade) Close() {
	f.persisterSub.Close()
	<-f.persisterDone
}
