package temporal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/normcode/orchestrator/engine"
	"github.com/normcode/orchestrator/telemetry"
)

// Options configures the Temporal engine adapter. Either Client or
// ClientOptions must be set.
type Options struct {
	// Client is a pre-configured Temporal client. If nil, New constructs one
	// lazily from ClientOptions.
	Client client.Client
	// ClientOptions describe how to construct a Temporal client when Client
	// is nil.
	ClientOptions *client.Options
	// TaskQueue is the queue the engine's single worker polls. Required.
	TaskQueue string
	// Logger receives worker lifecycle and activity-lookup diagnostics. A
	// nil Logger defaults to a no-op one.
	Logger telemetry.Logger
}

// Engine implements engine.Engine on top of a single Temporal worker and
// client pair. See the package doc for the runWorkflow/stepActivity shape.
type Engine struct {
	client      client.Client
	closeClient bool
	taskQueue   string
	logger      telemetry.Logger
	worker      worker.Worker

	mu      sync.Mutex
	started bool
	runs    sync.Map // runID -> engine.Runner
}

// New constructs a Temporal-backed engine and registers its workflow and
// activity with a worker for opts.TaskQueue. The worker is not started
// until the first StartRun call.
func New(opts Options) (*Engine, error) {
	if opts.TaskQueue == "" {
		return nil, fmt.Errorf("temporal engine: task queue is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}

	cli := opts.Client
	closeClient := false
	if cli == nil {
		if opts.ClientOptions == nil {
			return nil, fmt.Errorf("temporal engine: Client or ClientOptions is required")
		}
		var err error
		cli, err = client.NewLazyClient(*opts.ClientOptions)
		if err != nil {
			return nil, fmt.Errorf("temporal engine: create client: %w", err)
		}
		closeClient = true
	}

	e := &Engine{
		client:      cli,
		closeClient: closeClient,
		taskQueue:   opts.TaskQueue,
		logger:      logger,
	}
	e.worker = worker.New(cli, opts.TaskQueue, worker.Options{})
	e.worker.RegisterWorkflow(e.runWorkflow)
	e.worker.RegisterActivity(e.stepActivity)
	return e, nil
}

// StartRun implements engine.Engine. r is kept in a process-local table so
// the activity invoked by the workflow can find it; see the package doc's
// single-process limitation.
func (e *Engine) StartRun(ctx context.Context, runID string, r engine.Runner) (engine.Handle, error) {
	if runID == "" {
		return nil, fmt.Errorf("temporal engine: runID is required")
	}
	if _, loaded := e.runs.LoadOrStore(runID, r); loaded {
		return nil, fmt.Errorf("temporal engine: run %q already started", runID)
	}
	e.ensureWorkerStarted()

	run, err := e.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        runID,
		TaskQueue: e.taskQueue,
	}, e.runWorkflow, runID)
	if err != nil {
		e.runs.Delete(runID)
		return nil, fmt.Errorf("temporal engine: start workflow: %w", err)
	}
	return &runHandle{engine: e, runID: runID, run: run}, nil
}

// Close shuts down the worker and, if New created the client itself, the
// client too.
func (e *Engine) Close() {
	e.mu.Lock()
	started := e.started
	e.mu.Unlock()
	if started {
		e.worker.Stop()
	}
	if e.closeClient && e.client != nil {
		e.client.Close()
	}
}

func (e *Engine) ensureWorkerStarted() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	go func() {
		if err := e.worker.Run(worker.InterruptCh()); err != nil {
			e.logger.Error(context.Background(), "temporal engine: worker stopped", "error", err)
		}
	}()
}

// stepResult is the activity's return value: a plain, serializable summary
// of one Step call, since the engine.Runner/*sequence.Runner themselves
// cannot cross the activity boundary.
type stepResult struct {
	Terminal bool
	Failed   bool
	ErrMsg   string
}

// runWorkflow loops the stepActivity until the run reports terminal. It
// intentionally returns a nil error even when the run finished as Failed or
// Cancelled: that is a normal run outcome, not a workflow execution defect,
// and is recorded in ErrMsg/Failed for callers that inspect it via Wait.
func (e *Engine) runWorkflow(ctx workflow.Context, runID string) (stepResult, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: time.Hour,
	}
	actx := workflow.WithActivityOptions(ctx, ao)

	var last stepResult
	for {
		var res stepResult
		if err := workflow.ExecuteActivity(actx, e.stepActivity, runID).Get(actx, &res); err != nil {
			return last, err
		}
		last = res
		if res.Terminal {
			return last, nil
		}
	}
}

// stepActivity looks up the runner started under runID and advances it by
// one step. Running in the same process that called StartRun is what makes
// the lookup succeed; see the package doc.
func (e *Engine) stepActivity(ctx context.Context, runID string) (stepResult, error) {
	v, ok := e.runs.Load(runID)
	if !ok {
		return stepResult{}, fmt.Errorf("temporal engine: no runner registered for run %q (stepActivity must run in the process that called StartRun)", runID)
	}
	r := v.(engine.Runner)

	terminal, failed, err := r.Step(ctx)
	res := stepResult{Terminal: terminal, Failed: failed}
	if err != nil {
		res.ErrMsg = err.Error()
	}
	if terminal {
		e.runs.Delete(runID)
	}
	// The step's own error is summarized in res, not returned as the
	// activity's error: an ordinary Failed/Cancelled run must not trigger
	// Temporal's activity retry policy.
	return res, nil
}

type runHandle struct {
	engine *Engine
	runID  string
	run    client.WorkflowRun
}

func (h *runHandle) Wait(ctx context.Context) error {
	var res stepResult
	if err := h.run.Get(ctx, &res); err != nil {
		return err
	}
	if res.Failed && res.ErrMsg != "" {
		return fmt.Errorf("sequence run %q failed: %s", h.runID, res.ErrMsg)
	}
	return nil
}

func (h *runHandle) Cancel(ctx context.Context) error {
	return h.engine.client.CancelWorkflow(ctx, h.run.GetID(), h.run.GetRunID())
}
