package facade

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/normcode/orchestrator/agentregistry"
	"github.com/normcode/orchestrator/config"
	"github.com/normcode/orchestrator/hooks"
	"github.com/normcode/orchestrator/mapping"
	"github.com/normcode/orchestrator/orcherr"
	"github.com/normcode/orchestrator/rendezvous"
	"github.com/normcode/orchestrator/runlog"
	"github.com/normcode/orchestrator/sequence"
	"github.com/normcode/orchestrator/state"
	"github.com/normcode/orchestrator/tools"
)

func newTestFacade(t *testing.T, doc *config.Document, registry *agentregistry.AgentRegistry, bus hooks.Bus, rz *rendezvous.HumanInputRendezvous, steps sequence.Registry) *OrchestrationFacade {
	t.Helper()
	if registry == nil {
		registry = agentregistry.New(t.TempDir(), bus, nil, agentregistry.Factories{})
	}
	if rz == nil {
		rz = rendezvous.New(bus)
	}
	mapper := mapping.New(agentregistry.DefaultAgentID)
	store := runlog.NewMemoryStore(100)
	f := New(doc, registry, mapper, bus, rz, store, steps, nil, nil, nil, nil)
	t.Cleanup(f.Close)
	return f
}

func docWithSequence(name string, stepNames ...string) *config.Document {
	steps := make([]config.Step, len(stepNames))
	for i, n := range stepNames {
		steps[i] = config.Step{Kind: "function", StepName: n}
	}
	return &config.Document{Sequences: map[string]config.Sequence{name: {Steps: steps}}}
}

func TestRunUnknownSequenceFailsConfiguration(t *testing.T) {
	f := newTestFacade(t, docWithSequence("greet", "IWI"), nil, hooks.NewBus(), nil, sequence.MapRegistry{})
	_, err := f.Run(context.Background(), "does-not-exist", Overrides{})
	require.Error(t, err)
	require.True(t, orcherr.Is(err, orcherr.KindConfiguration))
}

func TestRunStartsSequenceAndReachesCompleted(t *testing.T) {
	bus := hooks.NewBus()
	reg := sequence.MapRegistry{
		"IWI": func(ctx context.Context, st *state.ReferenceInterpretationState, desc state.StepDescriptor, bound tools.Bundle) error {
			return nil
		},
	}
	f := newTestFacade(t, docWithSequence("greet", "IWI"), nil, bus, nil, reg)

	handle, err := f.Run(context.Background(), "greet", Overrides{})
	require.NoError(t, err)
	require.Equal(t, agentregistry.DefaultAgentID, handle.AgentID)
	require.NotEmpty(t, handle.RunID)

	require.Eventually(t, func() bool {
		status, err := f.Status(handle.RunID)
		return err == nil && status.State == sequence.StatusCompleted
	}, time.Second, 5*time.Millisecond)
}

func TestStatusUnknownRunFailsConfiguration(t *testing.T) {
	f := newTestFacade(t, docWithSequence("greet", "IWI"), nil, hooks.NewBus(), nil, sequence.MapRegistry{})
	_, err := f.Status("ghost")
	require.Error(t, err)
	require.True(t, orcherr.Is(err, orcherr.KindConfiguration))
}

func TestCancelUnknownRunFailsConfiguration(t *testing.T) {
	f := newTestFacade(t, docWithSequence("greet", "IWI"), nil, hooks.NewBus(), nil, sequence.MapRegistry{})
	err := f.Cancel("ghost")
	require.Error(t, err)
	require.True(t, orcherr.Is(err, orcherr.KindConfiguration))
}

func TestCancelStopsRunAtNextStepBoundary(t *testing.T) {
	bus := hooks.NewBus()
	entered := make(chan struct{})
	release := make(chan struct{})
	reg := sequence.MapRegistry{
		"BLOCK": func(ctx context.Context, st *state.ReferenceInterpretationState, desc state.StepDescriptor, bound tools.Bundle) error {
			close(entered)
			<-release
			return nil
		},
		"NEXT": func(ctx context.Context, st *state.ReferenceInterpretationState, desc state.StepDescriptor, bound tools.Bundle) error {
			t.Fatal("NEXT must not run once cancelled")
			return nil
		},
	}
	f := newTestFacade(t, docWithSequence("seq", "BLOCK", "NEXT"), nil, bus, nil, reg)

	handle, err := f.Run(context.Background(), "seq", Overrides{})
	require.NoError(t, err)

	<-entered
	require.NoError(t, f.Cancel(handle.RunID))
	close(release)

	require.Eventually(t, func() bool {
		status, err := f.Status(handle.RunID)
		return err == nil && status.State == sequence.StatusCancelled
	}, time.Second, 5*time.Millisecond)
}

func TestEventsReturnsPersistedEventsAfterCompletion(t *testing.T) {
	bus := hooks.NewBus()
	reg := sequence.MapRegistry{
		"IWI": func(ctx context.Context, st *state.ReferenceInterpretationState, desc state.StepDescriptor, bound tools.Bundle) error {
			return nil
		},
	}
	f := newTestFacade(t, docWithSequence("greet", "IWI"), nil, bus, nil, reg)

	handle, err := f.Run(context.Background(), "greet", Overrides{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		status, err := f.Status(handle.RunID)
		return err == nil && status.State == sequence.StatusCompleted
	}, time.Second, 5*time.Millisecond)

	var page runlog.Page
	require.Eventually(t, func() bool {
		var err error
		page, err = f.Events(context.Background(), handle.RunID, "", 100)
		return err == nil && len(page.Events) > 0
	}, time.Second, 5*time.Millisecond)

	var sawExecutionStarted bool
	for _, e := range page.Events {
		if e.Type == hooks.ExecutionStarted {
			sawExecutionStarted = true
		}
	}
	require.True(t, sawExecutionStarted)
}

func TestSubmitInputForwardsToRendezvousAndResumesRun(t *testing.T) {
	bus := hooks.NewBus()
	rz := rendezvous.New(bus)
	factories := agentregistry.Factories{
		HumanInput: func(_ context.Context, _ agentregistry.AgentConfig, runID, flowIndex func() string) (tools.HumanInput, error) {
			return &tools.RendezvousHumanInput{Rendezvous: rz, RunID: runID, FlowIndex: flowIndex}, nil
		},
	}
	registry := agentregistry.New(t.TempDir(), bus, nil, factories)

	var answer string
	reg := sequence.MapRegistry{
		"HUP": func(ctx context.Context, st *state.ReferenceInterpretationState, desc state.StepDescriptor, bound tools.Bundle) error {
			v, err := bound.HumanInput.AwaitInput(ctx, "continue?", "confirm", nil)
			answer = v
			return err
		},
	}
	f := newTestFacade(t, docWithSequence("ask", "HUP"), registry, bus, rz, reg)

	handle, err := f.Run(context.Background(), "ask", Overrides{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		status, err := f.Status(handle.RunID)
		return err == nil && status.State == sequence.StatusPaused
	}, time.Second, 5*time.Millisecond)

	pending := rz.Pending()
	require.Len(t, pending, 1)
	require.True(t, f.SubmitInput(pending[0].RequestID, "yes"))

	require.Eventually(t, func() bool {
		status, err := f.Status(handle.RunID)
		return err == nil && status.State == sequence.StatusCompleted
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, "yes", answer)
}

func TestCancelInputForwardsToRendezvousAndCancelsRun(t *testing.T) {
	bus := hooks.NewBus()
	rz := rendezvous.New(bus)
	factories := agentregistry.Factories{
		HumanInput: func(_ context.Context, _ agentregistry.AgentConfig, runID, flowIndex func() string) (tools.HumanInput, error) {
			return &tools.RendezvousHumanInput{Rendezvous: rz, RunID: runID, FlowIndex: flowIndex}, nil
		},
	}
	registry := agentregistry.New(t.TempDir(), bus, nil, factories)

	reg := sequence.MapRegistry{
		"HUP": func(ctx context.Context, st *state.ReferenceInterpretationState, desc state.StepDescriptor, bound tools.Bundle) error {
			_, err := bound.HumanInput.AwaitInput(ctx, "continue?", "confirm", nil)
			return err
		},
	}
	f := newTestFacade(t, docWithSequence("ask", "HUP"), registry, bus, rz, reg)

	handle, err := f.Run(context.Background(), "ask", Overrides{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		status, err := f.Status(handle.RunID)
		return err == nil && status.State == sequence.StatusPaused
	}, time.Second, 5*time.Millisecond)

	pending := rz.Pending()
	require.Len(t, pending, 1)
	require.True(t, f.CancelInput(pending[0].RequestID))

	require.Eventually(t, func() bool {
		status, err := f.Status(handle.RunID)
		return err == nil && status.State == sequence.StatusCancelled
	}, time.Second, 5*time.Millisecond)
}

func TestOverridesAgentIDBypassesMappingService(t *testing.T) {
	bus := hooks.NewBus()
	registry := agentregistry.New(t.TempDir(), bus, nil, agentregistry.Factories{})
	registry.Register(agentregistry.AgentConfig{ID: "writer", Name: "Writer"})

	reg := sequence.MapRegistry{
		"IWI": func(ctx context.Context, st *state.ReferenceInterpretationState, desc state.StepDescriptor, bound tools.Bundle) error {
			return nil
		},
	}
	f := newTestFacade(t, docWithSequence("greet", "IWI"), registry, bus, nil, reg)

	handle, err := f.Run(context.Background(), "greet", Overrides{AgentID: "writer"})
	require.NoError(t, err)
	require.Equal(t, "writer", handle.AgentID)
}
