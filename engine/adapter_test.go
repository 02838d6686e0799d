package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/normcode/orchestrator/agentregistry"
	"github.com/normcode/orchestrator/engine"
	"github.com/normcode/orchestrator/hooks"
	"github.com/normcode/orchestrator/sequence"
	"github.com/normcode/orchestrator/state"
)

func newRunner(t *testing.T, bus hooks.Bus) *sequence.Runner {
	t.Helper()
	reg := agentregistry.New(t.TempDir(), bus, nil, agentregistry.Factories{})
	return sequence.New("run-1", agentregistry.DefaultAgentID, reg, bus, nil, nil, nil)
}

func TestWrapSequenceRunner_StepReportsTerminalOnCompletion(t *testing.T) {
	bus := hooks.NewBus()
	r := newRunner(t, bus)
	r.Start("empty", state.New(), nil, sequence.MapRegistry{})

	w := engine.WrapSequenceRunner(r)
	terminal, failed, err := w.Step(context.Background())
	require.NoError(t, err)
	require.True(t, terminal)
	require.False(t, failed)
}

func TestWrapSequenceRunner_StepReportsFailedOnStepError(t *testing.T) {
	bus := hooks.NewBus()
	r := newRunner(t, bus)
	r.Start("broken", state.New(), []state.StepDescriptor{
		{Kind: state.KindFunction, StepName: "BOOM", StepIndex: 1},
	}, sequence.MapRegistry{})

	w := engine.WrapSequenceRunner(r)
	terminal, failed, err := w.Step(context.Background())
	require.Error(t, err)
	require.True(t, terminal)
	require.True(t, failed)
}

func TestWrapSequenceRunner_CancelStopsTheRunAtNextStep(t *testing.T) {
	bus := hooks.NewBus()
	r := newRunner(t, bus)
	r.Start("two-step", state.New(), []state.StepDescriptor{
		{Kind: state.KindFunction, StepName: "A", StepIndex: 1},
		{Kind: state.KindFunction, StepName: "B", StepIndex: 2},
	}, sequence.MapRegistry{})

	w := engine.WrapSequenceRunner(r)
	c, ok := w.(engine.Canceller)
	require.True(t, ok)
	c.Cancel()

	terminal, failed, err := w.Step(context.Background())
	require.True(t, terminal)
	require.True(t, failed)
	require.Error(t, err)
}
