package monitor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normcode/orchestrator/hooks"
	"github.com/normcode/orchestrator/monitor"
	"github.com/normcode/orchestrator/tools"
	"github.com/normcode/orchestrator/toolspec"
)

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Generate(ctx context.Context, prompt, system string) (string, error) {
	return f.response, f.err
}

func (f *fakeLLM) CreateGenerationFunction(promptTemplate string) (tools.Executor, error) {
	return func(ctx context.Context, args map[string]any) (any, error) {
		return "generated", nil
	}, nil
}

func newProxy(bus hooks.Bus) *monitor.Proxy {
	return &monitor.Proxy{
		RunID:     func() string { return "run-1" },
		AgentID:   "agent-1",
		ToolName:  "llm",
		Bus:       bus,
		FlowIndex: func() string { return "1.0" },
	}
}

func TestLLM_Generate_EmitsStartedThenCompleted(t *testing.T) {
	bus := hooks.NewBus()
	sub := bus.Subscribe(10)
	defer sub.Close()

	l := monitor.NewLLM(newProxy(bus), &fakeLLM{response: "hello"})
	got, err := l.Generate(context.Background(), "prompt", "system")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	started := nextEvent(t, sub).(*hooks.ToolEvent)
	assert.Equal(t, hooks.EventType("tool:generate:started"), started.Type())
	assert.Equal(t, "run-1", started.RunID())
	assert.Equal(t, "1.0", started.FlowIndex())
	assert.Equal(t, "agent-1", started.AgentID)

	completed := nextEvent(t, sub).(*hooks.ToolEvent)
	assert.Equal(t, hooks.EventType("tool:generate:completed"), completed.Type())
	assert.Equal(t, started.EventID, completed.EventID)
	assert.Equal(t, "hello", completed.Outputs)
}

func TestLLM_Generate_EmitsFailedOnError(t *testing.T) {
	bus := hooks.NewBus()
	sub := bus.Subscribe(10)
	defer sub.Close()

	l := monitor.NewLLM(newProxy(bus), &fakeLLM{err: errors.New("boom")})
	_, err := l.Generate(context.Background(), "prompt", "")
	require.Error(t, err)

	nextEvent(t, sub) // started
	failed := nextEvent(t, sub).(*hooks.ToolEvent)
	assert.Equal(t, hooks.EventType("tool:generate:failed"), failed.Type())
	assert.Equal(t, "boom", failed.Err)
}

func TestLLM_CreateGenerationFunction_WrapsReturnedExecutorWithItsOwnEvents(t *testing.T) {
	bus := hooks.NewBus()
	sub := bus.Subscribe(10)
	defer sub.Close()

	l := monitor.NewLLM(newProxy(bus), &fakeLLM{})
	fn, err := l.CreateGenerationFunction("template")
	require.NoError(t, err)

	nextEvent(t, sub) // create_generation_function started
	nextEvent(t, sub) // create_generation_function completed

	result, err := fn(context.Background(), map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, "generated", result)

	started := nextEvent(t, sub).(*hooks.ToolEvent)
	assert.Equal(t, hooks.EventType("tool:create_generation_function→execute:started"), started.Type())
	completed := nextEvent(t, sub).(*hooks.ToolEvent)
	assert.Equal(t, hooks.EventType("tool:create_generation_function→execute:completed"), completed.Type())
}

func TestLLM_Generate_RejectsEmptyPromptAgainstBuiltinSpec(t *testing.T) {
	bus := hooks.NewBus()
	sub := bus.Subscribe(10)
	defer sub.Close()

	proxy := newProxy(bus)
	proxy.Spec = toolspec.BuiltinRegistry()

	l := monitor.NewLLM(proxy, &fakeLLM{response: "hello"})
	_, err := l.Generate(context.Background(), "", "")
	require.Error(t, err)

	nextEvent(t, sub) // started
	failed := nextEvent(t, sub).(*hooks.ToolEvent)
	assert.Equal(t, hooks.EventType("tool:generate:failed"), failed.Type())
}

func TestLLM_Generate_PassesValidPayloadAgainstBuiltinSpec(t *testing.T) {
	bus := hooks.NewBus()
	sub := bus.Subscribe(10)
	defer sub.Close()

	proxy := newProxy(bus)
	proxy.Spec = toolspec.BuiltinRegistry()

	l := monitor.NewLLM(proxy, &fakeLLM{response: "hello"})
	got, err := l.Generate(context.Background(), "a real prompt", "")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	nextEvent(t, sub) // started
	completed := nextEvent(t, sub).(*hooks.ToolEvent)
	assert.Equal(t, hooks.EventType("tool:generate:completed"), completed.Type())
}

func TestLLM_Generate_NilSpecSkipsValidation(t *testing.T) {
	bus := hooks.NewBus()
	sub := bus.Subscribe(10)
	defer sub.Close()

	l := monitor.NewLLM(newProxy(bus), &fakeLLM{response: "hello"})
	_, err := l.Generate(context.Background(), "", "")
	require.NoError(t, err, "a nil Proxy.Spec must not validate at all")

	nextEvent(t, sub) // started
	completed := nextEvent(t, sub).(*hooks.ToolEvent)
	assert.Equal(t, hooks.EventType("tool:generate:completed"), completed.Type())
}

func nextEvent(t *testing.T, sub hooks.Subscription) hooks.Event {
	t.Helper()
	done := make(chan struct{})
	timer := time.AfterFunc(time.Second, func() { close(done) })
	defer timer.Stop()
	e, ok := sub.Next(done)
	require.True(t, ok)
	return e
}
