package monitor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/normcode/orchestrator/hooks"
	"github.com/normcode/orchestrator/monitor"
	"github.com/normcode/orchestrator/tools"
)

type stubFileSystem struct{}

func (stubFileSystem) Read(context.Context, string) (string, error)             { return "", nil }
func (stubFileSystem) Write(context.Context, string, string) error              { return nil }
func (stubFileSystem) Append(context.Context, string, string) error            { return nil }
func (stubFileSystem) Delete(context.Context, string) error                     { return nil }
func (stubFileSystem) Exists(context.Context, string) (bool, error)             { return false, nil }
func (stubFileSystem) ListDirectory(context.Context, string) ([]string, error)  { return nil, nil }
func (stubFileSystem) ReadJSON(context.Context, string, any) error              { return nil }
func (stubFileSystem) WriteJSON(context.Context, string, any) error             { return nil }

type stubScriptInterpreter struct{}

func (stubScriptInterpreter) Execute(context.Context, string, map[string]any) (any, error) {
	return nil, nil
}
func (stubScriptInterpreter) CreateFunctionExecutor(context.Context, string) (tools.Executor, error) {
	return nil, nil
}

type stubPromptTemplates struct{}

func (stubPromptTemplates) Render(context.Context, string, map[string]any) (string, error) {
	return "", nil
}
func (stubPromptTemplates) CreateTemplateFunction(string) (tools.Executor, error) { return nil, nil }

type stubComposition struct{}

func (stubComposition) List(context.Context) ([]tools.CompositionSpec, error) { return nil, nil }
func (stubComposition) Run(context.Context, string, map[string]any, tools.Dispatcher) (any, error) {
	return nil, nil
}

type stubFormatter struct{}

func (stubFormatter) Format(context.Context, any, string) (string, error) { return "", nil }

type stubHumanInput struct{}

func (stubHumanInput) AwaitInput(context.Context, string, string, []string) (string, error) {
	return "", nil
}

func TestWrapBundle_OnlyWrapsNonNilMembers(t *testing.T) {
	base := newProxy(hooks.NewBus())
	raw := tools.Bundle{LLM: &fakeLLM{}}

	wrapped := monitor.WrapBundle(base, raw)
	assert.NotNil(t, wrapped.LLM)
	assert.Nil(t, wrapped.FileSystem)
	assert.Nil(t, wrapped.ScriptInterpreter)
	assert.Nil(t, wrapped.PromptTemplates)
	assert.Nil(t, wrapped.Composition)
	assert.Nil(t, wrapped.Formatter)
	assert.Nil(t, wrapped.HumanInput)
}

func TestWrapBundle_WrapsEveryPresentMember(t *testing.T) {
	base := newProxy(hooks.NewBus())
	raw := tools.Bundle{
		LLM:               &fakeLLM{},
		FileSystem:        stubFileSystem{},
		ScriptInterpreter: stubScriptInterpreter{},
		PromptTemplates:   stubPromptTemplates{},
		Composition:       stubComposition{},
		Formatter:         stubFormatter{},
		HumanInput:        stubHumanInput{},
	}

	wrapped := monitor.WrapBundle(base, raw)
	assert.NotNil(t, wrapped.LLM)
	assert.NotNil(t, wrapped.FileSystem)
	assert.NotNil(t, wrapped.ScriptInterpreter)
	assert.NotNil(t, wrapped.PromptTemplates)
	assert.NotNil(t, wrapped.Composition)
	assert.NotNil(t, wrapped.Formatter)
	assert.NotNil(t, wrapped.HumanInput)
}
