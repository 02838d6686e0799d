package tools_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normcode/orchestrator/tools"
)

func writeCompositionFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestNewLocalComposition_RejectsMissingOrNonDirectory(t *testing.T) {
	_, err := tools.NewLocalComposition(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	file := filepath.Join(t.TempDir(), "notadir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = tools.NewLocalComposition(file)
	require.Error(t, err)
}

func TestList_ParsesYAMLCompositionsAndSkipsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	writeCompositionFile(t, dir, "greet.yaml", `
name: greet
description: says hello
steps:
  - tool: llm
    method: generate
    args:
      prompt: "hello"
    bind: greeting
`)
	writeCompositionFile(t, dir, "README.md", "not a composition")

	c, err := tools.NewLocalComposition(dir)
	require.NoError(t, err)

	specs, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, specs, 1)
	assert.Equal(t, "greet", specs[0].Name)
	assert.Equal(t, "says hello", specs[0].Description)
	require.Len(t, specs[0].Steps, 1)
	assert.Equal(t, "llm", specs[0].Steps[0].Tool)
	assert.Equal(t, "greeting", specs[0].Steps[0].Bind)
}

func TestRun_ChainsStepsAndSubstitutesBoundVariables(t *testing.T) {
	dir := t.TempDir()
	writeCompositionFile(t, dir, "chain.yaml", `
name: chain
steps:
  - tool: llm
    method: generate
    args:
      prompt: "$topic"
    bind: draft
  - tool: formatter
    method: format
    args:
      value: "$draft"
`)
	c, err := tools.NewLocalComposition(dir)
	require.NoError(t, err)

	var calls []string
	dispatch := func(ctx context.Context, tool, method string, args map[string]any) (any, error) {
		calls = append(calls, tool+"."+method)
		switch tool {
		case "llm":
			assert.Equal(t, "space", args["prompt"])
			return "a story about space", nil
		case "formatter":
			assert.Equal(t, "a story about space", args["value"])
			return "formatted: a story about space", nil
		}
		return nil, nil
	}

	result, err := c.Run(context.Background(), "chain", map[string]any{"topic": "space"}, dispatch)
	require.NoError(t, err)
	assert.Equal(t, "formatted: a story about space", result)
	assert.Equal(t, []string{"llm.generate", "formatter.format"}, calls)
}

func TestRun_UnknownCompositionNameErrors(t *testing.T) {
	dir := t.TempDir()
	c, err := tools.NewLocalComposition(dir)
	require.NoError(t, err)

	_, err = c.Run(context.Background(), "missing", nil, nil)
	require.Error(t, err)
}

func TestRun_PropagatesDispatchError(t *testing.T) {
	dir := t.TempDir()
	writeCompositionFile(t, dir, "fails.yaml", `
name: fails
steps:
  - tool: llm
    method: generate
`)
	c, err := tools.NewLocalComposition(dir)
	require.NoError(t, err)

	dispatch := func(ctx context.Context, tool, method string, args map[string]any) (any, error) {
		return nil, assertErr
	}
	_, err = c.Run(context.Background(), "fails", nil, dispatch)
	require.Error(t, err)
}

var assertErr = errTest("dispatch failed")

type errTest string

func (e errTest) Error() string { return string(e) }
