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

func TestRender_SubstitutesVariables(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greet.tmpl"), []byte("hello {{.Name}}"), 0o644))

	p := tools.NewLocalPromptTemplates(dir)
	got, err := p.Render(context.Background(), "greet.tmpl", map[string]any{"Name": "world"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
}

func TestRender_MissingTemplateErrors(t *testing.T) {
	p := tools.NewLocalPromptTemplates(t.TempDir())
	_, err := p.Render(context.Background(), "missing.tmpl", nil)
	require.Error(t, err)
}

func TestRender_CachesParsedTemplateAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cached.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("v1 {{.X}}"), 0o644))

	p := tools.NewLocalPromptTemplates(dir)
	got, err := p.Render(context.Background(), "cached.tmpl", map[string]any{"X": 1})
	require.NoError(t, err)
	assert.Equal(t, "v1 1", got)

	// Overwrite on disk; cached parse should still be served until cleared.
	require.NoError(t, os.WriteFile(path, []byte("v2 {{.X}}"), 0o644))
	got, err = p.Render(context.Background(), "cached.tmpl", map[string]any{"X": 1})
	require.NoError(t, err)
	assert.Equal(t, "v1 1", got)

	p.ClearCache()
	got, err = p.Render(context.Background(), "cached.tmpl", map[string]any{"X": 1})
	require.NoError(t, err)
	assert.Equal(t, "v2 1", got)
}

func TestCreateTemplateFunction_ReturnsExecutorThatRenders(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fn.tmpl"), []byte("fn: {{.A}}"), 0o644))

	p := tools.NewLocalPromptTemplates(dir)
	fn, err := p.CreateTemplateFunction("fn.tmpl")
	require.NoError(t, err)

	result, err := fn(context.Background(), map[string]any{"A": "value"})
	require.NoError(t, err)
	assert.Equal(t, "fn: value", result)
}

func TestCreateTemplateFunction_MissingTemplateErrors(t *testing.T) {
	p := tools.NewLocalPromptTemplates(t.TempDir())
	_, err := p.CreateTemplateFunction("missing.tmpl")
	require.Error(t, err)
}
