package tools_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normcode/orchestrator/tools"
)

func TestBasicFormatter_TextDefaultsWhenFormatEmpty(t *testing.T) {
	f := tools.NewBasicFormatter()
	got, err := f.Format(context.Background(), 42, "")
	require.NoError(t, err)
	assert.Equal(t, "42", got)
}

func TestBasicFormatter_JSON(t *testing.T) {
	f := tools.NewBasicFormatter()
	got, err := f.Format(context.Background(), map[string]any{"a": 1}, "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, got)
}

func TestBasicFormatter_UnsupportedFormatErrors(t *testing.T) {
	f := tools.NewBasicFormatter()
	_, err := f.Format(context.Background(), "x", "xml")
	require.Error(t, err)
}
