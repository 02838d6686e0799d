package toolspec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normcode/orchestrator/toolspec"
)

func TestCompile_NilSchemasAlwaysValidate(t *testing.T) {
	cs, err := toolspec.Compile(toolspec.ToolSpec{ToolName: "llm", Method: "generate"})
	require.NoError(t, err)
	assert.NoError(t, cs.ValidatePayload(map[string]any{"anything": true}))
	assert.NoError(t, cs.ValidateResult(42))
}

func TestCompile_InvalidSchemaJSONFails(t *testing.T) {
	_, err := toolspec.Compile(toolspec.ToolSpec{
		ToolName: "llm", Method: "generate",
		Payload: toolspec.TypeSpec{Schema: []byte(`{not json`)},
	})
	require.Error(t, err)
}

func TestValidatePayload_RejectsValueViolatingSchema(t *testing.T) {
	schema := []byte(`{
		"type": "object",
		"properties": {"prompt": {"type": "string"}},
		"required": ["prompt"]
	}`)
	cs, err := toolspec.Compile(toolspec.ToolSpec{
		ToolName: "llm", Method: "generate",
		Payload: toolspec.TypeSpec{Name: "llm.generate.payload", Schema: schema},
	})
	require.NoError(t, err)

	assert.NoError(t, cs.ValidatePayload(map[string]any{"prompt": "hello"}))
	assert.Error(t, cs.ValidatePayload(map[string]any{"prompt": 5}))
	assert.Error(t, cs.ValidatePayload(map[string]any{}))
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := toolspec.NewRegistry()
	require.NoError(t, reg.Register(toolspec.ToolSpec{ToolName: "llm", Method: "generate"}))

	found := reg.Lookup("llm", "generate")
	require.NotNil(t, found)
	assert.Equal(t, "llm", found.Spec.ToolName)

	assert.Nil(t, reg.Lookup("llm", "unknown-method"))
	assert.Nil(t, reg.Lookup("unregistered-tool", "generate"))
}

func TestRegistry_RegisterInvalidSpecReturnsErrorAndDoesNotRegister(t *testing.T) {
	reg := toolspec.NewRegistry()
	err := reg.Register(toolspec.ToolSpec{
		ToolName: "llm", Method: "generate",
		Result: toolspec.TypeSpec{Schema: []byte(`{not json`)},
	})
	require.Error(t, err)
	assert.Nil(t, reg.Lookup("llm", "generate"))
}
