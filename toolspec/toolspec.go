// Package toolspec describes the JSON-schema contract for a tool method's
// payload and result, and validates concrete values against it before a
// monitored call reaches the underlying tool. It is a deliberately smaller
// cousin of a code-generated tool-spec registry: this orchestrator has a
// fixed, closed set of tools (spec §6's LLM/FileSystem/ScriptInterpreter/
// PromptTemplates/Composition/Formatter/HumanInput), so specs are
// hand-declared rather than generated from a DSL.
package toolspec

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// TypeSpec describes the JSON schema for a payload or result shape.
type TypeSpec struct {
	// Name is a human-readable identifier for the shape (e.g. "llm.generate.payload").
	Name string
	// Schema is the raw JSON Schema document. A nil Schema means "no
	// validation", useful during development or for tools with a
	// genuinely unconstrained shape.
	Schema json.RawMessage
}

// ToolSpec describes one method on one tool: its name and the schemas for
// its payload and result.
type ToolSpec struct {
	// ToolName is the tool's registered name, e.g. "llm".
	ToolName string
	// Method is the method name, e.g. "generate".
	Method string
	// Description documents the method for operators browsing a
	// registry dump; not sent to any model.
	Description string
	// Payload is the schema the method's input must satisfy.
	Payload TypeSpec
	// Result is the schema the method's output must satisfy.
	Result TypeSpec
}

// CompiledSpec is a ToolSpec with its schemas pre-compiled for repeated
// validation.
type CompiledSpec struct {
	Spec          ToolSpec
	payloadSchema *jsonschema.Schema
	resultSchema  *jsonschema.Schema
}

// Compile parses and compiles the JSON schemas on spec. Either schema may
// be absent (nil Schema), in which case that half of validation is
// skipped.
func Compile(spec ToolSpec) (*CompiledSpec, error) {
	cs := &CompiledSpec{Spec: spec}
	var err error
	if cs.payloadSchema, err = compileOne(spec.ToolName+"."+spec.Method+".payload", spec.Payload.Schema); err != nil {
		return nil, err
	}
	if cs.resultSchema, err = compileOne(spec.ToolName+"."+spec.Method+".result", spec.Result.Schema); err != nil {
		return nil, err
	}
	return cs, nil
}

func compileOne(name string, raw json.RawMessage) (*jsonschema.Schema, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	compiler := jsonschema.NewCompiler()
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("toolspec: %s: invalid schema JSON: %w", name, err)
	}
	if err := compiler.AddResource(name, doc); err != nil {
		return nil, fmt.Errorf("toolspec: %s: add resource: %w", name, err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("toolspec: %s: compile: %w", name, err)
	}
	return schema, nil
}

// ValidatePayload validates value (typically a map[string]any decoded from
// the sanitized call arguments) against the payload schema. A nil payload
// schema always validates.
func (cs *CompiledSpec) ValidatePayload(value any) error {
	return validateAgainst(cs.payloadSchema, value)
}

// ValidateResult validates value against the result schema. A nil result
// schema always validates.
func (cs *CompiledSpec) ValidateResult(value any) error {
	return validateAgainst(cs.resultSchema, value)
}

func validateAgainst(schema *jsonschema.Schema, value any) error {
	if schema == nil {
		return nil
	}
	// jsonschema validates against decoded JSON values (map[string]any,
	// []any, string, float64, bool, nil); round-trip through JSON so
	// Go-native structs and typed maps are accepted.
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("toolspec: marshal value for validation: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("toolspec: decode value for validation: %w", err)
	}
	if err := schema.Validate(decoded); err != nil {
		return fmt.Errorf("toolspec: validation failed: %w", err)
	}
	return nil
}

// Registry holds CompiledSpec entries keyed by "tool.method".
type Registry struct {
	specs map[string]*CompiledSpec
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]*CompiledSpec)}
}

// Register compiles and stores spec, keyed by its tool and method name.
func (r *Registry) Register(spec ToolSpec) error {
	compiled, err := Compile(spec)
	if err != nil {
		return err
	}
	r.specs[key(spec.ToolName, spec.Method)] = compiled
	return nil
}

// Lookup returns the compiled spec for (toolName, method), or nil if none
// was registered — meaning validation is skipped for that call.
func (r *Registry) Lookup(toolName, method string) *CompiledSpec {
	return r.specs[key(toolName, method)]
}

func key(toolName, method string) string { return toolName + "." + method }
