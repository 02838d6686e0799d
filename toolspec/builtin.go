package toolspec

import "encoding/json"

// BuiltinRegistry returns the Registry monitor.Proxy validates every bound
// tool call against by default: a modest set of payload constraints for
// the fixed tools.* surface (spec §6), tight enough to catch malformed
// calls before they reach the underlying tool, loose enough to leave most
// methods unconstrained (nil Schema) the way a nil Schema is documented as
// a legitimate "no validation" default for genuinely unconstrained shapes.
func BuiltinRegistry() *Registry {
	r := NewRegistry()
	register := func(spec ToolSpec) {
		if err := r.Register(spec); err != nil {
			panic("toolspec: builtin spec " + spec.ToolName + "." + spec.Method + ": " + err.Error())
		}
	}

	register(ToolSpec{
		ToolName:    "llm",
		Method:      "generate",
		Description: "generate a completion from a prompt",
		Payload: TypeSpec{
			Name: "llm.generate.payload",
			Schema: json.RawMessage(`{
				"type": "object",
				"required": ["prompt"],
				"properties": {
					"prompt": {"type": "string", "minLength": 1},
					"system": {"type": "string"}
				}
			}`),
		},
	})

	register(ToolSpec{
		ToolName:    "composition",
		Method:      "run",
		Description: "run a named composition spec with variables",
		Payload: TypeSpec{
			Name: "composition.run.payload",
			Schema: json.RawMessage(`{
				"type": "object",
				"required": ["name"],
				"properties": {
					"name": {"type": "string", "minLength": 1}
				}
			}`),
		},
	})

	register(ToolSpec{
		ToolName:    "human_input",
		Method:      "await_input",
		Description: "block for an observer's answer to a prompt",
		Payload: TypeSpec{
			Name: "human_input.await_input.payload",
			Schema: json.RawMessage(`{
				"type": "object",
				"required": ["prompt", "kind"],
				"properties": {
					"prompt": {"type": "string"},
					"kind": {"enum": ["plain_text", "code", "confirm", "select", "editor"]},
					"options": {"type": "array", "items": {"type": "string"}}
				}
			}`),
		},
	})

	return r
}
