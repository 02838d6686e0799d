package monitor

import "github.com/normcode/orchestrator/tools"

// WrapBundle builds a tools.Bundle whose non-nil members are monitored
// proxies around raw's corresponding members, each stamped with the tool
// name spec §4.2 uses on the wire ("llm", "file_system", "script_interpreter",
// "prompt_templates", "composition", "formatter", "human_input").
func WrapBundle(base *Proxy, raw tools.Bundle) tools.Bundle {
	wrapped := tools.Bundle{}
	if raw.LLM != nil {
		wrapped.LLM = NewLLM(named(base, "llm"), raw.LLM)
	}
	if raw.FileSystem != nil {
		wrapped.FileSystem = NewFileSystem(named(base, "file_system"), raw.FileSystem)
	}
	if raw.ScriptInterpreter != nil {
		wrapped.ScriptInterpreter = NewScriptInterpreter(named(base, "script_interpreter"), raw.ScriptInterpreter)
	}
	if raw.PromptTemplates != nil {
		wrapped.PromptTemplates = NewPromptTemplates(named(base, "prompt_templates"), raw.PromptTemplates)
	}
	if raw.Composition != nil {
		wrapped.Composition = NewComposition(named(base, "composition"), raw.Composition)
	}
	if raw.Formatter != nil {
		wrapped.Formatter = NewFormatter(named(base, "formatter"), raw.Formatter)
	}
	if raw.HumanInput != nil {
		wrapped.HumanInput = NewHumanInput(named(base, "human_input"), raw.HumanInput)
	}
	return wrapped
}

// named returns a copy of base scoped to toolName, so one Proxy template
// can be reused across every tool in a bundle.
func named(base *Proxy, toolName string) *Proxy {
	p := *base
	p.ToolName = toolName
	return &p
}
