// Package tools declares the fixed, closed set of tool interfaces a step
// may invoke: LLM, FileSystem, ScriptInterpreter, PromptTemplates,
// Composition, Formatter, and HumanInput (spec §1, §6). Every method here
// is a leaf with side effects; MonitoredToolProxy (package monitor) wraps
// concrete implementations of these interfaces to emit tool call events.
package tools

import "context"

// Executor is the shape of a "second-order tool": a callable returned by a
// tool method, most commonly ScriptInterpreter.CreateFunctionExecutor. Per
// DESIGN NOTES §9, the discriminated return is modeled as this named
// function type rather than bare `any`, so MonitoredToolProxy can
// recognize and re-wrap it without reflection on arbitrary callables.
type Executor func(ctx context.Context, args map[string]any) (any, error)

// LLM is the language-model tool: prompt in, text out, bound to one model
// and provider per agent.
type LLM interface {
	// Generate sends prompt (optionally with a system prompt) to the
	// bound model and returns its text completion.
	Generate(ctx context.Context, prompt string, system string) (string, error)
	// CreateGenerationFunction builds a reusable Executor that renders
	// promptTemplate against its call-time args (via text/template
	// semantics) and generates against the result. This is the Go
	// analogue of the Python tool's create_generation_function family.
	CreateGenerationFunction(promptTemplate string) (Executor, error)
}

// FileSystem is the file-system tool, rooted at the owning agent's base
// directory; every path is resolved relative to it unless already
// absolute.
type FileSystem interface {
	Read(ctx context.Context, path string) (string, error)
	Write(ctx context.Context, path string, content string) error
	Append(ctx context.Context, path string, content string) error
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
	ListDirectory(ctx context.Context, path string) ([]string, error)
	ReadJSON(ctx context.Context, path string, out any) error
	WriteJSON(ctx context.Context, path string, value any) error
}

// ScriptInterpreter executes short scripts and can hand back a reusable
// Executor for repeated invocation (the canonical second-order tool).
type ScriptInterpreter interface {
	// Execute runs source once with inputs bound into its environment
	// and returns whatever the script produces.
	Execute(ctx context.Context, source string, inputs map[string]any) (any, error)
	// CreateFunctionExecutor returns an Executor that runs source and
	// can be invoked repeatedly with different argument maps
	// (PythonScriptInterpreter re-runs the interpreter on every call),
	// each invocation re-entering MonitoredToolProxy's second-order
	// wrapping (spec §4.2 step 4).
	CreateFunctionExecutor(ctx context.Context, source string) (Executor, error)
}

// PromptTemplates reads and renders named prompt templates from the
// agent's base directory.
type PromptTemplates interface {
	// Render loads templateName and substitutes variables, returning the
	// rendered text.
	Render(ctx context.Context, templateName string, variables map[string]any) (string, error)
	// CreateTemplateFunction builds a reusable Executor bound to one
	// template; each call supplies a fresh variables map.
	CreateTemplateFunction(templateName string) (Executor, error)
}

// CompositionSpec is one named reusable composition of tool calls, loaded
// from a flat directory of composition spec files under an agent's
// paradigm directory (spec §6 "File layout", SUPPLEMENTED FEATURES #2).
type CompositionSpec struct {
	Name        string
	Description string
	// Steps is the ordered list of tool.method calls the composition
	// chains; each entry's Args is rendered from the composition's
	// call-time variables before the call is made.
	Steps []CompositionStep
}

// CompositionStep is one call within a CompositionSpec.
type CompositionStep struct {
	Tool   string
	Method string
	Args   map[string]any
	// Bind names the workspace variable the call's result is stored
	// under, available to later steps' Args via "$<name>" substitution.
	Bind string
}

// Composition is the tool that reads and executes CompositionSpec
// definitions. A nil Composition is valid: AgentRegistry only constructs
// one when the agent config names a paradigm directory.
type Composition interface {
	// List returns every composition spec found in the configured
	// directory.
	List(ctx context.Context) ([]CompositionSpec, error)
	// Run executes the named composition, resolving each step's tool
	// calls against the provided dispatcher.
	Run(ctx context.Context, name string, vars map[string]any, dispatch Dispatcher) (any, error)
}

// Dispatcher resolves a tool.method call by name, used by Composition to
// invoke arbitrary bound tools without importing agentregistry (which
// would create an import cycle: agentregistry constructs Composition).
type Dispatcher func(ctx context.Context, tool, method string, args map[string]any) (any, error)

// Formatter renders a Reference-shaped result into the string/JSON form a
// downstream consumer (e.g. Output-Working-Configuration) expects.
type Formatter interface {
	Format(ctx context.Context, value any, format string) (string, error)
}

// HumanInput is the tool a step calls to block on an observer's reply; its
// single method corresponds directly to
// HumanInputRendezvous.AwaitInput (package rendezvous).
type HumanInput interface {
	AwaitInput(ctx context.Context, prompt string, kind string, options []string) (string, error)
}

// Bundle is the full set of tools bound to one agent, as produced by
// AgentRegistry.BoundTools. Any member may be nil if the agent's
// ToolPreferences disabled it; callers must check before use.
type Bundle struct {
	LLM               LLM
	FileSystem        FileSystem
	ScriptInterpreter ScriptInterpreter
	PromptTemplates   PromptTemplates
	Composition       Composition
	Formatter         Formatter
	HumanInput        HumanInput
}
