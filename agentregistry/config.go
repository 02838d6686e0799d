package agentregistry

// ModelBinding names the language model an agent's LLM tool is bound to
// and which provider adapter constructs it, grounded on AgentConfig's
// "model binding (language-model name + provider credentials)" (spec §3)
// — credentials themselves live outside AgentConfig, resolved by the
// Factories callback from environment/config at BoundTools time.
type ModelBinding struct {
	// Provider selects which tools/llm adapter Factories.LLM should build,
	// e.g. "anthropic" or "openai".
	Provider string
	// Model is the provider-specific model identifier.
	Model string
}

// ToolPreferences selects which tools are enabled for one agent. The zero
// value enables every tool, matching the original's "tool-centric" default
// of constructing the full set unless a field says otherwise.
type ToolPreferences struct {
	DisableLLM               bool
	DisableFileSystem        bool
	DisableScriptInterpreter bool
	DisablePromptTemplates   bool
	DisableComposition       bool
	DisableFormatter         bool
	DisableHumanInput        bool
}

// AgentConfig is one agent's identity, model binding, and tool
// configuration (spec §3 "AgentConfig"). Grounded on AgentConfig in
// canvas_app/backend/services/agent/config.py as used by registry.py.
type AgentConfig struct {
	ID   string
	Name string

	ModelBinding ModelBinding

	// FileSystemBaseDir roots this agent's FileSystem tool and paradigm
	// directory resolution. Empty means "use the registry's default base
	// directory".
	FileSystemBaseDir string
	// ParadigmDir, if set, is resolved against FileSystemBaseDir (or the
	// registry default) and loaded as a Composition tool's spec
	// directory, the Go analogue of _create_paradigm_tool.
	ParadigmDir string

	Preferences ToolPreferences
}

// MappingRule mirrors mapping.Rule's shape at the config layer, used by
// ProjectAgentConfig to describe rules to register with a mapping.Service;
// AgentRegistry.LoadProjectAgents converts each one to a mapping.Rule.
type MappingRule struct {
	MatchType string
	Pattern   string
	AgentID   string
	Priority  int
}

// ProjectAgentConfig is a project-specific bundle of agents and mapping
// rules, grounded on ProjectAgentConfig / load_project_agents in
// registry.py: a project can register its own agents and mapping rules,
// both reversible via AgentRegistry.UnloadProjectAgents. LoadProjectAgents
// does not apply DefaultAgent, and there are no pins at this layer.
type ProjectAgentConfig struct {
	Agents       []AgentConfig
	Mappings     []MappingRule
	DefaultAgent string
}
