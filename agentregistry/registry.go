// Package agentregistry implements AgentRegistry: the component that owns
// agent configurations, creates each agent's bound tool.Bundle (wrapped in
// monitor proxies), and retains a bounded history of the tool call events
// those proxies emit. Grounded on AgentRegistry in
// canvas_app/backend/services/agent/registry.py.
package agentregistry

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/normcode/orchestrator/hooks"
	"github.com/normcode/orchestrator/mapping"
	"github.com/normcode/orchestrator/monitor"
	"github.com/normcode/orchestrator/telemetry"
	"github.com/normcode/orchestrator/tools"
	"github.com/normcode/orchestrator/toolspec"
)

// DefaultAgentID is the reserved id every registry starts with and that
// Unregister refuses to remove, matching the original's "default" agent.
const DefaultAgentID = "default"

// defaultMaxHistory matches the original's AgentRegistry.max_history.
const defaultMaxHistory = 500

// Factories builds the tools a registry cannot construct on its own
// because they depend on external resources (API credentials, a script
// sandbox, the human-input rendezvous). A nil factory field means that
// tool is never constructed for any agent, as if ToolPreferences disabled
// it everywhere.
type Factories struct {
	LLM               func(ctx context.Context, cfg AgentConfig) (tools.LLM, error)
	ScriptInterpreter func(ctx context.Context, cfg AgentConfig) (tools.ScriptInterpreter, error)
	PromptTemplates   func(ctx context.Context, cfg AgentConfig) (tools.PromptTemplates, error)
	// HumanInput is handed the registry's own runID/flowIndex getters (the
	// same ones wired into every monitor.Proxy built for this agent) so the
	// tools.HumanInput it returns — typically a *tools.RendezvousHumanInput
	// — stays correct across every run and step that reuses this agent's
	// cached bundle, rather than freezing a run/flow identity at
	// construction time.
	HumanInput func(ctx context.Context, cfg AgentConfig, runID, flowIndex func() string) (tools.HumanInput, error)
}

// AgentRegistry owns agent configurations and produces monitored,
// cached tool.Bundles for them. Safe for concurrent use.
type AgentRegistry struct {
	mu             sync.Mutex
	defaultBaseDir string
	configs        map[string]AgentConfig
	bundles        map[string]tools.Bundle
	factories      Factories
	bus            hooks.Bus
	logger         telemetry.Logger
	metrics        telemetry.Metrics

	currentRunID     string
	currentFlowIndex string

	maxHistory int
	history    []*hooks.ToolEvent
	callbacks  map[string]func(*hooks.ToolEvent)

	specs *toolspec.Registry
}

// New builds an AgentRegistry rooted at defaultBaseDir, publishing tool
// events onto bus (typically the same bus ObserverTransport reads from).
// It registers the DefaultAgentID agent immediately, as the original
// constructor does.
func New(defaultBaseDir string, bus hooks.Bus, logger telemetry.Logger, factories Factories) *AgentRegistry {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	r := &AgentRegistry{
		defaultBaseDir: defaultBaseDir,
		configs:        make(map[string]AgentConfig),
		bundles:        make(map[string]tools.Bundle),
		factories:      factories,
		bus:            bus,
		logger:         logger,
		maxHistory:     defaultMaxHistory,
		callbacks:      make(map[string]func(*hooks.ToolEvent)),
		specs:          toolspec.BuiltinRegistry(),
	}
	r.Register(AgentConfig{ID: DefaultAgentID, Name: "Default Agent"})
	return r
}

// SetMetrics wires a telemetry.Metrics recorder into every bundle this
// registry builds from now on (existing cached bundles keep whatever
// Metrics was set when they were built). A nil AgentRegistry.metrics, the
// default, makes every monitor.Proxy record nothing.
func (r *AgentRegistry) SetMetrics(m telemetry.Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

// Register upserts config, invalidating any cached bound tool set for its
// id.
func (r *AgentRegistry) Register(config AgentConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[config.ID] = config
	delete(r.bundles, config.ID)
	r.logger.Info(context.Background(), "registered agent", "agent_id", config.ID, "model", config.ModelBinding.Model)
}

// Unregister removes agentID's configuration and cached bundle. It always
// refuses to remove DefaultAgentID, returning false.
func (r *AgentRegistry) Unregister(agentID string) bool {
	if agentID == DefaultAgentID {
		r.logger.Warn(context.Background(), "refusing to unregister default agent")
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.configs[agentID]; !ok {
		return false
	}
	delete(r.configs, agentID)
	delete(r.bundles, agentID)
	r.logger.Info(context.Background(), "unregistered agent", "agent_id", agentID)
	return true
}

// GetConfig returns agentID's configuration, or false if unknown.
func (r *AgentRegistry) GetConfig(agentID string) (AgentConfig, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[agentID]
	return cfg, ok
}

// ListAgents returns every registered configuration, in no particular
// order.
func (r *AgentRegistry) ListAgents() []AgentConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]AgentConfig, 0, len(r.configs))
	for _, cfg := range r.configs {
		out = append(out, cfg)
	}
	return out
}

// GetConfigOrDefault returns agentID's configuration, falling back to
// DefaultAgentID, and finally to a bare default config if even that is
// somehow missing.
func (r *AgentRegistry) GetConfigOrDefault(agentID string) AgentConfig {
	if cfg, ok := r.GetConfig(agentID); ok {
		return cfg
	}
	if cfg, ok := r.GetConfig(DefaultAgentID); ok {
		return cfg
	}
	return AgentConfig{ID: DefaultAgentID, Name: "Default Agent"}
}

// SetCurrentFlowIndex records the flow index active right now, read by
// every bound tool's monitor proxy when it next emits an event. Called by
// SequenceRunner before each step.
func (r *AgentRegistry) SetCurrentFlowIndex(flowIndex string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentFlowIndex = flowIndex
}

// SetCurrentRunID records the run id active right now, read by every
// bound tool's monitor proxy when it next emits an event. A registry's
// bound tool sets are cached per agent id, not per run, so the runner
// must call this before each run reuses them.
func (r *AgentRegistry) SetCurrentRunID(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentRunID = runID
}

func (r *AgentRegistry) flowIndex() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentFlowIndex
}

func (r *AgentRegistry) runID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentRunID
}

// UpdateBaseDir changes the default base directory and invalidates every
// cached bundle, so agents without their own FileSystemBaseDir pick up
// the new root on next BoundTools.
func (r *AgentRegistry) UpdateBaseDir(baseDir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultBaseDir = baseDir
	r.bundles = make(map[string]tools.Bundle)
}

// InvalidateAllBundles clears every cached bundle, forcing recreation on
// next BoundTools.
func (r *AgentRegistry) InvalidateAllBundles() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bundles = make(map[string]tools.Bundle)
}

// BoundTools returns agentID's cached tools.Bundle, creating and caching
// it on first use. An unknown agentID falls back to DefaultAgentID,
// matching the original's get_body behavior.
func (r *AgentRegistry) BoundTools(ctx context.Context, agentID string) (tools.Bundle, error) {
	r.mu.Lock()
	if bundle, ok := r.bundles[agentID]; ok {
		r.mu.Unlock()
		return bundle, nil
	}
	cfg, ok := r.configs[agentID]
	if !ok {
		r.logger.Warn(context.Background(), "unknown agent, using default", "agent_id", agentID)
		cfg, ok = r.configs[DefaultAgentID]
		if !ok {
			r.mu.Unlock()
			return tools.Bundle{}, fmt.Errorf("agentregistry: no default agent configured")
		}
		agentID = DefaultAgentID
	}
	r.mu.Unlock()

	bundle, err := r.createBundle(ctx, cfg)
	if err != nil {
		return tools.Bundle{}, err
	}

	r.mu.Lock()
	r.bundles[agentID] = bundle
	r.mu.Unlock()
	return bundle, nil
}

// createBundle builds the raw tool set for cfg, then wraps every non-nil
// member in a monitor proxy bound to cfg.ID. Grounded on
// AgentRegistry._create_body.
func (r *AgentRegistry) createBundle(ctx context.Context, cfg AgentConfig) (tools.Bundle, error) {
	baseDir := cfg.FileSystemBaseDir
	if baseDir == "" {
		baseDir = r.defaultBaseDir
	}

	var raw tools.Bundle

	if !cfg.Preferences.DisableFileSystem {
		fs, err := tools.NewLocalFileSystem(baseDir)
		if err != nil {
			return tools.Bundle{}, fmt.Errorf("agentregistry: file system tool for %s: %w", cfg.ID, err)
		}
		raw.FileSystem = fs
	}

	if !cfg.Preferences.DisableFormatter {
		raw.Formatter = tools.NewBasicFormatter()
	}

	if !cfg.Preferences.DisableComposition && cfg.ParadigmDir != "" {
		composition, err := r.createParadigmTool(cfg.ParadigmDir, baseDir)
		if err != nil {
			r.logger.Warn(context.Background(), "paradigm tool unavailable", "agent_id", cfg.ID, "error", err.Error())
		} else {
			raw.Composition = composition
		}
	}

	if !cfg.Preferences.DisableLLM && r.factories.LLM != nil {
		llm, err := r.factories.LLM(ctx, cfg)
		if err != nil {
			return tools.Bundle{}, fmt.Errorf("agentregistry: llm tool for %s: %w", cfg.ID, err)
		}
		raw.LLM = llm
	}

	if !cfg.Preferences.DisableScriptInterpreter && r.factories.ScriptInterpreter != nil {
		interp, err := r.factories.ScriptInterpreter(ctx, cfg)
		if err != nil {
			return tools.Bundle{}, fmt.Errorf("agentregistry: script interpreter tool for %s: %w", cfg.ID, err)
		}
		raw.ScriptInterpreter = interp
	}

	if !cfg.Preferences.DisablePromptTemplates && r.factories.PromptTemplates != nil {
		prompt, err := r.factories.PromptTemplates(ctx, cfg)
		if err != nil {
			return tools.Bundle{}, fmt.Errorf("agentregistry: prompt templates tool for %s: %w", cfg.ID, err)
		}
		raw.PromptTemplates = prompt
	}

	if !cfg.Preferences.DisableHumanInput && r.factories.HumanInput != nil {
		input, err := r.factories.HumanInput(ctx, cfg, r.runID, r.flowIndex)
		if err != nil {
			return tools.Bundle{}, fmt.Errorf("agentregistry: human input tool for %s: %w", cfg.ID, err)
		}
		raw.HumanInput = input
	}

	proxy := &monitor.Proxy{
		AgentID:   cfg.ID,
		Bus:       (*recordingBus)(r),
		FlowIndex: r.flowIndex,
		RunID:     r.runID,
		Spec:      r.specs,
		Metrics:   r.metrics,
	}
	bundle := monitor.WrapBundle(proxy, raw)
	r.logger.Info(context.Background(), "created bound tool set", "agent_id", cfg.ID, "model", cfg.ModelBinding.Model)
	return bundle, nil
}

// createParadigmTool resolves paradigmDir (relative to baseDir unless
// absolute) and loads it as a Composition tool, the Go analogue of
// _create_paradigm_tool.
func (r *AgentRegistry) createParadigmTool(paradigmDir, baseDir string) (tools.Composition, error) {
	path := paradigmDir
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, paradigmDir)
	}
	return tools.NewLocalComposition(path)
}

// recordingBus adapts *AgentRegistry to hooks.Bus so a registry's
// bound-tool monitor proxies can publish through it: every ToolEvent is
// recorded into the registry's bounded history and fanned out to
// registered tool-call callbacks (mirroring _emit_tool_event) before being
// forwarded to the registry's underlying bus.
type recordingBus AgentRegistry

func (r *recordingBus) Publish(event hooks.Event) {
	reg := (*AgentRegistry)(r)
	if te, ok := event.(*hooks.ToolEvent); ok {
		reg.record(te)
	}
	if reg.bus != nil {
		reg.bus.Publish(event)
	}
}

func (r *recordingBus) Subscribe(bufferSize int) hooks.Subscription {
	reg := (*AgentRegistry)(r)
	return reg.bus.Subscribe(bufferSize)
}

// record appends event to the bounded history and notifies every
// registered tool-call callback, mirroring _emit_tool_event.
func (r *AgentRegistry) record(event *hooks.ToolEvent) {
	r.mu.Lock()
	r.history = append(r.history, event)
	if len(r.history) > r.maxHistory {
		r.history = r.history[len(r.history)-r.maxHistory:]
	}
	callbacks := make([]func(*hooks.ToolEvent), 0, len(r.callbacks))
	for _, cb := range r.callbacks {
		callbacks = append(callbacks, cb)
	}
	r.mu.Unlock()

	for _, cb := range callbacks {
		cb(event)
	}
}

// SubscribeEvents registers callback under id to receive every recorded
// tool call event, in addition to whatever it does with the registry's
// underlying hooks.Bus.
func (r *AgentRegistry) SubscribeEvents(id string, callback func(*hooks.ToolEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[id] = callback
}

// UnsubscribeEvents removes a callback registered under id. A no-op if
// id is unknown.
func (r *AgentRegistry) UnsubscribeEvents(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.callbacks, id)
}

// History returns the most recent limit recorded tool call events, oldest
// first, capped at the registry's retention window.
func (r *AgentRegistry) History(limit int) []*hooks.ToolEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || limit > len(r.history) {
		limit = len(r.history)
	}
	out := make([]*hooks.ToolEvent, limit)
	copy(out, r.history[len(r.history)-limit:])
	return out
}

// ClearHistory discards every recorded tool call event.
func (r *AgentRegistry) ClearHistory() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = nil
}

// LoadProjectAgents registers every agent in config and adds its mapping
// rules to mapper. config.DefaultAgent is not applied here: mapping.Service
// fixes its default agent at construction (mapping.New), so a project
// wanting a different default is the facade's job, by constructing that
// project's Service with config.DefaultAgent up front. Grounded on
// load_project_agents, with Python's lazy mapping import (there to dodge a
// circular import) replaced by a direct *mapping.Service argument since
// agentregistry and mapping have no import cycle in Go.
func (r *AgentRegistry) LoadProjectAgents(config ProjectAgentConfig, mapper *mapping.Service) error {
	for _, agent := range config.Agents {
		r.Register(agent)
	}
	for _, rule := range config.Mappings {
		if err := mapper.AddRule(mapping.Rule{
			MatchType: mapping.MatchType(rule.MatchType),
			Pattern:   rule.Pattern,
			AgentID:   rule.AgentID,
			Priority:  rule.Priority,
		}); err != nil {
			return fmt.Errorf("agentregistry: project mapping rule %q: %w", rule.Pattern, err)
		}
	}
	return nil
}

// UnloadProjectAgents removes every agent config registered by a prior
// LoadProjectAgents call (except DefaultAgentID) and clears mapper's
// rules, since — like the original — this registry does not track which
// rules came from which project.
func (r *AgentRegistry) UnloadProjectAgents(config ProjectAgentConfig, mapper *mapping.Service) {
	for _, agent := range config.Agents {
		if agent.ID != DefaultAgentID {
			r.Unregister(agent.ID)
		}
	}
	mapper.ClearRules()
	mapper.ClearAllExplicit()
}
