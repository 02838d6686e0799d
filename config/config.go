// Package config implements the orchestrator's configuration surface
// (spec.md §6, "Configuration surface"): a YAML document describing the
// default agent, the agent roster and its mapping rules, explicit
// flow-index pins, and the sequence definitions a facade can run.
// Grounded on the teacher's integration_tests/framework.LoadScenarios
// (gopkg.in/yaml.v3, os.ReadFile, struct tags), generalized from a
// test-scenario file into the orchestrator's own document shape.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/normcode/orchestrator/agentregistry"
	"github.com/normcode/orchestrator/mapping"
	"github.com/normcode/orchestrator/orcherr"
	"github.com/normcode/orchestrator/state"
)

// ModelBinding mirrors agentregistry.ModelBinding for YAML decoding.
type ModelBinding struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// ToolPreferences mirrors agentregistry.ToolPreferences for YAML decoding.
type ToolPreferences struct {
	DisableLLM               bool `yaml:"disableLLM"`
	DisableFileSystem        bool `yaml:"disableFileSystem"`
	DisableScriptInterpreter bool `yaml:"disableScriptInterpreter"`
	DisablePromptTemplates   bool `yaml:"disablePromptTemplates"`
	DisableComposition       bool `yaml:"disableComposition"`
	DisableFormatter         bool `yaml:"disableFormatter"`
	DisableHumanInput        bool `yaml:"disableHumanInput"`
}

// AgentConfig mirrors agentregistry.AgentConfig for YAML decoding.
type AgentConfig struct {
	ID           string          `yaml:"id"`
	Name         string          `yaml:"name"`
	ModelBinding ModelBinding    `yaml:"model"`
	BaseDir      string          `yaml:"baseDir"`
	ParadigmDir  string          `yaml:"paradigmDir"`
	Preferences  ToolPreferences `yaml:"tools"`
}

// ToDomain converts to agentregistry.AgentConfig.
func (c AgentConfig) ToDomain() agentregistry.AgentConfig {
	return agentregistry.AgentConfig{
		ID:   c.ID,
		Name: c.Name,
		ModelBinding: agentregistry.ModelBinding{
			Provider: c.ModelBinding.Provider,
			Model:    c.ModelBinding.Model,
		},
		FileSystemBaseDir: c.BaseDir,
		ParadigmDir:       c.ParadigmDir,
		Preferences: agentregistry.ToolPreferences{
			DisableLLM:               c.Preferences.DisableLLM,
			DisableFileSystem:        c.Preferences.DisableFileSystem,
			DisableScriptInterpreter: c.Preferences.DisableScriptInterpreter,
			DisablePromptTemplates:   c.Preferences.DisablePromptTemplates,
			DisableComposition:       c.Preferences.DisableComposition,
			DisableFormatter:         c.Preferences.DisableFormatter,
			DisableHumanInput:        c.Preferences.DisableHumanInput,
		},
	}
}

// MappingRule mirrors mapping.Rule for YAML decoding. MatchType is one of
// "flow_index", "concept_name", "sequence_type" (mapping.MatchType's wire
// values); an empty or unrecognized value is treated as "flow_index" when
// the rule is converted to a mapping.Rule.
type MappingRule struct {
	MatchType string `yaml:"matchType"`
	Pattern   string `yaml:"pattern"`
	AgentID   string `yaml:"agentId"`
	Priority  int    `yaml:"priority"`
}

// Pin mirrors an explicit mapping.Service.SetExplicit pin.
type Pin struct {
	FlowIndex string `yaml:"flowIndex"`
	AgentID   string `yaml:"agentId"`
}

// ToolBinding mirrors state.ToolBinding for YAML decoding.
type ToolBinding struct {
	ToolName string `yaml:"tool"`
	Method   string `yaml:"method"`
}

// Step mirrors the statically configurable subset of state.StepDescriptor:
// Reference and CrossValues are populated at run time by the step
// implementation itself and have no YAML representation.
type Step struct {
	Kind        string        `yaml:"kind"`
	StepName    string        `yaml:"name"`
	StepIndex   int           `yaml:"index"`
	ConceptName string        `yaml:"concept"`
	ValueOrder  []string      `yaml:"valueOrder"`
	Model       string        `yaml:"model"`
	Extraction  string        `yaml:"extraction"`
	Quantify    string        `yaml:"quantification"`
	Tools       []ToolBinding `yaml:"tools"`
}

// ToDomain converts to a state.StepDescriptor, leaving Reference and
// CrossValues unset.
func (s Step) ToDomain() state.StepDescriptor {
	var tools []state.ToolBinding
	for _, t := range s.Tools {
		tools = append(tools, state.ToolBinding{ToolName: t.ToolName, Method: t.Method})
	}
	return state.StepDescriptor{
		Kind:           state.Kind(s.Kind),
		StepName:       s.StepName,
		StepIndex:      s.StepIndex,
		ConceptName:    s.ConceptName,
		ValueOrder:     s.ValueOrder,
		Model:          s.Model,
		Extraction:     s.Extraction,
		Quantification: s.Quantify,
		Tools:          tools,
	}
}

// Sequence is one named, ordered list of steps a facade can run.
type Sequence struct {
	Steps []Step `yaml:"steps"`
}

// Document is the top-level configuration surface: the default agent,
// the agent roster and its mapping rules/pins, and the sequence
// definitions available to run. Grounded on spec.md §6's "Configuration
// surface" and registry.py's ProjectAgentConfig shape.
type Document struct {
	DefaultAgent string              `yaml:"defaultAgent"`
	Agents       []AgentConfig       `yaml:"agents"`
	Mappings     []MappingRule       `yaml:"mappings"`
	Pins         []Pin               `yaml:"pins"`
	Sequences    map[string]Sequence `yaml:"sequences"`
}

// Load reads and parses the YAML document at path, then Validates it.
// The problems Validate checks for are reported as
// orcherr.KindConfiguration errors here, at load time, rather than
// deferred to first run; step names are not checked against the set of
// known steps.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is an operator-supplied config location, not untrusted user input
	if err != nil {
		return nil, orcherr.Configuration(fmt.Sprintf("read config %q", path), err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, orcherr.Configuration(fmt.Sprintf("parse config %q", path), err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the document for errors that would otherwise surface
// only at first use: duplicate agent ids, an unresolvable default agent,
// invalid mapping-rule regexes, and sequence steps with no name.
func (d *Document) Validate() error {
	seen := make(map[string]bool, len(d.Agents))
	for _, a := range d.Agents {
		if a.ID == "" {
			return orcherr.Configuration("agent entry missing id", nil)
		}
		if seen[a.ID] {
			return orcherr.Configuration(fmt.Sprintf("duplicate agent id %q", a.ID), nil)
		}
		seen[a.ID] = true
	}
	if d.DefaultAgent != "" && d.DefaultAgent != agentregistry.DefaultAgentID && !seen[d.DefaultAgent] {
		return orcherr.Configuration(fmt.Sprintf("defaultAgent %q is not a defined agent", d.DefaultAgent), nil)
	}
	for _, m := range d.Mappings {
		if m.AgentID == "" {
			return orcherr.Configuration("mapping rule missing agentId", nil)
		}
		if _, err := regexp.Compile(m.Pattern); err != nil {
			return orcherr.Configuration(fmt.Sprintf("mapping rule %q has invalid pattern %q", m.AgentID, m.Pattern), err)
		}
	}
	for name, seq := range d.Sequences {
		if len(seq.Steps) == 0 {
			return orcherr.Configuration(fmt.Sprintf("sequence %q has no steps", name), nil)
		}
		for i, s := range seq.Steps {
			if s.StepName == "" {
				return orcherr.Configuration(fmt.Sprintf("sequence %q step %d missing name", name, i), nil)
			}
		}
	}
	return nil
}

// matchTypeOf maps a MappingRule's wire-level MatchType string to
// mapping.MatchType, defaulting to MatchFlowIndex for an empty or
// unrecognized value.
func matchTypeOf(s string) mapping.MatchType {
	switch mapping.MatchType(s) {
	case mapping.MatchConceptName:
		return mapping.MatchConceptName
	case mapping.MatchSequenceType:
		return mapping.MatchSequenceType
	default:
		return mapping.MatchFlowIndex
	}
}

// ProjectAgentConfig converts the document's agent roster and mapping
// rules into an agentregistry.ProjectAgentConfig, ready for
// AgentRegistry.LoadProjectAgents.
func (d *Document) ProjectAgentConfig() agentregistry.ProjectAgentConfig {
	agents := make([]agentregistry.AgentConfig, len(d.Agents))
	for i, a := range d.Agents {
		agents[i] = a.ToDomain()
	}
	rules := make([]agentregistry.MappingRule, len(d.Mappings))
	for i, m := range d.Mappings {
		rules[i] = agentregistry.MappingRule{
			MatchType: string(matchTypeOf(m.MatchType)),
			Pattern:   m.Pattern,
			AgentID:   m.AgentID,
			Priority:  m.Priority,
		}
	}
	return agentregistry.ProjectAgentConfig{
		Agents:       agents,
		Mappings:     rules,
		DefaultAgent: d.DefaultAgent,
	}
}

// BuildMappingService constructs a *mapping.Service seeded with the
// document's mapping rules and explicit pins. DefaultAgent falls back to
// agentregistry.DefaultAgentID when unset, since mapping.New fixes the
// default agent permanently at construction (see agentregistry's
// LoadProjectAgents design note: there is no post-construction setter).
func (d *Document) BuildMappingService() (*mapping.Service, error) {
	defaultAgent := d.DefaultAgent
	if defaultAgent == "" {
		defaultAgent = agentregistry.DefaultAgentID
	}
	svc := mapping.New(defaultAgent)
	for _, m := range d.Mappings {
		rule := mapping.Rule{
			MatchType: matchTypeOf(m.MatchType),
			Pattern:   m.Pattern,
			AgentID:   m.AgentID,
			Priority:  m.Priority,
		}
		if err := svc.AddRule(rule); err != nil {
			return nil, orcherr.Configuration("building mapping service", err)
		}
	}
	for _, p := range d.Pins {
		svc.SetExplicit(p.FlowIndex, p.AgentID)
	}
	return svc, nil
}

// StepsFor returns the ordered state.StepDescriptors for the named
// sequence, and whether that sequence is defined. StepIndex is assigned
// from each step's 1-based position when the YAML entry leaves it at 0,
// matching state.StepDescriptor's "ge=1, default None" convention.
func (d *Document) StepsFor(sequenceName string) ([]state.StepDescriptor, bool) {
	seq, ok := d.Sequences[sequenceName]
	if !ok {
		return nil, false
	}
	out := make([]state.StepDescriptor, len(seq.Steps))
	for i, s := range seq.Steps {
		desc := s.ToDomain()
		if desc.StepIndex == 0 {
			desc.StepIndex = i + 1
		}
		out[i] = desc
	}
	return out, true
}
