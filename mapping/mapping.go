// Package mapping implements MappingService: resolving which agent
// handles a given inference from explicit per-flow-index assignments,
// priority-ordered pattern rules, and a default fallback. Grounded on
// AgentMappingService (original_source/canvas_app/backend/services/agent/
// mapping.py).
package mapping

import (
	"context"
	"regexp"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/normcode/orchestrator/telemetry"
)

// MatchType names the inference field a Rule's pattern is matched against.
type MatchType string

const (
	MatchFlowIndex    MatchType = "flow_index"
	MatchConceptName  MatchType = "concept_name"
	MatchSequenceType MatchType = "sequence_type"
)

// Rule is one pattern-based mapping rule: if Pattern matches the named
// field, AgentID handles the inference. Higher Priority rules are tried
// first; among equal priorities, insertion order is preserved. A Rule
// whose Pattern fails to compile is still registered — it is skipped at
// match time rather than rejected at registration, per spec.md §4.4.
type Rule struct {
	MatchType MatchType
	Pattern   string
	AgentID   string
	Priority  int

	compiled *regexp.Regexp
	// warned is a pointer so copying a Rule (State, the append in AddRule)
	// shares one "already logged" flag with the original rather than
	// tripping go vet's copylocks check on an embedded atomic.Bool.
	warned *atomic.Bool
}

// Inference describes the minimal fields a mapping decision needs.
type Inference struct {
	FlowIndex    string
	ConceptName  string
	SequenceType string
}

// Service resolves an Inference to an agent id. The resolution order is
// explicit assignment, then rules in descending priority, then
// DefaultAgent.
type Service struct {
	mu           sync.RWMutex
	rules        []*Rule
	explicit     map[string]string
	defaultAgent string
	logger       telemetry.Logger
}

// New builds a Service with the given default agent id. A rule with an
// invalid pattern is never rejected by AddRule; it is registered like any
// other rule and simply never matches, logging a warning the first time
// AgentFor would otherwise have evaluated it, per spec.md §4.4 ("skipped,
// logged once per rule"). Use SetLogger to route that warning somewhere
// other than telemetry.NewNoopLogger's default.
func New(defaultAgent string) *Service {
	return &Service{
		explicit:     make(map[string]string),
		defaultAgent: defaultAgent,
		logger:       telemetry.NewNoopLogger(),
	}
}

// SetLogger wires a telemetry.Logger for the invalid-pattern warning that
// matching logs, once per rule, when a rule's pattern failed to compile.
func (s *Service) SetLogger(logger telemetry.Logger) {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// AddRule compiles rule.Pattern and appends rule, keeping rules sorted by
// descending priority (stable, so equal-priority rules keep insertion
// order). An invalid pattern does not fail registration: the rule is kept
// with no compiled regexp, which AgentFor's matching skips over (see
// matches), and never matches anything.
func (s *Service) AddRule(rule Rule) error {
	r := rule
	r.warned = &atomic.Bool{}
	if compiled, err := regexp.Compile(rule.Pattern); err == nil {
		r.compiled = compiled
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, &r)
	sort.SliceStable(s.rules, func(i, j int) bool { return s.rules[i].Priority > s.rules[j].Priority })
	return nil
}

// RemoveRule removes the rule at index (0-based, in current priority
// order). A no-op if index is out of range.
func (s *Service) RemoveRule(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.rules) {
		return
	}
	s.rules = append(s.rules[:index], s.rules[index+1:]...)
}

// ClearRules removes every rule.
func (s *Service) ClearRules() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = nil
}

// SetExplicit pins flowIndex to agentID, overriding any rule.
func (s *Service) SetExplicit(flowIndex, agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.explicit[flowIndex] = agentID
}

// ClearExplicit removes a single explicit pin.
func (s *Service) ClearExplicit(flowIndex string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.explicit, flowIndex)
}

// ClearAllExplicit removes every explicit pin.
func (s *Service) ClearAllExplicit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.explicit = make(map[string]string)
}

// AgentFor resolves the agent id that should handle inf.
func (s *Service) AgentFor(inf Inference) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if agentID, ok := s.explicit[inf.FlowIndex]; ok {
		return agentID
	}
	for _, rule := range s.rules {
		if s.matches(rule, inf) {
			return rule.AgentID
		}
	}
	return s.defaultAgent
}

func (s *Service) matches(rule *Rule, inf Inference) bool {
	if rule.compiled == nil {
		if rule.warned.CompareAndSwap(false, true) {
			s.logger.Warn(context.Background(), "mapping rule has invalid pattern, skipping", "agent_id", rule.AgentID, "pattern", rule.Pattern)
		}
		return false
	}
	var value string
	switch rule.MatchType {
	case MatchConceptName:
		value = inf.ConceptName
	case MatchSequenceType:
		value = inf.SequenceType
	default:
		value = inf.FlowIndex
	}
	return rule.compiled.MatchString(value)
}

// State snapshots the current rules, explicit pins, and default agent, for
// API introspection/debugging.
type State struct {
	Rules        []Rule
	Explicit     map[string]string
	DefaultAgent string
}

// State implements MappingService.GetState.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rules := make([]Rule, len(s.rules))
	for i, r := range s.rules {
		rules[i] = *r
		rules[i].compiled = nil
	}
	explicit := make(map[string]string, len(s.explicit))
	for k, v := range s.explicit {
		explicit[k] = v
	}
	return State{Rules: rules, Explicit: explicit, DefaultAgent: s.defaultAgent}
}
