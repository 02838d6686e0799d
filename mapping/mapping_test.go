package mapping_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normcode/orchestrator/mapping"
)

func TestAgentFor_FallsBackToDefault(t *testing.T) {
	s := mapping.New("default-agent")
	got := s.AgentFor(mapping.Inference{FlowIndex: "1.0"})
	assert.Equal(t, "default-agent", got)
}

func TestAgentFor_ExplicitOverridesRules(t *testing.T) {
	s := mapping.New("default-agent")
	require.NoError(t, s.AddRule(mapping.Rule{
		MatchType: mapping.MatchFlowIndex,
		Pattern:   `^1\.`,
		AgentID:   "rule-agent",
		Priority:  10,
	}))
	s.SetExplicit("1.0", "pinned-agent")

	assert.Equal(t, "pinned-agent", s.AgentFor(mapping.Inference{FlowIndex: "1.0"}))
	assert.Equal(t, "rule-agent", s.AgentFor(mapping.Inference{FlowIndex: "1.1"}))
}

func TestAgentFor_HigherPriorityRuleWinsRegardlessOfInsertionOrder(t *testing.T) {
	s := mapping.New("default-agent")
	require.NoError(t, s.AddRule(mapping.Rule{
		MatchType: mapping.MatchConceptName,
		Pattern:   `.*`,
		AgentID:   "low-priority-agent",
		Priority:  1,
	}))
	require.NoError(t, s.AddRule(mapping.Rule{
		MatchType: mapping.MatchConceptName,
		Pattern:   `^widget$`,
		AgentID:   "high-priority-agent",
		Priority:  5,
	}))

	got := s.AgentFor(mapping.Inference{ConceptName: "widget"})
	assert.Equal(t, "high-priority-agent", got)
}

func TestAgentFor_MatchSequenceType(t *testing.T) {
	s := mapping.New("default-agent")
	require.NoError(t, s.AddRule(mapping.Rule{
		MatchType: mapping.MatchSequenceType,
		Pattern:   `^onboarding$`,
		AgentID:   "onboarding-agent",
		Priority:  1,
	}))

	assert.Equal(t, "onboarding-agent", s.AgentFor(mapping.Inference{SequenceType: "onboarding"}))
	assert.Equal(t, "default-agent", s.AgentFor(mapping.Inference{SequenceType: "renewal"}))
}

func TestAddRule_InvalidPatternIsRegisteredButNeverMatches(t *testing.T) {
	s := mapping.New("default-agent")
	require.NoError(t, s.AddRule(mapping.Rule{MatchType: mapping.MatchFlowIndex, Pattern: `(unclosed`, AgentID: "x", Priority: 10}))
	require.Len(t, s.State().Rules, 1, "an invalid pattern is still registered, per spec.md §4.4")

	got := s.AgentFor(mapping.Inference{FlowIndex: "1.0"})
	assert.Equal(t, "default-agent", got, "a rule with an invalid pattern must never match, falling through to the default")
}

func TestAddRule_InvalidPatternDoesNotBlockOtherRules(t *testing.T) {
	s := mapping.New("default-agent")
	require.NoError(t, s.AddRule(mapping.Rule{MatchType: mapping.MatchFlowIndex, Pattern: `(unclosed`, AgentID: "bad", Priority: 10}))
	require.NoError(t, s.AddRule(mapping.Rule{MatchType: mapping.MatchFlowIndex, Pattern: `^1\.`, AgentID: "good", Priority: 1}))

	got := s.AgentFor(mapping.Inference{FlowIndex: "1.0"})
	assert.Equal(t, "good", got)
}

func TestClearExplicitAndClearAllExplicit(t *testing.T) {
	s := mapping.New("default-agent")
	s.SetExplicit("1.0", "pinned-a")
	s.SetExplicit("2.0", "pinned-b")

	s.ClearExplicit("1.0")
	assert.Equal(t, "default-agent", s.AgentFor(mapping.Inference{FlowIndex: "1.0"}))
	assert.Equal(t, "pinned-b", s.AgentFor(mapping.Inference{FlowIndex: "2.0"}))

	s.ClearAllExplicit()
	assert.Equal(t, "default-agent", s.AgentFor(mapping.Inference{FlowIndex: "2.0"}))
}

func TestRemoveRuleByIndexAndClearRules(t *testing.T) {
	s := mapping.New("default-agent")
	require.NoError(t, s.AddRule(mapping.Rule{MatchType: mapping.MatchFlowIndex, Pattern: `.*`, AgentID: "a", Priority: 1}))
	require.NoError(t, s.AddRule(mapping.Rule{MatchType: mapping.MatchFlowIndex, Pattern: `.*`, AgentID: "b", Priority: 2}))
	require.Len(t, s.State().Rules, 2)

	s.RemoveRule(0) // highest priority (b) is first after sort
	got := s.AgentFor(mapping.Inference{FlowIndex: "1.0"})
	assert.Equal(t, "a", got)

	s.RemoveRule(99) // out of range, no-op
	require.Len(t, s.State().Rules, 1)

	s.ClearRules()
	assert.Empty(t, s.State().Rules)
}

func TestState_SnapshotIsIndependentOfInternalState(t *testing.T) {
	s := mapping.New("default-agent")
	require.NoError(t, s.AddRule(mapping.Rule{MatchType: mapping.MatchFlowIndex, Pattern: `.*`, AgentID: "a", Priority: 1}))
	s.SetExplicit("1.0", "pinned")

	state := s.State()
	require.Len(t, state.Rules, 1)
	assert.Equal(t, "pinned", state.Explicit["1.0"])
	assert.Equal(t, "default-agent", state.DefaultAgent)

	state.Explicit["1.0"] = "mutated"
	assert.Equal(t, "pinned", s.AgentFor(mapping.Inference{FlowIndex: "1.0"}), "State() must return a copy, not a live map")
}
