package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/normcode/orchestrator/agentregistry"
	"github.com/normcode/orchestrator/mapping"
	"github.com/normcode/orchestrator/orcherr"
)

const sampleYAML = `
defaultAgent: writer
agents:
  - id: writer
    name: Writer
    model:
      provider: anthropic
      model: claude-sonnet
    baseDir: /tmp/writer
    tools:
      disableScriptInterpreter: true
  - id: reviewer
    name: Reviewer
mappings:
  - matchType: concept_name
    pattern: "^review$"
    agentId: reviewer
    priority: 10
pins:
  - flowIndex: "3"
    agentId: reviewer
sequences:
  greet:
    steps:
      - kind: function
        name: IWI
        concept: greeting
      - kind: values
        name: MFP
        model: claude-sonnet
`

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadParsesDocument(t *testing.T) {
	doc, err := Load(writeTemp(t, sampleYAML))
	require.NoError(t, err)
	require.Equal(t, "writer", doc.DefaultAgent)
	require.Len(t, doc.Agents, 2)
	require.Equal(t, "anthropic", doc.Agents[0].ModelBinding.Provider)
	require.True(t, doc.Agents[0].Preferences.DisableScriptInterpreter)
}

func TestLoadRejectsUnknownPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.True(t, orcherr.Is(err, orcherr.KindConfiguration))
}

func TestLoadRejectsDuplicateAgentID(t *testing.T) {
	_, err := Load(writeTemp(t, `
agents:
  - id: writer
  - id: writer
`))
	require.Error(t, err)
	require.True(t, orcherr.Is(err, orcherr.KindConfiguration))
}

func TestLoadRejectsUnknownDefaultAgent(t *testing.T) {
	_, err := Load(writeTemp(t, `
defaultAgent: ghost
agents:
  - id: writer
`))
	require.Error(t, err)
	require.True(t, orcherr.Is(err, orcherr.KindConfiguration))
}

func TestLoadRejectsInvalidMappingPattern(t *testing.T) {
	_, err := Load(writeTemp(t, `
agents:
  - id: writer
mappings:
  - agentId: writer
    pattern: "("
`))
	require.Error(t, err)
	require.True(t, orcherr.Is(err, orcherr.KindConfiguration))
}

func TestLoadRejectsSequenceWithNoSteps(t *testing.T) {
	_, err := Load(writeTemp(t, `
sequences:
  empty:
    steps: []
`))
	require.Error(t, err)
	require.True(t, orcherr.Is(err, orcherr.KindConfiguration))
}

func TestLoadRejectsStepWithNoName(t *testing.T) {
	_, err := Load(writeTemp(t, `
sequences:
  broken:
    steps:
      - kind: function
`))
	require.Error(t, err)
	require.True(t, orcherr.Is(err, orcherr.KindConfiguration))
}

func TestProjectAgentConfigConvertsAgentsAndMappings(t *testing.T) {
	doc, err := Load(writeTemp(t, sampleYAML))
	require.NoError(t, err)

	project := doc.ProjectAgentConfig()
	require.Len(t, project.Agents, 2)
	require.Equal(t, "writer", project.Agents[0].ID)
	require.Len(t, project.Mappings, 1)
	require.Equal(t, string(mapping.MatchConceptName), project.Mappings[0].MatchType)
}

func TestProjectAgentConfigRoundTripsThroughRegistry(t *testing.T) {
	doc, err := Load(writeTemp(t, sampleYAML))
	require.NoError(t, err)

	reg := agentregistry.New(t.TempDir(), nil, nil, agentregistry.Factories{})
	mapper := mapping.New(agentregistry.DefaultAgentID)
	require.NoError(t, reg.LoadProjectAgents(doc.ProjectAgentConfig(), mapper))

	cfg, ok := reg.GetConfig("writer")
	require.True(t, ok)
	require.Equal(t, "Writer", cfg.Name)
	require.Equal(t, "anthropic", cfg.ModelBinding.Provider)
}

func TestBuildMappingServiceAppliesRulesAndPins(t *testing.T) {
	doc, err := Load(writeTemp(t, sampleYAML))
	require.NoError(t, err)

	svc, err := doc.BuildMappingService()
	require.NoError(t, err)

	require.Equal(t, "reviewer", svc.AgentFor(mapping.Inference{ConceptName: "review"}))
	require.Equal(t, "reviewer", svc.AgentFor(mapping.Inference{FlowIndex: "3"}))
	require.Equal(t, "writer", svc.AgentFor(mapping.Inference{FlowIndex: "99"}))
}

func TestBuildMappingServiceDefaultsToAgentRegistryDefault(t *testing.T) {
	doc, err := Load(writeTemp(t, `
agents:
  - id: writer
`))
	require.NoError(t, err)

	svc, err := doc.BuildMappingService()
	require.NoError(t, err)
	require.Equal(t, agentregistry.DefaultAgentID, svc.AgentFor(mapping.Inference{}))
}

func TestStepsForBuildsDescriptorsWithSequentialIndices(t *testing.T) {
	doc, err := Load(writeTemp(t, sampleYAML))
	require.NoError(t, err)

	steps, ok := doc.StepsFor("greet")
	require.True(t, ok)
	require.Len(t, steps, 2)
	require.Equal(t, "IWI", steps[0].StepName)
	require.Equal(t, 1, steps[0].StepIndex)
	require.Equal(t, "greeting", steps[0].ConceptName)
	require.Equal(t, "MFP", steps[1].StepName)
	require.Equal(t, 2, steps[1].StepIndex)
	require.Equal(t, "claude-sonnet", steps[1].Model)
}

func TestStepsForUnknownSequenceReturnsFalse(t *testing.T) {
	doc, err := Load(writeTemp(t, sampleYAML))
	require.NoError(t, err)

	_, ok := doc.StepsFor("does-not-exist")
	require.False(t, ok)
}
