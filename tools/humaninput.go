package tools

import "context"

// RendezvousAwaiter is the subset of rendezvous.HumanInputRendezvous that
// RendezvousHumanInput needs; declared here (rather than importing package
// rendezvous) so tools stays a leaf package with no dependency on the
// orchestration layer that constructs rendezvous instances per run.
type RendezvousAwaiter interface {
	AwaitInput(ctx context.Context, runID, flowIndex, prompt, kind string, options []string) (string, error)
}

// RendezvousHumanInput implements HumanInput by delegating to a
// HumanInputRendezvous shared across runs. RunID and FlowIndex are getter
// functions rather than fixed strings, mirroring monitor.Proxy's
// RunIDFunc/FlowIndexFunc, because one RendezvousHumanInput instance is
// built once per agent (by AgentRegistry's bundle cache) and reused across
// every run and every step of that agent — a fixed run/flow identity
// captured at construction would go stale the moment a second run reused
// the cached bundle, or the same run advanced to its next step.
type RendezvousHumanInput struct {
	Rendezvous RendezvousAwaiter
	RunID      func() string
	FlowIndex  func() string
}

var _ HumanInput = (*RendezvousHumanInput)(nil)

// AwaitInput implements HumanInput.
func (h *RendezvousHumanInput) AwaitInput(ctx context.Context, prompt string, kind string, options []string) (string, error) {
	return h.Rendezvous.AwaitInput(ctx, h.RunID(), h.FlowIndex(), prompt, kind, options)
}
