// Package rendezvous implements HumanInputRendezvous: the coordination
// point where a blocked step waits for an observer's answer to an
// InputRequestEvent. It is grounded on the canvas user-input tool's
// CanvasUserInputTool (original_source/canvas_app/backend/tools/
// user_input_tool.go), which itself notes its Streamlit predecessor used
// threading.Event and the FastAPI version asyncio.Event; this package
// replaces both with a buffered Go channel per pending request — the
// idiom the teacher's interrupt.Controller uses for Temporal signal
// channels (runtime/agent/interrupt/controller.go) — so AwaitInput can
// select on ctx.Done() alongside the answer arriving.
package rendezvous

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/normcode/orchestrator/hooks"
	"github.com/normcode/orchestrator/orcherr"
)

// Answer is the observer's reply to a pending request, or a cancellation.
type Answer struct {
	Value     string
	Cancelled bool
}

type pending struct {
	request hooks.InputRequestEvent
	answer  chan Answer
}

// HumanInputRendezvous tracks requests awaiting an observer's answer and
// publishes InputRequestEvent/InputCancelledEvent on Bus so every connected
// ObserverTransport can render them.
type HumanInputRendezvous struct {
	bus hooks.Bus

	mu      sync.Mutex
	pending map[string]*pending
}

// New builds a HumanInputRendezvous that publishes request lifecycle
// events on bus.
func New(bus hooks.Bus) *HumanInputRendezvous {
	return &HumanInputRendezvous{bus: bus, pending: make(map[string]*pending)}
}

// AwaitInput registers a new pending request, publishes its
// InputRequestEvent, and blocks until Submit, Cancel, or ctx is cancelled.
// runID and flowIndex identify the run/step this request belongs to, for
// event correlation; kind is one of the hooks.InputKind constants.
func (r *HumanInputRendezvous) AwaitInput(ctx context.Context, runID, flowIndex, prompt, kind string, options []string) (string, error) {
	requestID := uuid.NewString()
	req := hooks.NewInputRequestEvent(runID, flowIndex, requestID, prompt, hooks.InputKind(kind), options)

	p := &pending{request: *req, answer: make(chan Answer, 1)}
	r.mu.Lock()
	r.pending[requestID] = p
	r.mu.Unlock()

	r.bus.Publish(req)

	select {
	case <-ctx.Done():
		r.remove(requestID)
		r.bus.Publish(hooks.NewInputCancelledEvent(runID, flowIndex, requestID))
		return "", orcherr.Cancellation(runID, flowIndex)
	case ans := <-p.answer:
		if ans.Cancelled {
			return "", orcherr.Cancellation(runID, flowIndex)
		}
		return ans.Value, nil
	}
}

// Submit delivers an observer's answer to the pending request identified
// by requestID. Returns false if no such request is pending (already
// answered, cancelled, or unknown id).
func (r *HumanInputRendezvous) Submit(requestID, value string) bool {
	p := r.take(requestID)
	if p == nil {
		return false
	}
	p.answer <- Answer{Value: value}
	return true
}

// Cancel cancels the pending request identified by requestID, unblocking
// its AwaitInput call with an error. Returns false if no such request is
// pending.
func (r *HumanInputRendezvous) Cancel(requestID string) bool {
	p := r.take(requestID)
	if p == nil {
		return false
	}
	p.answer <- Answer{Cancelled: true}
	r.bus.Publish(hooks.NewInputCancelledEvent(p.request.RunID(), p.request.FlowIndex(), requestID))
	return true
}

// Pending returns the InputRequestEvent for every currently unanswered
// request, for an observer that connects after requests were issued.
func (r *HumanInputRendezvous) Pending() []hooks.InputRequestEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]hooks.InputRequestEvent, 0, len(r.pending))
	for _, p := range r.pending {
		out = append(out, p.request)
	}
	return out
}

func (r *HumanInputRendezvous) take(requestID string) *pending {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.pending[requestID]
	delete(r.pending, requestID)
	return p
}

func (r *HumanInputRendezvous) remove(requestID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, requestID)
}
