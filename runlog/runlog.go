// Package runlog provides a durable, append-only event log for orchestrator
// runs, separate from hooks.Bus: the bus is a best-effort live fan-out that
// drops under pressure, while runlog.Store is the canonical record late
// observers read from via OrchestrationFacade.Events.
package runlog

import (
	"context"
	"time"

	"github.com/normcode/orchestrator/hooks"
)

type (
	// Event is a single immutable run event appended to the run log.
	// Store implementations assign ID when persisting.
	Event struct {
		// ID is the store-assigned opaque identifier for this event,
		// monotonically ordered within a run.
		ID string
		// RunID is the run this event belongs to.
		RunID string
		// AgentID is the agent that produced the event, when applicable.
		AgentID string
		// Type is the hooks event type.
		Type hooks.EventType
		// Event is the original typed event, kept for in-memory
		// re-delivery; a persisted Store may additionally serialize it.
		Event hooks.Event
		// Timestamp is the event time.
		Timestamp time.Time
	}

	// Page is a forward page of run events.
	Page struct {
		// Events are ordered oldest-first.
		Events []*Event
		// NextCursor is the cursor for the next page, empty when there
		// is nothing further.
		NextCursor string
	}

	// Store is an append-only event log for run introspection, backing
	// OrchestrationFacade.Events for observers that connect late. The
	// bounded in-memory ring buffer is the default; Mongo-backed
	// durability is available via runlog/mongo for longer retention.
	Store interface {
		// Append stores the event in the run log. Must be durable enough
		// that a failure is worth surfacing; callers decide whether to
		// treat append failures as fatal.
		Append(ctx context.Context, e *Event) error
		// List returns the next forward page of events for runID.
		// Cursor is opaque and returned by a previous List call, or
		// empty to start from the beginning. limit must be > 0.
		List(ctx context.Context, runID string, cursor string, limit int) (Page, error)
	}
)

// FromHookEvent adapts a hooks.Event into a runlog.Event pending an ID
// assignment by Store.Append.
func FromHookEvent(runID, agentID string, e hooks.Event) *Event {
	return &Event{RunID: runID, AgentID: agentID, Type: e.Type(), Event: e, Timestamp: e.Timestamp()}
}
