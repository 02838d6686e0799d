// Package transport implements ObserverTransport (spec.md §4.7, §6): the
// bidirectional, framed WebSocket stream between one external observer and
// the orchestrator. Grounded on the teacher's runtime/agent/stream package
// for the "Sink delivers wire-framed updates, transports own the marshaling"
// split, and on the websocket transport shown in the pack's goagent stream
// package for the per-connection read/write loop shape.
package transport

import (
	"encoding/json"
	"time"

	"github.com/normcode/orchestrator/hooks"
)

// Frame is one wire-level message, either server-to-client (an event) or
// client-to-server (a command). Type is the only field every frame
// carries; Data's shape depends on Type, and connection:established and
// pong frames carry no Data.
type Frame struct {
	Type      string          `json:"type"`
	RunID     string          `json:"run_id,omitempty"`
	FlowIndex string          `json:"flow_index,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// connectionEstablishedFrame is the synthetic frame sent before any other,
// per spec.md §6.
func connectionEstablishedFrame() Frame {
	return Frame{Type: string(hooks.ConnectionEstablished), Timestamp: time.Now()}
}

// frameForEvent converts a published hooks.Event into its wire Frame. The
// event's exported fields become Data; RunID/FlowIndex/Timestamp are lifted
// out of the Event interface since hooks.baseEvent's fields are unexported
// and would otherwise be invisible to json.Marshal.
func frameForEvent(e hooks.Event) (Frame, error) {
	data, err := json.Marshal(payloadOf(e))
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Type:      string(e.Type()),
		RunID:     e.RunID(),
		FlowIndex: e.FlowIndex(),
		Timestamp: e.Timestamp(),
		Data:      data,
	}, nil
}

// payloadOf extracts the event-specific, JSON-friendly payload for e,
// reshaping error-typed fields to their message strings so a marshaling
// failure (or a silently empty object) never reaches an observer.
func payloadOf(e hooks.Event) any {
	switch ev := e.(type) {
	case *hooks.ExecutionEvent:
		payload := map[string]any{
			"agent_id":      ev.AgentID,
			"sequence_name": ev.SequenceName,
		}
		if ev.Reason != "" {
			payload["reason"] = ev.Reason
		}
		if ev.Error != nil {
			payload["error"] = ev.Error.Error()
		}
		return payload
	case *hooks.InferenceEvent:
		payload := map[string]any{
			"step":       ev.Step,
			"step_index": ev.StepIndex,
		}
		if ev.Error != nil {
			payload["error"] = ev.Error.Error()
		}
		return payload
	case *hooks.ToolEvent:
		payload := map[string]any{
			"event_id":  ev.EventID,
			"agent_id":  ev.AgentID,
			"tool_name": ev.ToolName,
			"method":    ev.Method,
			"inputs":    ev.Inputs,
		}
		if ev.Outputs != nil {
			payload["outputs"] = ev.Outputs
		}
		if ev.Duration > 0 {
			payload["duration_ms"] = ev.Duration.Milliseconds()
		}
		if ev.Err != "" {
			payload["error"] = ev.Err
		}
		return payload
	case *hooks.InputRequestEvent:
		return map[string]any{
			"request_id":      ev.RequestID,
			"prompt":          ev.Prompt,
			"kind":            ev.Kind,
			"language":        ev.Language,
			"options":         ev.Options,
			"initial_content": ev.InitialContent,
		}
	case *hooks.InputCancelledEvent:
		return map[string]any{"request_id": ev.RequestID}
	case *hooks.OverflowEvent:
		return map[string]any{"dropped": ev.Dropped}
	default:
		return struct{}{}
	}
}

// inboundCommand is the shape of every client-to-server frame this
// transport accepts: ping, input:submit, input:cancel, run:cancel.
type inboundCommand struct {
	Type string `json:"type"`
	Data struct {
		RequestID string `json:"request_id"`
		Answer    string `json:"answer"`
		RunID     string `json:"run_id"`
	} `json:"data"`
}

const (
	cmdPing        = "ping"
	cmdInputSubmit = "input:submit"
	cmdInputCancel = "input:cancel"
	cmdRunCancel   = "run:cancel"
)

func pongFrame() Frame {
	return Frame{Type: string(hooks.Pong), Timestamp: time.Now()}
}
