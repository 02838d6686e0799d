// Package hooks implements the orchestrator's in-process event bus: the
// structured Event types published by SequenceRunner, MonitoredToolProxy,
// and HumanInputRendezvous, and the Bus that fans them out to every
// connected ObserverTransport.
package hooks

import "time"

// EventType is one of the wire-level event type strings from spec §6.
type EventType string

const (
	// ConnectionEstablished is the synthetic frame a transport sends
	// immediately after a successful connection, before any other event.
	ConnectionEstablished EventType = "connection:established"

	ExecutionLoaded    EventType = "execution:loaded"
	ExecutionStarted   EventType = "execution:started"
	ExecutionPaused    EventType = "execution:paused"
	ExecutionResumed   EventType = "execution:resumed"
	ExecutionCompleted EventType = "execution:completed"
	ExecutionFailed    EventType = "execution:failed"
	ExecutionCancelled EventType = "execution:cancelled"

	InferenceStarted   EventType = "inference:started"
	InferenceCompleted EventType = "inference:completed"
	InferenceFailed    EventType = "inference:failed"

	// ToolStarted, ToolCompleted, and ToolFailed are the generic type tags
	// carried on a ToolEvent; the wire-level type string is formatted as
	// "tool:<name>:started" etc. by ToolEvent.Type.
	ToolStarted   EventType = "started"
	ToolCompleted EventType = "completed"
	ToolFailed    EventType = "failed"

	InputRequest   EventType = "input:request"
	InputCancelled EventType = "input:cancelled"

	// BusOverflow is inserted into a subscriber's own stream (never any
	// other subscriber's) when its buffer fills and events are dropped.
	BusOverflow EventType = "bus:overflow"

	Pong EventType = "pong"
)

// Event is the interface every published event satisfies. Concrete event
// types carry typed payloads; the bus does not know about
// ObserverTransport's JSON encoding, so the transport reads
// Type()/RunID()/FlowIndex() through this interface and type-switches on
// the concrete event to build its payload.
type Event interface {
	// Type returns the wire-level event type string.
	Type() EventType
	// RunID returns the run this event belongs to. Empty for bus-internal
	// events like BusOverflow, which are per-subscriber rather than
	// per-run.
	RunID() string
	// FlowIndex returns the dotted-decimal flow index active when the
	// event was emitted, or "" if not applicable.
	FlowIndex() string
	// Timestamp returns when the event was created.
	Timestamp() time.Time
}

type baseEvent struct {
	runID     string
	flowIndex string
	ts        time.Time
}

func (b baseEvent) RunID() string        { return b.runID }
func (b baseEvent) FlowIndex() string     { return b.flowIndex }
func (b baseEvent) Timestamp() time.Time { return b.ts }

func newBase(runID, flowIndex string) baseEvent {
	return baseEvent{runID: runID, flowIndex: flowIndex, ts: time.Now()}
}

// ExecutionEvent covers the execution:* lifecycle events: loaded, started,
// paused, resumed, completed, failed, cancelled.
type ExecutionEvent struct {
	baseEvent
	kind EventType
	// AgentID is the agent resolved for this run.
	AgentID string
	// SequenceName names the sequence definition this run executes.
	SequenceName string
	// Reason is an optional human-readable explanation for
	// ExecutionPaused/ExecutionCancelled. sequence.Runner publishes those
	// events with Reason empty.
	Reason string
	// Error is the terminal failure, populated only for ExecutionFailed.
	Error error
}

// Type returns the execution:* event type.
func (e *ExecutionEvent) Type() EventType { return e.kind }

// NewExecutionEvent builds an ExecutionEvent of the given kind.
func NewExecutionEvent(kind EventType, runID, agentID, sequenceName string) *ExecutionEvent {
	return &ExecutionEvent{baseEvent: newBase(runID, ""), kind: kind, AgentID: agentID, SequenceName: sequenceName}
}

// InferenceEvent covers inference:started/completed/failed, emitted by
// SequenceRunner around each step invocation.
type InferenceEvent struct {
	baseEvent
	kind EventType
	// Step is the step descriptor name (e.g. "MFP").
	Step string
	// StepIndex is the 1-based position of Step within the sequence.
	StepIndex int
	// Error is populated only for InferenceFailed.
	Error error
}

// Type returns the inference:* event type.
func (e *InferenceEvent) Type() EventType { return e.kind }

// NewInferenceEvent builds an InferenceEvent of the given kind.
func NewInferenceEvent(kind EventType, runID, flowIndex, step string, stepIndex int) *InferenceEvent {
	return &InferenceEvent{baseEvent: newBase(runID, flowIndex), kind: kind, Step: step, StepIndex: stepIndex}
}

// ToolEvent covers tool:<name>:started/completed/failed, emitted by
// MonitoredToolProxy around every intercepted method call, including
// second-order (callable-returning) calls.
type ToolEvent struct {
	baseEvent
	status EventType
	// EventID uniquely identifies one method invocation; the started,
	// completed/failed pair for that invocation share the same EventID.
	EventID string
	// AgentID is the agent that owns the monitored tool.
	AgentID string
	// ToolName is the tool's registered name (e.g. "llm", "file_system").
	ToolName string
	// Method is the intercepted method name, or "<method>→execute" for a
	// second-order callable returned by Method.
	Method string
	// Inputs is the sanitized shallow copy of the call's arguments.
	Inputs map[string]any
	// Outputs is the sanitized shallow copy of the call's return value,
	// set only on ToolCompleted.
	Outputs any
	// Duration is populated on ToolCompleted/ToolFailed.
	Duration time.Duration
	// Err is populated only on ToolFailed.
	Err string
}

// Type returns "tool:<name>:<status>".
func (e *ToolEvent) Type() EventType {
	return EventType("tool:" + e.Method + ":" + string(e.status))
}

// NewToolEvent builds a ToolEvent with status ToolStarted.
func NewToolEvent(eventID, runID, flowIndex, agentID, toolName, method string, inputs map[string]any) *ToolEvent {
	return &ToolEvent{
		baseEvent: newBase(runID, flowIndex),
		status:    ToolStarted,
		EventID:   eventID,
		AgentID:   agentID,
		ToolName:  toolName,
		Method:    method,
		Inputs:    inputs,
	}
}

// Completed returns a ToolCompleted copy of e carrying output and duration.
func (e *ToolEvent) Completed(output any, duration time.Duration) *ToolEvent {
	out := *e
	out.baseEvent = newBase(e.runID, e.flowIndex)
	out.status = ToolCompleted
	out.Outputs = output
	out.Duration = duration
	return &out
}

// Failed returns a ToolFailed copy of e carrying the error message and
// duration.
func (e *ToolEvent) Failed(err error, duration time.Duration) *ToolEvent {
	out := *e
	out.baseEvent = newBase(e.runID, e.flowIndex)
	out.status = ToolFailed
	out.Duration = duration
	out.Err = err.Error()
	return &out
}

// InputKind enumerates the interaction kinds an input request may carry,
// grounded on the canvas user-input tool's interaction_type values.
type InputKind string

const (
	InputPlainText InputKind = "plain_text"
	InputCode      InputKind = "code"
	InputConfirm   InputKind = "confirm"
	InputSelect    InputKind = "select"
	InputEditor    InputKind = "editor"
)

// InputRequestEvent announces that a running sequence is blocked awaiting
// an observer's answer.
type InputRequestEvent struct {
	baseEvent
	// RequestID identifies the pending request; Submit/Cancel must be
	// called with this id.
	RequestID string
	// Prompt is shown to the observer.
	Prompt string
	// Kind selects the interaction widget the observer should render.
	Kind InputKind
	// Language is set when Kind is InputCode.
	Language string
	// Options lists the choices when Kind is InputSelect.
	Options []string
	// InitialContent seeds the editor when Kind is InputEditor.
	InitialContent string
}

// Type returns EventType "input:request".
func (e *InputRequestEvent) Type() EventType { return InputRequest }

// NewInputRequestEvent builds an InputRequestEvent.
func NewInputRequestEvent(runID, flowIndex, requestID, prompt string, kind InputKind, options []string) *InputRequestEvent {
	return &InputRequestEvent{
		baseEvent: newBase(runID, flowIndex),
		RequestID: requestID,
		Prompt:    prompt,
		Kind:      kind,
		Options:   options,
	}
}

// InputCancelledEvent announces that a pending input request was cancelled
// (by run cancellation or an explicit input:cancel command) rather than
// answered.
type InputCancelledEvent struct {
	baseEvent
	RequestID string
}

// Type returns EventType "input:cancelled".
func (e *InputCancelledEvent) Type() EventType { return InputCancelled }

// NewInputCancelledEvent builds an InputCancelledEvent.
func NewInputCancelledEvent(runID, flowIndex, requestID string) *InputCancelledEvent {
	return &InputCancelledEvent{baseEvent: newBase(runID, flowIndex), RequestID: requestID}
}

// OverflowEvent is inserted into a subscription's own stream when its
// buffer filled and one or more events were dropped for it. It never
// appears in any other subscriber's stream.
type OverflowEvent struct {
	baseEvent
	// Dropped is the number of events lost before this marker.
	Dropped int
}

// Type returns EventType "bus:overflow".
func (e *OverflowEvent) Type() EventType { return BusOverflow }

// NewOverflowEvent builds an OverflowEvent for the given drop count.
func NewOverflowEvent(dropped int) *OverflowEvent {
	return &OverflowEvent{baseEvent: newBase("", ""), Dropped: dropped}
}

// PongEvent answers a client "ping" command.
type PongEvent struct{ baseEvent }

// Type returns EventType "pong".
func (e *PongEvent) Type() EventType { return Pong }

// NewPongEvent builds a PongEvent.
func NewPongEvent() *PongEvent { return &PongEvent{baseEvent: newBase("", "")} }
