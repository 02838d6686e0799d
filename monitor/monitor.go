// Package monitor wraps any of the fixed tools.* interfaces so every method
// invocation emits a hooks.ToolEvent pair (started, then completed or
// failed) on the event bus, including a second, differently-named pair for
// any tools.Executor a method returns (the "second-order tool" case).
// Grounded on MonitoredToolProxy (original_source/canvas_app/backend/
// services/agent/monitoring.py), reshaped from Python's __getattr__-based
// dynamic interception into explicit Go decorator types — one per tools
// interface — since Go has no runtime attribute proxying.
package monitor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/normcode/orchestrator/hooks"
	"github.com/normcode/orchestrator/telemetry"
	"github.com/normcode/orchestrator/tools"
	"github.com/normcode/orchestrator/toolspec"
)

// FlowIndexFunc returns the dotted-decimal flow index active right now,
// the Go analogue of the Python proxy's current_flow_index_getter.
type FlowIndexFunc func() string

// RunIDFunc returns the run id active right now, the Go analogue of the
// Python proxy's current_run_id_getter. Like FlowIndexFunc, this is a
// function rather than a fixed string because a Proxy can be cached and
// reused by its owner (e.g. AgentRegistry's per-agent bundle cache)
// across more than one run.
type RunIDFunc func() string

// Proxy carries the identity and wiring every monitored tool decorator
// needs: who owns the tool, what it's called, where events go, and how to
// learn the current run id and flow index without each decorator tracking
// them itself.
type Proxy struct {
	RunID     RunIDFunc
	AgentID   string
	ToolName  string
	Bus       hooks.Bus
	FlowIndex FlowIndexFunc
	// Spec validates this tool's calls against their JSON-schema contract
	// (spec §6) before a call reaches the underlying tool and again
	// before its result is published. A nil Spec, or a (ToolName, method)
	// pair with no registered ToolSpec, skips validation entirely.
	Spec *toolspec.Registry
	// Metrics records tool call started/completed/failed counters and a
	// call-duration histogram. A nil Metrics records nothing.
	Metrics telemetry.Metrics
}

func (p *Proxy) metrics() telemetry.Metrics {
	if p.Metrics == nil {
		return telemetry.NewNoopMetrics()
	}
	return p.Metrics
}

func (p *Proxy) flowIndex() string {
	if p.FlowIndex == nil {
		return ""
	}
	return p.FlowIndex()
}

func (p *Proxy) runID() string {
	if p.RunID == nil {
		return ""
	}
	return p.RunID()
}

// call runs fn, publishing a ToolStarted event before and a
// ToolCompleted/ToolFailed event after, returning fn's result unchanged. If
// p.Spec has a ToolSpec registered for (p.ToolName, method), inputs and the
// result are validated against its payload/result schemas; a violation
// fails the call before fn ever runs (for the payload) or before the
// result is published (for the result), without reaching the underlying
// tool in the payload case.
func call[T any](p *Proxy, method string, inputs map[string]any, fn func() (T, error)) (T, error) {
	metrics := p.metrics()
	tags := []string{"tool", p.ToolName, "method", method}

	eventID := uuid.NewString()
	started := hooks.NewToolEvent(eventID, p.runID(), p.flowIndex(), p.AgentID, p.ToolName, method, sanitizeInputs(inputs))
	p.Bus.Publish(started)
	metrics.IncCounter("tool_call.started", 1, tags...)

	var spec *toolspec.CompiledSpec
	if p.Spec != nil {
		spec = p.Spec.Lookup(p.ToolName, method)
	}

	if spec != nil {
		if err := spec.ValidatePayload(inputs); err != nil {
			p.Bus.Publish(started.Failed(err, 0))
			metrics.IncCounter("tool_call.failed", 1, tags...)
			var zero T
			return zero, err
		}
	}

	start := time.Now()
	result, err := fn()
	duration := time.Since(start)
	if err != nil {
		p.Bus.Publish(started.Failed(err, duration))
		metrics.IncCounter("tool_call.failed", 1, tags...)
		metrics.RecordTimer("tool_call.duration", duration, tags...)
		var zero T
		return zero, err
	}

	if spec != nil {
		if err := spec.ValidateResult(result); err != nil {
			p.Bus.Publish(started.Failed(err, duration))
			metrics.IncCounter("tool_call.failed", 1, tags...)
			metrics.RecordTimer("tool_call.duration", duration, tags...)
			var zero T
			return zero, err
		}
	}

	p.Bus.Publish(started.Completed(sanitizeOutput(result), duration))
	metrics.IncCounter("tool_call.completed", 1, tags...)
	metrics.RecordTimer("tool_call.duration", duration, tags...)
	return result, nil
}

// wrapExecutor adapts a tools.Executor returned by a second-order tool
// method (e.g. ScriptInterpreter.CreateFunctionExecutor) so that invoking
// it emits its own started/completed/failed event pair under the method
// name "<method>→execute", mirroring _wrap_returned_callable.
func wrapExecutor(p *Proxy, method string, exec tools.Executor) tools.Executor {
	executorMethod := method + "→execute"
	return func(ctx context.Context, args map[string]any) (any, error) {
		return call(p, executorMethod, args, func() (any, error) {
			return exec(ctx, args)
		})
	}
}
