// Package temporal implements engine.Engine on top of Temporal
// (https://temporal.io), the durable-execution backend the teacher's own
// engine/temporal adapter targets (runtime/agent/engine/temporal). Use it
// in place of engine/inmem when a sequence run must survive process
// restarts: each Step call becomes a Temporal activity invocation, and the
// run's position (which step is next) is recovered from Temporal's event
// history on replay rather than from in-process memory.
//
// # Shape
//
// One workflow type, runWorkflow, loops: execute the stepActivity activity,
// inspect the returned status, stop once terminal. The activity looks up
// the *sequence.Runner for the run by ID in a process-local table and calls
// its real Step method, which performs the actual (non-deterministic) tool
// calls and LLM inference — exactly the kind of side-effecting work
// Temporal requires to live in an activity rather than workflow code.
//
// # Single-process limitation
//
// Because the *sequence.Runner instance itself is not serializable (it
// holds live connections such as the hooks.Bus and bound tool clients),
// this adapter only recovers workflow *position* across a restart, not the
// runner's in-memory state; a full durable rebuild of the runner also
// requires a runlog-backed state reconstruction, which is out of scope
// here. Running the stepActivity worker in the same process that called
// StartRun (the common case for this orchestrator) keeps the runner
// reachable for the activity.
package temporal
