package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
)

// pythonWrapper is executed by the configured interpreter binary. It reads
// a JSON object of inputs from stdin, binds each key into the script's
// globals, execs the user-supplied source, and prints whatever the source
// assigned to a variable named "result" as a single line of JSON —
// mirroring the original tool's exec(script_code, execution_globals) then
// execution_globals["result"] convention.
const pythonWrapper = `
import json, sys
inputs = json.loads(sys.stdin.read() or "{}")
_globals = dict(inputs)
exec(compile(sys.argv[1], "<script>", "exec"), _globals)
print(json.dumps(_globals.get("result")))
`

// ScriptOptions configures PythonScriptInterpreter.
type ScriptOptions struct {
	// Interpreter is the binary to invoke, e.g. "python3". Defaults to
	// "python3" when empty.
	Interpreter string
}

// PythonScriptInterpreter implements ScriptInterpreter by shelling out to a
// Python interpreter binary per call, grounded on the teacher's stdio MCP
// caller's use of os/exec to run an external process per request
// (features/mcp/runtime/stdiocaller.go). No sandboxed scripting engine
// appears in the example corpus (see DESIGN.md), so this uses the standard
// library's os/exec rather than an embedded interpreter.
type PythonScriptInterpreter struct {
	interpreter string
}

var _ ScriptInterpreter = (*PythonScriptInterpreter)(nil)

// NewPythonScriptInterpreter builds a PythonScriptInterpreter.
func NewPythonScriptInterpreter(opts ScriptOptions) *PythonScriptInterpreter {
	interpreter := opts.Interpreter
	if interpreter == "" {
		interpreter = "python3"
	}
	return &PythonScriptInterpreter{interpreter: interpreter}
}

// Execute implements ScriptInterpreter.
func (p *PythonScriptInterpreter) Execute(ctx context.Context, source string, inputs map[string]any) (any, error) {
	payload, err := json.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("tools: marshal script inputs: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.interpreter, "-c", pythonWrapper, source)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("tools: script execution failed: %w: %s", err, stderr.String())
	}

	var result any
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &result); err != nil {
		return nil, fmt.Errorf("tools: decode script result: %w", err)
	}
	return result, nil
}

// CreateFunctionExecutor implements ScriptInterpreter, returning an
// Executor that re-runs source with each call's arguments bound as inputs
// — the Go analogue of the Python tool's create_function_executor, which
// returns a closure over a compiled function rather than recompiling it.
// This orchestrator re-invokes the interpreter per call since the process
// boundary between calls precludes holding a compiled function object; see
// DESIGN.md for the tradeoff.
func (p *PythonScriptInterpreter) CreateFunctionExecutor(_ context.Context, source string) (Executor, error) {
	if source == "" {
		return nil, errors.New("tools: script source is required")
	}
	return func(ctx context.Context, args map[string]any) (any, error) {
		return p.Execute(ctx, source, args)
	}, nil
}
