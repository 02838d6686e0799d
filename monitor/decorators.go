package monitor

import (
	"context"

	"github.com/normcode/orchestrator/tools"
)

// LLM wraps a tools.LLM so every call emits ToolEvents.
type LLM struct {
	proxy *Proxy
	inner tools.LLM
}

var _ tools.LLM = (*LLM)(nil)

// NewLLM wraps inner with proxy.
func NewLLM(proxy *Proxy, inner tools.LLM) *LLM { return &LLM{proxy: proxy, inner: inner} }

// Generate implements tools.LLM.
func (l *LLM) Generate(ctx context.Context, prompt string, system string) (string, error) {
	return call(l.proxy, "generate", map[string]any{"prompt": prompt, "system": system}, func() (string, error) {
		return l.inner.Generate(ctx, prompt, system)
	})
}

// CreateGenerationFunction implements tools.LLM.
func (l *LLM) CreateGenerationFunction(promptTemplate string) (tools.Executor, error) {
	exec, err := call(l.proxy, "create_generation_function", map[string]any{"prompt_template": promptTemplate}, func() (tools.Executor, error) {
		return l.inner.CreateGenerationFunction(promptTemplate)
	})
	if err != nil {
		return nil, err
	}
	return wrapExecutor(l.proxy, "create_generation_function", exec), nil
}

// FileSystem wraps a tools.FileSystem so every call emits ToolEvents.
type FileSystem struct {
	proxy *Proxy
	inner tools.FileSystem
}

var _ tools.FileSystem = (*FileSystem)(nil)

// NewFileSystem wraps inner with proxy.
func NewFileSystem(proxy *Proxy, inner tools.FileSystem) *FileSystem {
	return &FileSystem{proxy: proxy, inner: inner}
}

func (f *FileSystem) Read(ctx context.Context, path string) (string, error) {
	return call(f.proxy, "read", map[string]any{"path": path}, func() (string, error) { return f.inner.Read(ctx, path) })
}

func (f *FileSystem) Write(ctx context.Context, path string, content string) error {
	_, err := call(f.proxy, "write", map[string]any{"path": path, "content": content}, func() (struct{}, error) {
		return struct{}{}, f.inner.Write(ctx, path, content)
	})
	return err
}

func (f *FileSystem) Append(ctx context.Context, path string, content string) error {
	_, err := call(f.proxy, "append", map[string]any{"path": path, "content": content}, func() (struct{}, error) {
		return struct{}{}, f.inner.Append(ctx, path, content)
	})
	return err
}

func (f *FileSystem) Delete(ctx context.Context, path string) error {
	_, err := call(f.proxy, "delete", map[string]any{"path": path}, func() (struct{}, error) {
		return struct{}{}, f.inner.Delete(ctx, path)
	})
	return err
}

func (f *FileSystem) Exists(ctx context.Context, path string) (bool, error) {
	return call(f.proxy, "exists", map[string]any{"path": path}, func() (bool, error) { return f.inner.Exists(ctx, path) })
}

func (f *FileSystem) ListDirectory(ctx context.Context, path string) ([]string, error) {
	return call(f.proxy, "list_directory", map[string]any{"path": path}, func() ([]string, error) {
		return f.inner.ListDirectory(ctx, path)
	})
}

func (f *FileSystem) ReadJSON(ctx context.Context, path string, out any) error {
	_, err := call(f.proxy, "read_json", map[string]any{"path": path}, func() (struct{}, error) {
		return struct{}{}, f.inner.ReadJSON(ctx, path, out)
	})
	return err
}

func (f *FileSystem) WriteJSON(ctx context.Context, path string, value any) error {
	_, err := call(f.proxy, "write_json", map[string]any{"path": path, "value": value}, func() (struct{}, error) {
		return struct{}{}, f.inner.WriteJSON(ctx, path, value)
	})
	return err
}

// ScriptInterpreter wraps a tools.ScriptInterpreter so every call emits
// ToolEvents, including the canonical second-order executor it creates.
type ScriptInterpreter struct {
	proxy *Proxy
	inner tools.ScriptInterpreter
}

var _ tools.ScriptInterpreter = (*ScriptInterpreter)(nil)

// NewScriptInterpreter wraps inner with proxy.
func NewScriptInterpreter(proxy *Proxy, inner tools.ScriptInterpreter) *ScriptInterpreter {
	return &ScriptInterpreter{proxy: proxy, inner: inner}
}

func (s *ScriptInterpreter) Execute(ctx context.Context, source string, inputs map[string]any) (any, error) {
	return call(s.proxy, "execute", map[string]any{"source": source, "inputs": inputs}, func() (any, error) {
		return s.inner.Execute(ctx, source, inputs)
	})
}

func (s *ScriptInterpreter) CreateFunctionExecutor(ctx context.Context, source string) (tools.Executor, error) {
	exec, err := call(s.proxy, "create_function_executor", map[string]any{"source": source}, func() (tools.Executor, error) {
		return s.inner.CreateFunctionExecutor(ctx, source)
	})
	if err != nil {
		return nil, err
	}
	return wrapExecutor(s.proxy, "create_function_executor", exec), nil
}

// PromptTemplates wraps a tools.PromptTemplates so every call emits
// ToolEvents.
type PromptTemplates struct {
	proxy *Proxy
	inner tools.PromptTemplates
}

var _ tools.PromptTemplates = (*PromptTemplates)(nil)

// NewPromptTemplates wraps inner with proxy.
func NewPromptTemplates(proxy *Proxy, inner tools.PromptTemplates) *PromptTemplates {
	return &PromptTemplates{proxy: proxy, inner: inner}
}

func (p *PromptTemplates) Render(ctx context.Context, templateName string, variables map[string]any) (string, error) {
	return call(p.proxy, "render", map[string]any{"template_name": templateName, "variables": variables}, func() (string, error) {
		return p.inner.Render(ctx, templateName, variables)
	})
}

func (p *PromptTemplates) CreateTemplateFunction(templateName string) (tools.Executor, error) {
	exec, err := call(p.proxy, "create_template_function", map[string]any{"template_name": templateName}, func() (tools.Executor, error) {
		return p.inner.CreateTemplateFunction(templateName)
	})
	if err != nil {
		return nil, err
	}
	return wrapExecutor(p.proxy, "create_template_function", exec), nil
}

// Composition wraps a tools.Composition so every call emits ToolEvents.
type Composition struct {
	proxy *Proxy
	inner tools.Composition
}

var _ tools.Composition = (*Composition)(nil)

// NewComposition wraps inner with proxy.
func NewComposition(proxy *Proxy, inner tools.Composition) *Composition {
	return &Composition{proxy: proxy, inner: inner}
}

func (c *Composition) List(ctx context.Context) ([]tools.CompositionSpec, error) {
	return call(c.proxy, "list", nil, func() ([]tools.CompositionSpec, error) { return c.inner.List(ctx) })
}

func (c *Composition) Run(ctx context.Context, name string, vars map[string]any, dispatch tools.Dispatcher) (any, error) {
	return call(c.proxy, "run", map[string]any{"name": name, "vars": vars}, func() (any, error) {
		return c.inner.Run(ctx, name, vars, dispatch)
	})
}

// Formatter wraps a tools.Formatter so every call emits ToolEvents.
type Formatter struct {
	proxy *Proxy
	inner tools.Formatter
}

var _ tools.Formatter = (*Formatter)(nil)

// NewFormatter wraps inner with proxy.
func NewFormatter(proxy *Proxy, inner tools.Formatter) *Formatter {
	return &Formatter{proxy: proxy, inner: inner}
}

func (f *Formatter) Format(ctx context.Context, value any, format string) (string, error) {
	return call(f.proxy, "format", map[string]any{"value": value, "format": format}, func() (string, error) {
		return f.inner.Format(ctx, value, format)
	})
}

// HumanInput wraps a tools.HumanInput so every call emits ToolEvents.
type HumanInput struct {
	proxy *Proxy
	inner tools.HumanInput
}

var _ tools.HumanInput = (*HumanInput)(nil)

// NewHumanInput wraps inner with proxy.
func NewHumanInput(proxy *Proxy, inner tools.HumanInput) *HumanInput {
	return &HumanInput{proxy: proxy, inner: inner}
}

func (h *HumanInput) AwaitInput(ctx context.Context, prompt string, kind string, options []string) (string, error) {
	return call(h.proxy, "await_input", map[string]any{"prompt": prompt, "kind": kind, "options": options}, func() (string, error) {
		return h.inner.AwaitInput(ctx, prompt, kind, options)
	})
}
