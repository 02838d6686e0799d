package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// compositionFile is the on-disk YAML shape for one CompositionSpec,
// grounded on the original registry's paradigm-directory loading
// (_create_paradigm_tool in canvas_app/backend/services/agent/registry.py)
// but made declarative rather than importing arbitrary Python.
type compositionFile struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []struct {
		Tool   string         `yaml:"tool"`
		Method string         `yaml:"method"`
		Args   map[string]any `yaml:"args"`
		Bind   string         `yaml:"bind"`
	} `yaml:"steps"`
}

// LocalComposition implements Composition by loading one YAML spec file per
// composition from Dir (spec §6's per-agent paradigm directory).
type LocalComposition struct {
	Dir string
}

var _ Composition = (*LocalComposition)(nil)

// NewLocalComposition builds a LocalComposition rooted at dir.
func NewLocalComposition(dir string) (*LocalComposition, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("tools: composition directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("tools: composition path %s is not a directory", dir)
	}
	return &LocalComposition{Dir: dir}, nil
}

// List implements Composition.
func (c *LocalComposition) List(_ context.Context) ([]CompositionSpec, error) {
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		return nil, fmt.Errorf("tools: list composition directory: %w", err)
	}
	var specs []CompositionSpec
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		spec, err := c.load(filepath.Join(c.Dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Run implements Composition.
func (c *LocalComposition) Run(ctx context.Context, name string, vars map[string]any, dispatch Dispatcher) (any, error) {
	specs, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	var target *CompositionSpec
	for i := range specs {
		if specs[i].Name == name {
			target = &specs[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("tools: composition %q not found in %s", name, c.Dir)
	}

	bound := make(map[string]any, len(vars))
	for k, v := range vars {
		bound[k] = v
	}
	var last any
	for _, step := range target.Steps {
		args := resolveArgs(step.Args, bound)
		result, err := dispatch(ctx, step.Tool, step.Method, args)
		if err != nil {
			return nil, fmt.Errorf("tools: composition %q step %s.%s: %w", name, step.Tool, step.Method, err)
		}
		if step.Bind != "" {
			bound[step.Bind] = result
		}
		last = result
	}
	return last, nil
}

func (c *LocalComposition) load(path string) (CompositionSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CompositionSpec{}, fmt.Errorf("tools: read composition %s: %w", path, err)
	}
	var file compositionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return CompositionSpec{}, fmt.Errorf("tools: parse composition %s: %w", path, err)
	}
	spec := CompositionSpec{Name: file.Name, Description: file.Description}
	for _, step := range file.Steps {
		spec.Steps = append(spec.Steps, CompositionStep{
			Tool: step.Tool, Method: step.Method, Args: step.Args, Bind: step.Bind,
		})
	}
	return spec, nil
}

// resolveArgs substitutes any string value of the form "$name" with the
// bound variable named "name", leaving other values untouched.
func resolveArgs(args map[string]any, bound map[string]any) map[string]any {
	resolved := make(map[string]any, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok && strings.HasPrefix(s, "$") {
			if value, ok := bound[strings.TrimPrefix(s, "$")]; ok {
				resolved[k] = value
				continue
			}
		}
		resolved[k] = v
	}
	return resolved
}

func isYAML(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}
