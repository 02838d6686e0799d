package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"text/template"
)

// LocalPromptTemplates implements PromptTemplates by loading named template
// files from BaseDir and caching their parsed form, grounded on the canvas
// prompt tool's read()-then-cache behavior (string.Template there, Go's
// text/template here for the same variable-substitution role).
type LocalPromptTemplates struct {
	baseDir string

	mu    sync.Mutex
	cache map[string]*template.Template
}

var _ PromptTemplates = (*LocalPromptTemplates)(nil)

// NewLocalPromptTemplates builds a LocalPromptTemplates rooted at baseDir.
func NewLocalPromptTemplates(baseDir string) *LocalPromptTemplates {
	return &LocalPromptTemplates{baseDir: baseDir, cache: make(map[string]*template.Template)}
}

func (p *LocalPromptTemplates) load(templateName string) (*template.Template, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if tmpl, ok := p.cache[templateName]; ok {
		return tmpl, nil
	}
	path := templateName
	if !filepath.IsAbs(path) {
		path = filepath.Join(p.baseDir, templateName)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tools: read prompt template %s: %w", templateName, err)
	}
	tmpl, err := template.New(templateName).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("tools: parse prompt template %s: %w", templateName, err)
	}
	p.cache[templateName] = tmpl
	return tmpl, nil
}

// Render implements PromptTemplates.
func (p *LocalPromptTemplates) Render(_ context.Context, templateName string, variables map[string]any) (string, error) {
	tmpl, err := p.load(templateName)
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := tmpl.Execute(&out, variables); err != nil {
		return "", fmt.Errorf("tools: render prompt template %s: %w", templateName, err)
	}
	return out.String(), nil
}

// CreateTemplateFunction implements PromptTemplates.
func (p *LocalPromptTemplates) CreateTemplateFunction(templateName string) (Executor, error) {
	if _, err := p.load(templateName); err != nil {
		return nil, err
	}
	return func(ctx context.Context, args map[string]any) (any, error) {
		return p.Render(ctx, templateName, args)
	}, nil
}

// ClearCache drops every cached template, forcing the next Render/
// CreateTemplateFunction call to re-read from disk.
func (p *LocalPromptTemplates) ClearCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache = make(map[string]*template.Template)
}
