// Package llm provides concrete tools.LLM adapters over the Anthropic and
// OpenAI chat-completion APIs, grounded on the teacher's
// features/model/anthropic and features/model/openai client adapters but
// narrowed to the single Generate/CreateGenerationFunction surface this
// orchestrator's LLM tool needs (spec §6) rather than the teacher's full
// streaming/tool-call planner protocol.
package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/normcode/orchestrator/tools"
)

// MessagesClient captures the subset of the Anthropic SDK client the
// adapter uses, so callers can substitute a mock in tests.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicOptions configures AnthropicClient.
type AnthropicOptions struct {
	// Model is the Claude model identifier, e.g.
	// string(sdk.ModelClaudeSonnet4_5_20250929).
	Model string
	// MaxTokens caps the completion length; required since the Anthropic
	// API has no default.
	MaxTokens int
	// Temperature is passed through when non-zero.
	Temperature float64
}

// AnthropicClient implements tools.LLM on top of Anthropic Claude Messages.
type AnthropicClient struct {
	msg   MessagesClient
	model string
	maxTok int
	temp  float64
}

var _ tools.LLM = (*AnthropicClient)(nil)

// NewAnthropicClient builds an AnthropicClient from a Messages client and
// options.
func NewAnthropicClient(msg MessagesClient, opts AnthropicOptions) (*AnthropicClient, error) {
	if msg == nil {
		return nil, errors.New("llm: anthropic messages client is required")
	}
	if opts.Model == "" {
		return nil, errors.New("llm: anthropic model is required")
	}
	if opts.MaxTokens <= 0 {
		return nil, errors.New("llm: anthropic max tokens must be > 0")
	}
	return &AnthropicClient{msg: msg, model: opts.Model, maxTok: opts.MaxTokens, temp: opts.Temperature}, nil
}

// NewAnthropicClientFromAPIKey constructs a client using the default
// Anthropic HTTP client, authenticated with apiKey (passed explicitly via
// option.WithAPIKey). An empty apiKey is an error.
func NewAnthropicClientFromAPIKey(apiKey string, opts AnthropicOptions) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("llm: anthropic api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return NewAnthropicClient(&ac.Messages, opts)
}

// Generate implements tools.LLM.
func (c *AnthropicClient) Generate(ctx context.Context, prompt string, system string) (string, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: int64(c.maxTok),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	if c.temp > 0 {
		params.Temperature = sdk.Float(c.temp)
	}

	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("llm: anthropic messages.new: %w", err)
	}
	var out bytes.Buffer
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			out.WriteString(block.Text)
		}
	}
	return out.String(), nil
}

// CreateGenerationFunction implements tools.LLM.
func (c *AnthropicClient) CreateGenerationFunction(promptTemplate string) (tools.Executor, error) {
	tmpl, err := template.New("generation").Parse(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("llm: parse generation template: %w", err)
	}
	return func(ctx context.Context, args map[string]any) (any, error) {
		var rendered bytes.Buffer
		if err := tmpl.Execute(&rendered, args); err != nil {
			return nil, fmt.Errorf("llm: render generation template: %w", err)
		}
		return c.Generate(ctx, rendered.String(), "")
	}, nil
}
