package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	openai "github.com/sashabaranov/go-openai"

	"github.com/normcode/orchestrator/tools"
)

// ChatClient captures the subset of the go-openai client the adapter uses,
// so callers can substitute a mock in tests.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIOptions configures OpenAIClient.
type OpenAIOptions struct {
	Client      ChatClient
	Model       string
	MaxTokens   int
	Temperature float32
}

// OpenAIClient implements tools.LLM via the OpenAI Chat Completions API.
type OpenAIClient struct {
	chat  ChatClient
	model string
	maxTok int
	temp  float32
}

var _ tools.LLM = (*OpenAIClient)(nil)

// NewOpenAIClient builds an OpenAIClient from the provided options.
func NewOpenAIClient(opts OpenAIOptions) (*OpenAIClient, error) {
	if opts.Client == nil {
		return nil, errors.New("llm: openai client is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		return nil, errors.New("llm: openai model is required")
	}
	return &OpenAIClient{chat: opts.Client, model: model, maxTok: opts.MaxTokens, temp: opts.Temperature}, nil
}

// NewOpenAIClientFromAPIKey constructs a client using the default go-openai
// HTTP client.
func NewOpenAIClientFromAPIKey(apiKey string, opts OpenAIOptions) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("llm: openai api key is required")
	}
	opts.Client = openai.NewClient(apiKey)
	return NewOpenAIClient(opts)
}

// Generate implements tools.LLM.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, system string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	request := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTok,
		Temperature: c.temp,
	}
	resp, err := c.chat.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("llm: openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm: openai response had no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// CreateGenerationFunction implements tools.LLM.
func (c *OpenAIClient) CreateGenerationFunction(promptTemplate string) (tools.Executor, error) {
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
