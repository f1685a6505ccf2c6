package generator

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIGenerator implements Provider with the chat completions API.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIGenerator creates a chat completion client.
func NewOpenAIGenerator(cfg Config) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("generation model is required")
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// Complete sends the system and user prompt as a two-message conversation.
func (g *OpenAIGenerator) Complete(ctx context.Context, systemPrompt, userPrompt, model string) (string, error) {
	if model == "" {
		model = g.model
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: g.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}

// Model returns the default model.
func (g *OpenAIGenerator) Model() string {
	return g.model
}

// Health lists models, which fails fast on a bad key or unreachable endpoint.
func (g *OpenAIGenerator) Health(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("generation health check failed: %w", err)
	}
	return nil
}

// Close is a no-op; the HTTP client has nothing to release.
func (g *OpenAIGenerator) Close() error {
	return nil
}
