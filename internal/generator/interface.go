// Package generator wraps chat-completion providers used to answer questions
// and summarize news.
package generator

import (
	"context"
	"errors"
)

// ErrEmptyCompletion is returned when the provider answers with no choices.
var ErrEmptyCompletion = errors.New("generator: provider returned no completion")

// Provider produces a single completion for a system and user prompt.
type Provider interface {
	// Complete runs one chat completion. An empty model selects the
	// provider's configured default.
	Complete(ctx context.Context, systemPrompt, userPrompt, model string) (string, error)

	// Model returns the default model name.
	Model() string

	// Health checks that the provider is reachable and the key is accepted.
	Health(ctx context.Context) error

	Close() error
}

// Config holds provider settings.
type Config struct {
	Provider       string
	Model          string
	Endpoint       string
	APIKey         string
	TimeoutSeconds int
	Temperature    float32
}
