// Package embedder provides a pluggable interface for text embedding providers.
// It abstracts different embedding services (OpenAI, Ollama, local models) behind a common interface.
package embedder

import (
	"context"
	"errors"
)

// ErrEmptyInput is returned when there is nothing to embed.
var ErrEmptyInput = errors.New("embedder: empty input")

// Provider defines the interface for embedding providers.
// All embedding implementations must satisfy this interface.
type Provider interface {
	// Embed generates an embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embedding vectors for multiple texts, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// ModelInfo returns information about the current model.
	ModelInfo() ModelInfo

	// Health checks if the provider is available.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// ModelInfo contains metadata about an embedding model.
type ModelInfo struct {
	// Provider name (e.g., "openai", "fastembed")
	Provider string

	// Model name (e.g., "text-embedding-3-small")
	Model string

	// Vector dimensions, zero when only known after the first call
	Dimensions int

	// Local is true for in-process models that make no network calls
	Local bool
}

// Config holds common configuration for embedding providers.
type Config struct {
	// Provider name
	Provider string

	// Model name
	Model string

	// API endpoint URL
	Endpoint string

	// Vector dimensions
	Dimensions int

	// Batch size for bulk operations
	BatchSize int

	// API key (for providers that require it)
	APIKey string

	// Request timeout in seconds
	TimeoutSeconds int

	// Model cache directory (local providers)
	CacheDir string
}
