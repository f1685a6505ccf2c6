package embedder

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder implements the Provider interface for the OpenAI embeddings API
// and any endpoint speaking the same protocol.
type OpenAIEmbedder struct {
	client     *openai.Client
	provider   string
	model      string
	dimensions int
	batchSize  int
}

// NewOpenAIEmbedder creates a new OpenAI embedding provider.
func NewOpenAIEmbedder(cfg Config) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientCfg),
		provider:   "openai",
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		batchSize:  batchSize,
	}, nil
}

// Embed generates an embedding vector for a single text.
func (o *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	results, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// EmbedBatch generates embedding vectors for multiple texts.
// Inputs larger than the batch size are split into several requests.
func (o *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("%w: text %d is blank", ErrEmptyInput, i)
		}
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += o.batchSize {
		end := min(start+o.batchSize, len(texts))
		batch, err := o.embedChunk(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (o *OpenAIEmbedder) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(o.model),
		Input: texts,
	}
	// Only the v3 models accept a requested size.
	if o.dimensions > 0 && strings.HasPrefix(o.model, "text-embedding-3") {
		req.Dimensions = o.dimensions
	}

	resp, err := o.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	// Sort results by index to maintain order
	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("no embedding returned for text %d", i)
		}
	}

	return vectors, nil
}

// ModelInfo returns information about the current model.
func (o *OpenAIEmbedder) ModelInfo() ModelInfo {
	return ModelInfo{
		Provider:   o.provider,
		Model:      o.model,
		Dimensions: o.dimensions,
	}
}

// Health checks that the API is reachable, the key is accepted and,
// for Ollama, that the model has been pulled.
func (o *OpenAIEmbedder) Health(ctx context.Context) error {
	models, err := o.client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("%s health check failed: %w", o.provider, err)
	}
	if o.provider != "ollama" {
		return nil
	}

	for _, m := range models.Models {
		if m.ID == o.model || m.ID == o.model+":latest" {
			return nil
		}
	}
	return fmt.Errorf("model %s not found in ollama, run: ollama pull %s", o.model, o.model)
}

// Close releases resources (no-op for OpenAI).
func (o *OpenAIEmbedder) Close() error {
	return nil
}
