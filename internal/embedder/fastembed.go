//go:build cgo

package embedder

import (
	"context"
	"fmt"
	"strings"
	"sync"

	fastembed "github.com/anush008/fastembed-go"
)

// fastembedModels maps accepted model names to fastembed models and their output size.
var fastembedModels = map[string]struct {
	model fastembed.EmbeddingModel
	dims  int
}{
	"BAAI/bge-small-en-v1.5":                 {fastembed.BGESmallENV15, 384},
	"BAAI/bge-small-en":                      {fastembed.BGESmallEN, 384},
	"BAAI/bge-base-en-v1.5":                  {fastembed.BGEBaseENV15, 768},
	"BAAI/bge-base-en":                       {fastembed.BGEBaseEN, 768},
	"sentence-transformers/all-MiniLM-L6-v2": {fastembed.AllMiniLML6V2, 384},
}

// FastEmbedder runs an ONNX embedding model in-process.
// The model is downloaded into the cache directory on first use.
type FastEmbedder struct {
	model     *fastembed.FlagEmbedding
	name      string
	dims      int
	batchSize int

	// FlagEmbedding is not documented as safe for concurrent use.
	mu sync.Mutex
}

// NewFastEmbedder loads the configured local model.
func NewFastEmbedder(cfg Config) (*FastEmbedder, error) {
	m, ok := fastembedModels[cfg.Model]
	if !ok {
		return nil, fmt.Errorf("unsupported fastembed model %q", cfg.Model)
	}
	if cfg.Dimensions > 0 && cfg.Dimensions != m.dims {
		return nil, fmt.Errorf("fastembed model %s produces %d dimensions, config says %d",
			cfg.Model, m.dims, cfg.Dimensions)
	}

	showProgress := false
	model, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                m.model,
		CacheDir:             cfg.CacheDir,
		MaxLength:            512,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load fastembed model: %w", err)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	return &FastEmbedder{
		model:     model,
		name:      cfg.Model,
		dims:      m.dims,
		batchSize: batchSize,
	}, nil
}

// Embed generates an embedding vector for a single text.
func (f *FastEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embedding vectors for multiple texts.
// Documents and queries share one encoding so identical texts map to identical vectors.
func (f *FastEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("%w: text %d is blank", ErrEmptyInput, i)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	vectors, err := f.model.Embed(texts, f.batchSize)
	if err != nil {
		return nil, fmt.Errorf("fastembed inference failed: %w", err)
	}
	return vectors, nil
}

// ModelInfo returns information about the current model.
func (f *FastEmbedder) ModelInfo() ModelInfo {
	return ModelInfo{
		Provider:   "fastembed",
		Model:      f.name,
		Dimensions: f.dims,
		Local:      true,
	}
}

// Health reports whether the model is loaded.
func (f *FastEmbedder) Health(ctx context.Context) error {
	if f.model == nil {
		return fmt.Errorf("fastembed model not loaded")
	}
	return nil
}

// Close releases the ONNX session.
func (f *FastEmbedder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.model == nil {
		return nil
	}
	err := f.model.Destroy()
	f.model = nil
	return err
}
