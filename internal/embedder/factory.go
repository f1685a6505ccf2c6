package embedder

import (
	"fmt"

	"github.com/iasik/news-rag/internal/config"
)

// NewProvider creates an embedding provider based on configuration.
// This is the main entry point for obtaining an embedder.
func NewProvider(cfg config.EmbeddingConfig) (Provider, error) {
	providerCfg := Config{
		Provider:       cfg.Provider,
		Model:          cfg.Model,
		Endpoint:       cfg.Endpoint,
		Dimensions:     cfg.Dimensions,
		BatchSize:      cfg.BatchSize,
		APIKey:         cfg.GetAPIKey(),
		TimeoutSeconds: int(cfg.GetTimeout().Seconds()),
		CacheDir:       cfg.CacheDir,
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIEmbedder(providerCfg)

	case "ollama":
		return NewOllamaEmbedder(providerCfg)

	case "fastembed":
		return NewFastEmbedder(providerCfg)

	case "hashing":
		return NewHashingEmbedder(providerCfg)

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, ollama, fastembed, hashing)", cfg.Provider)
	}
}
