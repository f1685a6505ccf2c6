package generator

import (
	"fmt"

	"github.com/iasik/news-rag/internal/config"
)

// NewProvider creates the configured generator.
// It returns nil without error when generation is disabled.
func NewProvider(cfg config.GenerationConfig) (Provider, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	providerCfg := Config{
		Provider:       cfg.Provider,
		Model:          cfg.Model,
		Endpoint:       cfg.Endpoint,
		APIKey:         cfg.GetAPIKey(),
		TimeoutSeconds: int(cfg.GetTimeout().Seconds()),
		Temperature:    cfg.Temperature,
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIGenerator(providerCfg)
	default:
		return nil, fmt.Errorf("unknown generation provider: %s (supported: openai)", cfg.Provider)
	}
}
