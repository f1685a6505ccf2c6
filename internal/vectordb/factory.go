package vectordb

import (
	"fmt"
	"log/slog"

	"github.com/iasik/news-rag/internal/config"
)

// NewBackend creates a vector database backend based on configuration.
func NewBackend(cfg config.VectorDBConfig) (Backend, error) {
	backendCfg := Config{
		Provider:       cfg.Provider,
		Path:           cfg.Path,
		Compress:       cfg.Compress,
		Host:           cfg.Host,
		Port:           cfg.Port,
		APIKey:         cfg.GetAPIKey(),
		UseTLS:         cfg.UseTLS,
		TimeoutSeconds: int(cfg.GetTimeout().Seconds()),
	}

	switch cfg.Provider {
	case "chromem":
		return NewChromemStore(backendCfg)

	case "qdrant":
		return NewQdrantStore(backendCfg)

	default:
		return nil, fmt.Errorf("unknown vectordb provider: %s (supported: chromem, qdrant)", cfg.Provider)
	}
}

// NewProvider creates the configured backend and wraps it in a Store that
// embeds through embed and enforces dims (zero: learned from the first vector).
// This is the main entry point for obtaining a vector store.
func NewProvider(cfg config.VectorDBConfig, embed EmbedFunc, dims int, logger *slog.Logger) (*Store, error) {
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	return NewStore(backend, embed, dims, logger), nil
}
