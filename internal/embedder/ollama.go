package embedder

import (
	"strings"
)

// NewOllamaEmbedder creates an embedding provider backed by a local Ollama
// daemon through its OpenAI-compatible /v1 API.
func NewOllamaEmbedder(cfg Config) (*OpenAIEmbedder, error) {
	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	if !strings.HasSuffix(endpoint, "/v1") {
		endpoint += "/v1"
	}

	// Ollama ignores the key but the client requires one.
	cfg.Endpoint = endpoint
	cfg.APIKey = "ollama"

	emb, err := NewOpenAIEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	emb.provider = "ollama"
	return emb, nil
}
