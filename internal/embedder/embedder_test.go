package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iasik/news-rag/internal/config"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestHashingEmbedder_Deterministic(t *testing.T) {
	h, err := NewHashingEmbedder(Config{Dimensions: 64})
	require.NoError(t, err)

	ctx := context.Background()
	a, err := h.Embed(ctx, "Apple beats earnings")
	require.NoError(t, err)
	b, err := h.Embed(ctx, "Apple beats earnings")
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, cosine(a, a), 1e-5)
}

func TestHashingEmbedder_SharedWordsRankHigher(t *testing.T) {
	h, err := NewHashingEmbedder(Config{})
	require.NoError(t, err)
	ctx := context.Background()

	query, _ := h.Embed(ctx, "Apple earnings")
	related, _ := h.Embed(ctx, "Apple beats earnings")
	unrelated, _ := h.Embed(ctx, "iPhone sales up 10%")

	assert.Greater(t, cosine(query, related), cosine(query, unrelated))
	assert.Equal(t, defaultHashingDimensions, h.ModelInfo().Dimensions)
	assert.True(t, h.ModelInfo().Local)
}

func TestHashingEmbedder_EmptyInput(t *testing.T) {
	h, _ := NewHashingEmbedder(Config{})

	_, err := h.Embed(context.Background(), "  ... ")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = h.EmbedBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = NewHashingEmbedder(Config{Dimensions: 4})
	assert.Error(t, err)
}

func TestHashingEmbedder_BatchKeepsOrder(t *testing.T) {
	h, _ := NewHashingEmbedder(Config{Dimensions: 32})
	ctx := context.Background()

	texts := []string{"first text", "second text", "third"}
	vectors, err := h.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	for i, text := range texts {
		single, _ := h.Embed(ctx, text)
		assert.Equal(t, single, vectors[i])
	}
}

// fakeOpenAI serves the subset of the OpenAI API the embedder uses.
func fakeOpenAI(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
			return
		}

		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// Answer in reverse order to exercise index sorting.
		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float32{float32(len(req.Input[i])), float32(i), 1},
			})
		}
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	})
	mux.HandleFunc("GET /v1/models", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"id": "nomic-embed-text:latest", "object": "model"},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	var calls int32
	srv := fakeOpenAI(t, &calls)

	emb, err := NewOpenAIEmbedder(Config{
		Model:     "text-embedding-3-small",
		Endpoint:  srv.URL + "/v1",
		APIKey:    "sk-test",
		BatchSize: 2,
	})
	require.NoError(t, err)

	vectors, err := emb.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	assert.Equal(t, []float32{1, 0, 1}, vectors[0])
	assert.Equal(t, []float32{2, 1, 1}, vectors[1])
	// Third text went out in a second request of size one.
	assert.Equal(t, []float32{3, 0, 1}, vectors[2])
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestOpenAIEmbedder_Errors(t *testing.T) {
	var calls int32
	srv := fakeOpenAI(t, &calls)

	_, err := NewOpenAIEmbedder(Config{Model: "m"})
	assert.Error(t, err, "missing key must fail at construction")

	emb, err := NewOpenAIEmbedder(Config{Model: "m", Endpoint: srv.URL + "/v1", APIKey: "sk-wrong"})
	require.NoError(t, err)

	_, err = emb.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect API key")

	_, err = emb.Embed(context.Background(), "   ")
	assert.True(t, errors.Is(err, ErrEmptyInput))
}

func TestOllamaEmbedder_Health(t *testing.T) {
	var calls int32
	srv := fakeOpenAI(t, &calls)

	emb, err := NewOllamaEmbedder(Config{Model: "nomic-embed-text", Endpoint: srv.URL})
	require.NoError(t, err)
	assert.NoError(t, emb.Health(context.Background()))
	assert.Equal(t, "ollama", emb.ModelInfo().Provider)

	missing, err := NewOllamaEmbedder(Config{Model: "mxbai-embed-large", Endpoint: srv.URL})
	require.NoError(t, err)
	err = missing.Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama pull mxbai-embed-large")
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(config.EmbeddingConfig{Provider: "hashing", Dimensions: 128})
	require.NoError(t, err)
	assert.Equal(t, 128, p.ModelInfo().Dimensions)

	_, err = NewProvider(config.EmbeddingConfig{Provider: "word2vec"})
	assert.Error(t, err)
}
