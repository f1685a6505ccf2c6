package embedder

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

const defaultHashingDimensions = 512

var hashingTokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*`)

// HashingEmbedder is a dependency-free local embedder using the hashing trick:
// each lowercased token is hashed into a signed bucket and the bag is L2-normalized.
// Texts sharing vocabulary end up close under cosine similarity. It needs no
// model download, which makes it the offline and test provider.
type HashingEmbedder struct {
	dims int
}

// NewHashingEmbedder creates a hashing embedder.
func NewHashingEmbedder(cfg Config) (*HashingEmbedder, error) {
	dims := cfg.Dimensions
	if dims == 0 {
		dims = defaultHashingDimensions
	}
	if dims < 8 {
		return nil, fmt.Errorf("hashing embedder needs at least 8 dimensions, got %d", dims)
	}
	return &HashingEmbedder{dims: dims}, nil
}

// Embed generates an embedding vector for a single text.
func (h *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	tokens := hashingTokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: no tokens in text", ErrEmptyInput)
	}

	vec := make([]float32, h.dims)
	for _, tok := range tokens {
		hasher := fnv.New64a()
		hasher.Write([]byte(tok))
		sum := hasher.Sum64()

		idx := int(sum % uint64(h.dims))
		if sum>>63 == 1 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		// Every token cancelled out; fall back to the first bucket.
		vec[0] = 1
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}

// EmbedBatch embeds each text in order.
func (h *HashingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := h.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// ModelInfo returns information about the current model.
func (h *HashingEmbedder) ModelInfo() ModelInfo {
	return ModelInfo{
		Provider:   "hashing",
		Model:      "hashing-v1",
		Dimensions: h.dims,
		Local:      true,
	}
}

// Health always succeeds.
func (h *HashingEmbedder) Health(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (h *HashingEmbedder) Close() error {
	return nil
}
