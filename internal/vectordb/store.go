package vectordb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
)

// Store owns a backend and hands out long-lived collection handles.
type Store struct {
	backend Backend
	embed   EmbedFunc
	dims    int
	logger  *slog.Logger
}

// NewStore wraps a backend. embed is used for text-only documents and text
// queries; dims is the expected embedding size, zero if unknown.
func NewStore(backend Backend, embed EmbedFunc, dims int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		backend: backend,
		embed:   embed,
		dims:    dims,
		logger:  logger,
	}
}

// GetOrCreateCollection opens the named collection, creating it if absent.
// It is idempotent and does not fail when the collection already exists with
// vectors of another size; such a collection rejects every write and query
// with ErrDimensionMismatch instead.
func (s *Store) GetOrCreateCollection(ctx context.Context, name string) (*Collection, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("collection name is required")
	}

	raw, err := s.backend.OpenCollection(ctx, name, s.dims)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", name, err)
	}

	c := &Collection{raw: raw, embed: s.embed, logger: s.logger}
	c.dims.Store(int64(s.dims))

	if s.dims > 0 {
		if err := c.verify(ctx, s.dims); err != nil && !errors.Is(err, ErrDimensionMismatch) {
			return nil, err
		}
	}

	return c, nil
}

// Health checks if the backend is available.
func (s *Store) Health(ctx context.Context) error {
	return s.backend.Health(ctx)
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// incompatible marks a collection whose stored vectors differ from the embedder.
const incompatible = -1

// Collection is a handle to one named collection. It is safe for concurrent
// use by all request handlers; the backend serializes individual writes.
type Collection struct {
	raw    RawCollection
	embed  EmbedFunc
	logger *slog.Logger

	// 0 until the first vector is seen, incompatible after a failed check
	dims atomic.Int64
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.raw.Name()
}

// Upsert inserts or overwrites documents by ID in order. Documents without an
// embedding are embedded from their content. Writing stops at the first failure,
// leaving earlier documents persisted.
func (c *Collection) Upsert(ctx context.Context, docs ...Document) error {
	for _, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("%w: missing id", ErrInvalidDocument)
		}
		if len(doc.Embedding) == 0 {
			if doc.Content == "" {
				return fmt.Errorf("%w: %s has neither content nor embedding", ErrInvalidDocument, doc.ID)
			}
			vec, err := c.embedText(ctx, doc.Content)
			if err != nil {
				return err
			}
			doc.Embedding = vec
		}
		if err := c.check(ctx, doc.Embedding); err != nil {
			return fmt.Errorf("document %s: %w", doc.ID, err)
		}
		if err := c.raw.Upsert(ctx, []Document{doc}); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", doc.ID, err)
		}
	}
	return nil
}

// Query returns up to k documents nearest to vector.
func (c *Collection) Query(ctx context.Context, vector []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if err := c.check(ctx, vector); err != nil {
		return nil, err
	}
	results, err := c.raw.Query(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.raw.Name(), err)
	}
	return results, nil
}

// QueryText embeds text with the collection's embedding function and queries by it.
func (c *Collection) QueryText(ctx context.Context, text string, k int) ([]SearchResult, error) {
	vec, err := c.embedText(ctx, text)
	if err != nil {
		return nil, err
	}
	return c.Query(ctx, vec, k)
}

// Count returns the number of stored documents.
func (c *Collection) Count(ctx context.Context) (int, error) {
	return c.raw.Count(ctx)
}

// Dimensions returns the enforced vector size, zero while still unknown.
func (c *Collection) Dimensions() int {
	d := c.dims.Load()
	if d < 0 {
		return 0
	}
	return int(d)
}

func (c *Collection) embedText(ctx context.Context, text string) ([]float32, error) {
	if c.embed == nil {
		return nil, fmt.Errorf("collection %s has no embedding function", c.raw.Name())
	}
	vec, err := c.embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	return vec, nil
}

// check enforces a single dimensionality per collection. When nothing was
// configured, the first vector fixes it once the stored vectors agree.
func (c *Collection) check(ctx context.Context, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	got := int64(len(vec))
	for {
		want := c.dims.Load()
		switch {
		case want == incompatible:
			return fmt.Errorf("%w: collection %s holds vectors from another embedding model",
				ErrDimensionMismatch, c.raw.Name())
		case want == 0:
			if err := c.verify(ctx, int(got)); err != nil {
				return err
			}
			if c.dims.CompareAndSwap(0, got) {
				return nil
			}
		case want != got:
			return fmt.Errorf("%w: collection %s expects %d, got %d",
				ErrDimensionMismatch, c.raw.Name(), want, got)
		default:
			return nil
		}
	}
}

// verify compares dims with the vectors already stored in the backend and
// marks the handle incompatible on a mismatch.
func (c *Collection) verify(ctx context.Context, dims int) error {
	err := c.raw.VerifyDimensions(ctx, dims)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrDimensionMismatch):
		c.logger.Warn("collection holds vectors of another size, writes and queries will be rejected",
			"collection", c.raw.Name(),
			"dimensions", dims,
			"error", err)
		c.dims.Store(incompatible)
		return err
	default:
		return fmt.Errorf("failed to inspect collection %s: %w", c.raw.Name(), err)
	}
}
