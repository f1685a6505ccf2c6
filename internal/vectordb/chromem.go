package vectordb

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemStore implements Backend with chromem-go, an embedded vector
// database persisted to a local directory. Every write is flushed to disk
// before it returns.
type ChromemStore struct {
	db   *chromem.DB
	path string
}

// errNoEmbeddingFunc guards chromem's fallback to its default OpenAI
// embedding function; Collection always supplies vectors.
var errNoEmbeddingFunc = errors.New("chromem: documents must carry embeddings")

func noEmbeddingFunc(context.Context, string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

// NewChromemStore opens (or creates) a persistent database at cfg.Path.
func NewChromemStore(cfg Config) (*ChromemStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("chromem path is required")
	}

	path, err := expandPath(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand path: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", path, err)
	}

	db, err := chromem.NewPersistentDB(path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("failed to open chromem DB: %w", err)
	}

	return &ChromemStore{db: db, path: path}, nil
}

// expandPath expands a leading ~ to the home directory.
func expandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, path[1:]), nil
}

// OpenCollection gets or creates the named collection.
func (s *ChromemStore) OpenCollection(ctx context.Context, name string, dims int) (RawCollection, error) {
	var metadata map[string]string
	if dims > 0 {
		metadata = map[string]string{"dimensions": strconv.Itoa(dims)}
	}

	c, err := s.db.GetOrCreateCollection(name, metadata, noEmbeddingFunc)
	if err != nil {
		return nil, err
	}
	return &chromemCollection{c: c}, nil
}

// Health checks that the persistence directory is still there.
func (s *ChromemStore) Health(ctx context.Context) error {
	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("chromem health check failed: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("chromem path %s is not a directory", s.path)
	}
	return nil
}

// Close is a no-op: chromem persists on every write.
func (s *ChromemStore) Close() error {
	return nil
}

type chromemCollection struct {
	c *chromem.Collection
}

func (c *chromemCollection) Name() string {
	return c.c.Name
}

// dimensionsKey is stamped into every stored document's metadata so that
// VerifyDimensions can select documents by vector size.
const dimensionsKey = "_dimensions"

func (c *chromemCollection) Upsert(ctx context.Context, docs []Document) error {
	for _, doc := range docs {
		metadata := make(map[string]string, len(doc.Metadata)+1)
		maps.Copy(metadata, doc.Metadata)
		metadata[dimensionsKey] = strconv.Itoa(len(doc.Embedding))

		err := c.c.AddDocument(ctx, chromem.Document{
			ID:        doc.ID,
			Content:   doc.Content,
			Embedding: doc.Embedding,
			Metadata:  metadata,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *chromemCollection) Query(ctx context.Context, vector []float32, k int) ([]SearchResult, error) {
	// chromem requires nResults <= document count
	count := c.c.Count()
	if count == 0 {
		return []SearchResult{}, nil
	}
	if k > count {
		k = count
	}

	res, err := c.c.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, len(res))
	for i, r := range res {
		results[i] = SearchResult{
			ID:         r.ID,
			Content:    r.Content,
			Similarity: r.Similarity,
			Metadata:   userMetadata(r.Metadata),
		}
	}
	return results, nil
}

// userMetadata drops the keys the collection adds on write.
func userMetadata(m map[string]string) map[string]string {
	if _, ok := m[dimensionsKey]; !ok {
		return m
	}
	out := maps.Clone(m)
	delete(out, dimensionsKey)
	if len(out) == 0 {
		return nil
	}
	return out
}

func (c *chromemCollection) Count(ctx context.Context) (int, error) {
	return c.c.Count(), nil
}

// VerifyDimensions reads back every stored document stamped with dims and
// checks their embeddings. Documents of any other size are filtered out
// before chromem compares vectors, so they show up as missing results.
func (c *chromemCollection) VerifyDimensions(ctx context.Context, dims int) error {
	n := c.c.Count()
	if n == 0 {
		return nil
	}

	query := make([]float32, dims)
	query[0] = 1
	where := map[string]string{dimensionsKey: strconv.Itoa(dims)}

	res, err := c.c.QueryEmbedding(ctx, query, n, where, nil)
	if err != nil {
		return fmt.Errorf("failed to read stored vectors: %w", err)
	}
	for _, r := range res {
		if len(r.Embedding) != dims {
			return fmt.Errorf("%w: document %s is %d-dimensional, want %d",
				ErrDimensionMismatch, r.ID, len(r.Embedding), dims)
		}
	}
	if len(res) < n {
		return fmt.Errorf("%w: %d of %d stored vectors are not %d-dimensional",
			ErrDimensionMismatch, n-len(res), n, dims)
	}
	return nil
}
