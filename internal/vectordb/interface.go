// Package vectordb provides a pluggable interface for vector database providers.
// It abstracts different vector stores (chromem, Qdrant) behind a common interface
// and guarantees that every vector in a collection has the same dimensionality.
package vectordb

import (
	"context"
	"errors"
)

var (
	// ErrDimensionMismatch is returned when a vector's length differs from the
	// dimensionality of the collection it is written to or queried against.
	ErrDimensionMismatch = errors.New("vectordb: embedding dimension mismatch")

	// ErrInvalidDocument is returned for documents without an ID or any content.
	ErrInvalidDocument = errors.New("vectordb: invalid document")

	// ErrEmbedding wraps failures of the collection's embedding function.
	ErrEmbedding = errors.New("vectordb: embedding failed")
)

// EmbedFunc computes the embedding for a text. Collections use it for
// documents added without a precomputed embedding and for text queries.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)

// Backend is implemented by each vector database.
type Backend interface {
	// OpenCollection returns a handle to the named collection, creating it if
	// absent. dims may be zero when the embedding size is not known yet.
	OpenCollection(ctx context.Context, name string, dims int) (RawCollection, error)

	// Health checks if the backend is available.
	Health(ctx context.Context) error

	// Close releases any resources held by the backend.
	Close() error
}

// RawCollection is a backend collection. It only deals in precomputed vectors.
type RawCollection interface {
	Name() string

	// Upsert inserts or overwrites documents by ID, in order.
	// Every document carries its embedding.
	Upsert(ctx context.Context, docs []Document) error

	// Query returns up to k documents nearest to vector, nearest first.
	// Fewer than k documents, including none, is not an error.
	Query(ctx context.Context, vector []float32, k int) ([]SearchResult, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// VerifyDimensions returns ErrDimensionMismatch when the collection
	// already holds vectors of a different size.
	VerifyDimensions(ctx context.Context, dims int) error
}

// Document is a stored (id, text, embedding) triple.
type Document struct {
	// Unique identifier within the collection
	ID string

	// Raw text
	Content string

	// The embedding vector; computed by the collection when empty
	Embedding []float32

	// Optional string metadata
	Metadata map[string]string
}

// SearchResult represents a single search result.
type SearchResult struct {
	ID      string
	Content string

	// Cosine similarity, higher is nearer
	Similarity float32

	Metadata map[string]string
}

// Distance returns the cosine distance, lower is nearer.
func (r SearchResult) Distance() float32 {
	return 1 - r.Similarity
}

// Config holds common configuration for vector database providers.
type Config struct {
	// Provider name
	Provider string

	// Persistence directory (chromem)
	Path     string
	Compress bool

	// Qdrant connection
	Host   string
	Port   int
	APIKey string
	UseTLS bool

	// Request timeout in seconds
	TimeoutSeconds int
}
