package vectordb

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keywordEmbed maps the three known words to unit vectors and anything else to a fixed mix.
func keywordEmbed(_ context.Context, text string) ([]float32, error) {
	switch text {
	case "":
		return nil, errors.New("empty text")
	case "apple":
		return []float32{1, 0, 0}, nil
	case "banana":
		return []float32{0, 1, 0}, nil
	case "cherry":
		return []float32{0, 0, 1}, nil
	default:
		return []float32{0.6, 0.8, 0}, nil
	}
}

func newChromemStore(t *testing.T, path string, dims int) *Store {
	t.Helper()
	backend, err := NewChromemStore(Config{Path: path})
	require.NoError(t, err)
	return NewStore(backend, keywordEmbed, dims, nil)
}

func openCollection(t *testing.T, s *Store, name string) *Collection {
	t.Helper()
	c, err := s.GetOrCreateCollection(context.Background(), name)
	require.NoError(t, err)
	return c
}

func TestCollection_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	c := openCollection(t, newChromemStore(t, t.TempDir(), 3), "news")

	require.NoError(t, c.Upsert(ctx,
		Document{ID: "AAPL-0", Content: "apple"},
		Document{ID: "AAPL-1", Content: "banana"},
	))
	require.NoError(t, c.Upsert(ctx, Document{ID: "AAPL-0", Content: "cherry"}))

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	results, err := c.QueryText(ctx, "cherry", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "AAPL-0", results[0].ID)
	assert.Equal(t, "cherry", results[0].Content)
	assert.InDelta(t, 0, results[0].Distance(), 1e-5)
}

func TestCollection_QueryEmpty(t *testing.T) {
	c := openCollection(t, newChromemStore(t, t.TempDir(), 3), "news")

	results, err := c.QueryText(context.Background(), "apple", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCollection_QueryCapsAtCount(t *testing.T) {
	ctx := context.Background()
	c := openCollection(t, newChromemStore(t, t.TempDir(), 3), "news")

	require.NoError(t, c.Upsert(ctx,
		Document{ID: "a", Content: "apple"},
		Document{ID: "b", Content: "banana"},
	))

	results, err := c.Query(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.GreaterOrEqual(t, results[0].Similarity, results[1].Similarity)

	_, err = c.Query(ctx, []float32{1, 0, 0}, 0)
	assert.Error(t, err)
}

func TestCollection_PrecomputedEmbedding(t *testing.T) {
	ctx := context.Background()
	c := openCollection(t, newChromemStore(t, t.TempDir(), 0), "news")

	require.NoError(t, c.Upsert(ctx, Document{ID: "x", Content: "anything", Embedding: []float32{0, 1, 0}}))
	assert.Equal(t, 3, c.Dimensions())

	results, err := c.QueryText(ctx, "banana", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "x", results[0].ID)
}

func TestCollection_InvalidDocument(t *testing.T) {
	ctx := context.Background()
	c := openCollection(t, newChromemStore(t, t.TempDir(), 3), "news")

	assert.ErrorIs(t, c.Upsert(ctx, Document{Content: "apple"}), ErrInvalidDocument)
	assert.ErrorIs(t, c.Upsert(ctx, Document{ID: "a"}), ErrInvalidDocument)
}

func TestCollection_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	c := openCollection(t, newChromemStore(t, t.TempDir(), 0), "news")

	require.NoError(t, c.Upsert(ctx, Document{ID: "a", Content: "apple"}))

	err := c.Upsert(ctx, Document{ID: "b", Content: "b", Embedding: []float32{1, 0}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = c.Query(ctx, []float32{1, 0, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCollection_PartialWriteStopsAtFailure(t *testing.T) {
	ctx := context.Background()
	c := openCollection(t, newChromemStore(t, t.TempDir(), 3), "news")

	err := c.Upsert(ctx,
		Document{ID: "0", Content: "apple"},
		Document{ID: "1", Content: "x", Embedding: []float32{1}},
		Document{ID: "2", Content: "banana"},
	)
	require.ErrorIs(t, err, ErrDimensionMismatch)

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	c := openCollection(t, newChromemStore(t, dir, 3), "news")
	require.NoError(t, c.Upsert(ctx, Document{ID: "TSLA-0", Content: "banana"}))

	reopened := openCollection(t, newChromemStore(t, dir, 3), "news")
	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	results, err := reopened.QueryText(ctx, "banana", 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "TSLA-0", results[0].ID)
}

func TestStore_ReopenWithOtherDimensions(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	c := openCollection(t, newChromemStore(t, dir, 3), "news")
	require.NoError(t, c.Upsert(ctx, Document{ID: "a", Content: "apple"}))

	// Opening never fails; the handle rejects use instead.
	other := openCollection(t, newChromemStore(t, dir, 5), "news")
	assert.Equal(t, 0, other.Dimensions())

	_, err := other.Query(ctx, make([]float32, 5), 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	err = other.Upsert(ctx, Document{ID: "b", Content: "b", Embedding: make([]float32, 5)})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestStore_ReopenWithUnknownDimensions(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	c := openCollection(t, newChromemStore(t, dir, 0), "news")
	require.NoError(t, c.Upsert(ctx, Document{ID: "a", Content: "apple"}))

	// The stored vectors fix the size even though none is configured.
	other := openCollection(t, newChromemStore(t, dir, 0), "news")
	err := other.Upsert(ctx, Document{ID: "b", Content: "b", Embedding: make([]float32, 5)})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = other.Query(ctx, []float32{0, 0, 0, 0, 1}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	n, err := other.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	same := openCollection(t, newChromemStore(t, dir, 0), "news")
	require.NoError(t, same.Upsert(ctx, Document{ID: "b", Content: "banana"}))
	assert.Equal(t, 3, same.Dimensions())

	results, err := same.QueryText(ctx, "apple", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
}

func TestChromemCollection_VerifyDimensions(t *testing.T) {
	ctx := context.Background()
	backend, err := NewChromemStore(Config{Path: t.TempDir()})
	require.NoError(t, err)

	raw, err := backend.OpenCollection(ctx, "news", 0)
	require.NoError(t, err)
	assert.NoError(t, raw.VerifyDimensions(ctx, 3))

	require.NoError(t, raw.Upsert(ctx, []Document{
		{ID: "a", Content: "apple", Embedding: []float32{1, 0, 0}, Metadata: map[string]string{"ticker": "AAPL"}},
	}))
	assert.NoError(t, raw.VerifyDimensions(ctx, 3))
	assert.ErrorIs(t, raw.VerifyDimensions(ctx, 4), ErrDimensionMismatch)

	results, err := raw.Query(ctx, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, map[string]string{"ticker": "AAPL"}, results[0].Metadata)
}

func TestStore_GetOrCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newChromemStore(t, t.TempDir(), 3)

	first := openCollection(t, s, "news")
	require.NoError(t, first.Upsert(ctx, Document{ID: "a", Content: "apple"}))

	second := openCollection(t, s, "news")
	n, err := second.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "news", second.Name())

	_, err = s.GetOrCreateCollection(ctx, " ")
	assert.Error(t, err)
}

func TestStore_Health(t *testing.T) {
	s := newChromemStore(t, t.TempDir(), 3)
	assert.NoError(t, s.Health(context.Background()))
	assert.NoError(t, s.Close())
}

func TestNewChromemStore_RequiresPath(t *testing.T) {
	_, err := NewChromemStore(Config{})
	assert.Error(t, err)
}

func TestPointID(t *testing.T) {
	a := PointID("AAPL-0")
	assert.Equal(t, a, PointID("AAPL-0"))
	assert.NotEqual(t, a, PointID("AAPL-1"))

	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestPayloadRoundTrip(t *testing.T) {
	doc := Document{ID: "AAPL-0", Content: "Apple beats", Metadata: map[string]string{"ticker": "AAPL"}}
	payload := toPayload(doc)
	assert.Equal(t, "AAPL-0", payload[payloadDocID])
	assert.Equal(t, "Apple beats", payload[payloadContent])
	assert.Equal(t, "AAPL", payload["ticker"])
}

func TestCollection_EmbeddingFailure(t *testing.T) {
	ctx := context.Background()
	c := openCollection(t, newChromemStore(t, t.TempDir(), 3), "news")

	_, err := c.QueryText(ctx, "", 1)
	assert.ErrorIs(t, err, ErrEmbedding)
}
