package news

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iasik/news-rag/internal/embedder"
	"github.com/iasik/news-rag/internal/vectordb"
)

type countingGenerator struct {
	mu     sync.Mutex
	calls  int
	system string
	user   string
	reply  string
	err    error
}

func (g *countingGenerator) Complete(_ context.Context, systemPrompt, userPrompt, _ string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.system = systemPrompt
	g.user = userPrompt
	return g.reply, g.err
}

func (g *countingGenerator) Model() string                { return "fake" }
func (g *countingGenerator) Health(context.Context) error { return nil }
func (g *countingGenerator) Close() error                 { return nil }

func (g *countingGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fixture struct {
	svc   *Service
	coll  *vectordb.Collection
	gen   *countingGenerator
	embed *embedder.HashingEmbedder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	emb, err := embedder.NewHashingEmbedder(embedder.Config{Dimensions: 256})
	require.NoError(t, err)

	backend, err := vectordb.NewChromemStore(vectordb.Config{Path: t.TempDir()})
	require.NoError(t, err)
	store := vectordb.NewStore(backend, emb.Embed, emb.ModelInfo().Dimensions, nil)

	coll, err := store.GetOrCreateCollection(context.Background(), "news_articles")
	require.NoError(t, err)

	gen := &countingGenerator{reply: "generated"}
	return &fixture{
		svc:   NewService(emb, coll, gen, Options{}),
		coll:  coll,
		gen:   gen,
		embed: emb,
	}
}

func ptr(s string) *string { return &s }

func appleRequest() StoreRequest {
	return StoreRequest{
		Ticker:      "AAPL",
		NewsSummary: "Apple beats earnings",
		Articles:    []Article{{Description: ptr("iPhone sales up 10%")}},
	}
}

func TestStoreNews_StoresSummaryAndArticles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.svc.StoreNews(ctx, appleRequest())
	require.NoError(t, err)
	assert.Equal(t, "Stored 2 documents for AAPL", msg)

	n, err := f.coll.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err := f.svc.QueryDocuments(ctx, "Apple beats earnings")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"AAPL-0", "AAPL-1"}, res.IDs)

	docs, err := f.svc.RetrieveNews(ctx, "Apple earnings")
	require.NoError(t, err)
	require.NotEmpty(t, docs)
	assert.Equal(t, "Apple beats earnings", docs[0])
}

func TestStoreNews_RepeatOverwrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.StoreNews(ctx, appleRequest())
	require.NoError(t, err)

	again := appleRequest()
	again.NewsSummary = "Apple misses earnings"
	_, err = f.svc.StoreNews(ctx, again)
	require.NoError(t, err)

	n, err := f.coll.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err := f.svc.QueryDocuments(ctx, "Apple misses earnings")
	require.NoError(t, err)
	require.NotEmpty(t, res.IDs)
	assert.Equal(t, "AAPL-0", res.IDs[0])
	assert.Equal(t, "Apple misses earnings", res.Documents[0])
	assert.InDelta(t, 0, res.Distances[0], 1e-4)
}

func TestStoreNews_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  StoreRequest
	}{
		{"missing ticker", StoreRequest{NewsSummary: "x"}},
		{"missing summary", StoreRequest{Ticker: "AAPL"}},
		{"article without description", StoreRequest{Ticker: "AAPL", NewsSummary: "x", Articles: []Article{{}}}},
		{"empty description", StoreRequest{Ticker: "AAPL", NewsSummary: "x", Articles: []Article{{Description: ptr(" ")}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.StoreNews(ctx, tt.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	n, err := f.coll.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRetrieveNews_EmptyCollection(t *testing.T) {
	f := newFixture(t)

	docs, err := f.svc.RetrieveNews(context.Background(), "anything at all")
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestRetrieveNews_CappedAtTopK(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := StoreRequest{Ticker: "TSLA", NewsSummary: "Tesla deliveries rise"}
	for i := range 5 {
		req.Articles = append(req.Articles, Article{Description: ptr(fmt.Sprintf("Tesla article number %d", i))})
	}
	_, err := f.svc.StoreNews(ctx, req)
	require.NoError(t, err)

	docs, err := f.svc.RetrieveNews(ctx, "Tesla")
	require.NoError(t, err)
	assert.Len(t, docs, DefaultTopK)

	f.svc.SetTopK(5)
	docs, err = f.svc.RetrieveNews(ctx, "Tesla")
	require.NoError(t, err)
	assert.Len(t, docs, 5)
}

func TestRetrieveNews_SelfSimilarity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := StoreRequest{
		Ticker:      "MSFT",
		NewsSummary: "Microsoft expands cloud capacity in Europe",
		Articles: []Article{
			{Description: ptr("Azure revenue grows faster than expected")},
			{Description: ptr("Activision deal closes after regulatory review")},
		},
	}
	_, err := f.svc.StoreNews(ctx, req)
	require.NoError(t, err)

	for _, text := range []string{req.NewsSummary, *req.Articles[0].Description, *req.Articles[1].Description} {
		docs, err := f.svc.RetrieveNews(ctx, text)
		require.NoError(t, err)
		require.NotEmpty(t, docs)
		assert.Equal(t, text, docs[0])
	}
}

func TestRetrieveNews_BlankQuestion(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.RetrieveNews(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGenerateAnswer_NoDocumentsSkipsGenerator(t *testing.T) {
	f := newFixture(t)

	answer, err := f.svc.GenerateAnswer(context.Background(), "What did Apple report?")
	require.NoError(t, err)
	assert.Equal(t, NoResultsMessage, answer)
	assert.Zero(t, f.gen.Calls())
}

func TestGenerateAnswer_UsesRetrievedDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.StoreNews(ctx, appleRequest())
	require.NoError(t, err)

	answer, err := f.svc.GenerateAnswer(ctx, "Apple earnings")
	require.NoError(t, err)
	assert.Equal(t, "generated", answer)
	assert.Equal(t, 1, f.gen.Calls())

	assert.Equal(t, answerSystemPrompt, f.gen.system)
	assert.True(t, strings.HasPrefix(f.gen.user, "News articles:\n1. Apple beats earnings\n"))
	assert.True(t, strings.HasSuffix(f.gen.user, "\nQuestion: Apple earnings"))
}

func TestGenerateAnswer_ProviderError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.StoreNews(ctx, appleRequest())
	require.NoError(t, err)

	f.gen.err = errors.New("rate limited")
	_, err = f.svc.GenerateAnswer(ctx, "Apple earnings")
	require.ErrorIs(t, err, ErrProvider)
	assert.Contains(t, err.Error(), "rate limited")

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "generate_answer", e.Op)
}

func TestGenerateAnswer_Disabled(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.embed, f.coll, nil, Options{})

	_, err := svc.GenerateAnswer(context.Background(), "Apple earnings")
	assert.ErrorIs(t, err, ErrGenerationDisabled)
	assert.False(t, svc.GenerationEnabled())
}

func TestSummarizeNews(t *testing.T) {
	tests := []struct {
		variant string
		expect  string
	}{
		{"concise", "2-3 sentences"},
		{"detailed", "Key Takeaways"},
		{"comprehensive", "Market Impact"},
	}

	for _, tt := range tests {
		t.Run(tt.variant, func(t *testing.T) {
			f := newFixture(t)

			summary, err := f.svc.SummarizeNews(context.Background(), SummarizeRequest{
				Text:        "Apple beat estimates. Unrelated: weather was sunny.",
				Ticker:      "AAPL",
				SummaryType: tt.variant,
			})
			require.NoError(t, err)
			assert.Equal(t, "generated", summary)
			assert.Equal(t, 1, f.gen.Calls())

			assert.Contains(t, f.gen.system, tt.expect)
			assert.Contains(t, f.gen.system, "not related to AAPL")
			assert.Equal(t, "Apple beat estimates. Unrelated: weather was sunny.", f.gen.user)
		})
	}
}

func TestSummarizeNews_InvalidVariant(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.SummarizeNews(context.Background(), SummarizeRequest{
		Text:        "Apple beat estimates.",
		Ticker:      "AAPL",
		SummaryType: "invalid",
	})
	require.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrProvider)
	assert.Zero(t, f.gen.Calls())

	// validated even when generation is off
	svc := NewService(f.embed, f.coll, nil, Options{})
	_, err = svc.SummarizeNews(context.Background(), SummarizeRequest{Text: "x", Ticker: "AAPL", SummaryType: "invalid"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAddAndQueryDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg, err := f.svc.AddDocument(ctx, "doc1", "Nvidia unveils new GPU")
	require.NoError(t, err)
	assert.Equal(t, "Added document doc1", msg)

	res, err := f.svc.QueryDocuments(ctx, "Nvidia unveils new GPU")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc1"}, res.IDs)
	assert.Equal(t, []string{"Nvidia unveils new GPU"}, res.Documents)
	require.Len(t, res.Distances, 1)
	assert.InDelta(t, 0, res.Distances[0], 1e-4)

	_, err = f.svc.AddDocument(ctx, "", "text")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.svc.QueryDocuments(ctx, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestQueryDocuments_Empty(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.QueryDocuments(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, res.IDs)
	assert.NotNil(t, res.Documents)
}

func TestStoreNews_DimensionMismatchIsStorageError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other, err := embedder.NewHashingEmbedder(embedder.Config{Dimensions: 64})
	require.NoError(t, err)
	svc := NewService(other, f.coll, nil, Options{})

	_, err = svc.StoreNews(ctx, appleRequest())
	require.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, vectordb.ErrDimensionMismatch)
}

func TestParseVariant(t *testing.T) {
	for _, v := range Variants() {
		got, err := ParseVariant(string(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}

	_, err := ParseVariant("Concise")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supported: concise, detailed, comprehensive")
}
