// Package news implements the store, retrieve, answer and summarize
// operations over one shared vector collection.
package news

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/iasik/news-rag/internal/embedder"
	"github.com/iasik/news-rag/internal/generator"
	"github.com/iasik/news-rag/internal/vectordb"
)

// NoResultsMessage is the answer given when retrieval finds nothing.
const NoResultsMessage = "No relevant news found for this query."

// DefaultTopK is the number of documents retrieved per question.
const DefaultTopK = 3

// DocumentStore is the collection the service reads and writes.
// *vectordb.Collection satisfies it.
type DocumentStore interface {
	Upsert(ctx context.Context, docs ...vectordb.Document) error
	Query(ctx context.Context, vector []float32, k int) ([]vectordb.SearchResult, error)
	QueryText(ctx context.Context, text string, k int) ([]vectordb.SearchResult, error)
}

// Article is one related item of a StoreRequest. Fields other than
// description are accepted and ignored.
type Article struct {
	Description *string `json:"description"`
}

// StoreRequest is the input of StoreNews.
type StoreRequest struct {
	Ticker      string    `json:"ticker"`
	NewsSummary string    `json:"newsSummary"`
	Articles    []Article `json:"articles"`
}

// SummarizeRequest is the input of SummarizeNews.
type SummarizeRequest struct {
	Text        string `json:"text"`
	Ticker      string `json:"ticker"`
	SummaryType string `json:"summaryType"`
}

// QueryResult is the raw result of QueryDocuments, nearest first.
type QueryResult struct {
	IDs       []string
	Documents []string
	Distances []float32
}

// Options configures a Service.
type Options struct {
	// Documents retrieved per question; DefaultTopK when zero
	TopK int

	Logger *slog.Logger
}

// Service orchestrates embedding, storage and generation. It holds no
// per-request state and is safe for concurrent use.
type Service struct {
	embedder  embedder.Provider
	store     DocumentStore
	generator generator.Provider
	topK      atomic.Int64
	logger    *slog.Logger
}

// NewService creates a Service. gen may be nil, in which case GenerateAnswer
// and SummarizeNews fail with ErrGenerationDisabled.
func NewService(emb embedder.Provider, store DocumentStore, gen generator.Provider, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Service{
		embedder:  emb,
		store:     store,
		generator: gen,
		logger:    logger,
	}
	s.SetTopK(opts.TopK)
	return s
}

// SetTopK changes the retrieval size. Non-positive values restore the default.
func (s *Service) SetTopK(k int) {
	if k <= 0 {
		k = DefaultTopK
	}
	s.topK.Store(int64(k))
}

// TopK returns the current retrieval size.
func (s *Service) TopK() int {
	return int(s.topK.Load())
}

// GenerationEnabled reports whether a generator is configured.
func (s *Service) GenerationEnabled() bool {
	return s.generator != nil
}

// StoreNews embeds the summary and every article description and upserts
// them as {ticker}-0 .. {ticker}-N. Storing the same ticker again overwrites
// the documents at the same positions. A failure partway leaves the earlier
// documents persisted.
func (s *Service) StoreNews(ctx context.Context, req StoreRequest) (string, error) {
	const op = "store_news"

	texts, err := req.texts()
	if err != nil {
		return "", &Error{Kind: ErrValidation, Op: op, Err: err}
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return "", providerError(op, err)
	}
	if len(vectors) != len(texts) {
		return "", providerError(op, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts)))
	}

	docs := make([]vectordb.Document, len(texts))
	for i, text := range texts {
		docs[i] = vectordb.Document{
			ID:        DocumentID(req.Ticker, i),
			Content:   text,
			Embedding: vectors[i],
			Metadata:  map[string]string{"ticker": req.Ticker},
		}
	}

	if err := s.store.Upsert(ctx, docs...); err != nil {
		return "", classifyStoreError(op, err)
	}

	s.logger.Info("stored news",
		"ticker", req.Ticker,
		"documents", len(docs))

	return fmt.Sprintf("Stored %d documents for %s", len(docs), req.Ticker), nil
}

// DocumentID returns the ID of the i-th text stored for ticker.
func DocumentID(ticker string, i int) string {
	return fmt.Sprintf("%s-%d", ticker, i)
}

func (r StoreRequest) texts() ([]string, error) {
	if strings.TrimSpace(r.Ticker) == "" {
		return nil, errors.New("ticker is required")
	}
	if strings.TrimSpace(r.NewsSummary) == "" {
		return nil, errors.New("newsSummary is required")
	}

	texts := make([]string, 0, len(r.Articles)+1)
	texts = append(texts, r.NewsSummary)
	for i, a := range r.Articles {
		if a.Description == nil {
			return nil, fmt.Errorf("articles[%d] is missing description", i)
		}
		if strings.TrimSpace(*a.Description) == "" {
			return nil, fmt.Errorf("articles[%d] has an empty description", i)
		}
		texts = append(texts, *a.Description)
	}
	return texts, nil
}

// RetrieveNews returns the texts of the stored documents nearest to the
// question. No match is an empty result, not an error.
func (s *Service) RetrieveNews(ctx context.Context, question string) ([]string, error) {
	const op = "retrieve_news"

	if strings.TrimSpace(question) == "" {
		return nil, validationError(op, "question is required")
	}
	return s.retrieve(ctx, op, question)
}

func (s *Service) retrieve(ctx context.Context, op, question string) ([]string, error) {
	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, providerError(op, err)
	}

	results, err := s.store.Query(ctx, vec, s.TopK())
	if err != nil {
		return nil, classifyStoreError(op, err)
	}

	documents := make([]string, len(results))
	for i, r := range results {
		documents[i] = r.Content
	}

	s.logger.Debug("retrieved news",
		"op", op,
		"results", len(documents))

	return documents, nil
}

// GenerateAnswer retrieves news for the question and asks the generator to
// answer from it. When nothing is retrieved it returns NoResultsMessage
// without calling the generator.
func (s *Service) GenerateAnswer(ctx context.Context, question string) (string, error) {
	const op = "generate_answer"

	if strings.TrimSpace(question) == "" {
		return "", validationError(op, "question is required")
	}
	if s.generator == nil {
		return "", &Error{Kind: ErrGenerationDisabled, Op: op}
	}

	documents, err := s.retrieve(ctx, op, question)
	if err != nil {
		return "", err
	}
	if len(documents) == 0 {
		return NoResultsMessage, nil
	}

	answer, err := s.generator.Complete(ctx, answerSystemPrompt, answerUserPrompt(documents, question), "")
	if err != nil {
		return "", providerError(op, err)
	}
	return answer, nil
}

// SummarizeNews summarizes raw text about a ticker in the requested variant.
// The variant is validated before any provider call.
func (s *Service) SummarizeNews(ctx context.Context, req SummarizeRequest) (string, error) {
	const op = "summarize_news"

	variant, err := ParseVariant(req.SummaryType)
	if err != nil {
		return "", &Error{Kind: ErrValidation, Op: op, Err: err}
	}
	if strings.TrimSpace(req.Text) == "" {
		return "", validationError(op, "text is required")
	}
	if strings.TrimSpace(req.Ticker) == "" {
		return "", validationError(op, "ticker is required")
	}
	if s.generator == nil {
		return "", &Error{Kind: ErrGenerationDisabled, Op: op}
	}

	summary, err := s.generator.Complete(ctx, summarySystemPrompt(req.Ticker, variant), req.Text, "")
	if err != nil {
		return "", providerError(op, err)
	}

	s.logger.Debug("summarized news",
		"ticker", req.Ticker,
		"variant", string(variant))

	return summary, nil
}

// AddDocument stores text under id, leaving the embedding to the collection.
func (s *Service) AddDocument(ctx context.Context, id, text string) (string, error) {
	const op = "add"

	if strings.TrimSpace(id) == "" {
		return "", validationError(op, "doc_id is required")
	}
	if strings.TrimSpace(text) == "" {
		return "", validationError(op, "text is required")
	}

	if err := s.store.Upsert(ctx, vectordb.Document{ID: id, Content: text}); err != nil {
		return "", classifyStoreError(op, err)
	}
	return fmt.Sprintf("Added document %s", id), nil
}

// QueryDocuments runs a raw text query and returns ids, texts and cosine
// distances of the nearest documents.
func (s *Service) QueryDocuments(ctx context.Context, text string) (QueryResult, error) {
	const op = "query"

	if strings.TrimSpace(text) == "" {
		return QueryResult{}, validationError(op, "query_text is required")
	}

	results, err := s.store.QueryText(ctx, text, s.TopK())
	if err != nil {
		return QueryResult{}, classifyStoreError(op, err)
	}

	out := QueryResult{
		IDs:       make([]string, len(results)),
		Documents: make([]string, len(results)),
		Distances: make([]float32, len(results)),
	}
	for i, r := range results {
		out.IDs[i] = r.ID
		out.Documents[i] = r.Content
		out.Distances[i] = r.Distance()
	}
	return out, nil
}

// classifyStoreError separates embedding failures inside the collection
// from storage failures.
func classifyStoreError(op string, err error) error {
	if errors.Is(err, vectordb.ErrEmbedding) {
		return providerError(op, err)
	}
	return storageError(op, err)
}
