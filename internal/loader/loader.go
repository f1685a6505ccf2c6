package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/iasik/news-rag/internal/news"
)

// Storer stores one ticker's news. *news.Service satisfies it.
type Storer interface {
	StoreNews(ctx context.Context, req news.StoreRequest) (string, error)
}

// Loader feeds store requests to a Storer, skipping unchanged tickers.
type Loader struct {
	storer Storer
	cache  *Cache
	logger *slog.Logger
}

// Options configures a load run.
type Options struct {
	// Store every request even if its hash is cached
	Force bool
}

// Result summarizes a load run.
type Result struct {
	Stored   int
	Skipped  int
	Failed   int
	Errors   []error
	Duration time.Duration
}

// New creates a Loader.
func New(storer Storer, cache *Cache, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{storer: storer, cache: cache, logger: logger}
}

// ReadFile parses a JSON array of store requests.
func ReadFile(path string) ([]news.StoreRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var reqs []news.StoreRequest
	if err := json.Unmarshal(data, &reqs); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return reqs, nil
}

// Load stores each request in order. A failed request is recorded and the
// run continues; its cache entry is left untouched so the next run retries it.
func (l *Loader) Load(ctx context.Context, reqs []news.StoreRequest, opts Options) Result {
	start := time.Now()
	var res Result

	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			res.Failed += len(reqs) - i
			res.Errors = append(res.Errors, err)
			break
		}

		hash, err := HashRequest(req)
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Errorf("request %d: %w", i, err))
			continue
		}

		if !opts.Force && !l.cache.HasChanged(req.Ticker, hash) {
			l.logger.Debug("unchanged, skipping", "ticker", req.Ticker)
			res.Skipped++
			continue
		}

		if _, err := l.storer.StoreNews(ctx, req); err != nil {
			l.logger.Error("store failed", "ticker", req.Ticker, "error", err)
			res.Failed++
			res.Errors = append(res.Errors, fmt.Errorf("%s: %w", req.Ticker, err))
			continue
		}

		ids := make([]string, 0, len(req.Articles)+1)
		for j := 0; j <= len(req.Articles); j++ {
			ids = append(ids, news.DocumentID(req.Ticker, j))
		}
		if prev, ok := l.cache.Get(req.Ticker); ok && len(prev.DocumentIDs) > len(ids) {
			l.logger.Warn("ticker has fewer articles than before, older documents remain",
				"ticker", req.Ticker,
				"stale", prev.DocumentIDs[len(ids):])
		}

		l.cache.Set(req.Ticker, CacheEntry{
			ContentHash: hash,
			LoadedAt:    time.Now().UTC(),
			DocumentIDs: ids,
		})
		res.Stored++
	}

	res.Duration = time.Since(start)
	return res
}
