// Package app wires the configured providers into a news service. Both
// commands start through Open.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iasik/news-rag/internal/config"
	"github.com/iasik/news-rag/internal/embedder"
	"github.com/iasik/news-rag/internal/generator"
	"github.com/iasik/news-rag/internal/news"
	"github.com/iasik/news-rag/internal/vectordb"
)

// Startup health wait
const (
	healthAttempts = 30
	healthInterval = time.Second
)

// App holds the long-lived collaborators of one process.
type App struct {
	Embedder   embedder.Provider
	Store      *vectordb.Store
	Collection *vectordb.Collection

	// nil when generation is disabled
	Generator generator.Provider

	News *news.Service
}

// Open creates the embedder, vector store and generator, waits for the
// first two to become healthy and opens the collection once.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{}

	emb, err := embedder.NewProvider(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	a.Embedder = emb

	logger.Info("waiting for embedder...", "endpoint", cfg.Embedding.Endpoint)
	if err := WaitHealthy(ctx, emb.Health, healthAttempts, healthInterval); err != nil {
		a.Close()
		return nil, fmt.Errorf("embedder health check failed after retries: %w", err)
	}
	info := emb.ModelInfo()
	logger.Info("embedder connected",
		"provider", info.Provider,
		"model", info.Model,
		"dimensions", info.Dimensions)

	store, err := vectordb.NewProvider(cfg.VectorDB, emb.Embed, info.Dimensions, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create vectordb: %w", err)
	}
	a.Store = store

	logger.Info("waiting for vectordb...", "provider", cfg.VectorDB.Provider)
	if err := WaitHealthy(ctx, store.Health, healthAttempts, healthInterval); err != nil {
		a.Close()
		return nil, fmt.Errorf("vectordb health check failed after retries: %w", err)
	}

	coll, err := store.GetOrCreateCollection(ctx, cfg.VectorDB.CollectionName)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Collection = coll
	logger.Info("vectordb connected",
		"provider", cfg.VectorDB.Provider,
		"collection", coll.Name())

	gen, err := generator.NewProvider(cfg.Generation)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}
	if gen != nil {
		a.Generator = gen
		if err := gen.Health(ctx); err != nil {
			logger.Warn("generator health check failed", "error", err)
		}
		logger.Info("generation enabled", "model", gen.Model())
	}

	a.News = news.NewService(emb, coll, a.Generator, news.Options{
		TopK:   cfg.Retrieval.TopK,
		Logger: logger,
	})
	return a, nil
}

// Close releases every provider that was opened.
func (a *App) Close() error {
	var errs []error
	if a.Generator != nil {
		errs = append(errs, a.Generator.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.Embedder != nil {
		errs = append(errs, a.Embedder.Close())
	}
	return errors.Join(errs...)
}

// WaitHealthy calls check until it succeeds, up to attempts times with
// interval between calls. It returns the last error, or the context's.
func WaitHealthy(ctx context.Context, check func(context.Context) error, attempts int, interval time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = check(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return err
}
