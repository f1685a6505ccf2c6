// News API - HTTP server for storing, retrieving and summarizing news
//
// Endpoints:
//
//	POST /store_news      - Embed and store a ticker's news
//	POST /retrieve_news   - Nearest stored news for a question
//	POST /generate_answer - Answer a question from retrieved news
//	POST /summarize_news  - Summarize raw text about a ticker
//	POST /add             - Add a single document
//	GET  /query           - Raw nearest-neighbour query
//	GET  /health          - Health check
//	GET  /metrics         - Prometheus metrics
//
// Hot reload:
//
//	Send SIGHUP to reload configuration without restart.
//	Log level and retrieval size are applied live.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iasik/news-rag/internal/api"
	"github.com/iasik/news-rag/internal/app"
	"github.com/iasik/news-rag/internal/config"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load configuration
	cfgManager, err := config.LoadFromEnv()
	if err != nil {
		bootLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := cfgManager.Get()

	// Setup logger
	var level slog.LevelVar
	logger := config.NewLogger(os.Stdout, cfg.Logging, &level)
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		"path", cfgManager.Path(),
		"port", cfg.Server.Port,
		"embedding_provider", cfg.Embedding.Provider,
		"vectordb_provider", cfg.VectorDB.Provider,
		"generation", cfg.Generation.Enabled)

	// Create context with cancellation
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	cfgManager.OnChange(func(c *config.Config) {
		level.Set(config.ParseLevel(c.Logging.Level))
		a.News.SetTopK(c.Retrieval.TopK)
	})

	// Create and start server
	server := api.NewServer(cfgManager, api.Dependencies{
		News:      a.News,
		Embedder:  a.Embedder,
		VectorDB:  a.Store,
		Generator: a.Generator,
	}, logger)

	if err := server.Start(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
