// News Loader - batch loads news into the vector store
//
// Usage:
//
//	news-loader -file news.json          # Store new or changed tickers
//	news-loader -file news.json -force   # Store everything again
//
// The file is a JSON array of store_news request bodies.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iasik/news-rag/internal/app"
	"github.com/iasik/news-rag/internal/config"
	"github.com/iasik/news-rag/internal/loader"
)

func main() {
	// Parse command line flags
	file := flag.String("file", "", "JSON file with an array of store requests")
	force := flag.Bool("force", false, "Store every ticker even if unchanged")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Error: -file is required")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  news-loader -file news.json          # Store new or changed tickers")
		fmt.Fprintln(os.Stderr, "  news-loader -file news.json -force   # Store everything again")
		os.Exit(1)
	}

	_ = godotenv.Load()

	// Load configuration
	cfgManager, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := cfgManager.Get()

	var level slog.LevelVar
	logger := config.NewLogger(os.Stderr, cfg.Logging, &level)

	reqs, err := loader.ReadFile(*file)
	if err != nil {
		logger.Error("failed to read news file", "error", err)
		os.Exit(1)
	}

	// Create context with cancellation
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	cache, err := loader.NewCache(cfg.Loader.CacheDir, cfg.VectorDB.CollectionName)
	if err != nil {
		logger.Error("failed to open loader cache", "error", err)
		os.Exit(1)
	}

	result := loader.New(a.News, cache, logger).Load(ctx, reqs, loader.Options{Force: *force})

	if err := cache.Save(cfg.VectorDB.CollectionName); err != nil {
		logger.Error("failed to save loader cache", "error", err)
	}

	// Print summary
	fmt.Println("\n=== Load Complete ===")
	fmt.Printf("File: %s\n", *file)
	fmt.Printf("Tickers stored: %d\n", result.Stored)
	fmt.Printf("Tickers skipped: %d\n", result.Skipped)
	fmt.Printf("Tickers failed: %d\n", result.Failed)
	fmt.Printf("Duration: %s\n", result.Duration)

	if len(result.Errors) > 0 {
		fmt.Printf("Errors: %d\n", len(result.Errors))
		for _, err := range result.Errors {
			fmt.Printf("  - %v\n", err)
		}
		a.Close()
		os.Exit(1)
	}
}
