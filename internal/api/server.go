// Package api provides the HTTP server for the news service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/iasik/news-rag/internal/config"
	"github.com/iasik/news-rag/internal/embedder"
	"github.com/iasik/news-rag/internal/generator"
	"github.com/iasik/news-rag/internal/news"
)

// HealthChecker is a dependency that can report its availability.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// VectorStore is the vector database as seen by the server.
type VectorStore interface {
	HealthChecker
	Close() error
}

// Server represents the HTTP API server.
type Server struct {
	cfg        *config.Manager
	news       *news.Service
	embedder   embedder.Provider
	vectorDB   VectorStore
	generator  generator.Provider
	logger     *slog.Logger
	metrics    *Metrics
	router     *chi.Mux
	httpServer *http.Server
	version    string
}

// Dependencies are the collaborators a Server needs. Generator is nil when
// generation is disabled.
type Dependencies struct {
	News      *news.Service
	Embedder  embedder.Provider
	VectorDB  VectorStore
	Generator generator.Provider
}

// NewServer creates a new API server.
func NewServer(cfg *config.Manager, deps Dependencies, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		cfg:       cfg,
		news:      deps.News,
		embedder:  deps.Embedder,
		vectorDB:  deps.VectorDB,
		generator: deps.Generator,
		logger:    logger,
		metrics:   NewMetrics(),
		router:    chi.NewRouter(),
		version:   "1.0.0",
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Get().Server.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(s.loggingMiddleware)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Post("/store_news", s.handleStoreNews)
	r.Post("/retrieve_news", s.handleRetrieveNews)
	r.Post("/generate_answer", s.handleGenerateAnswer)
	r.Post("/summarize_news", s.handleSummarizeNews)

	// Direct document access
	r.Post("/add", s.handleAdd)
	r.Get("/query", s.handleQuery)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server with graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.cfg.Get()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.GetReadTimeout(),
		WriteTimeout: cfg.Server.GetWriteTimeout(),
	}

	// Setup hot reload
	stopReload := s.setupHotReload()
	defer stopReload()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server",
			"port", cfg.Server.Port,
			"version", s.version,
			"generation", s.generator != nil)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-errCh:
		return err
	}
}

// shutdown performs graceful shutdown.
func (s *Server) shutdown() error {
	cfg := s.cfg.Get()
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GetShutdownTimeout())
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	// Close providers
	if err := s.embedder.Close(); err != nil {
		s.logger.Warn("embedder close error", "error", err)
	}
	if err := s.vectorDB.Close(); err != nil {
		s.logger.Warn("vectordb close error", "error", err)
	}
	if s.generator != nil {
		if err := s.generator.Close(); err != nil {
			s.logger.Warn("generator close error", "error", err)
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// setupHotReload configures SIGHUP handler for config reload.
// Listeners registered on the config manager apply the new values.
func (s *Server) setupHotReload() (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for range sigCh {
			s.logger.Info("received SIGHUP, reloading config", "path", s.cfg.Path())
			if err := s.cfg.Reload(); err != nil {
				s.logger.Error("config reload failed", "error", err)
			} else {
				s.logger.Info("config reloaded successfully")
			}
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(sigCh)
	}
}

// loggingMiddleware logs and measures all HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status
		wrapped := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		elapsed := time.Since(start)
		s.metrics.observe(r, wrapped.status, elapsed)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration_ms", elapsed.Milliseconds())
	})
}

// statusResponseWriter captures the response status code.
type statusResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
