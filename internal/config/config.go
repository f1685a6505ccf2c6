// Package config provides configuration loading and management for the news service.
// It supports hot reload via SIGHUP signal and provides a unified configuration structure
// for all components (embedding, generation, vectordb, server).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the global application configuration.
// All fields are loaded from configs/config.yaml.
type Config struct {
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	VectorDB   VectorDBConfig   `yaml:"vectordb"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Loader     LoaderConfig     `yaml:"loader"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// EmbeddingConfig holds embedding provider settings.
// Supports multiple providers: openai, ollama, fastembed, hashing.
type EmbeddingConfig struct {
	// Provider name: openai | ollama | fastembed | hashing
	Provider string `yaml:"provider"`

	// Model name (varies by provider)
	Model string `yaml:"model"`

	// Provider endpoint URL
	Endpoint string `yaml:"endpoint"`

	// Vector dimensions. Zero lets the first stored vector decide.
	Dimensions int `yaml:"dimensions"`

	// Batch size for bulk embedding requests
	BatchSize int `yaml:"batch_size"`

	// Request timeout
	Timeout string `yaml:"timeout"`

	// Environment variable name for API key (used by OpenAI)
	APIKeyEnv string `yaml:"api_key_env,omitempty"`

	// Model cache directory for local ONNX models (fastembed)
	CacheDir string `yaml:"cache_dir,omitempty"`
}

// GenerationConfig holds chat completion provider settings.
// When disabled, answer and summary endpoints report 501.
type GenerationConfig struct {
	Enabled bool `yaml:"enabled"`

	// Provider name: openai
	Provider string `yaml:"provider"`

	Model       string  `yaml:"model"`
	Endpoint    string  `yaml:"endpoint"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Timeout     string  `yaml:"timeout"`
	Temperature float32 `yaml:"temperature"`
}

// VectorDBConfig holds vector database settings.
// Supports multiple providers: chromem, qdrant.
type VectorDBConfig struct {
	// Provider name: chromem | qdrant
	Provider string `yaml:"provider"`

	// Persistence directory (chromem). Created if absent.
	Path string `yaml:"path"`

	// Gzip the persisted files (chromem)
	Compress bool `yaml:"compress"`

	// Qdrant gRPC host and port
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Environment variable name for the Qdrant API key
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
	UseTLS    bool   `yaml:"use_tls"`

	// Collection name for storing vectors
	CollectionName string `yaml:"collection_name"`

	// Request timeout
	Timeout string `yaml:"timeout"`
}

// RetrievalConfig holds query settings.
type RetrievalConfig struct {
	// Number of documents returned by retrieval (1..20)
	TopK int `yaml:"top_k"`
}

// LoaderConfig holds batch loader settings.
type LoaderConfig struct {
	// Directory for the loader's content-hash cache
	CacheDir string `yaml:"cache_dir"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Port number to listen on
	Port int `yaml:"port"`

	// Read timeout for incoming requests
	ReadTimeout string `yaml:"read_timeout"`

	// Write timeout for outgoing responses
	WriteTimeout string `yaml:"write_timeout"`

	// Graceful shutdown timeout
	ShutdownTimeout string `yaml:"shutdown_timeout"`

	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig restricts browser callers to an explicit list of origins.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Log level: debug | info | warn | error
	Level string `yaml:"level"`

	// Output format: json | text
	Format string `yaml:"format"`
}

// GetTimeout parses and returns the embedding timeout duration.
func (e *EmbeddingConfig) GetTimeout() time.Duration {
	return parseDuration(e.Timeout, 30*time.Second)
}

// GetAPIKey returns the API key from environment variable.
func (e *EmbeddingConfig) GetAPIKey() string {
	return lookupEnv(e.APIKeyEnv)
}

// RequiresAPIKey reports whether the provider calls a remote API that needs a credential.
func (e *EmbeddingConfig) RequiresAPIKey() bool {
	return e.Provider == "openai"
}

// GetTimeout parses and returns the generation timeout duration.
func (g *GenerationConfig) GetTimeout() time.Duration {
	return parseDuration(g.Timeout, 60*time.Second)
}

// GetAPIKey returns the API key from environment variable.
func (g *GenerationConfig) GetAPIKey() string {
	return lookupEnv(g.APIKeyEnv)
}

// GetTimeout parses and returns the vectordb timeout duration.
func (v *VectorDBConfig) GetTimeout() time.Duration {
	return parseDuration(v.Timeout, 30*time.Second)
}

// GetAPIKey returns the Qdrant API key from environment variable.
func (v *VectorDBConfig) GetAPIKey() string {
	return lookupEnv(v.APIKeyEnv)
}

// GetReadTimeout parses and returns the server read timeout.
func (s *ServerConfig) GetReadTimeout() time.Duration {
	return parseDuration(s.ReadTimeout, 30*time.Second)
}

// GetWriteTimeout parses and returns the server write timeout.
func (s *ServerConfig) GetWriteTimeout() time.Duration {
	return parseDuration(s.WriteTimeout, 120*time.Second)
}

// GetShutdownTimeout parses and returns the graceful shutdown timeout.
func (s *ServerConfig) GetShutdownTimeout() time.Duration {
	return parseDuration(s.ShutdownTimeout, 10*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func lookupEnv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

// Manager handles configuration loading and hot reload.
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
	onChange   []func(*Config)
}

// NewManager creates a new configuration manager.
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
		onChange:   make([]func(*Config), 0),
	}
}

// Load reads and parses the configuration file.
// A missing file is not an error: defaults apply.
func (m *Manager) Load() error {
	var cfg Config

	data, err := os.ReadFile(m.configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	m.mu.Lock()
	m.config = &cfg
	m.mu.Unlock()
	return nil
}

// Reload reloads the configuration and notifies listeners.
func (m *Manager) Reload() error {
	if err := m.Load(); err != nil {
		return err
	}

	cfg := m.Get()
	m.mu.RLock()
	listeners := append([]func(*Config){}, m.onChange...)
	m.mu.RUnlock()
	for _, fn := range listeners {
		fn(cfg)
	}

	return nil
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Path returns the file the manager reads from.
func (m *Manager) Path() string {
	return m.configPath
}

// OnChange registers a callback to be called when configuration changes.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	// Embedding defaults
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = defaultEmbeddingModels[cfg.Embedding.Provider]
	}
	if cfg.Embedding.Endpoint == "" {
		switch cfg.Embedding.Provider {
		case "openai":
			cfg.Embedding.Endpoint = "https://api.openai.com/v1"
		case "ollama":
			cfg.Embedding.Endpoint = "http://localhost:11434"
		}
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Embedding.Timeout == "" {
		cfg.Embedding.Timeout = "30s"
	}
	if cfg.Embedding.APIKeyEnv == "" && cfg.Embedding.Provider == "openai" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.CacheDir == "" {
		cfg.Embedding.CacheDir = "./data/models"
	}

	// Generation defaults
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = "openai"
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "gpt-4o-mini"
	}
	if cfg.Generation.Endpoint == "" {
		cfg.Generation.Endpoint = "https://api.openai.com/v1"
	}
	if cfg.Generation.APIKeyEnv == "" {
		cfg.Generation.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Generation.Timeout == "" {
		cfg.Generation.Timeout = "60s"
	}

	// VectorDB defaults
	if cfg.VectorDB.Provider == "" {
		cfg.VectorDB.Provider = "chromem"
	}
	if cfg.VectorDB.Path == "" {
		cfg.VectorDB.Path = "./data/vectordb"
	}
	if cfg.VectorDB.Host == "" {
		cfg.VectorDB.Host = "localhost"
	}
	if cfg.VectorDB.Port == 0 {
		cfg.VectorDB.Port = 6334
	}
	if cfg.VectorDB.CollectionName == "" {
		cfg.VectorDB.CollectionName = "news_articles"
	}
	if cfg.VectorDB.Timeout == "" {
		cfg.VectorDB.Timeout = "30s"
	}

	// Retrieval defaults
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}

	// Loader defaults
	if cfg.Loader.CacheDir == "" {
		cfg.Loader.CacheDir = "./data/loader-cache"
	}

	// Server defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.ReadTimeout == "" {
		cfg.Server.ReadTimeout = "30s"
	}
	if cfg.Server.WriteTimeout == "" {
		cfg.Server.WriteTimeout = "120s"
	}
	if cfg.Server.ShutdownTimeout == "" {
		cfg.Server.ShutdownTimeout = "10s"
	}
	if len(cfg.Server.CORS.AllowedOrigins) == 0 {
		cfg.Server.CORS.AllowedOrigins = []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

var defaultEmbeddingModels = map[string]string{
	"openai":    "text-embedding-3-small",
	"ollama":    "nomic-embed-text",
	"fastembed": "BAAI/bge-small-en-v1.5",
	"hashing":   "hashing-v1",
}

// validate checks the configuration for errors.
func validate(cfg *Config) error {
	// Validate embedding config
	if _, ok := defaultEmbeddingModels[cfg.Embedding.Provider]; !ok {
		return fmt.Errorf("invalid embedding provider: %s", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding dimensions must not be negative")
	}
	if cfg.Embedding.RequiresAPIKey() && cfg.Embedding.GetAPIKey() == "" {
		return fmt.Errorf("embedding provider %s requires an API key in $%s",
			cfg.Embedding.Provider, cfg.Embedding.APIKeyEnv)
	}

	// Validate generation config
	if cfg.Generation.Enabled {
		if cfg.Generation.Provider != "openai" {
			return fmt.Errorf("invalid generation provider: %s", cfg.Generation.Provider)
		}
		if cfg.Generation.GetAPIKey() == "" {
			return fmt.Errorf("generation requires an API key in $%s", cfg.Generation.APIKeyEnv)
		}
	}

	// Validate vectordb config
	validVectorDBProviders := map[string]bool{
		"chromem": true,
		"qdrant":  true,
	}
	if !validVectorDBProviders[cfg.VectorDB.Provider] {
		return fmt.Errorf("invalid vectordb provider: %s", cfg.VectorDB.Provider)
	}
	if cfg.VectorDB.Port < 1 || cfg.VectorDB.Port > 65535 {
		return fmt.Errorf("vectordb port must be between 1 and 65535")
	}

	if cfg.Retrieval.TopK < 1 || cfg.Retrieval.TopK > 20 {
		return fmt.Errorf("retrieval top_k must be between 1 and 20")
	}

	// Validate server port
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}

// LoadFromEnv loads configuration from the path specified in CONFIG_PATH env var.
func LoadFromEnv() (*Manager, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	// Make path absolute
	if !filepath.IsAbs(configPath) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		configPath = filepath.Join(wd, configPath)
	}

	manager := NewManager(configPath)
	if err := manager.Load(); err != nil {
		return nil, err
	}

	return manager, nil
}
