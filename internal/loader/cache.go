// Package loader bulk-loads news into the vector store. A content hash cache
// skips tickers whose news did not change since the previous run.
package loader

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/iasik/news-rag/internal/news"
)

// Cache records what was last stored per ticker.
type Cache struct {
	path    string
	entries map[string]CacheEntry
	mu      sync.RWMutex
	dirty   bool
}

// CacheEntry represents the stored state of one ticker.
type CacheEntry struct {
	// SHA256 of the store request
	ContentHash string `json:"content_hash"`

	// When the ticker was last stored
	LoadedAt time.Time `json:"loaded_at"`

	// Document IDs written for the ticker
	DocumentIDs []string `json:"document_ids"`
}

// CacheFile is the JSON structure stored on disk.
type CacheFile struct {
	Collection string                `json:"collection"`
	UpdatedAt  time.Time             `json:"updated_at"`
	Tickers    map[string]CacheEntry `json:"tickers"`
}

// NewCache opens the cache of one collection, loading it if present.
func NewCache(cacheDir, collection string) (*Cache, error) {
	c := &Cache{
		path:    filepath.Join(cacheDir, collection+".json"),
		entries: make(map[string]CacheEntry),
	}

	if err := c.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}
	return c, nil
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return err
	}

	var f CacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse cache: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = f.Tickers
	if c.entries == nil {
		c.entries = make(map[string]CacheEntry)
	}
	return nil
}

// Save writes the cache to disk if it changed.
func (c *Cache) Save(collection string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}

	data, err := json.MarshalIndent(CacheFile{
		Collection: collection,
		UpdatedAt:  time.Now().UTC(),
		Tickers:    c.entries,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	// Write atomically using temp file
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to save cache: %w", err)
	}

	c.dirty = false
	return nil
}

// Get retrieves the entry of a ticker.
func (c *Cache) Get(ticker string) (CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[ticker]
	return entry, ok
}

// Set updates or creates the entry of a ticker.
func (c *Cache) Set(ticker string, entry CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[ticker] = entry
	c.dirty = true
}

// HasChanged reports whether hash differs from the last stored one.
func (c *Cache) HasChanged(ticker, hash string) bool {
	entry, ok := c.Get(ticker)
	return !ok || entry.ContentHash != hash
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]CacheEntry)
	c.dirty = true
}

// Stats returns cache statistics.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var docs int
	for _, e := range c.entries {
		docs += len(e.DocumentIDs)
	}
	return CacheStats{TickerCount: len(c.entries), DocumentCount: docs}
}

// CacheStats contains cache statistics.
type CacheStats struct {
	TickerCount   int
	DocumentCount int
}

// HashRequest returns the SHA256 of a store request's JSON encoding.
func HashRequest(req news.StoreRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
