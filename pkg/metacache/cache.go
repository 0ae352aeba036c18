package metacache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bmexporter/pkg/logger"
)

// TTL is how long a cached entry stays fresh.
const TTL = 7 * 24 * time.Hour

// Entry is one cached lookup result.
type Entry struct {
	Value     string    `json:"value"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Fetcher resolves a URL to its metadata value on a cache miss.
type Fetcher func(url string) (string, error)

// Cache is a persisted URL metadata cache. It is constructed once per run
// and passed to every call site; Load reads the backing document once and
// every write flushes immediately. Enrichment lookups are rare, so
// durability wins over write batching.
type Cache struct {
	path    string
	entries map[string]Entry
	loaded  bool
	logger  logger.Logger

	// now is overridable for TTL tests.
	now func() time.Time
}

// New creates a cache backed by a JSON document in dir.
func New(dir string) *Cache {
	return &Cache{
		path:    filepath.Join(dir, "metadata-cache.json"),
		entries: make(map[string]Entry),
		logger:  logger.GetLogger(),
		now:     time.Now,
	}
}

// Load reads the backing document. Safe to call more than once; only the
// first call touches disk.
func (c *Cache) Load() error {
	if c.loaded {
		return nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			c.loaded = true
			return nil
		}
		return fmt.Errorf("failed to read metadata cache: %w", err)
	}

	if err := json.Unmarshal(data, &c.entries); err != nil {
		return fmt.Errorf("failed to decode metadata cache: %w", err)
	}
	c.loaded = true

	c.logger.DebugWithFields("Metadata cache loaded", map[string]interface{}{
		"path":    c.path,
		"entries": len(c.entries),
	})

	return nil
}

// GetOrFetch returns the cached value for url if it is younger than the
// TTL, otherwise invokes fetcher and stores the result.
func (c *Cache) GetOrFetch(url string, fetcher Fetcher) (string, error) {
	if err := c.Load(); err != nil {
		return "", err
	}

	if entry, ok := c.entries[url]; ok {
		if c.now().Sub(entry.FetchedAt) < TTL {
			return entry.Value, nil
		}
	}

	value, err := fetcher(url)
	if err != nil {
		return "", err
	}

	c.entries[url] = Entry{Value: value, FetchedAt: c.now()}
	if err := c.flush(); err != nil {
		return "", err
	}

	return value, nil
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return len(c.entries)
}

// flush writes the cache document after every store.
func (c *Cache) flush() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata cache: %w", err)
	}

	tempPath := c.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata cache: %w", err)
	}
	if err := os.Rename(tempPath, c.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename metadata cache: %w", err)
	}

	return nil
}
