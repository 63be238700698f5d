package embedding

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const DefaultCacheTTL = 7 * 24 * time.Hour

type cacheEntry struct {
	Embedding []float32 `json:"embedding"`
	Timestamp int64     `json:"timestamp"`
}

// Cache is a file-backed embedding cache keyed by content hash. Expired
// entries are swept at load time and every Set rewrites the file. When
// the backing file cannot be read or written the cache keeps working in
// memory only.
type Cache struct {
	path string
	ttl  time.Duration

	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

func NewCache(path string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &Cache{
		path:    path,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
	c.load()
	return c
}

// Key derives the stable cache key for a piece of text.
func Key(text string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	return fmt.Sprintf("%016x", h.Sum64())
}

func (c *Cache) Get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.expired(entry) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.Embedding, true
}

func (c *Cache) Set(key string, vector []float32) {
	if len(vector) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		Embedding: vector,
		Timestamp: c.now().UnixMilli(),
	}
	c.persist()
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) expired(entry cacheEntry) bool {
	age := c.now().Sub(time.UnixMilli(entry.Timestamp))
	return age > c.ttl
}

func (c *Cache) load() {
	if c.path == "" {
		return
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("embedding_cache_unreadable", "path", c.path, "error", err)
		}
		return
	}
	var stored map[string]cacheEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		slog.Warn("embedding_cache_corrupt", "path", c.path, "error", err)
		return
	}
	for key, entry := range stored {
		if !c.expired(entry) {
			c.entries[key] = entry
		}
	}
}

// persist is called with the mutex held.
func (c *Cache) persist() {
	if c.path == "" {
		return
	}
	data, err := json.Marshal(c.entries)
	if err != nil {
		slog.Warn("embedding_cache_marshal", "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		slog.Warn("embedding_cache_write", "path", c.path, "error", err)
		return
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		slog.Warn("embedding_cache_write", "path", c.path, "error", err)
	}
}
