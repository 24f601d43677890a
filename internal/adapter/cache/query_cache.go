package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sync"
	"time"

	"guide/internal/domain"
)

// CompositionCache is a bounded LRU of composition results. Entries are
// tagged with the index generation they were computed against and are
// never served for another generation.
type CompositionCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	result     domain.CompositionResult
	timestamp  time.Time
	generation uint64
}

func NewCompositionCache(maxSize int, ttl time.Duration) *CompositionCache {
	if maxSize <= 0 {
		maxSize = 1024
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CompositionCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func cacheKey(generation uint64, filePath string) string {
	data := make([]byte, 8, 8+len(filePath))
	binary.BigEndian.PutUint64(data, generation)
	data = append(data, filePath...)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

// Get returns a copy of the cached result for filePath under generation.
func (c *CompositionCache) Get(generation uint64, filePath string) (domain.CompositionResult, bool) {
	c.mu.RLock()
	key := cacheKey(generation, filePath)
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		return domain.CompositionResult{}, false
	}

	if c.now().Sub(entry.timestamp) > c.ttl || entry.generation != generation {
		c.mu.Lock()
		// a concurrent Put may have replaced the stale entry
		if c.entries[key] == entry {
			delete(c.entries, key)
			c.removeFromOrder(key)
		}
		c.mu.Unlock()
		return domain.CompositionResult{}, false
	}

	c.mu.Lock()
	if _, ok := c.entries[key]; ok {
		c.moveToEnd(key)
	}
	c.mu.Unlock()

	return entry.result.Clone(), true
}

// Put stores a copy of result.
func (c *CompositionCache) Put(generation uint64, filePath string, result domain.CompositionResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(generation, filePath)
	entry := &cacheEntry{
		result:     result.Clone(),
		timestamp:  c.now(),
		generation: generation,
	}

	if _, exists := c.entries[key]; exists {
		c.entries[key] = entry
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = entry
	c.order = append(c.order, key)
}

// Invalidate drops every entry.
func (c *CompositionCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
}

func (c *CompositionCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *CompositionCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *CompositionCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *CompositionCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
