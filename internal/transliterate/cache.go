package transliterate

import (
	"context"
	"sync"
)

// Cache stores successful conversions keyed by converter and exact input.
type Cache interface {
	Get(ctx context.Context, converter, text string) (string, bool, error)
	Set(ctx context.Context, converter, text, converted string) error
}

type memoryKey struct {
	converter string
	text      string
}

// MemoryCache is an in-process Cache. It never evicts.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[memoryKey]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[memoryKey]string)}
}

func (c *MemoryCache) Get(_ context.Context, converter, text string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out, ok := c.entries[memoryKey{converter, text}]
	return out, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, converter, text, converted string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[memoryKey{converter, text}] = converted
	return nil
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
