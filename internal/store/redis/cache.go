package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TranslitCache is a transliteration cache backed by the Store
type TranslitCache struct {
	store *Store
	ttl   time.Duration
}

// NewTranslitCache returns a cache whose entries live for ttl (DefaultTranslitTTL when <= 0)
func NewTranslitCache(store *Store, ttl time.Duration) *TranslitCache {
	if ttl <= 0 {
		ttl = DefaultTranslitTTL
	}
	return &TranslitCache{store: store, ttl: ttl}
}

// Get returns the cached conversion, ok=false on a miss
func (c *TranslitCache) Get(ctx context.Context, converter, text string) (string, bool, error) {
	out, err := c.store.client.Get(ctx, TranslitKey(converter, text)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil // Cache miss
		}
		return "", false, fmt.Errorf("failed to get cached conversion: %w", err)
	}
	return out, true, nil
}

// Set stores a successful conversion
func (c *TranslitCache) Set(ctx context.Context, converter, text, converted string) error {
	if err := c.store.client.Set(ctx, TranslitKey(converter, text), converted, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache conversion: %w", err)
	}
	return nil
}
