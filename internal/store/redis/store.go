package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultSessionTTL bounds how long an unused session survives (30 days)
	DefaultSessionTTL = 30 * 24 * time.Hour
	// DefaultTranslitTTL is the default TTL for cached transliterations (7 days)
	DefaultTranslitTTL = 7 * 24 * time.Hour
)

// Store handles Redis operations for sessions and the transliteration cache
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// Ping checks that Redis answers. Used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
