package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// SessionRecord is the persisted form of an authenticated session
type SessionRecord struct {
	UserID   int    `json:"user_id"`
	Token    string `json:"token"`
	Username string `json:"username"`
}

// SaveSession stores a session under name
func (s *Store) SaveSession(ctx context.Context, name string, rec SessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, SessionKey(name), data, DefaultSessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// LoadSession retrieves a session. It returns nil, nil when none is stored.
func (s *Store) LoadSession(ctx context.Context, name string) (*SessionRecord, error) {
	data, err := s.client.Get(ctx, SessionKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var rec SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &rec, nil
}

// ClearSession removes a stored session
func (s *Store) ClearSession(ctx context.Context, name string) error {
	if err := s.client.Del(ctx, SessionKey(name)).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
