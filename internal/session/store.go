package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	storeredis "github.com/MrSnakeDoc/wander/internal/store/redis"
)

// fileRecord is the on-disk layout of the file store.
type fileRecord struct {
	UserID   int    `yaml:"user_id"`
	Token    string `yaml:"token"`
	Username string `yaml:"username"`
}

// FileStore keeps the session in a YAML file readable by the owner only.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load(_ context.Context) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var rec fileRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse session file %s: %w", f.path, err)
	}
	if rec.Token == "" {
		return nil, nil
	}
	return &Session{UserID: rec.UserID, Token: rec.Token, Username: rec.Username}, nil
}

func (f *FileStore) Save(_ context.Context, s Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := yaml.Marshal(fileRecord{UserID: s.UserID, Token: s.Token, Username: s.Username})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	// write then rename so a crash never leaves a truncated file
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (f *FileStore) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// RedisStore keeps the session in Redis under a fixed name.
type RedisStore struct {
	store *storeredis.Store
	name  string
}

func NewRedisStore(store *storeredis.Store, name string) *RedisStore {
	return &RedisStore{store: store, name: name}
}

func (r *RedisStore) Load(ctx context.Context) (*Session, error) {
	rec, err := r.store.LoadSession(ctx, r.name)
	if err != nil || rec == nil || rec.Token == "" {
		return nil, err
	}
	return &Session{UserID: rec.UserID, Token: rec.Token, Username: rec.Username}, nil
}

func (r *RedisStore) Save(ctx context.Context, s Session) error {
	return r.store.SaveSession(ctx, r.name, storeredis.SessionRecord{
		UserID:   s.UserID,
		Token:    s.Token,
		Username: s.Username,
	})
}

func (r *RedisStore) Clear(ctx context.Context) error {
	return r.store.ClearSession(ctx, r.name)
}

// MemoryStore keeps the session for the process lifetime only.
type MemoryStore struct {
	mu sync.Mutex
	s  *Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s == nil {
		return nil, nil
	}
	cp := *m.s
	return &cp, nil
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = &s
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = nil
	return nil
}
