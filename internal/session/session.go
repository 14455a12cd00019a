// Package session owns the authenticated identity and its persistence.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MrSnakeDoc/wander/internal/logger"
)

// Session is an authenticated identity.
type Session struct {
	UserID   int
	Token    string
	Username string
}

// Store persists at most one session.
type Store interface {
	// Load returns nil, nil when nothing is stored.
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// Manager holds the current session. It is the only writer of the token.
type Manager struct {
	mu      sync.RWMutex
	current *Session
	store   Store
	log     logger.Logger
	now     func() time.Time
}

func NewManager(store Store, log logger.Logger) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{store: store, log: log, now: time.Now}
}

// Token returns the current bearer token, "" when logged out.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return ""
	}
	return m.current.Token
}

// Current returns a copy of the current session.
func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

// Authenticated reports whether a session is active.
func (m *Manager) Authenticated() bool {
	return m.Token() != ""
}

// Begin makes s the current session and persists it.
// The session stays active in memory even when persisting fails.
func (m *Manager) Begin(ctx context.Context, s Session) error {
	if s.Token == "" {
		return errors.New("session: empty token")
	}
	m.mu.Lock()
	m.current = &s
	m.mu.Unlock()

	if err := m.store.Save(ctx, s); err != nil {
		m.log.Warn("failed to persist session", logger.String("username", s.Username), logger.Error(err))
		return err
	}
	m.log.Info("session started", logger.String("username", s.Username), logger.Int("user_id", s.UserID))
	return nil
}

// SetUserID records the user ID confirmed by the remote auth check.
func (m *Manager) SetUserID(ctx context.Context, id int) {
	m.mu.Lock()
	if m.current == nil || m.current.UserID == id {
		m.mu.Unlock()
		return
	}
	m.current.UserID = id
	s := *m.current
	m.mu.Unlock()

	if err := m.store.Save(ctx, s); err != nil {
		m.log.Warn("failed to persist session", logger.Error(err))
	}
}

// End destroys the current session in memory and in the store.
func (m *Manager) End(ctx context.Context) error {
	m.mu.Lock()
	had := m.current != nil
	m.current = nil
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		m.log.Warn("failed to clear persisted session", logger.Error(err))
		return err
	}
	if had {
		m.log.Info("session ended")
	}
	return nil
}

// Restore loads the persisted session and makes it current.
// A token that is locally known to be expired is discarded.
// The remote check is left to the caller.
func (m *Manager) Restore(ctx context.Context) (*Session, error) {
	s, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil || s.Token == "" {
		return nil, nil
	}
	if TokenExpired(s.Token, m.now()) {
		m.log.Info("persisted token expired, discarding", logger.String("username", s.Username))
		_ = m.End(ctx)
		return nil, nil
	}

	m.mu.Lock()
	m.current = s
	m.mu.Unlock()

	cp := *s
	return &cp, nil
}

// TokenExpired reports whether token is a JWT whose exp claim is before now.
// The signature is not verified: the remote stays the authority, this only
// avoids a round trip for a token that cannot be valid anymore.
// Opaque tokens and tokens without exp are never reported expired.
func TokenExpired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}
