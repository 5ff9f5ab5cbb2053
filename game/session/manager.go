package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/codenames/game/engine"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidSessionKey = errors.New("invalid session key")
)

// Manager handles game session lifecycle
type Manager struct {
	sessions map[string]*Session
	now      func() time.Time
	logger   *zap.Logger
	mu       sync.RWMutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source used for activity tracking.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithLogger sets the manager's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new session manager
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateIfAbsent returns the session stored under key, creating it from board
// when none exists. An existing session is returned untouched and created is
// false; board and saved are ignored in that case.
//
// A new session starts with every card hidden and blue to play, then adopts
// saved (reveals and team) before it is published, so no other caller can
// observe it in its pre-restore state. A malformed saved state is dropped.
func (m *Manager) CreateIfAbsent(key string, board engine.Board, saved *engine.SavedState) (sess *Session, created bool, err error) {
	if key == "" {
		return nil, false, ErrInvalidSessionKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[key]; ok {
		return existing, false, nil
	}

	sess = newSession(key, board, m.now)
	if saved != nil {
		if _, err := sess.game.Restore(*saved); err != nil {
			m.logger.Warn("Ignoring saved state for new session",
				zap.String("game_key", key), zap.Error(err))
		}
	}

	m.sessions[key] = sess
	m.logger.Debug("Session created", zap.String("game_key", key), zap.Int("sessions", len(m.sessions)))
	return sess, true, nil
}

// Get retrieves a session by key
func (m *Manager) Get(key string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, key)
	}
	return sess, nil
}

// List returns all active sessions
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	return result
}

// Remove deletes a session
func (m *Manager) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[key]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, key)
	}
	delete(m.sessions, key)
	return nil
}

// CleanupExpiredSessions removes sessions whose last activity is older than
// maxAge and returns their keys. Attached players do not keep a session alive.
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	var removed []string

	for key, sess := range m.sessions {
		if sess.LastActivity().Before(cutoff) {
			delete(m.sessions, key)
			removed = append(removed, key)
		}
	}

	return removed
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
