package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultIdleTimeout is how long a session may go unused before it is
// evicted.
const DefaultIdleTimeout = DefaultTTL

// APIFactory returns an API client authenticating with key.
type APIFactory func(key string) API

// Options configures a Manager.
type Options struct {
	// UsersPageSize is the page size for user list requests.
	UsersPageSize int
	// Now returns the current time; defaults to time.Now.
	Now func() time.Time
	// IdleTimeout evicts sessions unused for longer; defaults to
	// DefaultIdleTimeout.
	IdleTimeout time.Duration
	Logger      *slog.Logger
}

// Manager maps session ids to live sessions. Sessions missing from memory
// are rehydrated from the Store.
type Manager struct {
	store    Store
	newAPI   APIFactory
	pageSize int
	now      func() time.Time
	idle     time.Duration
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a Manager.
func NewManager(store Store, newAPI APIFactory, opts Options) *Manager {
	if opts.UsersPageSize <= 0 {
		opts.UsersPageSize = 10
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Manager{
		store:    store,
		newAPI:   newAPI,
		pageSize: opts.UsersPageSize,
		now:      opts.Now,
		idle:     opts.IdleTimeout,
		logger:   opts.Logger,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session for apiKey. No API call is made.
func (m *Manager) Create(ctx context.Context, apiKey string) (*Session, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrEmptyKey
	}

	state := State{
		ID:        uuid.NewString(),
		APIKey:    apiKey,
		CreatedAt: m.now().UTC(),
	}
	s := newSession(state, m.newAPI(apiKey), m.pageSize, m.now)
	if err := m.store.Save(ctx, s.State()); err != nil {
		return nil, fmt.Errorf("saving new session: %w", err)
	}

	m.mu.Lock()
	m.sessions[state.ID] = s
	m.mu.Unlock()

	return s, nil
}

// Get returns the live session for id and marks it used. A session idle
// past the timeout, or whose stored state has expired, is evicted and
// ErrNotFound returned. A session found only in the store is rehydrated
// and refreshed; a failed refresh is logged and the session is returned
// without snapshots.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return m.touch(ctx, s)
	}

	state, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	s = newSession(state, m.newAPI(state.APIKey), m.pageSize, m.now)
	m.sessions[id] = s
	m.mu.Unlock()
	m.logger.Debug("session rehydrated", "session", id)

	if _, err := s.Refresh(ctx); err != nil {
		m.logger.Warn("refresh after rehydrate failed", "session", id, "error", err)
	}
	return s, nil
}

func (m *Manager) touch(ctx context.Context, s *Session) (*Session, error) {
	now := m.now()
	if now.Sub(s.LastSeen()) > m.idle {
		m.evict(ctx, s.ID(), "idle")
		return nil, ErrNotFound
	}

	err := m.store.Touch(ctx, s.ID())
	if errors.Is(err, ErrNotFound) {
		m.evict(ctx, s.ID(), "expired")
		return nil, ErrNotFound
	}
	if err != nil {
		m.logger.Warn("touching session failed", "session", s.ID(), "error", err)
	}

	s.touch(now)
	return s, nil
}

// EvictIdle ends every live session unused for longer than the idle
// timeout and returns how many were evicted.
func (m *Manager) EvictIdle(ctx context.Context) int {
	now := m.now()
	var idle []string

	m.mu.RLock()
	for id, s := range m.sessions {
		if now.Sub(s.LastSeen()) > m.idle {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range idle {
		m.evict(ctx, id, "idle")
	}
	return len(idle)
}

func (m *Manager) evict(ctx context.Context, id, reason string) {
	if err := m.Remove(ctx, id); err != nil {
		m.logger.Warn("evicting session failed", "session", id, "error", err)
		return
	}
	m.logger.Info("session evicted", "session", id, "reason", reason)
}

// Persist writes the session's durable state to the store.
func (m *Manager) Persist(ctx context.Context, s *Session) error {
	if err := m.store.Save(ctx, s.State()); err != nil {
		return fmt.Errorf("persisting session: %w", err)
	}
	return nil
}

// Remove ends a session.
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// Live returns the sessions currently held in memory.
func (m *Manager) Live() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}
