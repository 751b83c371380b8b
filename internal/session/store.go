package session

import (
	"context"
	"sync"
)

// Store persists session state across restarts.
type Store interface {
	Load(ctx context.Context, id string) (State, error)
	Save(ctx context.Context, state State) error
	// Touch marks the state as in use, extending any expiry. It returns
	// ErrNotFound when the state is gone.
	Touch(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps state in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]State
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]State)}
}

// Load returns the stored state or ErrNotFound.
func (m *MemoryStore) Load(ctx context.Context, id string) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[id]
	if !ok {
		return State{}, ErrNotFound
	}
	return state, nil
}

// Save stores state under its id.
func (m *MemoryStore) Save(ctx context.Context, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.ID] = state
	return nil
}

// Touch reports ErrNotFound for an unknown id. MemoryStore never expires.
func (m *MemoryStore) Touch(ctx context.Context, id string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.states[id]; !ok {
		return ErrNotFound
	}
	return nil
}

// Delete removes the state; deleting an unknown id is not an error.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, id)
	return nil
}
