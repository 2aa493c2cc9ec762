package pomodoro

import (
	"context"
	"sync"

	"focusrooms/backend/internal/logging"
)

type engineKey struct {
	userID string
	roomID string
}

// Manager owns one Engine per (user, room), created on first use.
type Manager struct {
	store Store
	cfg   Config

	mu      sync.Mutex
	engines map[engineKey]*Engine
	closed  bool
}

func NewManager(store Store, cfg Config) *Manager {
	return &Manager{
		store:   store,
		cfg:     cfg.withDefaults(),
		engines: make(map[engineKey]*Engine),
	}
}

// Engine returns the engine for the pair, creating it if needed.
func (m *Manager) Engine(userID, roomID string) (*Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	key := engineKey{userID: userID, roomID: roomID}
	engine, ok := m.engines[key]
	if !ok {
		engine = NewEngine(userID, roomID, m.store, m.cfg)
		m.engines[key] = engine
	}
	return engine, nil
}

// Lookup returns an existing engine without creating one.
func (m *Manager) Lookup(userID, roomID string) (*Engine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	engine, ok := m.engines[engineKey{userID: userID, roomID: roomID}]
	return engine, ok
}

// Teardown closes and forgets the pair's engine, if one exists.
func (m *Manager) Teardown(ctx context.Context, userID, roomID string) {
	key := engineKey{userID: userID, roomID: roomID}
	m.mu.Lock()
	engine, ok := m.engines[key]
	delete(m.engines, key)
	m.mu.Unlock()

	if ok {
		engine.Close(ctx)
		logging.Debug().Str("user_id", userID).Str("room_id", roomID).Msg("timer torn down")
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.engines)
}

// Close tears down every engine; later Engine calls fail with ErrClosed.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	engines := make([]*Engine, 0, len(m.engines))
	for _, engine := range m.engines {
		engines = append(engines, engine)
	}
	m.engines = make(map[engineKey]*Engine)
	m.closed = true
	m.mu.Unlock()

	for _, engine := range engines {
		engine.Close(ctx)
	}
}
