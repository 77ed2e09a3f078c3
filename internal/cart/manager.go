package cart

import (
	"sync"
	"time"

	"github.com/Stephani-e/food-delivery-app/internal/remote"
)

// Manager hands out one engine per user. The app holds a single cart
// per signed-in user; the service keeps the same ownership by keying
// engines on the authenticated user id.
type Manager struct {
	store    remote.Store
	debounce time.Duration

	mu      sync.Mutex
	engines map[string]*Engine
}

// NewManager builds the engine registry.
func NewManager(store remote.Store, debounce time.Duration) *Manager {
	return &Manager{
		store:    store,
		debounce: debounce,
		engines:  make(map[string]*Engine),
	}
}

// ForUser returns the user's engine, creating and subscribing it on
// first use.
func (m *Manager) ForUser(userID string) *Engine {
	m.mu.Lock()
	defer m.mu.Unlock()

	if engine, ok := m.engines[userID]; ok {
		return engine
	}
	engine := NewEngine(userID, m.store, m.debounce)
	engine.SubscribeToChangeFeed()
	m.engines[userID] = engine
	return engine
}

// Close tears down every engine, draining pending writes.
func (m *Manager) Close() {
	m.mu.Lock()
	engines := make([]*Engine, 0, len(m.engines))
	for _, e := range m.engines {
		engines = append(engines, e)
	}
	m.mu.Unlock()

	for _, e := range engines {
		e.Close()
	}
}
