package location

import (
	"context"
	"sync"
)

// EngineSource resolves the cart invalidation hook for a user. Wired to
// the cart manager at the composition root.
type EngineSource func(userID string) CartInvalidator

// Manager hands out one hydrated location store per user.
type Manager struct {
	storage SelectionStorage
	engines EngineSource

	mu     sync.Mutex
	stores map[string]*Store
}

// NewManager builds the store registry.
func NewManager(storage SelectionStorage, engines EngineSource) *Manager {
	return &Manager{
		storage: storage,
		engines: engines,
		stores:  make(map[string]*Store),
	}
}

// ForUser returns the user's location store, hydrating it on first use.
func (m *Manager) ForUser(ctx context.Context, userID string) *Store {
	m.mu.Lock()
	store, ok := m.stores[userID]
	if !ok {
		var carts CartInvalidator
		if m.engines != nil {
			carts = m.engines(userID)
		}
		store = NewStore(userID, m.storage, carts)
		m.stores[userID] = store
	}
	m.mu.Unlock()

	store.Hydrate(ctx)
	return store
}
