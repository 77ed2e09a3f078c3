// Package location holds a user's detected and selected location. The
// explicit selection persists across restarts and always wins over the
// detected location; the detected location is ephemeral and re-reported
// by the device at startup.
package location

import (
	"context"
	"sync"

	"github.com/Stephani-e/food-delivery-app/internal/logging"
	"github.com/Stephani-e/food-delivery-app/internal/models"
)

// CartInvalidator is the cart engine's invalidation hook. The location
// store never compares countries itself; the engine owns the single
// fulfillment-context-changed check.
type CartInvalidator interface {
	HandleCountryChange(ctx context.Context, country string) bool
}

// Store is one user's location state.
type Store struct {
	userID  string
	storage SelectionStorage
	carts   CartInvalidator

	mu            sync.Mutex
	detected      *models.DetectedLocation
	selected      *models.SelectedLocation
	isDeliverable bool
	hydrated      bool
}

// NewStore builds the location store for one user.
func NewStore(userID string, storage SelectionStorage, carts CartInvalidator) *Store {
	return &Store{userID: userID, storage: storage, carts: carts}
}

// Hydrate loads the persisted selection once. A failed restore degrades
// to "no selection" but still marks the store hydrated; the app must
// never stay stuck before hydration.
func (s *Store) Hydrate(ctx context.Context) {
	s.mu.Lock()
	if s.hydrated {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	loc, err := s.storage.Load(ctx, s.userID)
	if err != nil {
		logging.LogKV("warn", "failed to restore selected location", map[string]any{
			"user_id": s.userID, "error": err.Error(),
		})
		loc = nil
	}

	s.mu.Lock()
	if !s.hydrated {
		s.selected = loc
		s.hydrated = true
	}
	s.mu.Unlock()
}

// Hydrated reports whether the persisted selection has been restored.
// Before hydration "no selection" must not be trusted.
func (s *Store) Hydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrated
}

// SetDetected overwrites the detected location. It never touches the
// selection and never persists.
func (s *Store) SetDetected(loc *models.DetectedLocation) {
	s.mu.Lock()
	s.detected = loc
	s.mu.Unlock()
}

// SetSelected adopts an explicit user choice. The cart engine is told
// about the country before the selection commits, so a cart can never
// silently survive a cross-country move; deliverability resets to
// unknown until the next fulfillment refresh. The selection persists;
// a persistence failure is logged and local state stays the truth.
func (s *Store) SetSelected(ctx context.Context, loc models.SelectedLocation) bool {
	cleared := false
	if s.carts != nil {
		cleared = s.carts.HandleCountryChange(ctx, loc.Country)
	}

	s.mu.Lock()
	s.selected = &loc
	s.isDeliverable = false
	s.mu.Unlock()

	if err := s.storage.Save(ctx, s.userID, loc); err != nil {
		logging.LogKV("warn", "failed to persist selected location", map[string]any{
			"user_id": s.userID, "error": err.Error(),
		})
	}
	return cleared
}

// ClearSelected removes the selection and its persisted copy.
func (s *Store) ClearSelected(ctx context.Context) {
	s.mu.Lock()
	s.selected = nil
	s.isDeliverable = false
	s.mu.Unlock()

	if err := s.storage.Delete(ctx, s.userID); err != nil {
		logging.LogKV("warn", "failed to delete persisted location", map[string]any{
			"user_id": s.userID, "error": err.Error(),
		})
	}
}

// SetDeliverable records the outcome of the last fulfillment refresh.
func (s *Store) SetDeliverable(v bool) {
	s.mu.Lock()
	s.isDeliverable = v
	s.mu.Unlock()
}

// ActiveCountry is the country the app should operate in: selection
// first, then detection, else empty.
func (s *Store) ActiveCountry() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected != nil {
		return s.selected.Country
	}
	if s.detected != nil {
		return s.detected.Country
	}
	return ""
}

// ActiveCoordinate is the coordinate matching ActiveCountry precedence,
// or nil when neither source has one.
func (s *Store) ActiveCoordinate() *models.Coordinate {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected != nil {
		c := s.selected.Coordinate
		return &c
	}
	if s.detected != nil && s.detected.Coordinate != nil {
		c := *s.detected.Coordinate
		return &c
	}
	return nil
}

// Snapshot returns the full read model.
func (s *Store) Snapshot() models.LocationResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := models.LocationResponse{
		IsDeliverable: s.isDeliverable,
		Hydrated:      s.hydrated,
	}
	if s.detected != nil {
		d := *s.detected
		resp.Detected = &d
	}
	if s.selected != nil {
		sel := *s.selected
		resp.Selected = &sel
	}
	if resp.Selected != nil {
		resp.ActiveCountry = resp.Selected.Country
	} else if resp.Detected != nil {
		resp.ActiveCountry = resp.Detected.Country
	}
	return resp
}
