// Package boards manages saved customization presets. A board moves
// Active -> Inactive when consumed into the cart, back to Active on
// reuse, and Archived terminally on explicit archive.
package boards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Stephani-e/food-delivery-app/internal/logging"
	"github.com/Stephani-e/food-delivery-app/internal/models"
	"github.com/Stephani-e/food-delivery-app/internal/remote"
)

var (
	// ErrBoardInactive rejects consuming a board that is already spent.
	ErrBoardInactive = errors.New("board is not active")
	// ErrBoardArchived rejects reactivating an archived board.
	ErrBoardArchived = errors.New("board is archived")
)

// Persisted board row fields.
const (
	fieldOwnerID       = "userId"
	fieldItemID        = "itemId"
	fieldName          = "name"
	fieldCustomization = "customizations"
	fieldExtrasTotal   = "extrasTotal"
	fieldItemName      = "itemName"
	fieldItemImage     = "itemImage"
	fieldIsActive      = "isActive"
	fieldArchived      = "archived"
	fieldLastUsedAt    = "lastUsedAt"
)

// CartAdder is the slice of the cart engine boards need: consumed boards
// feed items into the cart, deduplicated by composite key inside the
// engine itself.
type CartAdder interface {
	AddItem(ctx context.Context, item models.CartItem)
}

// Manager owns board persistence and state transitions.
type Manager struct {
	store remote.Store
}

// NewManager builds the board manager.
func NewManager(store remote.Store) *Manager {
	return &Manager{store: store}
}

// Create saves a new Active board.
func (m *Manager) Create(ctx context.Context, ownerID string, payload models.BoardPayload) (models.Board, error) {
	customizations := models.ParseCustomizations(payload.Customizations)

	doc, err := m.store.CreateDocument(ctx, remote.CollectionBoards, uuid.NewString(), map[string]any{
		fieldOwnerID:       ownerID,
		fieldItemID:        payload.ItemID,
		fieldName:          payload.Name,
		fieldCustomization: models.EncodeCustomizations(customizations),
		fieldExtrasTotal:   models.ExtrasTotal(customizations),
		fieldItemName:      payload.ItemName,
		fieldItemImage:     payload.ItemImage,
		fieldIsActive:      true,
		fieldArchived:      false,
	})
	if err != nil {
		return models.Board{}, fmt.Errorf("failed to create board: %w", err)
	}
	return decodeBoardRow(doc), nil
}

// Update rewrites a board's preset fields; its state is untouched.
func (m *Manager) Update(ctx context.Context, boardID string, payload models.BoardPayload) (models.Board, error) {
	customizations := models.ParseCustomizations(payload.Customizations)

	doc, err := m.store.UpdateDocument(ctx, remote.CollectionBoards, boardID, map[string]any{
		fieldItemID:        payload.ItemID,
		fieldName:          payload.Name,
		fieldCustomization: models.EncodeCustomizations(customizations),
		fieldExtrasTotal:   models.ExtrasTotal(customizations),
		fieldItemName:      payload.ItemName,
		fieldItemImage:     payload.ItemImage,
	})
	if err != nil {
		return models.Board{}, fmt.Errorf("failed to update board: %w", err)
	}
	return decodeBoardRow(doc), nil
}

// Get loads one board by id.
func (m *Manager) Get(ctx context.Context, ownerID, boardID string) (models.Board, error) {
	docs, err := m.store.ListDocuments(ctx, remote.CollectionBoards, []remote.Filter{
		remote.Equal(fieldOwnerID, ownerID),
	})
	if err != nil {
		return models.Board{}, fmt.Errorf("failed to load board: %w", err)
	}
	for _, doc := range docs {
		if doc.ID == boardID {
			return decodeBoardRow(doc), nil
		}
	}
	return models.Board{}, remote.ErrNotFound
}

// ListForItem returns the user's boards, optionally narrowed to one
// catalog item, each annotated with its decoded customization list.
func (m *Manager) ListForItem(ctx context.Context, ownerID, itemID string) ([]models.Board, error) {
	filters := []remote.Filter{remote.Equal(fieldOwnerID, ownerID)}
	if itemID != "" {
		filters = append(filters, remote.Equal(fieldItemID, itemID))
	}

	docs, err := m.store.ListDocuments(ctx, remote.CollectionBoards, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}

	boards := make([]models.Board, 0, len(docs))
	for _, doc := range docs {
		boards = append(boards, decodeBoardRow(doc))
	}
	return boards, nil
}

// ConsumeIntoCart spends an Active board: its preset becomes a cart line
// (the engine increments an equivalent existing line instead of
// duplicating it) and the board flips Inactive exactly once. Consuming
// an already-Inactive board is rejected.
func (m *Manager) ConsumeIntoCart(ctx context.Context, carts CartAdder, board models.Board, item models.ItemRef) error {
	if board.Archived {
		return ErrBoardArchived
	}
	if !board.IsActive {
		return ErrBoardInactive
	}

	carts.AddItem(ctx, models.CartItem{
		ItemID:         item.ID,
		Name:           item.Name,
		BasePrice:      item.Price,
		ImageURL:       item.ImageURL,
		Customizations: board.Customizations,
	})

	now := time.Now().UTC()
	_, err := m.store.UpdateDocument(ctx, remote.CollectionBoards, board.ID, map[string]any{
		fieldIsActive:   false,
		fieldLastUsedAt: now.Format(time.RFC3339),
	})
	if err != nil {
		// The cart line landed; the board staying Active is the lesser
		// inconsistency and the user can archive it manually.
		logging.LogKV("warn", "failed to deactivate consumed board", map[string]any{
			"board_id": board.ID, "error": err.Error(),
		})
		return fmt.Errorf("failed to deactivate board: %w", err)
	}
	return nil
}

// Reuse reactivates an Inactive board. Archived boards stay archived.
func (m *Manager) Reuse(ctx context.Context, board models.Board) (models.Board, error) {
	if board.Archived {
		return models.Board{}, ErrBoardArchived
	}

	doc, err := m.store.UpdateDocument(ctx, remote.CollectionBoards, board.ID, map[string]any{
		fieldIsActive: true,
	})
	if err != nil {
		return models.Board{}, fmt.Errorf("failed to reuse board: %w", err)
	}
	return decodeBoardRow(doc), nil
}

// Archive soft-deletes a board. Terminal for the normal flow; archived
// boards remain listed as history.
func (m *Manager) Archive(ctx context.Context, board models.Board) (models.Board, error) {
	doc, err := m.store.UpdateDocument(ctx, remote.CollectionBoards, board.ID, map[string]any{
		fieldIsActive: false,
		fieldArchived: true,
	})
	if err != nil {
		return models.Board{}, fmt.Errorf("failed to archive board: %w", err)
	}
	return decodeBoardRow(doc), nil
}

// ConsumeFailure reports one board that failed during ConsumeAll.
type ConsumeFailure struct {
	BoardID string `json:"board_id"`
	Error   string `json:"error"`
}

// ConsumeAll consumes every Active board in the set independently; one
// board failing never aborts the others.
func (m *Manager) ConsumeAll(ctx context.Context, carts CartAdder, boardsIn []models.Board, item models.ItemRef) []ConsumeFailure {
	var failures []ConsumeFailure
	for _, board := range boardsIn {
		if !board.IsActive || board.Archived {
			continue
		}
		if err := m.ConsumeIntoCart(ctx, carts, board, item); err != nil {
			failures = append(failures, ConsumeFailure{BoardID: board.ID, Error: err.Error()})
		}
	}
	return failures
}

// decodeBoardRow is the single ingestion point for board rows.
func decodeBoardRow(doc remote.Document) models.Board {
	board := models.Board{
		ID:             doc.ID,
		OwnerID:        doc.String(fieldOwnerID),
		ItemID:         doc.String(fieldItemID),
		Name:           doc.String(fieldName),
		Customizations: models.ParseCustomizations(doc.Fields[fieldCustomization]),
		ExtrasTotal:    doc.Float(fieldExtrasTotal),
		ItemName:       doc.String(fieldItemName),
		ItemImage:      doc.String(fieldItemImage),
		IsActive:       doc.Bool(fieldIsActive),
		Archived:       doc.Bool(fieldArchived),
	}
	if raw := doc.String(fieldLastUsedAt); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			board.LastUsedAt = &t
		}
	}
	return board
}
