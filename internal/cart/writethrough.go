package cart

import (
	"context"

	"github.com/google/uuid"

	"github.com/Stephani-e/food-delivery-app/internal/logging"
	"github.com/Stephani-e/food-delivery-app/internal/models"
	"github.com/Stephani-e/food-delivery-app/internal/remote"
)

// Write-through tasks mirror local mutations into the remote store.
// Failures are logged, never retried here, and never rolled back into
// local state; the next successful LoadFromServer reconciles any drift.

// writeThroughUpsert applies create-or-update-by-key semantics: an open
// row with the same user and composite key gets the new quantity, else a
// new row is inserted and the local line back-fills its remote id.
func (e *Engine) writeThroughUpsert(ctx context.Context, gen uint64, line models.CartItem) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if !e.genValid(gen) {
		return
	}

	docs, err := e.store.ListDocuments(ctx, remote.CollectionCarts, []remote.Filter{
		remote.Equal(fieldUserID, e.userID),
		remote.Equal(fieldCartKey, line.CompositeKey),
		remote.Equal(fieldIsCheckedOut, false),
	})
	if err != nil {
		e.logWriteFailure("lookup", line.CompositeKey, err)
		return
	}

	if len(docs) > 0 {
		existing := docs[0]
		_, err := e.store.UpdateDocument(ctx, remote.CollectionCarts, existing.ID, map[string]any{
			fieldQuantity: line.Quantity,
			fieldTotal:    line.TotalPrice,
		})
		if err != nil {
			e.logWriteFailure("update", line.CompositeKey, err)
			return
		}
		e.backfillRowID(gen, line.CompositeKey, existing.ID)
		return
	}

	doc, err := e.store.CreateDocument(ctx, remote.CollectionCarts, uuid.NewString(), encodeCartRow(e.userID, line))
	if err != nil {
		e.logWriteFailure("create", line.CompositeKey, err)
		return
	}
	e.backfillRowID(gen, line.CompositeKey, doc.ID)
}

// writeThroughQuantity pushes a quantity change for an existing line.
func (e *Engine) writeThroughQuantity(ctx context.Context, gen uint64, line models.CartItem) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if !e.genValid(gen) {
		return
	}

	rowID := line.CartRowID
	if rowID == "" {
		var ok bool
		rowID, ok = e.lookupRowID(ctx, line.CompositeKey)
		if !ok {
			return
		}
	}

	_, err := e.store.UpdateDocument(ctx, remote.CollectionCarts, rowID, map[string]any{
		fieldQuantity: line.Quantity,
		fieldTotal:    line.TotalPrice,
	})
	if err != nil {
		e.logWriteFailure("update", line.CompositeKey, err)
		return
	}
	e.backfillRowID(gen, line.CompositeKey, rowID)
}

// writeThroughDelete removes the remote row backing a removed line.
func (e *Engine) writeThroughDelete(ctx context.Context, gen uint64, key, rowID string) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if !e.genValid(gen) {
		return
	}

	if rowID == "" {
		var ok bool
		rowID, ok = e.lookupRowID(ctx, key)
		if !ok {
			return
		}
	}

	if err := e.store.DeleteDocument(ctx, remote.CollectionCarts, rowID); err != nil {
		e.logWriteFailure("delete", key, err)
	}
}

// lookupRowID finds the open remote row for a composite key when the
// local line never learned its id.
func (e *Engine) lookupRowID(ctx context.Context, key string) (string, bool) {
	docs, err := e.store.ListDocuments(ctx, remote.CollectionCarts, []remote.Filter{
		remote.Equal(fieldUserID, e.userID),
		remote.Equal(fieldCartKey, key),
		remote.Equal(fieldIsCheckedOut, false),
	})
	if err != nil {
		e.logWriteFailure("lookup", key, err)
		return "", false
	}
	if len(docs) == 0 {
		return "", false
	}
	return docs[0].ID, true
}

// backfillRowID records the remote row id on the matching local line so
// future mutations target the row directly. Skipped when the context
// moved on or the line is already gone.
func (e *Engine) backfillRowID(gen uint64, key, rowID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != gen {
		return
	}
	if idx := e.indexOfLocked(key); idx >= 0 && e.items[idx].CartRowID == "" {
		e.items[idx].CartRowID = rowID
	}
}

func (e *Engine) logWriteFailure(op, key string, err error) {
	logging.LogKV("warn", "cart write-through failed", map[string]any{
		"user_id": e.userID, "op": op, "cart_key": key, "error": err.Error(),
	})
}
