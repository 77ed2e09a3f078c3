// Package cart owns the canonical in-memory cart for one user and keeps
// it reconciled with the remote store. Mutations apply optimistically to
// local state first; the durable copy is updated by fire-and-forget
// write-through tasks that never roll the local state back.
package cart

import (
	"context"
	"sync"
	"time"

	"github.com/Stephani-e/food-delivery-app/internal/logging"
	"github.com/Stephani-e/food-delivery-app/internal/models"
	"github.com/Stephani-e/food-delivery-app/internal/remote"
)

const writeTimeout = 15 * time.Second

// Engine is one user's cart.
type Engine struct {
	userID   string
	store    remote.Store
	debounce time.Duration

	mu    sync.Mutex
	items []models.CartItem
	meta  models.CartMeta
	// gen tags the current fulfillment context. In-flight work captures
	// it when issued and discards its result if the tag went stale, so a
	// slow write finishing after a clear cannot resurrect rows locally.
	gen uint64

	// writeMu serializes write-through tasks for this engine so the
	// check-then-update-or-insert against the store stays race-free
	// within one process.
	writeMu sync.Mutex
	wg      sync.WaitGroup

	subOnce     sync.Once
	unsubscribe func()

	timerMu sync.Mutex
	timer   *time.Timer
}

// NewEngine builds the cart engine for one user.
func NewEngine(userID string, store remote.Store, debounce time.Duration) *Engine {
	return &Engine{userID: userID, store: store, debounce: debounce}
}

// contextChanged is the single authoritative "fulfillment context
// changed" check. A context change means the branch actually moved or
// the country actually moved; a field going from unset to set is not a
// change.
func contextChanged(old, new models.CartMeta) bool {
	if old.BranchID != "" && new.BranchID != "" && old.BranchID != new.BranchID {
		return true
	}
	if old.Country != "" && new.Country != "" && old.Country != new.Country {
		return true
	}
	return false
}

// SetCartMeta adopts a new fulfillment context. If the context actually
// changed the cart is cleared first; the returned flag tells the caller
// to surface a notice, since dropping items is a meaningful loss.
func (e *Engine) SetCartMeta(ctx context.Context, meta models.CartMeta) bool {
	e.mu.Lock()
	cleared := contextChanged(e.meta, meta)
	if cleared {
		e.clearLocked()
	}
	e.meta = meta
	e.mu.Unlock()

	if cleared {
		logging.LogKV("warn", "cart cleared: fulfillment context changed", map[string]any{
			"user_id": e.userID, "branch_id": meta.BranchID, "country": meta.Country,
		})
	}
	return cleared
}

// HandleCountryChange is the location store's invalidation signal. It
// runs the same context check with only the country updated; the branch
// is dropped alongside the items because a branch cannot survive a
// cross-country move, and the next fulfillment refresh re-selects one.
func (e *Engine) HandleCountryChange(ctx context.Context, country string) bool {
	e.mu.Lock()
	next := e.meta
	next.Country = country
	cleared := contextChanged(e.meta, next)
	if cleared {
		e.clearLocked()
		e.meta = models.CartMeta{Country: country}
	} else {
		e.meta.Country = country
	}
	e.mu.Unlock()

	if cleared {
		logging.LogKV("warn", "cart cleared: country changed", map[string]any{
			"user_id": e.userID, "country": country,
		})
	}
	return cleared
}

// Meta returns the current fulfillment context.
func (e *Engine) Meta() models.CartMeta {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.meta
}

// Items returns a copy of the cart lines.
func (e *Engine) Items() []models.CartItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.CartItem, len(e.items))
	copy(out, e.items)
	return out
}

// TotalItems sums line quantities.
func (e *Engine) TotalItems() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := 0
	for _, item := range e.items {
		total += item.Quantity
	}
	return total
}

// TotalPrice sums the canonical per-line formula over the cart.
func (e *Engine) TotalPrice() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	var total float64
	for _, item := range e.items {
		total += models.LineTotal(item.BasePrice, item.Customizations, item.Quantity)
	}
	return total
}

// AddItem adds one unit of the given item to the cart. Without a known
// fulfillment branch the call is a logged no-op: the state is
// UI-reachable and recoverable, not a bug. An existing line with the
// same composite key is incremented instead of duplicated.
func (e *Engine) AddItem(ctx context.Context, item models.CartItem) {
	e.mu.Lock()
	if e.meta.BranchID == "" {
		e.mu.Unlock()
		logging.LogKV("warn", "addItem ignored: no fulfillment branch set", map[string]any{
			"user_id": e.userID, "item_id": item.ItemID,
		})
		return
	}

	customizations := models.ParseCustomizations(item.Customizations)
	key := CompositeKey(item.ItemID, customizations)

	var line models.CartItem
	if idx := e.indexOfLocked(key); idx >= 0 {
		e.items[idx].Quantity++
		recompute(&e.items[idx])
		line = e.items[idx]
	} else {
		line = item
		line.Customizations = customizations
		line.CompositeKey = key
		line.Quantity = 1
		recompute(&line)
		e.items = append(e.items, line)
	}
	gen := e.gen
	e.mu.Unlock()

	e.spawn(func(taskCtx context.Context) {
		e.writeThroughUpsert(taskCtx, gen, line)
	})
}

// RemoveItem drops the matching line unconditionally and deletes the
// remote row. Removing an absent line is a no-op.
func (e *Engine) RemoveItem(ctx context.Context, itemID string, customizations []models.CartCustomization) {
	key := CompositeKey(itemID, models.ParseCustomizations(customizations))

	e.mu.Lock()
	idx := e.indexOfLocked(key)
	if idx < 0 {
		e.mu.Unlock()
		return
	}
	rowID := e.items[idx].CartRowID
	e.items = append(e.items[:idx], e.items[idx+1:]...)
	gen := e.gen
	e.mu.Unlock()

	e.spawn(func(taskCtx context.Context) {
		e.writeThroughDelete(taskCtx, gen, key, rowID)
	})
}

// IncreaseQty bumps the matching line by one. Absent line: no-op.
func (e *Engine) IncreaseQty(ctx context.Context, itemID string, customizations []models.CartCustomization) {
	e.adjustQty(ctx, itemID, customizations, +1)
}

// DecreaseQty lowers the matching line by one; reaching zero removes the
// line and deletes the remote row. Absent line: no-op.
func (e *Engine) DecreaseQty(ctx context.Context, itemID string, customizations []models.CartCustomization) {
	e.adjustQty(ctx, itemID, customizations, -1)
}

func (e *Engine) adjustQty(ctx context.Context, itemID string, customizations []models.CartCustomization, delta int) {
	key := CompositeKey(itemID, models.ParseCustomizations(customizations))

	e.mu.Lock()
	idx := e.indexOfLocked(key)
	if idx < 0 {
		e.mu.Unlock()
		return
	}

	e.items[idx].Quantity += delta
	if e.items[idx].Quantity <= 0 {
		rowID := e.items[idx].CartRowID
		e.items = append(e.items[:idx], e.items[idx+1:]...)
		gen := e.gen
		e.mu.Unlock()

		e.spawn(func(taskCtx context.Context) {
			e.writeThroughDelete(taskCtx, gen, key, rowID)
		})
		return
	}

	recompute(&e.items[idx])
	line := e.items[idx]
	gen := e.gen
	e.mu.Unlock()

	e.spawn(func(taskCtx context.Context) {
		e.writeThroughQuantity(taskCtx, gen, line)
	})
}

// ClearCart deletes every remote row with a known id and empties the
// local cart unconditionally.
func (e *Engine) ClearCart(ctx context.Context) {
	e.mu.Lock()
	e.clearLocked()
	e.mu.Unlock()
}

// clearLocked bumps the context generation (orphaning in-flight work),
// schedules remote deletes for rows with known ids, and drops all local
// lines. Caller holds e.mu.
func (e *Engine) clearLocked() {
	e.gen++
	gen := e.gen

	rowIDs := make([]string, 0, len(e.items))
	for _, item := range e.items {
		if item.CartRowID != "" {
			rowIDs = append(rowIDs, item.CartRowID)
		}
	}
	e.items = nil

	if len(rowIDs) == 0 {
		return
	}
	e.spawn(func(taskCtx context.Context) {
		e.writeMu.Lock()
		defer e.writeMu.Unlock()
		for _, rowID := range rowIDs {
			if err := e.store.DeleteDocument(taskCtx, remote.CollectionCarts, rowID); err != nil {
				logging.LogKV("warn", "failed to delete cart row", map[string]any{
					"user_id": e.userID, "row_id": rowID, "error": err.Error(), "gen": gen,
				})
			}
		}
	})
}

// LoadFromServer fetches the user's open cart rows and merges them into
// local state by composite key: server values win for lines both sides
// know, new server lines append, and local-only lines that have not
// round-tripped yet survive.
func (e *Engine) LoadFromServer(ctx context.Context) error {
	e.mu.Lock()
	gen := e.gen
	e.mu.Unlock()

	docs, err := e.store.ListDocuments(ctx, remote.CollectionCarts, []remote.Filter{
		remote.Equal(fieldUserID, e.userID),
		remote.Equal(fieldIsCheckedOut, false),
	})
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != gen {
		// Context changed while the read was in flight; result is stale.
		return nil
	}

	for _, doc := range docs {
		serverItem := decodeCartRow(doc)
		if idx := e.indexOfLocked(serverItem.CompositeKey); idx >= 0 {
			e.items[idx] = serverItem
		} else {
			e.items = append(e.items, serverItem)
		}
	}
	return nil
}

// SubscribeToChangeFeed establishes the single change-feed subscription
// for this engine; repeated calls are no-ops. Bursts of feed events
// within the debounce window collapse into one reload.
func (e *Engine) SubscribeToChangeFeed() {
	e.subOnce.Do(func() {
		unsub, err := e.store.Subscribe([]string{remote.CollectionCarts}, func(event remote.Event) {
			if event.Document.String(fieldUserID) != e.userID {
				return
			}
			e.scheduleReload()
		})
		if err != nil {
			logging.LogKV("warn", "failed to subscribe to cart change feed", map[string]any{
				"user_id": e.userID, "error": err.Error(),
			})
			return
		}
		e.unsubscribe = unsub
	})
}

func (e *Engine) scheduleReload() {
	e.timerMu.Lock()
	defer e.timerMu.Unlock()
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := e.LoadFromServer(ctx); err != nil {
			logging.LogKV("warn", "change-feed reload failed", map[string]any{
				"user_id": e.userID, "error": err.Error(),
			})
		}
	})
}

// Flush blocks until every in-flight write-through task has finished.
// Shutdown calls it so optimistic writes reach the store; tests use it
// to observe the durable copy deterministically.
func (e *Engine) Flush() {
	e.wg.Wait()
}

// Close tears down the subscription and drains pending writes.
func (e *Engine) Close() {
	e.timerMu.Lock()
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timerMu.Unlock()

	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	e.Flush()
}

func (e *Engine) indexOfLocked(key string) int {
	for i, item := range e.items {
		if item.CompositeKey == key {
			return i
		}
	}
	return -1
}

func recompute(item *models.CartItem) {
	item.ExtrasTotal = models.ExtrasTotal(item.Customizations)
	item.TotalPrice = models.LineTotal(item.BasePrice, item.Customizations, item.Quantity)
}

func (e *Engine) spawn(task func(ctx context.Context)) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		task(ctx)
	}()
}

// genValid reports whether work issued under the given generation still
// belongs to the current fulfillment context.
func (e *Engine) genValid(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gen == gen
}
