package boards

import (
	"context"
	"errors"
	"testing"

	"github.com/Stephani-e/food-delivery-app/internal/models"
	"github.com/Stephani-e/food-delivery-app/internal/remote"
)

// cartRecorder captures AddItem calls in place of a real engine.
type cartRecorder struct {
	added []models.CartItem
}

func (r *cartRecorder) AddItem(_ context.Context, item models.CartItem) {
	r.added = append(r.added, item)
}

var spicyPayload = models.BoardPayload{
	ItemID: "burger-1",
	Name:   "Spicy setup",
	Customizations: []models.CartCustomization{
		{ID: "pepper", Name: "Extra Pepper", Price: 0.5, Quantity: 2, Type: "topping"},
	},
	ItemName:  "Classic Burger",
	ItemImage: "https://img.example/burger.png",
}

var burgerRef = models.ItemRef{
	ID: "burger-1", Name: "Classic Burger", Price: 5, ImageURL: "https://img.example/burger.png",
}

func TestCreateBoardStartsActive(t *testing.T) {
	mgr := NewManager(remote.NewMemoryStore())
	ctx := context.Background()

	board, err := mgr.Create(ctx, "user-1", spicyPayload)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !board.IsActive || board.Archived {
		t.Fatalf("new board must be active and not archived, got %+v", board)
	}
	if board.ExtrasTotal != 1 {
		t.Fatalf("expected extras total 1 (0.5 x 2), got %v", board.ExtrasTotal)
	}
	if len(board.Customizations) != 1 || board.Customizations[0].ID != "pepper" {
		t.Fatalf("expected decoded customizations, got %+v", board.Customizations)
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	mgr := NewManager(remote.NewMemoryStore())
	ctx := context.Background()

	board, err := mgr.Create(ctx, "user-1", spicyPayload)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := mgr.Get(ctx, "user-1", board.ID); err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
	if _, err := mgr.Get(ctx, "intruder", board.ID); !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another user's board, got %v", err)
	}
}

func TestListForItemFilters(t *testing.T) {
	mgr := NewManager(remote.NewMemoryStore())
	ctx := context.Background()

	if _, err := mgr.Create(ctx, "user-1", spicyPayload); err != nil {
		t.Fatalf("Create: %v", err)
	}
	other := spicyPayload
	other.ItemID = "pizza-1"
	if _, err := mgr.Create(ctx, "user-1", other); err != nil {
		t.Fatalf("Create: %v", err)
	}

	all, err := mgr.ListForItem(ctx, "user-1", "")
	if err != nil {
		t.Fatalf("ListForItem: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 boards, got %d", len(all))
	}

	burgers, err := mgr.ListForItem(ctx, "user-1", "burger-1")
	if err != nil {
		t.Fatalf("ListForItem: %v", err)
	}
	if len(burgers) != 1 || burgers[0].ItemID != "burger-1" {
		t.Fatalf("expected only the burger board, got %+v", burgers)
	}
}

func TestConsumeFlipsInactiveExactlyOnce(t *testing.T) {
	mgr := NewManager(remote.NewMemoryStore())
	ctx := context.Background()
	recorder := &cartRecorder{}

	board, err := mgr.Create(ctx, "user-1", spicyPayload)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := mgr.ConsumeIntoCart(ctx, recorder, board, burgerRef); err != nil {
		t.Fatalf("ConsumeIntoCart: %v", err)
	}
	if len(recorder.added) != 1 {
		t.Fatalf("expected one cart add, got %d", len(recorder.added))
	}
	added := recorder.added[0]
	if added.ItemID != "burger-1" || added.BasePrice != 5 {
		t.Fatalf("cart line did not carry the item reference: %+v", added)
	}
	if len(added.Customizations) != 1 || added.Customizations[0].ID != "pepper" {
		t.Fatalf("cart line did not carry the preset: %+v", added.Customizations)
	}

	reloaded, err := mgr.Get(ctx, "user-1", board.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if reloaded.IsActive {
		t.Fatal("consumed board must flip inactive")
	}
	if reloaded.LastUsedAt == nil {
		t.Fatal("consumed board must record last used time")
	}

	// Second consume against the reloaded (inactive) state is rejected
	// and must not add another cart line.
	if err := mgr.ConsumeIntoCart(ctx, recorder, reloaded, burgerRef); !errors.Is(err, ErrBoardInactive) {
		t.Fatalf("expected ErrBoardInactive, got %v", err)
	}
	if len(recorder.added) != 1 {
		t.Fatalf("rejected consume must not add to cart, got %d adds", len(recorder.added))
	}
}

func TestReuseReactivates(t *testing.T) {
	mgr := NewManager(remote.NewMemoryStore())
	ctx := context.Background()
	recorder := &cartRecorder{}

	board, _ := mgr.Create(ctx, "user-1", spicyPayload)
	if err := mgr.ConsumeIntoCart(ctx, recorder, board, burgerRef); err != nil {
		t.Fatalf("ConsumeIntoCart: %v", err)
	}

	inactive, _ := mgr.Get(ctx, "user-1", board.ID)
	reused, err := mgr.Reuse(ctx, inactive)
	if err != nil {
		t.Fatalf("Reuse: %v", err)
	}
	if !reused.IsActive {
		t.Fatal("reused board must be active again")
	}

	// Active again: consumable a second time.
	if err := mgr.ConsumeIntoCart(ctx, recorder, reused, burgerRef); err != nil {
		t.Fatalf("second consume after reuse: %v", err)
	}
	if len(recorder.added) != 2 {
		t.Fatalf("expected two cart adds over the lifecycle, got %d", len(recorder.added))
	}
}

func TestArchivedBoardIsTerminal(t *testing.T) {
	mgr := NewManager(remote.NewMemoryStore())
	ctx := context.Background()

	board, _ := mgr.Create(ctx, "user-1", spicyPayload)
	archived, err := mgr.Archive(ctx, board)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if !archived.Archived || archived.IsActive {
		t.Fatalf("expected archived inactive board, got %+v", archived)
	}

	if _, err := mgr.Reuse(ctx, archived); !errors.Is(err, ErrBoardArchived) {
		t.Fatalf("expected ErrBoardArchived on reuse, got %v", err)
	}
	if err := mgr.ConsumeIntoCart(ctx, &cartRecorder{}, archived, burgerRef); !errors.Is(err, ErrBoardArchived) {
		t.Fatalf("expected ErrBoardArchived on consume, got %v", err)
	}
}

func TestUpdateKeepsState(t *testing.T) {
	mgr := NewManager(remote.NewMemoryStore())
	ctx := context.Background()

	board, _ := mgr.Create(ctx, "user-1", spicyPayload)
	changed := spicyPayload
	changed.Name = "Extra spicy"
	changed.Customizations = append(changed.Customizations, models.CartCustomization{
		ID: "chili", Name: "Chili Oil", Price: 1, Quantity: 1, Type: "sauce",
	})

	updated, err := mgr.Update(ctx, board.ID, changed)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Extra spicy" {
		t.Fatalf("expected renamed board, got %q", updated.Name)
	}
	if updated.ExtrasTotal != 2 {
		t.Fatalf("expected extras total 2, got %v", updated.ExtrasTotal)
	}
	if !updated.IsActive {
		t.Fatal("update must not change board state")
	}
}

// failingStore injects an update failure for one board id.
type failingStore struct {
	remote.Store
	failID string
}

func (f *failingStore) UpdateDocument(ctx context.Context, collection, id string, fields map[string]any) (remote.Document, error) {
	if collection == remote.CollectionBoards && id == f.failID {
		return remote.Document{}, errors.New("store unavailable")
	}
	return f.Store.UpdateDocument(ctx, collection, id, fields)
}

func TestConsumeAllFailuresAreIndependent(t *testing.T) {
	mem := remote.NewMemoryStore()
	ctx := context.Background()

	seed := NewManager(mem)
	first, _ := seed.Create(ctx, "user-1", spicyPayload)
	second, _ := seed.Create(ctx, "user-1", spicyPayload)
	third, _ := seed.Create(ctx, "user-1", spicyPayload)

	// The second board will fail to deactivate.
	mgr := NewManager(&failingStore{Store: mem, failID: second.ID})
	recorder := &cartRecorder{}

	spent := third
	spent.IsActive = false
	failures := mgr.ConsumeAll(ctx, recorder, []models.Board{first, second, spent}, burgerRef)

	if len(failures) != 1 || failures[0].BoardID != second.ID {
		t.Fatalf("expected exactly the failing board reported, got %+v", failures)
	}
	// Both active boards reached the cart; the spent one was skipped.
	if len(recorder.added) != 2 {
		t.Fatalf("expected 2 cart adds, got %d", len(recorder.added))
	}

	reloaded, _ := seed.Get(ctx, "user-1", first.ID)
	if reloaded.IsActive {
		t.Fatal("successfully consumed board must be inactive")
	}
}
