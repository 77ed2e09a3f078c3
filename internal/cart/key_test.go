package cart

import (
	"testing"

	"github.com/Stephani-e/food-delivery-app/internal/models"
)

func TestCompositeKeyNoCustomizations(t *testing.T) {
	if key := CompositeKey("burger-1", nil); key != "burger-1" {
		t.Fatalf("expected bare item id, got %q", key)
	}
	if key := CompositeKey("burger-1", []models.CartCustomization{}); key != "burger-1" {
		t.Fatalf("expected bare item id for empty list, got %q", key)
	}
}

func TestCompositeKeyOrderInsensitive(t *testing.T) {
	a := []models.CartCustomization{
		{ID: "cheese", Quantity: 2},
		{ID: "bacon", Quantity: 1},
	}
	b := []models.CartCustomization{
		{ID: "bacon", Quantity: 1},
		{ID: "cheese", Quantity: 2},
	}
	if CompositeKey("burger-1", a) != CompositeKey("burger-1", b) {
		t.Fatalf("same customization set in different order produced different keys: %q vs %q",
			CompositeKey("burger-1", a), CompositeKey("burger-1", b))
	}
}

func TestCompositeKeyDistinguishesQuantities(t *testing.T) {
	one := []models.CartCustomization{{ID: "cheese", Quantity: 1}}
	two := []models.CartCustomization{{ID: "cheese", Quantity: 2}}
	if CompositeKey("burger-1", one) == CompositeKey("burger-1", two) {
		t.Fatal("different customization quantities must produce different keys")
	}
}

func TestCompositeKeyDistinguishesItems(t *testing.T) {
	custs := []models.CartCustomization{{ID: "cheese", Quantity: 1}}
	if CompositeKey("burger-1", custs) == CompositeKey("burger-2", custs) {
		t.Fatal("different items must produce different keys")
	}
}

func TestCompositeKeyFloorsQuantityToOne(t *testing.T) {
	zero := []models.CartCustomization{{ID: "cheese", Quantity: 0}}
	one := []models.CartCustomization{{ID: "cheese", Quantity: 1}}
	if CompositeKey("burger-1", zero) != CompositeKey("burger-1", one) {
		t.Fatal("quantity 0 should key the same as quantity 1")
	}
}
