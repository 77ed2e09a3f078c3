package cart

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Stephani-e/food-delivery-app/internal/models"
)

// CompositeKey derives the identity of a cart line from the item id plus
// its sorted, quantity-annotated customization ids. Two lines are the
// same line iff their keys match; the same menu item with different
// toppings stays distinct.
func CompositeKey(itemID string, customizations []models.CartCustomization) string {
	if len(customizations) == 0 {
		return itemID
	}

	parts := make([]string, 0, len(customizations))
	for _, c := range customizations {
		q := c.Quantity
		if q < 1 {
			q = 1
		}
		parts = append(parts, fmt.Sprintf("%s:%d", c.ID, q))
	}
	sort.Strings(parts)

	return itemID + "|" + strings.Join(parts, ",")
}
