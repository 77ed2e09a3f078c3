package cart

import (
	"github.com/Stephani-e/food-delivery-app/internal/models"
	"github.com/Stephani-e/food-delivery-app/internal/remote"
)

// Persisted cart row fields. cart_key mirrors the composite key so the
// store can filter by line identity server-side.
const (
	fieldUserID        = "user_id"
	fieldProductID     = "product_id"
	fieldProductName   = "product_name"
	fieldItemPrice     = "itemPrice"
	fieldQuantity      = "quantity"
	fieldIsCheckedOut  = "is_checked_out"
	fieldNote          = "note"
	fieldImageURL      = "image_url"
	fieldCustomization = "customizations"
	fieldCartKey       = "cart_key"
	fieldExtrasTotal   = "extrasTotal"
	fieldTotal         = "total"
)

// encodeCartRow renders a cart line as remote row fields.
func encodeCartRow(userID string, item models.CartItem) map[string]any {
	return map[string]any{
		fieldUserID:        userID,
		fieldProductID:     item.ItemID,
		fieldProductName:   item.Name,
		fieldItemPrice:     item.BasePrice,
		fieldQuantity:      item.Quantity,
		fieldIsCheckedOut:  false,
		fieldNote:          item.Note,
		fieldImageURL:      item.ImageURL,
		fieldCustomization: models.EncodeCustomizations(item.Customizations),
		fieldCartKey:       item.CompositeKey,
		fieldExtrasTotal:   item.ExtrasTotal,
		fieldTotal:         item.TotalPrice,
	}
}

// decodeCartRow is the single ingestion point for cart rows. The
// customization blob is normalized here, and key and totals are always
// recomputed from the decoded parts rather than trusted from the row.
func decodeCartRow(doc remote.Document) models.CartItem {
	customizations := models.ParseCustomizations(doc.Fields[fieldCustomization])

	item := models.CartItem{
		ItemID:         doc.String(fieldProductID),
		CartRowID:      doc.ID,
		Name:           doc.String(fieldProductName),
		BasePrice:      doc.Float(fieldItemPrice),
		Quantity:       doc.Int(fieldQuantity),
		Customizations: customizations,
		Note:           doc.String(fieldNote),
		ImageURL:       doc.String(fieldImageURL),
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	item.CompositeKey = CompositeKey(item.ItemID, customizations)
	item.ExtrasTotal = models.ExtrasTotal(customizations)
	item.TotalPrice = models.LineTotal(item.BasePrice, customizations, item.Quantity)
	return item
}
