package models

// AddItemRequest represents a request to add a menu item to the cart.
type AddItemRequest struct {
	ItemID         string              `json:"item_id" binding:"required"`
	Name           string              `json:"name" binding:"required"`
	BasePrice      float64             `json:"base_price" binding:"required"`
	Customizations []CartCustomization `json:"customizations"`
	Note           string              `json:"note"`
	ImageURL       string              `json:"image_url"`
}

// LineRequest identifies one cart line (remove / increase / decrease).
type LineRequest struct {
	ItemID         string              `json:"item_id" binding:"required"`
	Customizations []CartCustomization `json:"customizations"`
}

// SetCartMetaRequest adopts a new fulfillment context for the cart.
type SetCartMetaRequest struct {
	BranchID   string `json:"branch_id"`
	BranchName string `json:"branch_name"`
	Country    string `json:"country"`
}

// SelectLocationRequest is an explicit user location choice.
type SelectLocationRequest struct {
	Country   string  `json:"country" binding:"required"`
	Name      string  `json:"name" binding:"required"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DetectedLocationRequest reports the device geolocation result. The
// coordinate is optional (country-only mode).
type DetectedLocationRequest struct {
	Country   string   `json:"country" binding:"required"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// BoardPayload carries the writable fields of a board.
type BoardPayload struct {
	ItemID         string              `json:"item_id" binding:"required"`
	Name           string              `json:"name"`
	Customizations []CartCustomization `json:"customizations"`
	ItemName       string              `json:"item_name"`
	ItemImage      string              `json:"item_image"`
}

// ItemRef carries the catalog fields a board needs to become a cart line.
// Boards only store the customization preset; base price and display
// fields come from the item the board is consumed against.
type ItemRef struct {
	ID       string  `json:"id" binding:"required"`
	Name     string  `json:"name" binding:"required"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"image_url"`
}

// CartResponse is the cart read model.
type CartResponse struct {
	Items      []CartItem `json:"items"`
	Meta       CartMeta   `json:"meta"`
	TotalItems int        `json:"total_items"`
	TotalPrice float64    `json:"total_price"`
}

// LocationResponse is the location read model.
type LocationResponse struct {
	Detected      *DetectedLocation `json:"detected,omitempty"`
	Selected      *SelectedLocation `json:"selected,omitempty"`
	ActiveCountry string            `json:"active_country,omitempty"`
	IsDeliverable bool              `json:"is_deliverable"`
	Hydrated      bool              `json:"hydrated"`
}
