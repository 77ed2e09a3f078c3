package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DetectedLocation is what device geolocation + reverse geocoding gives us.
// The coordinate may be absent in country-only mode. Never persisted; the
// app re-reports it at startup.
type DetectedLocation struct {
	Country    string      `json:"country"`
	Coordinate *Coordinate `json:"coordinate,omitempty"`
}

// SelectedLocation is what the user explicitly chose (map pin or branch
// pick). Persisted; overrides the detected location while present.
type SelectedLocation struct {
	Country    string     `json:"country"`
	Name       string     `json:"name"`
	Coordinate Coordinate `json:"coordinate"`
}

// Branch is a fulfillment branch. Server-owned, read-only here.
type Branch struct {
	ID               string     `json:"id"`
	Country          string     `json:"country"`
	City             string     `json:"city"`
	Name             string     `json:"name"`
	Coordinate       Coordinate `json:"coordinate"`
	DeliveryRadiusKm float64    `json:"delivery_radius_km"`
}

// RankedBranch is a branch annotated with deliverability derived for one
// user coordinate. Computed fresh on every evaluation, never persisted.
type RankedBranch struct {
	Branch
	DistanceKm  float64 `json:"distance_km"`
	EtaMinutes  float64 `json:"eta_minutes"`
	Deliverable bool    `json:"deliverable"`
}

// CartMeta identifies which fulfillment context the current cart belongs
// to. At most one branch's worth of items may exist in a cart; changing
// branch or country empties it first.
type CartMeta struct {
	BranchID   string `json:"branch_id,omitempty"`
	BranchName string `json:"branch_name,omitempty"`
	Country    string `json:"country,omitempty"`
}

// CartCustomization is a customization snapshot attached to a cart line.
// Copied at add time so later catalog price changes do not alter existing
// lines.
type CartCustomization struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Type     string  `json:"type"`
}

// CartItem is one cart line. Lines are identified by CompositeKey, not
// ItemID: the same menu item with different toppings stays distinct.
type CartItem struct {
	ItemID         string              `json:"item_id"`
	CartRowID      string              `json:"cart_row_id,omitempty"`
	CompositeKey   string              `json:"composite_key"`
	Name           string              `json:"name"`
	BasePrice      float64             `json:"base_price"`
	Quantity       int                 `json:"quantity"`
	Customizations []CartCustomization `json:"customizations"`
	ExtrasTotal    float64             `json:"extras_total"`
	TotalPrice     float64             `json:"total_price"`
	Note           string              `json:"note,omitempty"`
	ImageURL       string              `json:"image_url,omitempty"`
}

// Board is a named, reusable customization preset for one catalog item,
// owned by one user. Active boards can be consumed into the cart (which
// flips them inactive); inactive boards can be reused; archiving is
// terminal for the normal flow.
type Board struct {
	ID             string              `json:"id"`
	OwnerID        string              `json:"owner_id"`
	ItemID         string              `json:"item_id"`
	Name           string              `json:"name"`
	Customizations []CartCustomization `json:"customizations"`
	ExtrasTotal    float64             `json:"extras_total"`
	ItemName       string              `json:"item_name,omitempty"`
	ItemImage      string              `json:"item_image,omitempty"`
	IsActive       bool                `json:"is_active"`
	Archived       bool                `json:"archived"`
	LastUsedAt     *time.Time          `json:"last_used_at,omitempty"`
}

// ParseCustomizations normalizes a customization blob from the remote
// store into a typed list. Rows sometimes carry a JSON string, sometimes
// an already-decoded array; malformed input degrades to an empty list so
// one corrupt row never aborts a batch. This is the single deserialization
// point for customization payloads.
func ParseCustomizations(input any) []CartCustomization {
	switch v := input.(type) {
	case nil:
		return []CartCustomization{}
	case []CartCustomization:
		return normalizeCustomizations(v)
	case string:
		if v == "" {
			return []CartCustomization{}
		}
		var out []CartCustomization
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return []CartCustomization{}
		}
		return normalizeCustomizations(out)
	case []any:
		raw, err := json.Marshal(v)
		if err != nil {
			return []CartCustomization{}
		}
		var out []CartCustomization
		if err := json.Unmarshal(raw, &out); err != nil {
			return []CartCustomization{}
		}
		return normalizeCustomizations(out)
	default:
		return []CartCustomization{}
	}
}

func normalizeCustomizations(in []CartCustomization) []CartCustomization {
	out := make([]CartCustomization, 0, len(in))
	for _, c := range in {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.Name == "" {
			c.Name = "Extra"
		}
		if c.Quantity < 1 {
			c.Quantity = 1
		}
		if c.Type == "" {
			c.Type = "custom"
		}
		out = append(out, c)
	}
	return out
}

// ExtrasTotal is the canonical extras formula: customization price times
// customization quantity, summed.
func ExtrasTotal(customizations []CartCustomization) float64 {
	var total float64
	for _, c := range customizations {
		q := c.Quantity
		if q < 1 {
			q = 1
		}
		total += c.Price * float64(q)
	}
	return total
}

// LineTotal is the canonical per-line formula: (base + extras) x quantity.
func LineTotal(basePrice float64, customizations []CartCustomization, quantity int) float64 {
	return (basePrice + ExtrasTotal(customizations)) * float64(quantity)
}

// EncodeCustomizations renders the customization list as the JSON string
// stored in remote rows.
func EncodeCustomizations(customizations []CartCustomization) string {
	if customizations == nil {
		customizations = []CartCustomization{}
	}
	b, err := json.Marshal(customizations)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// Validate checks coordinate ranges. Out-of-range values indicate an
// upstream bug, not a runtime condition.
func (c Coordinate) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", c.Longitude)
	}
	return nil
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}
