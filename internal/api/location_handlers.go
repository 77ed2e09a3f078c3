package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Stephani-e/food-delivery-app/internal/models"
)

// FulfillmentResponse reports the outcome of a fulfillment refresh.
type FulfillmentResponse struct {
	Deliverable bool                 `json:"deliverable"`
	Branch      *models.RankedBranch `json:"branch,omitempty"`
	CartCleared bool                 `json:"cart_cleared"`
	Notice      string               `json:"notice,omitempty"`
}

// GetLocation returns the user's location state.
func (h *Handler) GetLocation(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	store := h.locations.ForUser(c.Request.Context(), userID)
	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Location retrieved successfully",
		Data:    store.Snapshot(),
	})
}

// ReportDetected accepts a device geolocation result. Detection is
// advisory; a denied permission simply never reaches this endpoint.
func (h *Handler) ReportDetected(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req models.DetectedLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	detected := &models.DetectedLocation{Country: req.Country}
	if req.Latitude != nil && req.Longitude != nil {
		coord := models.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude}
		if err := coord.Validate(); err != nil {
			badRequest(c, err)
			return
		}
		detected.Coordinate = &coord
	}

	store := h.locations.ForUser(c.Request.Context(), userID)
	store.SetDetected(detected)

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Detected location recorded",
		Data:    store.Snapshot(),
	})
}

// SelectLocation adopts an explicit user location choice, then refreshes
// fulfillment so the cart context follows the new coordinate.
func (h *Handler) SelectLocation(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req models.SelectLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	coord := models.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}
	if err := coord.Validate(); err != nil {
		badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	store := h.locations.ForUser(ctx, userID)
	cleared := store.SetSelected(ctx, models.SelectedLocation{
		Country:    req.Country,
		Name:       req.Name,
		Coordinate: coord,
	})

	result := h.refreshFulfillment(c, userID)
	result.CartCleared = result.CartCleared || cleared
	if result.CartCleared {
		result.Notice = "Your cart was emptied because the delivery location changed"
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Location selected",
		Data: gin.H{
			"location":    store.Snapshot(),
			"fulfillment": result,
		},
	})
}

// ClearSelected drops the explicit selection and its persisted copy.
func (h *Handler) ClearSelected(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	store := h.locations.ForUser(c.Request.Context(), userID)
	store.ClearSelected(c.Request.Context())

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Selected location cleared",
		Data:    store.Snapshot(),
	})
}

// RefreshFulfillment re-evaluates which branch can deliver to the active
// location and scopes the cart to it.
func (h *Handler) RefreshFulfillment(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	result := h.refreshFulfillment(c, userID)
	if result.CartCleared {
		result.Notice = "Your cart was emptied because the delivery branch changed"
	}
	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Fulfillment refreshed",
		Data:    result,
	})
}

// refreshFulfillment ranks the active country's branches against the
// active coordinate and adopts the best deliverable one as cart context.
// No country, no coordinate or no deliverable branch all degrade to
// "not deliverable" without touching the cart context.
func (h *Handler) refreshFulfillment(c *gin.Context, userID string) FulfillmentResponse {
	ctx := c.Request.Context()
	store := h.locations.ForUser(ctx, userID)

	country := store.ActiveCountry()
	if country == "" {
		store.SetDeliverable(false)
		return FulfillmentResponse{}
	}

	coord := store.ActiveCoordinate()
	if coord == nil {
		// Country-only mode: nothing to rank against.
		store.SetDeliverable(false)
		return FulfillmentResponse{}
	}

	candidates, err := h.branches.ListByCountry(ctx, country)
	if err != nil {
		c.Error(err)
		store.SetDeliverable(false)
		return FulfillmentResponse{}
	}
	if len(candidates) == 0 {
		// No branch rows serve this country; expected absence, not the
		// selector's empty-input contract violation.
		store.SetDeliverable(false)
		return FulfillmentResponse{}
	}

	best, err := h.selector.SelectBestBranch(candidates, *coord)
	if err != nil {
		c.Error(err)
		store.SetDeliverable(false)
		return FulfillmentResponse{}
	}
	if best == nil {
		store.SetDeliverable(false)
		return FulfillmentResponse{}
	}

	store.SetDeliverable(true)
	engine := h.carts.ForUser(userID)
	cleared := engine.SetCartMeta(ctx, models.CartMeta{
		BranchID:   best.ID,
		BranchName: best.Name,
		Country:    best.Country,
	})

	return FulfillmentResponse{Deliverable: true, Branch: best, CartCleared: cleared}
}

// RankBranchesForUser returns every branch of a country ranked against a
// coordinate, for branch-list screens.
func (h *Handler) RankBranchesForUser(c *gin.Context) {
	if _, ok := GetUserID(c); !ok {
		unauthorized(c)
		return
	}

	country := c.Query("country")
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if country == "" || errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: "country, lat and lng query parameters are required",
		})
		return
	}

	candidates, err := h.branches.ListByCountry(c.Request.Context(), country)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to list branches",
			Message: err.Error(),
		})
		return
	}

	ranked, err := h.selector.RankBranches(candidates, models.Coordinate{Latitude: lat, Longitude: lng})
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "No branches available",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Branches ranked successfully",
		Data:    ranked,
	})
}
