package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Stephani-e/food-delivery-app/internal/boards"
	"github.com/Stephani-e/food-delivery-app/internal/branch"
	"github.com/Stephani-e/food-delivery-app/internal/cart"
	"github.com/Stephani-e/food-delivery-app/internal/location"
	"github.com/Stephani-e/food-delivery-app/internal/logging"
	"github.com/Stephani-e/food-delivery-app/internal/models"
	"github.com/Stephani-e/food-delivery-app/internal/remote"
)

// Handler wires the cart, board, branch and location subsystems to HTTP.
type Handler struct {
	store     remote.Store
	carts     *cart.Manager
	boards    *boards.Manager
	locations *location.Manager
	branches  *branch.Repository
	selector  *branch.Selector
}

// NewHandler creates a new handler instance
func NewHandler(store remote.Store, carts *cart.Manager, boardMgr *boards.Manager, locations *location.Manager, branches *branch.Repository, selector *branch.Selector) *Handler {
	return &Handler{
		store:     store,
		carts:     carts,
		boards:    boardMgr,
		locations: locations,
		branches:  branches,
		selector:  selector,
	}
}

type healthChecker interface {
	Health(ctx context.Context) error
}

// Health checks the health of the service
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if checker, ok := h.store.(healthChecker); ok {
		if err := checker.Health(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
				Error:   "Store connection failed",
				Message: err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "cart-service",
		"timestamp": time.Now().UTC(),
	})
}

// GetCart reconciles with the remote store and returns the cart.
func (h *Handler) GetCart(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	engine := h.carts.ForUser(userID)
	if err := engine.LoadFromServer(ctx); err != nil {
		// Local state stays the working truth on a failed read.
		logging.LogKV("warn", "cart load failed, serving local state", map[string]any{
			"user_id": userID, "error": err.Error(),
		})
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Cart retrieved successfully",
		Data:    cartResponse(engine),
	})
}

// AddItem adds one unit of an item to the cart.
func (h *Handler) AddItem(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req models.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	engine := h.carts.ForUser(userID)
	engine.AddItem(c.Request.Context(), models.CartItem{
		ItemID:         req.ItemID,
		Name:           req.Name,
		BasePrice:      req.BasePrice,
		Customizations: req.Customizations,
		Note:           req.Note,
		ImageURL:       req.ImageURL,
	})

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Item added to cart",
		Data:    cartResponse(engine),
	})
}

// RemoveItem removes the matching line entirely.
func (h *Handler) RemoveItem(c *gin.Context) {
	h.lineOp(c, "Item removed from cart", func(engine *cart.Engine, ctx context.Context, req models.LineRequest) {
		engine.RemoveItem(ctx, req.ItemID, req.Customizations)
	})
}

// IncreaseQty bumps the matching line by one.
func (h *Handler) IncreaseQty(c *gin.Context) {
	h.lineOp(c, "Quantity increased", func(engine *cart.Engine, ctx context.Context, req models.LineRequest) {
		engine.IncreaseQty(ctx, req.ItemID, req.Customizations)
	})
}

// DecreaseQty lowers the matching line by one, removing it at zero.
func (h *Handler) DecreaseQty(c *gin.Context) {
	h.lineOp(c, "Quantity decreased", func(engine *cart.Engine, ctx context.Context, req models.LineRequest) {
		engine.DecreaseQty(ctx, req.ItemID, req.Customizations)
	})
}

func (h *Handler) lineOp(c *gin.Context, message string, op func(*cart.Engine, context.Context, models.LineRequest)) {
	userID, ok := GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req models.LineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	engine := h.carts.ForUser(userID)
	op(engine, c.Request.Context(), req)

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: message,
		Data:    cartResponse(engine),
	})
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	engine := h.carts.ForUser(userID)
	engine.ClearCart(c.Request.Context())

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Cart cleared",
		Data:    cartResponse(engine),
	})
}

// SetCartMeta adopts a new fulfillment context; a context change empties
// the cart and the response carries an explicit notice about it.
func (h *Handler) SetCartMeta(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req models.SetCartMetaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	engine := h.carts.ForUser(userID)
	cleared := engine.SetCartMeta(c.Request.Context(), models.CartMeta{
		BranchID:   req.BranchID,
		BranchName: req.BranchName,
		Country:    req.Country,
	})

	message := "Cart context updated"
	if cleared {
		message = "Cart context updated; previous items were removed because they may not apply to the new branch"
	}
	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: message,
		Data: gin.H{
			"cart":    cartResponse(engine),
			"cleared": cleared,
		},
	})
}

func cartResponse(engine *cart.Engine) models.CartResponse {
	return models.CartResponse{
		Items:      engine.Items(),
		Meta:       engine.Meta(),
		TotalItems: engine.TotalItems(),
		TotalPrice: engine.TotalPrice(),
	}
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   "Invalid user",
		Message: "Could not extract user ID from token",
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "Invalid request",
		Message: err.Error(),
	})
}
