package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Stephani-e/food-delivery-app/internal/boards"
	"github.com/Stephani-e/food-delivery-app/internal/models"
	"github.com/Stephani-e/food-delivery-app/internal/remote"
)

// ListBoards returns the user's boards, optionally for one catalog item.
func (h *Handler) ListBoards(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	list, err := h.boards.ListForItem(c.Request.Context(), userID, c.Query("item_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to list boards",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Boards retrieved successfully",
		Data:    list,
	})
}

// CreateBoard saves a new Active board.
func (h *Handler) CreateBoard(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var payload models.BoardPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err)
		return
	}

	board, err := h.boards.Create(c.Request.Context(), userID, payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to create board",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, models.SuccessResponse{
		Message: "Board created",
		Data:    board,
	})
}

// UpdateBoard rewrites a board's preset fields.
func (h *Handler) UpdateBoard(c *gin.Context) {
	board, ok := h.ownedBoard(c)
	if !ok {
		return
	}

	var payload models.BoardPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err)
		return
	}

	updated, err := h.boards.Update(c.Request.Context(), board.ID, payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to update board",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Board updated",
		Data:    updated,
	})
}

// ConsumeBoard spends an Active board into the cart.
func (h *Handler) ConsumeBoard(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}
	board, ok := h.ownedBoard(c)
	if !ok {
		return
	}

	var item models.ItemRef
	if err := c.ShouldBindJSON(&item); err != nil {
		badRequest(c, err)
		return
	}

	engine := h.carts.ForUser(userID)
	if err := h.boards.ConsumeIntoCart(c.Request.Context(), engine, board, item); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, boards.ErrBoardInactive) || errors.Is(err, boards.ErrBoardArchived) {
			status = http.StatusConflict
		}
		c.JSON(status, models.ErrorResponse{
			Error:   "Failed to consume board",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Board added to cart",
		Data:    cartResponse(engine),
	})
}

// ConsumeAllBoards spends every Active board for a catalog item, each
// independently; failures are reported per board.
func (h *Handler) ConsumeAllBoards(c *gin.Context) {
	userID, ok := GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var item models.ItemRef
	if err := c.ShouldBindJSON(&item); err != nil {
		badRequest(c, err)
		return
	}

	list, err := h.boards.ListForItem(c.Request.Context(), userID, item.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to list boards",
			Message: err.Error(),
		})
		return
	}

	engine := h.carts.ForUser(userID)
	failures := h.boards.ConsumeAll(c.Request.Context(), engine, list, item)

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Active boards added to cart",
		Data: gin.H{
			"cart":     cartResponse(engine),
			"failures": failures,
		},
	})
}

// ReuseBoard reactivates an Inactive board.
func (h *Handler) ReuseBoard(c *gin.Context) {
	board, ok := h.ownedBoard(c)
	if !ok {
		return
	}

	updated, err := h.boards.Reuse(c.Request.Context(), board)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, boards.ErrBoardArchived) {
			status = http.StatusConflict
		}
		c.JSON(status, models.ErrorResponse{
			Error:   "Failed to reuse board",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Board reactivated",
		Data:    updated,
	})
}

// ArchiveBoard soft-deletes a board.
func (h *Handler) ArchiveBoard(c *gin.Context) {
	board, ok := h.ownedBoard(c)
	if !ok {
		return
	}

	updated, err := h.boards.Archive(c.Request.Context(), board)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to archive board",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Board archived",
		Data:    updated,
	})
}

// ownedBoard loads the :id board and enforces ownership.
func (h *Handler) ownedBoard(c *gin.Context) (models.Board, bool) {
	userID, ok := GetUserID(c)
	if !ok {
		unauthorized(c)
		return models.Board{}, false
	}

	board, err := h.boards.Get(c.Request.Context(), userID, c.Param("id"))
	if errors.Is(err, remote.ErrNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "Board not found",
			Message: "No such board for this user",
		})
		return models.Board{}, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to load board",
			Message: err.Error(),
		})
		return models.Board{}, false
	}
	return board, true
}
