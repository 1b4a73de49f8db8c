package api

import (
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

type cartRequest struct {
	UserID    *int64 `json:"userId"`
	ProductID int64  `json:"productId"`
	Qty       *int   `json:"qty"`
}

// getCart resolves (creating when needed) the caller's OPEN cart
func (h *Handler) getCart(c *gin.Context) {
	var claimed *int64
	if raw := c.Query("userId"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			claimed = &id
		}
	}

	ctx := c.Request.Context()
	resolved, err := h.carts.Resolve(ctx, h.identity(c, claimed))
	if err != nil {
		respondError(c, err)
		return
	}
	h.setGuestCookie(c, resolved)

	items, err := h.carts.Items(ctx, resolved.Cart)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cartId":  resolved.Cart.ID,
		"items":   items,
		"summary": service.Summarize(items),
	})
}

func (h *Handler) addToCart(c *gin.Context) {
	var req cartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	resolved, item, err := h.carts.AddToCart(c.Request.Context(), h.identity(c, req.UserID), req.ProductID, req.Qty)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			badRequest(c, "invalid productId")
			return
		}
		respondError(c, err)
		return
	}
	h.setGuestCookie(c, resolved)

	c.JSON(http.StatusOK, gin.H{
		"cartId": resolved.Cart.ID,
		"item":   item,
	})
}

func (h *Handler) decreaseItem(c *gin.Context) {
	var req cartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	cart, err := h.carts.Find(ctx, h.identity(c, req.UserID))
	if err != nil {
		respondError(c, err)
		return
	}

	item, err := h.carts.DecreaseItem(ctx, cart, req.ProductID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cartId": cart.ID,
		"item":   item,
	})
}

func (h *Handler) removeItem(c *gin.Context) {
	var req cartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	cart, err := h.carts.Find(ctx, h.identity(c, req.UserID))
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.carts.RemoveItem(ctx, cart, req.ProductID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cartId": cart.ID,
		"ok":     true,
	})
}
