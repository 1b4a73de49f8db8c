package api

import (
	"net/http"
	"strconv"

	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

type checkoutRequest struct {
	UserID    *int64                  `json:"userId"`
	Address   *models.ShippingAddress `json:"address"`
	AddressID *int64                  `json:"addressId"`
}

// checkout handles POST /checkout. The Idempotency-Key header makes retries safe.
func (h *Handler) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, service.DescribeValidation(err))
		return
	}

	order, err := h.orders.Checkout(c.Request.Context(), h.identity(c, req.UserID), service.CheckoutInput{
		Address:        req.Address,
		AddressID:      req.AddressID,
		IdempotencyKey: c.GetHeader("Idempotency-Key"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// myOrders lists the session user's recent orders
func (h *Handler) myOrders(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	orders, err := h.orders.ListOrdersForUser(c.Request.Context(), userID, queryInt(c, "limit"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// getOrder handles get order by ID. Orders are visible only to the member who
// placed them, or to the guest whose cart became the order.
func (h *Handler) getOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || orderID <= 0 {
		badRequest(c, "invalid order id")
		return
	}

	order, err := h.orders.GetOrderFor(c.Request.Context(), orderID, h.identity(c, nil))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}
