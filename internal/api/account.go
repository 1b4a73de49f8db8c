package api

import (
	"net/http"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) register(c *gin.Context) {
	var in service.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, service.DescribeValidation(err))
		return
	}

	user, err := h.auth.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "user": user})
}

// login issues a session cookie and folds any guest cart into the user's cart
func (h *Handler) login(c *gin.Context) {
	var in service.LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, service.DescribeValidation(err))
		return
	}

	guestToken, _ := c.Cookie(h.opts.GuestCookie)
	session, err := h.auth.Login(c.Request.Context(), in, guestToken)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setSessionCookie(c, session.Token, int(session.TTL.Seconds()))
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"user":      session.User,
		"token":     session.Token,
		"expiresAt": session.ExpiresAt,
	})
}

func (h *Handler) logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) listAddresses(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	addresses, err := h.addresses.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": addresses})
}

func (h *Handler) createAddress(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var in service.AddressInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, service.DescribeValidation(err))
		return
	}

	address, err := h.addresses.Create(c.Request.Context(), userID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"address": address})
}
