package api

import (
	"net/http"
	"strings"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const ctxUserID = "user_id"

// identify attaches the session user, if any, to the request. Invalid or
// expired tokens leave the request anonymous.
func (h *Handler) identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := h.sessionToken(c); token != "" {
			userID, err := h.auth.Authenticate(token)
			if err != nil {
				h.logger.Debug("Ignoring session token", zap.Error(err))
			} else {
				c.Set(ctxUserID, userID)
			}
		}
		c.Next()
	}
}

func (h *Handler) sessionToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	token, _ := c.Cookie(h.opts.SessionCookie)
	return token
}

func sessionUser(c *gin.Context) *int64 {
	if v, ok := c.Get(ctxUserID); ok {
		if id, ok := v.(int64); ok {
			return &id
		}
	}
	return nil
}

// identity resolves who the request acts for. A claimed userId counts only
// when it matches the session user; the guest cookie is always passed along.
func (h *Handler) identity(c *gin.Context, claimed *int64) service.Identity {
	id := service.Identity{UserID: sessionUser(c)}
	if claimed != nil && (id.UserID == nil || *id.UserID != *claimed) {
		h.logger.Debug("Ignoring unauthenticated userId", zap.Int64("claimed", *claimed))
	}

	id.GuestToken, _ = c.Cookie(h.opts.GuestCookie)
	return id
}

func (h *Handler) setGuestCookie(c *gin.Context, resolved *service.ResolvedCart) {
	if !resolved.NewGuestToken {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.opts.GuestCookie, resolved.GuestToken, h.opts.GuestMaxAge, "/", "", h.opts.SecureCookies, true)
}

func (h *Handler) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.opts.SessionCookie, token, maxAge, "/", "", h.opts.SecureCookies, true)
}

// requireUser writes 401 and returns false when no session user is present
func requireUser(c *gin.Context) (int64, bool) {
	id := sessionUser(c)
	if id == nil {
		respondError(c, service.ErrUnauthorized)
		return 0, false
	}
	return *id, true
}
