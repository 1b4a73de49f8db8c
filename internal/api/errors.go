package api

import (
	"errors"
	"net/http"
	"strings"

	"storefront/internal/service"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errorKinds = []struct {
	err    error
	status int
	kind   string
}{
	{service.ErrBadRequest, http.StatusBadRequest, "bad_request"},
	{service.ErrNotFound, http.StatusNotFound, "not_found"},
	{service.ErrEmptyCart, http.StatusBadRequest, "empty_cart"},
	{service.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{service.ErrConflict, http.StatusConflict, "conflict"},
}

// respondError writes {"error": kind, "message": text}. Unclassified errors
// are logged and hidden behind a generic 500.
func respondError(c *gin.Context, err error) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			c.JSON(k.status, gin.H{
				"error":   k.kind,
				"message": message(err, k.err),
			})
			return
		}
	}

	util.Named("api").Error("Request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal",
		"message": "internal server error",
	})
}

// message drops the sentinel prefix from a wrapped error
func message(err, kind error) string {
	msg := err.Error()
	if trimmed := strings.TrimPrefix(msg, kind.Error()+": "); trimmed != "" {
		return trimmed
	}
	return msg
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "bad_request",
		"message": msg,
	})
}
