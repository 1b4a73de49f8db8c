package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/service"
	"storefront/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger reports whether a backing dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options holds cookie and CORS settings
type Options struct {
	SessionCookie string
	GuestCookie   string
	GuestMaxAge   int
	SecureCookies bool
	CORSOrigins   []string
}

// Services groups the application services the handlers call
type Services struct {
	Catalog   *service.CatalogService
	Carts     *service.CartService
	Orders    *service.OrderService
	Auth      *service.AuthService
	Addresses *service.AddressService
}

type readinessCheck struct {
	name string
	dep  Pinger
}

// Handler contains HTTP handlers
type Handler struct {
	catalog   *service.CatalogService
	carts     *service.CartService
	orders    *service.OrderService
	auth      *service.AuthService
	addresses *service.AddressService
	checks    []readinessCheck
	opts      Options
	logger    *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(svc Services, db Pinger, opts Options) *Handler {
	if opts.SessionCookie == "" {
		opts.SessionCookie = "session"
	}
	if opts.GuestCookie == "" {
		opts.GuestCookie = "guestId"
	}
	if opts.GuestMaxAge == 0 {
		opts.GuestMaxAge = 30 * 24 * 60 * 60
	}

	return &Handler{
		catalog:   svc.Catalog,
		carts:     svc.Carts,
		orders:    svc.Orders,
		auth:      svc.Auth,
		addresses: svc.Addresses,
		checks:    []readinessCheck{{name: "database", dep: db}},
		opts:      opts,
		logger:    util.Named("api"),
	}
}

// AddReadinessCheck makes /ready also depend on dep
func (h *Handler) AddReadinessCheck(name string, dep Pinger) {
	h.checks = append(h.checks, readinessCheck{name: name, dep: dep})
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := service.RegisterValidators(v); err != nil {
			h.logger.Fatal("Failed to register validators", zap.Error(err))
		}
	}

	router.Use(gin.Recovery())
	if len(h.opts.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     h.opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readiness)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api", h.identify())
	{
		api.GET("/categories", h.listCategories)
		api.GET("/brands", h.listBrands)
		api.GET("/payment-methods", h.listPaymentMethods)
		api.GET("/products", h.listProducts)
		api.GET("/products/:slug", h.getProduct)

		api.GET("/cart", h.getCart)
		api.POST("/cart/add", h.addToCart)
		api.POST("/cart/decrease", h.decreaseItem)
		api.POST("/cart/remove", h.removeItem)

		api.POST("/checkout", h.checkout)
		api.GET("/orders/me", h.myOrders)
		api.GET("/orders/:id", h.getOrder)

		api.POST("/auth/register", h.register)
		api.POST("/auth/login", h.login)
		api.POST("/auth/logout", h.logout)

		api.GET("/addresses", h.listAddresses)
		api.POST("/addresses", h.createAddress)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readiness reports ready only while every registered dependency answers
func (h *Handler) readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	for _, check := range h.checks {
		if err := check.dep.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("dependency", check.name), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":     "unavailable",
				"dependency": check.name,
				"time":       time.Now().Unix(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
