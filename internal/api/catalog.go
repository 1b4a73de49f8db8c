package api

import (
	"net/http"
	"strconv"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// listProducts handles GET /products?category=&priceMin=&priceMax=&sort=&page=&perPage=
func (h *Handler) listProducts(c *gin.Context) {
	q := service.ProductQuery{
		CategorySlug: c.Query("category"),
		Sort:         c.Query("sort"),
		Page:         queryInt(c, "page"),
		PerPage:      queryInt(c, "perPage"),
	}

	var ok bool
	if q.PriceMin, ok = queryDecimal(c, "priceMin"); !ok {
		return
	}
	if q.PriceMax, ok = queryDecimal(c, "priceMax"); !ok {
		return
	}

	page, err := h.catalog.ListProducts(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) getProduct(c *gin.Context) {
	detail, err := h.catalog.GetProductBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *Handler) listBrands(c *gin.Context) {
	brands, err := h.catalog.ListBrands(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, brands)
}

func (h *Handler) listPaymentMethods(c *gin.Context) {
	methods, err := h.catalog.ListPaymentMethods(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paymentMethods": methods})
}

// queryInt reads an integer query value; missing or malformed values read as zero
func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}

// queryDecimal reads an optional decimal query value, writing 400 when malformed
func queryDecimal(c *gin.Context, key string) (*decimal.Decimal, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		badRequest(c, key+" must be a number")
		return nil, false
	}
	return &d, true
}
