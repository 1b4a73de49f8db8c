package service

import (
	"context"
	"strings"

	"storefront/internal/models"
	"storefront/internal/port"
	"storefront/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const recommendationLimit = 12

// CatalogOptions holds listing page size bounds
type CatalogOptions struct {
	DefaultPerPage int
	MaxPerPage     int
}

// ProductQuery is a listing request. Zero Page/PerPage take the defaults.
type ProductQuery struct {
	CategorySlug string
	PriceMin     *decimal.Decimal
	PriceMax     *decimal.Decimal
	Sort         string
	Page         int
	PerPage      int
}

// ProductPage is one page of product cards
type ProductPage struct {
	Items []models.ProductCard `json:"items"`
	Meta  models.PageMeta      `json:"meta"`
}

// ProductDetail is a product with its same-category recommendations
type ProductDetail struct {
	Product         *models.Product      `json:"product"`
	Recommendations []models.ProductCard `json:"recommendations"`
}

// CatalogService answers read-only catalog queries
type CatalogService struct {
	catalog port.CatalogRepository
	opts    CatalogOptions
	logger  *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(catalog port.CatalogRepository, opts CatalogOptions) *CatalogService {
	if opts.DefaultPerPage <= 0 {
		opts.DefaultPerPage = 12
	}
	if opts.MaxPerPage <= 0 {
		opts.MaxPerPage = 60
	}
	return &CatalogService{
		catalog: catalog,
		opts:    opts,
		logger:  util.Named("catalog"),
	}
}

var sortAliases = map[string]models.ProductSort{
	"newest":     models.SortNewest,
	"oldest":     models.SortOldest,
	"price_asc":  models.SortPriceAsc,
	"price-asc":  models.SortPriceAsc,
	"cheapest":   models.SortPriceAsc,
	"price_desc": models.SortPriceDesc,
	"price-desc": models.SortPriceDesc,
	"expensive":  models.SortPriceDesc,
	"name_asc":   models.SortNameAsc,
	"name-asc":   models.SortNameAsc,
	"name_desc":  models.SortNameDesc,
	"name-desc":  models.SortNameDesc,
}

// ParseSort maps a client sort value to a listing order; unknown values sort newest first
func ParseSort(raw string) models.ProductSort {
	if sort, ok := sortAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return sort
	}
	return models.SortNewest
}

// ListProducts filters, sorts and paginates the catalog. A page past the end
// is clamped to the last page.
func (s *CatalogService) ListProducts(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListProducts")
	defer span.End()

	if q.PriceMin != nil && q.PriceMin.IsNegative() {
		return nil, badRequest("priceMin must not be negative")
	}
	if q.PriceMax != nil && q.PriceMax.IsNegative() {
		return nil, badRequest("priceMax must not be negative")
	}
	if q.PriceMin != nil && q.PriceMax != nil && q.PriceMin.GreaterThan(*q.PriceMax) {
		return nil, badRequest("priceMin must not exceed priceMax")
	}

	perPage := q.PerPage
	if perPage == 0 {
		perPage = s.opts.DefaultPerPage
	}
	perPage = clamp(perPage, 1, s.opts.MaxPerPage)

	filter := models.ProductFilter{
		CategorySlug: strings.TrimSpace(q.CategorySlug),
		PriceMin:     q.PriceMin,
		PriceMax:     q.PriceMax,
	}
	sort := ParseSort(q.Sort)

	total, err := s.catalog.CountProducts(ctx, filter)
	if err != nil {
		return nil, persistence("count products", err)
	}

	totalPages := (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	page := clamp(q.Page, 1, totalPages)

	products, err := s.catalog.ListProducts(ctx, filter, sort, perPage, (page-1)*perPage)
	if err != nil {
		return nil, persistence("list products", err)
	}

	return &ProductPage{
		Items: toCards(products),
		Meta: models.PageMeta{
			Total:      total,
			PerPage:    perPage,
			Page:       page,
			TotalPages: totalPages,
			HasPrev:    page > 1,
			HasNext:    page < totalPages,
			Sort:       sort,
		},
	}, nil
}

// GetProductBySlug returns a product with brand, category, gallery and up to
// twelve newest products of the same category
func (s *CatalogService) GetProductBySlug(ctx context.Context, slug string) (*ProductDetail, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetProductBySlug")
	defer span.End()

	product, err := s.catalog.GetProductBySlug(ctx, slug)
	if err != nil {
		return nil, persistence("get product", err)
	}
	if product == nil {
		return nil, notFound("product %q not found", slug)
	}

	images, err := s.catalog.ListProductImages(ctx, product.ID)
	if err != nil {
		return nil, persistence("list product images", err)
	}
	product.Images = images

	recs, err := s.catalog.ListRecommendations(ctx, product.CategoryID, product.ID, recommendationLimit)
	if err != nil {
		// the product itself is still worth returning
		s.logger.Warn("Failed to load recommendations", zap.Int64("product_id", product.ID), zap.Error(err))
		recs = nil
	}

	return &ProductDetail{Product: product, Recommendations: toCards(recs)}, nil
}

// ListCategories returns all categories alphabetically
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return nil, persistence("list categories", err)
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, nil
}

// ListBrands returns all brands alphabetically
func (s *CatalogService) ListBrands(ctx context.Context) ([]models.Brand, error) {
	brands, err := s.catalog.ListBrands(ctx)
	if err != nil {
		return nil, persistence("list brands", err)
	}
	if brands == nil {
		brands = []models.Brand{}
	}
	return brands, nil
}

// ListPaymentMethods returns the active payment methods in display order
func (s *CatalogService) ListPaymentMethods(ctx context.Context) ([]models.PaymentMethod, error) {
	methods, err := s.catalog.ListPaymentMethods(ctx)
	if err != nil {
		return nil, persistence("list payment methods", err)
	}
	if methods == nil {
		methods = []models.PaymentMethod{}
	}
	return methods, nil
}

func toCards(products []models.Product) []models.ProductCard {
	cards := make([]models.ProductCard, len(products))
	for i, p := range products {
		card := models.ProductCard{
			ID:    p.ID,
			Slug:  p.Slug,
			Name:  p.Name,
			Price: p.Price,
		}
		if url := strings.TrimSpace(p.ImageURL); url != "" {
			card.ImageURL = &url
		}
		if p.Category != nil {
			card.Category = &models.CategorySummary{ID: p.Category.ID, Name: p.Category.Name, Slug: p.Category.Slug}
		}
		cards[i] = card
	}
	return cards
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
