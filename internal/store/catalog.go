package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"storefront/internal/models"

	"github.com/jmoiron/sqlx"
)

const productColumns = `
	p.id, p.sku, p.name, p.slug, COALESCE(p.description, '') AS description,
	p.price, p.stock, COALESCE(p.image_url, '') AS image_url,
	p.category_id, p.brand_id, p.created_at, p.updated_at`

var productOrderBy = map[models.ProductSort]string{
	models.SortNewest:    "p.created_at DESC, p.id DESC",
	models.SortOldest:    "p.created_at ASC, p.id ASC",
	models.SortPriceAsc:  "p.price ASC, p.id ASC",
	models.SortPriceDesc: "p.price DESC, p.id DESC",
	models.SortNameAsc:   "p.name ASC, p.id ASC",
	models.SortNameDesc:  "p.name DESC, p.id DESC",
}

// productRow is a product joined with its category summary
type productRow struct {
	models.Product
	CategoryName string `db:"category_name"`
	CategorySlug string `db:"category_slug"`
}

func (r productRow) toModel() models.Product {
	p := r.Product
	p.Category = &models.Category{ID: p.CategoryID, Name: r.CategoryName, Slug: r.CategorySlug}
	return p
}

func toProducts(rows []productRow) []models.Product {
	products := make([]models.Product, len(rows))
	for i, r := range rows {
		products[i] = r.toModel()
	}
	return products
}

func productWhere(filter models.ProductFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	if filter.CategorySlug != "" {
		args = append(args, filter.CategorySlug)
		conds = append(conds, fmt.Sprintf("c.slug = $%d", len(args)))
	}
	if filter.PriceMin != nil {
		args = append(args, *filter.PriceMin)
		conds = append(conds, fmt.Sprintf("p.price >= $%d", len(args)))
	}
	if filter.PriceMax != nil {
		args = append(args, *filter.PriceMax)
		conds = append(conds, fmt.Sprintf("p.price <= $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	return getProductByID(ctx, s.db, id)
}

func getProductByID(ctx context.Context, q sqlx.QueryerContext, id int64) (*models.Product, error) {
	var product models.Product
	err := sqlx.GetContext(ctx, q, &product,
		"SELECT"+productColumns+" FROM products p WHERE p.id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductBySlug retrieves a product with its category and brand expanded
func (s *Store) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		"SELECT"+productColumns+" FROM products p WHERE p.slug = $1", slug)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var category models.Category
	if err := s.db.GetContext(ctx, &category, `
		SELECT id, name, slug, COALESCE(description, '') AS description, COALESCE(image_url, '') AS image_url
		FROM categories WHERE id = $1`, product.CategoryID); err != nil {
		return nil, fmt.Errorf("failed to load category: %w", err)
	}

	var brand models.Brand
	if err := s.db.GetContext(ctx, &brand, `
		SELECT id, name, slug, COALESCE(image_url, '') AS image_url
		FROM brands WHERE id = $1`, product.BrandID); err != nil {
		return nil, fmt.Errorf("failed to load brand: %w", err)
	}

	product.Category = &category
	product.Brand = &brand
	return &product, nil
}

// CountProducts counts the products matching a filter
func (s *Store) CountProducts(ctx context.Context, filter models.ProductFilter) (int, error) {
	where, args := productWhere(filter)

	var total int
	err := s.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM products p JOIN categories c ON c.id = p.category_id"+where, args...)
	return total, err
}

// ListProducts returns one page of products matching a filter
func (s *Store) ListProducts(ctx context.Context, filter models.ProductFilter, sort models.ProductSort, limit, offset int) ([]models.Product, error) {
	orderBy, ok := productOrderBy[sort]
	if !ok {
		orderBy = productOrderBy[models.SortNewest]
	}

	where, args := productWhere(filter)
	args = append(args, limit, offset)

	query := fmt.Sprintf(`
		SELECT %s, c.name AS category_name, c.slug AS category_slug
		FROM products p
		JOIN categories c ON c.id = p.category_id%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		productColumns, where, orderBy, len(args)-1, len(args))

	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return toProducts(rows), nil
}

// ListProductImages returns a product's gallery in display order
func (s *Store) ListProductImages(ctx context.Context, productID int64) ([]models.ProductImage, error) {
	var images []models.ProductImage
	err := s.db.SelectContext(ctx, &images,
		"SELECT id, product_id, url, position FROM product_images WHERE product_id = $1 ORDER BY position, id",
		productID)
	return images, err
}

// ListRecommendations returns the newest products of a category except one
func (s *Store) ListRecommendations(ctx context.Context, categoryID, excludeID int64, limit int) ([]models.Product, error) {
	var rows []productRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT`+productColumns+`, c.name AS category_name, c.slug AS category_slug
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.category_id = $1 AND p.id <> $2
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $3`, categoryID, excludeID, limit)
	if err != nil {
		return nil, err
	}
	return toProducts(rows), nil
}

// ListCategories returns all categories alphabetically
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := s.db.SelectContext(ctx, &categories, `
		SELECT id, name, slug, COALESCE(description, '') AS description, COALESCE(image_url, '') AS image_url
		FROM categories ORDER BY name ASC`)
	return categories, err
}

// ListBrands returns all brands alphabetically
func (s *Store) ListBrands(ctx context.Context) ([]models.Brand, error) {
	var brands []models.Brand
	err := s.db.SelectContext(ctx, &brands,
		"SELECT id, name, slug, COALESCE(image_url, '') AS image_url FROM brands ORDER BY name ASC")
	return brands, err
}

// ListPaymentMethods returns the active payment methods in display order
func (s *Store) ListPaymentMethods(ctx context.Context) ([]models.PaymentMethod, error) {
	var methods []models.PaymentMethod
	err := s.db.SelectContext(ctx, &methods, `
		SELECT id, slug, name, COALESCE(icon_url, '') AS icon_url, is_active, sort_order
		FROM payment_methods WHERE is_active ORDER BY sort_order, id`)
	return methods, err
}
