package store

import (
	"context"
	"fmt"

	"storefront/internal/models"

	"github.com/jmoiron/sqlx"
)

// SeedProduct is a catalog product referencing its category and brand by slug
type SeedProduct struct {
	models.Product
	CategorySlug string
	BrandSlug    string
}

// SeedCatalog is the reference data loaded by cmd/seed
type SeedCatalog struct {
	Categories     []models.Category
	Brands         []models.Brand
	Products       []SeedProduct
	PaymentMethods []models.PaymentMethod
}

// Seed upserts the catalog by slug in one transaction. Existing products keep
// their identity; price, stock and description are refreshed.
func (s *Store) Seed(ctx context.Context, catalog SeedCatalog) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		categoryIDs := make(map[string]int64, len(catalog.Categories))
		for _, c := range catalog.Categories {
			var id int64
			err := tx.GetContext(ctx, &id, `
				INSERT INTO categories (name, slug, description, image_url)
				VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))
				ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name,
					description = EXCLUDED.description, image_url = EXCLUDED.image_url
				RETURNING id`, c.Name, c.Slug, c.Description, c.ImageURL)
			if err != nil {
				return fmt.Errorf("seed category %s: %w", c.Slug, err)
			}
			categoryIDs[c.Slug] = id
		}

		brandIDs := make(map[string]int64, len(catalog.Brands))
		for _, b := range catalog.Brands {
			var id int64
			err := tx.GetContext(ctx, &id, `
				INSERT INTO brands (name, slug, image_url)
				VALUES ($1, $2, NULLIF($3, ''))
				ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name, image_url = EXCLUDED.image_url
				RETURNING id`, b.Name, b.Slug, b.ImageURL)
			if err != nil {
				return fmt.Errorf("seed brand %s: %w", b.Slug, err)
			}
			brandIDs[b.Slug] = id
		}

		for _, p := range catalog.Products {
			categoryID, ok := categoryIDs[p.CategorySlug]
			if !ok {
				return fmt.Errorf("seed product %s: unknown category %q", p.Slug, p.CategorySlug)
			}
			brandID, ok := brandIDs[p.BrandSlug]
			if !ok {
				return fmt.Errorf("seed product %s: unknown brand %q", p.Slug, p.BrandSlug)
			}

			var row struct {
				ID       int64 `db:"id"`
				Inserted bool  `db:"inserted"`
			}
			err := tx.GetContext(ctx, &row, `
				INSERT INTO products (sku, name, slug, description, price, stock, image_url, category_id, brand_id)
				VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''), $8, $9)
				ON CONFLICT (slug) DO UPDATE SET price = EXCLUDED.price, stock = EXCLUDED.stock,
					description = EXCLUDED.description, image_url = EXCLUDED.image_url, updated_at = NOW()
				RETURNING id, (xmax = 0) AS inserted`,
				p.SKU, p.Name, p.Slug, p.Description, p.Price, p.Stock, p.ImageURL, categoryID, brandID)
			if err != nil {
				return fmt.Errorf("seed product %s: %w", p.Slug, err)
			}

			if row.Inserted && p.ImageURL != "" {
				if _, err := tx.ExecContext(ctx,
					"INSERT INTO product_images (product_id, url, position) VALUES ($1, $2, 0)",
					row.ID, p.ImageURL); err != nil {
					return fmt.Errorf("seed image %s: %w", p.Slug, err)
				}
			}
		}

		for _, m := range catalog.PaymentMethods {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO payment_methods (slug, name, icon_url, is_active, sort_order)
				VALUES ($1, $2, NULLIF($3, ''), $4, $5)
				ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name, icon_url = EXCLUDED.icon_url,
					is_active = EXCLUDED.is_active, sort_order = EXCLUDED.sort_order`,
				m.Slug, m.Name, m.IconURL, m.IsActive, m.SortOrder)
			if err != nil {
				return fmt.Errorf("seed payment method %s: %w", m.Slug, err)
			}
		}
		return nil
	})
}
