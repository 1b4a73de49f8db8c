package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/port"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, user_id, cart_id, status, total_amount,
	ship_name, ship_line1, ship_line2, ship_city, ship_province, ship_postal, ship_country,
	created_at, updated_at`

// orderItemRow is an order line joined with its product's display fields
type orderItemRow struct {
	models.OrderItem
	ProductSKU      string          `db:"product_sku"`
	ProductName     string          `db:"product_name"`
	ProductSlug     string          `db:"product_slug"`
	ProductPrice    decimal.Decimal `db:"product_price"`
	ProductImageURL string          `db:"product_image_url"`
	CategoryID      int64           `db:"category_id"`
	CategoryName    string          `db:"category_name"`
	CategorySlug    string          `db:"category_slug"`
	BrandID         int64           `db:"brand_id"`
	BrandName       string          `db:"brand_name"`
	BrandSlug       string          `db:"brand_slug"`
}

// orderTx binds the checkout writes to one database transaction
type orderTx struct {
	tx *sqlx.Tx
}

var _ port.OrderTx = (*orderTx)(nil)

// InTx runs fn inside a single transaction
func (s *Store) InTx(ctx context.Context, fn func(tx port.OrderTx) error) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		return fn(&orderTx{tx: tx})
	})
}

// LockCart reads a cart row FOR UPDATE
func (t *orderTx) LockCart(ctx context.Context, cartID int64) (*models.Cart, error) {
	var cart models.Cart
	err := t.tx.GetContext(ctx, &cart,
		"SELECT "+cartColumns+" FROM carts WHERE id = $1 FOR UPDATE", cartID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (t *orderTx) ListCartItems(ctx context.Context, cartID int64) ([]models.CartItem, error) {
	return listCartItems(ctx, t.tx, cartID)
}

// InsertOrder creates the order header
func (t *orderTx) InsertOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (user_id, cart_id, status, total_amount,
			ship_name, ship_line1, ship_line2, ship_city, ship_province, ship_postal, ship_country)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	return t.tx.QueryRowxContext(ctx, query,
		order.UserID, order.CartID, order.Status, order.TotalAmount,
		order.ShipName, order.ShipLine1, order.ShipLine2, order.ShipCity,
		order.ShipProvince, order.ShipPostal, order.ShipCountry,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
}

// InsertOrderItem creates one order line
func (t *orderTx) InsertOrderItem(ctx context.Context, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	return t.tx.GetContext(ctx, &item.ID, query,
		item.OrderID, item.ProductID, item.Quantity, item.PriceAtPurchase)
}

// UpdateCartStatus moves a cart to a new status
func (t *orderTx) UpdateCartStatus(ctx context.Context, cartID int64, status string) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE carts SET status = $1, updated_at = NOW() WHERE id = $2", status, cartID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("cart not found: %d", cartID)
	}
	return nil
}

// GetOrderByID retrieves an order with its items
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	orders := []models.Order{order}
	if err := s.attachOrderItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListOrdersByUser returns a user's newest orders with their items
func (s *Store) ListOrdersByUser(ctx context.Context, userID int64, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2",
		userID, limit)
	if err != nil {
		return nil, err
	}
	if err := s.attachOrderItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) attachOrderItems(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = i
		orders[i].Items = []models.OrderItem{}
	}

	query, args, err := sqlx.In(`
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price_at_purchase,
			p.sku AS product_sku, p.name AS product_name, p.slug AS product_slug,
			p.price AS product_price, COALESCE(p.image_url, '') AS product_image_url,
			c.id AS category_id, c.name AS category_name, c.slug AS category_slug,
			b.id AS brand_id, b.name AS brand_name, b.slug AS brand_slug
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		JOIN categories c ON c.id = p.category_id
		JOIN brands b ON b.id = p.brand_id
		WHERE oi.order_id IN (?)
		ORDER BY oi.id`, ids)
	if err != nil {
		return err
	}

	var rows []orderItemRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}

	for _, r := range rows {
		item := r.OrderItem
		item.Product = &models.Product{
			ID:         item.ProductID,
			SKU:        r.ProductSKU,
			Name:       r.ProductName,
			Slug:       r.ProductSlug,
			Price:      r.ProductPrice,
			ImageURL:   r.ProductImageURL,
			CategoryID: r.CategoryID,
			BrandID:    r.BrandID,
			Category:   &models.Category{ID: r.CategoryID, Name: r.CategoryName, Slug: r.CategorySlug},
			Brand:      &models.Brand{ID: r.BrandID, Name: r.BrandName, Slug: r.BrandSlug},
		}
		idx := byID[item.OrderID]
		orders[idx].Items = append(orders[idx].Items, item)
	}
	return nil
}
