package store

import (
	"context"
	"database/sql"

	"storefront/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const cartColumns = "id, user_id, guest_token, status, created_at, updated_at"

const cartItemColumns = "id, cart_id, product_id, quantity, created_at, updated_at"

type upsertedCart struct {
	models.Cart
	Inserted bool `db:"inserted"`
}

// cartItemRow is a cart line joined with the product it references
type cartItemRow struct {
	models.CartItem
	ProductSKU      string          `db:"product_sku"`
	ProductName     string          `db:"product_name"`
	ProductSlug     string          `db:"product_slug"`
	ProductPrice    decimal.Decimal `db:"product_price"`
	ProductStock    int             `db:"product_stock"`
	ProductImageURL string          `db:"product_image_url"`
}

func (r cartItemRow) toModel() models.CartItem {
	item := r.CartItem
	item.Product = &models.Product{
		ID:       item.ProductID,
		SKU:      r.ProductSKU,
		Name:     r.ProductName,
		Slug:     r.ProductSlug,
		Price:    r.ProductPrice,
		Stock:    r.ProductStock,
		ImageURL: r.ProductImageURL,
	}
	return item
}

// UpsertOpenCartForUser returns the user's OPEN cart, creating it when missing
func (s *Store) UpsertOpenCartForUser(ctx context.Context, userID int64) (*models.Cart, bool, error) {
	var row upsertedCart
	err := s.db.GetContext(ctx, &row, `
		INSERT INTO carts (user_id, status) VALUES ($1, 'OPEN')
		ON CONFLICT (user_id) WHERE status = 'OPEN'
		DO UPDATE SET updated_at = NOW()
		RETURNING `+cartColumns+`, (xmax = 0) AS inserted`, userID)
	if err != nil {
		return nil, false, translate(err)
	}
	return &row.Cart, row.Inserted, nil
}

// UpsertOpenCartForGuest returns the guest token's OPEN cart, creating it when missing
func (s *Store) UpsertOpenCartForGuest(ctx context.Context, token string) (*models.Cart, bool, error) {
	var row upsertedCart
	err := s.db.GetContext(ctx, &row, `
		INSERT INTO carts (guest_token, status) VALUES ($1, 'OPEN')
		ON CONFLICT (guest_token) WHERE status = 'OPEN'
		DO UPDATE SET updated_at = NOW()
		RETURNING `+cartColumns+`, (xmax = 0) AS inserted`, token)
	if err != nil {
		return nil, false, translate(err)
	}
	return &row.Cart, row.Inserted, nil
}

// FindOpenCartForUser retrieves the user's OPEN cart without creating one
func (s *Store) FindOpenCartForUser(ctx context.Context, userID int64) (*models.Cart, error) {
	return s.findCart(ctx, "SELECT "+cartColumns+" FROM carts WHERE user_id = $1 AND status = 'OPEN'", userID)
}

// FindOpenCartForGuest retrieves the guest token's OPEN cart without creating one
func (s *Store) FindOpenCartForGuest(ctx context.Context, token string) (*models.Cart, error) {
	return s.findCart(ctx, "SELECT "+cartColumns+" FROM carts WHERE guest_token = $1 AND status = 'OPEN'", token)
}

// GetCartByID retrieves a cart in any status
func (s *Store) GetCartByID(ctx context.Context, id int64) (*models.Cart, error) {
	return s.findCart(ctx, "SELECT "+cartColumns+" FROM carts WHERE id = $1", id)
}

func (s *Store) findCart(ctx context.Context, query string, arg interface{}) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.GetContext(ctx, &cart, query, arg)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// GetCartItem retrieves one line of a cart
func (s *Store) GetCartItem(ctx context.Context, cartID, productID int64) (*models.CartItem, error) {
	var item models.CartItem
	err := s.db.GetContext(ctx, &item,
		"SELECT "+cartItemColumns+" FROM cart_items WHERE cart_id = $1 AND product_id = $2",
		cartID, productID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpsertCartItem adds qty to the line, inserting it when absent
func (s *Store) UpsertCartItem(ctx context.Context, cartID, productID int64, qty int) (*models.CartItem, error) {
	var item models.CartItem
	err := s.db.GetContext(ctx, &item, `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
		RETURNING `+cartItemColumns, cartID, productID, qty)
	if err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

// DecrementCartItem lowers a line by one while its quantity is above one
func (s *Store) DecrementCartItem(ctx context.Context, cartID, productID int64) (*models.CartItem, error) {
	var item models.CartItem
	err := s.db.GetContext(ctx, &item, `
		UPDATE cart_items SET quantity = quantity - 1, updated_at = NOW()
		WHERE cart_id = $1 AND product_id = $2 AND quantity > 1
		RETURNING `+cartItemColumns, cartID, productID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteCartItem removes a line and reports whether it existed
func (s *Store) DeleteCartItem(ctx context.Context, cartID, productID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2", cartID, productID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListCartItems returns the lines of a cart with their products, oldest first
func (s *Store) ListCartItems(ctx context.Context, cartID int64) ([]models.CartItem, error) {
	return listCartItems(ctx, s.db, cartID)
}

func listCartItems(ctx context.Context, q sqlx.QueryerContext, cartID int64) ([]models.CartItem, error) {
	var rows []cartItemRow
	err := sqlx.SelectContext(ctx, q, &rows, `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
			p.sku AS product_sku, p.name AS product_name, p.slug AS product_slug,
			p.price AS product_price, p.stock AS product_stock,
			COALESCE(p.image_url, '') AS product_image_url
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id`, cartID)
	if err != nil {
		return nil, err
	}

	items := make([]models.CartItem, len(rows))
	for i, r := range rows {
		items[i] = r.toModel()
	}
	return items, nil
}

// MergeCartItems folds every line of one cart into another and empties the source
func (s *Store) MergeCartItems(ctx context.Context, fromCartID, toCartID int64) (int, error) {
	var merged int
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO cart_items (cart_id, product_id, quantity)
			SELECT $2, product_id, quantity FROM cart_items WHERE cart_id = $1
			ON CONFLICT (cart_id, product_id)
			DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()`,
			fromCartID, toCartID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		merged = int(n)

		_, err = tx.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id = $1", fromCartID)
		return err
	})
	return merged, err
}
