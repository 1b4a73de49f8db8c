package store

import (
	"context"
	"database/sql"

	"storefront/internal/models"

	"github.com/jmoiron/sqlx"
)

const addressColumns = "id, user_id, name, line1, line2, city, province, postal_code, country, is_default, created_at"

// CreateAddress saves a shipping address for a user. A new default address
// clears the flag on the user's other addresses.
func (s *Store) CreateAddress(ctx context.Context, address *models.Address) error {
	query := `
		INSERT INTO addresses (user_id, name, line1, line2, city, province, postal_code, country, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if address.IsDefault {
			if _, err := tx.ExecContext(ctx,
				"UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND is_default", address.UserID); err != nil {
				return err
			}
		}
		return tx.QueryRowxContext(ctx, query,
			address.UserID, address.Name, address.Line1, address.Line2, address.City,
			address.Province, address.PostalCode, address.Country, address.IsDefault,
		).Scan(&address.ID, &address.CreatedAt)
	})
}

// ListAddressesByUser returns the default address first, then newest
func (s *Store) ListAddressesByUser(ctx context.Context, userID int64) ([]models.Address, error) {
	var addresses []models.Address
	err := s.db.SelectContext(ctx, &addresses,
		"SELECT "+addressColumns+" FROM addresses WHERE user_id = $1 ORDER BY is_default DESC, created_at DESC, id DESC",
		userID)
	return addresses, err
}

// GetAddressForUser retrieves an address only when it belongs to userID
func (s *Store) GetAddressForUser(ctx context.Context, id, userID int64) (*models.Address, error) {
	var address models.Address
	err := s.db.GetContext(ctx, &address,
		"SELECT "+addressColumns+" FROM addresses WHERE id = $1 AND user_id = $2", id, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &address, nil
}
