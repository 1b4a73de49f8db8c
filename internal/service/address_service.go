package service

import (
	"context"
	"strings"

	"storefront/internal/models"
	"storefront/internal/port"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// AddressInput is a saved-address form
type AddressInput struct {
	models.ShippingAddress
	IsDefault bool `json:"isDefault"`
}

// AddressService manages a user's saved shipping addresses
type AddressService struct {
	addresses port.AddressRepository
	logger    *zap.Logger
}

func NewAddressService(addresses port.AddressRepository) *AddressService {
	return &AddressService{addresses: addresses, logger: util.Named("addresses")}
}

// Create saves an address; the first address a user saves becomes the default
func (s *AddressService) Create(ctx context.Context, userID int64, in AddressInput) (*models.Address, error) {
	ctx, span := util.StartSpan(ctx, "AddressService.Create")
	defer span.End()

	if strings.TrimSpace(in.Line1) == "" || strings.TrimSpace(in.City) == "" ||
		strings.TrimSpace(in.PostalCode) == "" || strings.TrimSpace(in.Country) == "" {
		return nil, badRequest("line, city, postal and country are required")
	}

	existing, err := s.addresses.ListAddressesByUser(ctx, userID)
	if err != nil {
		return nil, persistence("list addresses", err)
	}

	address := &models.Address{
		UserID:     userID,
		Name:       strings.TrimSpace(in.Name),
		Line1:      strings.TrimSpace(in.Line1),
		Line2:      strings.TrimSpace(in.Line2),
		City:       strings.TrimSpace(in.City),
		Province:   strings.TrimSpace(in.Province),
		PostalCode: strings.TrimSpace(in.PostalCode),
		Country:    strings.TrimSpace(in.Country),
		IsDefault:  in.IsDefault || len(existing) == 0,
	}
	if err := s.addresses.CreateAddress(ctx, address); err != nil {
		return nil, persistence("create address", err)
	}

	s.logger.Info("Address saved", zap.Int64("user_id", userID), zap.Int64("address_id", address.ID))
	return address, nil
}

// List returns the user's addresses, default first
func (s *AddressService) List(ctx context.Context, userID int64) ([]models.Address, error) {
	addresses, err := s.addresses.ListAddressesByUser(ctx, userID)
	if err != nil {
		return nil, persistence("list addresses", err)
	}
	if addresses == nil {
		addresses = []models.Address{}
	}
	return addresses, nil
}
