package service

import (
	"context"
	"testing"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAddressDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "addr@example.com")

	home := models.ShippingAddress{Name: " Home ", Line1: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"}
	first, err := f.addresses.Create(ctx, u.ID, AddressInput{ShippingAddress: home})
	require.NoError(t, err)
	assert.True(t, first.IsDefault, "the first address becomes the default")
	assert.Equal(t, "Home", first.Name)

	work := home
	work.Line1 = "9 Office Park"
	second, err := f.addresses.Create(ctx, u.ID, AddressInput{ShippingAddress: work})
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	third, err := f.addresses.Create(ctx, u.ID, AddressInput{ShippingAddress: work, IsDefault: true})
	require.NoError(t, err)

	list, err := f.addresses.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, third.ID, list[0].ID)
	defaults := 0
	for _, a := range list {
		if a.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestCreateAddressRequiresFields(t *testing.T) {
	f := newFixture(t)

	_, err := f.addresses.Create(context.Background(), 1, AddressInput{ShippingAddress: models.ShippingAddress{Line1: "  ", City: "X"}})
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestListAddressesEmpty(t *testing.T) {
	f := newFixture(t)

	list, err := f.addresses.List(context.Background(), 42)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}
