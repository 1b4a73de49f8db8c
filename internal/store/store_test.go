package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/port"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore connects to TEST_DATABASE_URL, migrates and seeds a small catalog
func openTestStore(t *testing.T) (*Store, []SeedProduct) {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Integration test - requires TEST_DATABASE_URL")
	}

	store, err := NewStore(url)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate())

	suffix := uuid.NewString()[:8]
	category := models.Category{Name: "Test " + suffix, Slug: "test-" + suffix}
	brand := models.Brand{Name: "Brand " + suffix, Slug: "brand-" + suffix}

	var products []SeedProduct
	for i, price := range []string{"25.99", "34.99", "10.00"} {
		products = append(products, SeedProduct{
			Product: models.Product{
				SKU:   fmt.Sprintf("SKU-%s-%d", suffix, i),
				Name:  fmt.Sprintf("Product %s %d", suffix, i),
				Slug:  fmt.Sprintf("product-%s-%d", suffix, i),
				Price: decimal.RequireFromString(price),
				Stock: 10,
			},
			CategorySlug: category.Slug,
			BrandSlug:    brand.Slug,
		})
	}

	err = store.Seed(context.Background(), SeedCatalog{
		Categories: []models.Category{category},
		Brands:     []models.Brand{brand},
		Products:   products,
	})
	require.NoError(t, err)

	for i := range products {
		p, err := store.GetProductBySlug(context.Background(), products[i].Slug)
		require.NoError(t, err)
		require.NotNil(t, p)
		products[i].ID = p.ID
		products[i].CategoryID = p.CategoryID
	}
	return store, products
}

func TestGuestCartUpsertIsIdempotent(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	token := uuid.NewString()

	first, created, err := store.UpsertOpenCartForGuest(ctx, token)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := store.UpsertOpenCartForGuest(ctx, token)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	byID, err := store.GetCartByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, byID.GuestToken)
	assert.Equal(t, token, *byID.GuestToken)

	missing, err := store.GetCartByID(ctx, -1)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCartItemUpsertIncrements(t *testing.T) {
	store, products := openTestStore(t)
	ctx := context.Background()

	cart, _, err := store.UpsertOpenCartForGuest(ctx, uuid.NewString())
	require.NoError(t, err)

	_, err = store.UpsertCartItem(ctx, cart.ID, products[0].ID, 2)
	require.NoError(t, err)
	item, err := store.UpsertCartItem(ctx, cart.ID, products[0].ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)

	line, err := store.GetCartItem(ctx, cart.ID, products[0].ID)
	require.NoError(t, err)
	require.NotNil(t, line)
	assert.Equal(t, item.ID, line.ID)

	dec, err := store.DecrementCartItem(ctx, cart.ID, products[0].ID)
	require.NoError(t, err)
	require.NotNil(t, dec)
	assert.Equal(t, 4, dec.Quantity)

	items, err := store.ListCartItems(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, products[0].Slug, items[0].Product.Slug)

	deleted, err := store.DeleteCartItem(ctx, cart.ID, products[0].ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteCartItem(ctx, cart.ID, products[0].ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestCheckoutTransaction(t *testing.T) {
	store, products := openTestStore(t)
	ctx := context.Background()

	cart, _, err := store.UpsertOpenCartForGuest(ctx, uuid.NewString())
	require.NoError(t, err)
	_, err = store.UpsertCartItem(ctx, cart.ID, products[0].ID, 2)
	require.NoError(t, err)

	var orderID int64
	err = store.InTx(ctx, func(tx port.OrderTx) error {
		locked, err := tx.LockCart(ctx, cart.ID)
		if err != nil {
			return err
		}
		require.NotNil(t, locked)

		order := &models.Order{
			CartID:      cart.ID,
			Status:      models.OrderStatusPending,
			TotalAmount: decimal.RequireFromString("51.98"),
			ShipLine1:   "Main 1",
			ShipCity:    "Warsaw",
			ShipPostal:  "00-001",
			ShipCountry: "PL",
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		orderID = order.ID

		if err := tx.InsertOrderItem(ctx, &models.OrderItem{
			OrderID:         order.ID,
			ProductID:       products[0].ID,
			Quantity:        2,
			PriceAtPurchase: products[0].Price,
		}); err != nil {
			return err
		}
		return tx.UpdateCartStatus(ctx, cart.ID, models.CartStatusOrdered)
	})
	require.NoError(t, err)

	order, err := store.GetOrderByID(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.True(t, products[0].Price.Equal(order.Items[0].PriceAtPurchase))

	open, err := store.FindOpenCartForGuest(ctx, "missing-"+uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, open)
}

func TestInTxRollsBack(t *testing.T) {
	store, products := openTestStore(t)
	ctx := context.Background()

	token := uuid.NewString()
	cart, _, err := store.UpsertOpenCartForGuest(ctx, token)
	require.NoError(t, err)
	_, err = store.UpsertCartItem(ctx, cart.ID, products[1].ID, 1)
	require.NoError(t, err)

	err = store.InTx(ctx, func(tx port.OrderTx) error {
		if err := tx.UpdateCartStatus(ctx, cart.ID, models.CartStatusOrdered); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	var status string
	require.NoError(t, store.GetDB().GetContext(ctx, &status, "SELECT status FROM carts WHERE id = $1", cart.ID))
	assert.Equal(t, models.CartStatusOpen, status)

	still, err := store.FindOpenCartForGuest(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, still)
	assert.Equal(t, cart.ID, still.ID)
}

func TestListProductsFilterAndSort(t *testing.T) {
	store, products := openTestStore(t)
	ctx := context.Background()

	minPrice := decimal.RequireFromString("20")
	filter := models.ProductFilter{CategorySlug: products[0].CategorySlug, PriceMin: &minPrice}

	total, err := store.CountProducts(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	list, err := store.ListProducts(ctx, filter, models.SortPriceAsc, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, products[0].Slug, list[0].Slug)
	assert.Equal(t, products[1].Slug, list[1].Slug)
	assert.Equal(t, products[0].CategorySlug, list[0].Category.Slug)

	recs, err := store.ListRecommendations(ctx, products[0].CategoryID, products[0].ID, 12)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	for _, p := range recs {
		assert.NotEqual(t, products[0].ID, p.ID)
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	email := fmt.Sprintf("dup-%d@example.com", time.Now().UnixNano())
	user := &models.User{Email: email, PasswordHash: "x"}
	require.NoError(t, store.CreateUser(ctx, user))
	assert.NotZero(t, user.ID)

	err := store.CreateUser(ctx, &models.User{Email: email, PasswordHash: "y"})
	assert.ErrorIs(t, err, port.ErrDuplicate)
}
