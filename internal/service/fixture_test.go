package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/storetest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	mem    *storetest.Memory
	guard  *storetest.Guard
	events *storetest.Publisher

	carts     *CartService
	orders    *OrderService
	catalog   *CatalogService
	auth      *AuthService
	addresses *AddressService

	mice     models.Category
	mouse    models.Product
	keyboard models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mem := storetest.New()
	f := &fixture{
		mem:    mem,
		guard:  storetest.NewGuard(),
		events: &storetest.Publisher{},
	}

	f.mice = mem.AddCategory("Mouse", "mouse")
	keyboards := mem.AddCategory("Keyboard", "keyboard")
	logitech := mem.AddBrand("Logitech", "logitech")

	f.mouse = mem.AddProduct(models.Product{
		SKU: "MOUSE-LOGI-G502", Name: "Logitech G502", Slug: "logitech-g502",
		Price: decimal.RequireFromString("25.99"), Stock: 50,
		CategoryID: f.mice.ID, BrandID: logitech.ID,
	})
	f.keyboard = mem.AddProduct(models.Product{
		SKU: "KEYB-LOGI-G213", Name: "Logitech G213", Slug: "logitech-g213",
		Price: decimal.RequireFromString("49.99"), Stock: 20,
		CategoryID: keyboards.ID, BrandID: logitech.ID,
	})

	f.carts = NewCartService(mem, mem, mem)
	f.orders = NewOrderService(mem, mem, f.carts, f.guard, f.events, CheckoutOptions{
		IdempotencyTTL: time.Hour,
		LockTTL:        10 * time.Second,
	})
	f.catalog = NewCatalogService(mem, CatalogOptions{DefaultPerPage: 12, MaxPerPage: 60})
	f.auth = NewAuthService(mem, f.carts, auth.NewTokens("test-secret"), AuthOptions{
		SessionTTL:  24 * time.Hour,
		RememberTTL: 7 * 24 * time.Hour,
		BcryptCost:  bcrypt.MinCost,
	})
	f.addresses = NewAddressService(mem)
	return f
}

// user stores a user directly, bypassing registration
func (f *fixture) user(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "x", FirstName: "Test"}
	require.NoError(t, f.mem.CreateUser(context.Background(), u))
	return u
}

func qty(n int) *int { return &n }

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var testAddress = models.ShippingAddress{
	Name:       "Test User",
	Line1:      "1 Main Street",
	City:       "Springfield",
	PostalCode: "12345",
	Country:    "US",
}

func guest(token string) Identity { return Identity{GuestToken: token} }

func member(id int64) Identity { return Identity{UserID: &id} }

func sku(i int) string { return fmt.Sprintf("MOUSE-GEN-%03d", i) }
