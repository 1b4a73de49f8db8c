package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrderFreezesPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resolved, _, err := f.carts.AddToCart(ctx, guest("g-1"), f.mouse.ID, qty(2))
	require.NoError(t, err)
	_, _, err = f.carts.AddToCart(ctx, guest("g-1"), f.keyboard.ID, nil)
	require.NoError(t, err)

	order, err := f.orders.CreateOrder(ctx, resolved.Cart.ID, testAddress, "")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "101.97", order.TotalAmount.StringFixed(2))
	assert.Len(t, order.Items, 2)
	assert.Equal(t, "Springfield", order.ShipCity)

	f.mem.SetProductPrice(f.mouse.ID, money("99.00"))

	stored, err := f.orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "101.97", stored.TotalAmount.StringFixed(2))
	for _, item := range stored.Items {
		if item.ProductID == f.mouse.ID {
			assert.Equal(t, "25.99", item.PriceAtPurchase.StringFixed(2))
			require.NotNil(t, item.Product)
			require.NotNil(t, item.Product.Category)
			require.NotNil(t, item.Product.Brand)
			assert.Equal(t, "mouse", item.Product.Category.Slug)
		}
	}

	cart, ok := f.mem.Cart(resolved.Cart.ID)
	require.True(t, ok)
	assert.Equal(t, models.CartStatusOrdered, cart.Status)

	next, err := f.carts.Resolve(ctx, guest("g-1"))
	require.NoError(t, err)
	assert.NotEqual(t, resolved.Cart.ID, next.Cart.ID, "an ordered cart is never reused")
}

func TestCreateOrderEmptyCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resolved, err := f.carts.Resolve(ctx, guest("g-1"))
	require.NoError(t, err)

	_, err = f.orders.CreateOrder(ctx, resolved.Cart.ID, testAddress, "")
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, f.mem.OrderCount())

	cart, _ := f.mem.Cart(resolved.Cart.ID)
	assert.Equal(t, models.CartStatusOpen, cart.Status)
}

func TestCreateOrderRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resolved, _, err := f.carts.AddToCart(ctx, guest("g-1"), f.mouse.ID, nil)
	require.NoError(t, err)
	_, _, err = f.carts.AddToCart(ctx, guest("g-1"), f.keyboard.ID, nil)
	require.NoError(t, err)

	f.mem.Fail("InsertOrderItem", errors.New("disk full"))
	_, err = f.orders.CreateOrder(ctx, resolved.Cart.ID, testAddress, "")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Zero(t, f.mem.OrderCount())

	cart, _ := f.mem.Cart(resolved.Cart.ID)
	assert.Equal(t, models.CartStatusOpen, cart.Status)
	items, err := f.carts.Items(ctx, resolved.Cart)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	f.mem.Fail("InsertOrderItem", nil)
	order, err := f.orders.CreateOrder(ctx, resolved.Cart.ID, testAddress, "")
	require.NoError(t, err)
	assert.Len(t, order.Items, 2)
}

func TestCreateOrderClosedCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resolved, _, err := f.carts.AddToCart(ctx, guest("g-1"), f.mouse.ID, nil)
	require.NoError(t, err)
	_, err = f.orders.CreateOrder(ctx, resolved.Cart.ID, testAddress, "")
	require.NoError(t, err)

	_, err = f.orders.CreateOrder(ctx, resolved.Cart.ID, testAddress, "")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.orders.CreateOrder(ctx, 9999, testAddress, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateOrderConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resolved, _, err := f.carts.AddToCart(ctx, guest("g-1"), f.mouse.ID, nil)
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.orders.CreateOrder(ctx, resolved.Cart.ID, testAddress, ""); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, f.mem.OrderCount())
}

func TestCheckoutRejectsAnonymous(t *testing.T) {
	f := newFixture(t)

	_, err := f.orders.Checkout(context.Background(), Identity{}, CheckoutInput{Address: &testAddress})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCheckoutRequiresAddress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.carts.AddToCart(ctx, guest("g-1"), f.mouse.ID, nil)
	require.NoError(t, err)

	_, err = f.orders.Checkout(ctx, guest("g-1"), CheckoutInput{})
	assert.ErrorIs(t, err, ErrBadRequest)

	addressID := int64(1)
	_, err = f.orders.Checkout(ctx, guest("g-1"), CheckoutInput{AddressID: &addressID})
	assert.ErrorIs(t, err, ErrBadRequest, "saved addresses need a user")
}

func TestCheckoutWithoutCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.orders.Checkout(context.Background(), guest("nobody"), CheckoutInput{Address: &testAddress})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckoutWithSavedAddress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "saved@example.com")
	other := f.user(t, "other@example.com")

	saved, err := f.addresses.Create(ctx, u.ID, AddressInput{ShippingAddress: models.ShippingAddress{
		Name: "Home", Line1: "5 Elm Road", City: "Shelbyville", PostalCode: "54321", Country: "US",
	}})
	require.NoError(t, err)

	_, _, err = f.carts.AddToCart(ctx, member(u.ID), f.keyboard.ID, nil)
	require.NoError(t, err)

	_, err = f.orders.Checkout(ctx, member(other.ID), CheckoutInput{AddressID: &saved.ID})
	assert.ErrorIs(t, err, ErrNotFound, "addresses of other users are invisible")

	order, err := f.orders.Checkout(ctx, member(u.ID), CheckoutInput{AddressID: &saved.ID})
	require.NoError(t, err)
	assert.Equal(t, "Shelbyville", order.ShipCity)
	assert.Equal(t, "5 Elm Road", order.ShipLine1)
	require.NotNil(t, order.UserID)
	assert.Equal(t, u.ID, *order.UserID)
}

func TestCheckoutIdempotentReplay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.carts.AddToCart(ctx, guest("g-1"), f.mouse.ID, nil)
	require.NoError(t, err)

	in := CheckoutInput{Address: &testAddress, IdempotencyKey: "key-1"}
	first, err := f.orders.Checkout(ctx, guest("g-1"), in)
	require.NoError(t, err)

	second, err := f.orders.Checkout(ctx, guest("g-1"), in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.mem.OrderCount())
	assert.Len(t, f.events.Published(), 1)

	// the same key from another identity is a different request
	_, err = f.orders.Checkout(ctx, guest("g-2"), in)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckoutLockConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resolved, _, err := f.carts.AddToCart(ctx, guest("g-1"), f.mouse.ID, nil)
	require.NoError(t, err)

	held, err := f.guard.AcquireLock(ctx, fmt.Sprintf("checkout:cart:%d", resolved.Cart.ID), 0)
	require.NoError(t, err)
	require.True(t, held)

	_, err = f.orders.Checkout(ctx, guest("g-1"), CheckoutInput{Address: &testAddress})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Zero(t, f.mem.OrderCount())
}

func TestCheckoutProceedsWhenGuardFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.carts.AddToCart(ctx, guest("g-1"), f.mouse.ID, nil)
	require.NoError(t, err)
	f.guard.Err = errors.New("redis down")
	f.events.Err = errors.New("broker down")

	order, err := f.orders.Checkout(ctx, guest("g-1"), CheckoutInput{Address: &testAddress, IdempotencyKey: "k"})
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
}

func TestCheckoutPublishesOrderPlaced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.carts.AddToCart(ctx, guest("g-1"), f.mouse.ID, qty(3))
	require.NoError(t, err)

	order, err := f.orders.Checkout(ctx, guest("g-1"), CheckoutInput{Address: &testAddress})
	require.NoError(t, err)

	events := f.events.Published()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventTypeOrderPlaced, events[0].EventType)
	assert.Equal(t, order.ID, events[0].OrderID)
	assert.Equal(t, "77.97", events[0].TotalAmount.StringFixed(2))
	require.Len(t, events[0].Items, 1)
	assert.Equal(t, 3, events[0].Items[0].Quantity)
}

func TestGuestToOrderScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// browse and fill a guest cart
	resolved, _, err := f.carts.AddToCart(ctx, Identity{}, f.mouse.ID, qty(2))
	require.NoError(t, err)
	require.True(t, resolved.NewGuestToken)
	token := resolved.GuestToken

	_, err = f.auth.Register(ctx, RegisterInput{
		Email: "shopper@example.com", Password: "Secret123", Confirm: "Secret123", Agree: true,
	})
	require.NoError(t, err)

	session, err := f.auth.Login(ctx, LoginInput{Identifier: "shopper@example.com", Password: "Secret123"}, token)
	require.NoError(t, err)

	userID, err := f.auth.Authenticate(session.Token)
	require.NoError(t, err)

	userCart, err := f.carts.Resolve(ctx, member(userID))
	require.NoError(t, err)
	summary, err := f.carts.Summary(ctx, userCart.Cart)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ItemCount, "guest lines follow the user after login")

	order, err := f.orders.Checkout(ctx, member(userID), CheckoutInput{Address: &testAddress, IdempotencyKey: "once"})
	require.NoError(t, err)
	assert.Equal(t, "51.98", order.TotalAmount.StringFixed(2))

	orders, err := f.orders.ListOrdersForUser(ctx, userID, 0)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)

	_, err = f.orders.GetOrder(ctx, order.ID+1000)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetOrderForHidesOtherOwners(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.carts.AddToCart(ctx, guest("g-1"), f.mouse.ID, qty(1))
	require.NoError(t, err)
	guestOrder, err := f.orders.Checkout(ctx, guest("g-1"), CheckoutInput{Address: &testAddress})
	require.NoError(t, err)

	owner := f.user(t, "owner@example.com")
	_, _, err = f.carts.AddToCart(ctx, member(owner.ID), f.keyboard.ID, qty(1))
	require.NoError(t, err)
	memberOrder, err := f.orders.Checkout(ctx, member(owner.ID), CheckoutInput{Address: &testAddress})
	require.NoError(t, err)

	other := f.user(t, "other@example.com")

	tests := []struct {
		name    string
		orderID int64
		id      Identity
		visible bool
	}{
		{"guest owner", guestOrder.ID, guest("g-1"), true},
		{"other guest", guestOrder.ID, guest("g-2"), false},
		{"anonymous on guest order", guestOrder.ID, Identity{}, false},
		{"member on guest order", guestOrder.ID, member(other.ID), false},
		{"member owner", memberOrder.ID, member(owner.ID), true},
		{"other member", memberOrder.ID, member(other.ID), false},
		{"guest on member order", memberOrder.ID, guest("g-1"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order, err := f.orders.GetOrderFor(ctx, tt.orderID, tt.id)
			if !tt.visible {
				assert.ErrorIs(t, err, ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.orderID, order.ID)
		})
	}

	f.mem.Fail("GetCartByID", errors.New("connection reset"))
	_, err = f.orders.GetOrderFor(ctx, guestOrder.ID, guest("g-1"))
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestScopedKey(t *testing.T) {
	assert.Empty(t, scopedKey(guest("g"), ""))
	assert.Equal(t, "guest:g:k", scopedKey(guest("g"), "k"))
	assert.Equal(t, "user:7:k", scopedKey(member(7), "k"))
}

func TestGuestCartToOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resolved, err := f.carts.Resolve(ctx, Identity{})
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, resolved.Cart, f.mouse.ID, 2)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, resolved.Cart, f.keyboard.ID, 1)
	require.NoError(t, err)

	summary, err := f.carts.Summary(ctx, resolved.Cart)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.ItemCount)
	assert.True(t, summary.Subtotal.Equal(f.mouse.Price.Mul(money("2")).Add(f.keyboard.Price)))

	order, err := f.orders.CreateOrder(ctx, resolved.Cart.ID, testAddress, "")
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(summary.Subtotal))

	cart, _ := f.mem.Cart(resolved.Cart.ID)
	assert.Equal(t, models.CartStatusOrdered, cart.Status)

	stored, err := f.orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	got := map[int64]int{}
	for _, item := range stored.Items {
		got[item.ProductID] = item.Quantity
	}
	assert.Equal(t, map[int64]int{f.mouse.ID: 2, f.keyboard.ID: 1}, got)
}
