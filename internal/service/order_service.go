package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/port"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultOrderListLimit = 10
	maxOrderListLimit     = 50
)

// CheckoutOptions tunes the optional checkout guard
type CheckoutOptions struct {
	IdempotencyTTL time.Duration
	LockTTL        time.Duration
}

// CheckoutInput carries either an inline shipping address or a saved address id
type CheckoutInput struct {
	Address        *models.ShippingAddress
	AddressID      *int64
	IdempotencyKey string
}

// OrderService turns OPEN carts into orders
type OrderService struct {
	orders    port.OrderRepository
	addresses port.AddressRepository
	carts     *CartService
	guard     port.CheckoutGuard
	events    port.EventPublisher
	opts      CheckoutOptions
	logger    *zap.Logger
}

// NewOrderService creates a new order service. guard and events may be nil.
func NewOrderService(
	orders port.OrderRepository,
	addresses port.AddressRepository,
	carts *CartService,
	guard port.CheckoutGuard,
	events port.EventPublisher,
	opts CheckoutOptions,
) *OrderService {
	return &OrderService{
		orders:    orders,
		addresses: addresses,
		carts:     carts,
		guard:     guard,
		events:    events,
		opts:      opts,
		logger:    util.Named("orders"),
	}
}

// CreateOrder converts an OPEN cart into an order in one transaction: the
// cart row is locked, prices are frozen into the order items and the cart is
// moved to ORDERED. Nothing is written when any step fails.
func (s *OrderService) CreateOrder(ctx context.Context, cartID int64, address models.ShippingAddress, status string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if status == "" {
		status = models.OrderStatusPending
	}

	start := time.Now()
	var order *models.Order

	err := s.orders.InTx(ctx, func(tx port.OrderTx) error {
		cart, err := tx.LockCart(ctx, cartID)
		if err != nil {
			return persistence("lock cart", err)
		}
		if cart == nil || cart.Status != models.CartStatusOpen {
			return notFound("open cart %d not found", cartID)
		}

		items, err := tx.ListCartItems(ctx, cartID)
		if err != nil {
			return persistence("list cart items", err)
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		order = &models.Order{
			UserID:       cart.UserID,
			CartID:       cart.ID,
			Status:       status,
			TotalAmount:  Summarize(items).Subtotal,
			ShipName:     address.Name,
			ShipLine1:    address.Line1,
			ShipLine2:    address.Line2,
			ShipCity:     address.City,
			ShipProvince: address.Province,
			ShipPostal:   address.PostalCode,
			ShipCountry:  address.Country,
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return persistence("insert order", err)
		}

		order.Items = make([]models.OrderItem, 0, len(items))
		for _, line := range items {
			item := models.OrderItem{
				OrderID:         order.ID,
				ProductID:       line.ProductID,
				Quantity:        line.Quantity,
				PriceAtPurchase: line.Product.Price,
				Product:         line.Product,
			}
			if err := tx.InsertOrderItem(ctx, &item); err != nil {
				return persistence("insert order item", err)
			}
			order.Items = append(order.Items, item)
		}

		if err := tx.UpdateCartStatus(ctx, cart.ID, models.CartStatusOrdered); err != nil {
			return persistence("close cart", err)
		}
		return nil
	})
	util.CheckoutLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		if !isDomainError(err) {
			err = persistence("checkout transaction", err)
		}
		util.CheckoutFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.With(util.TraceFields(ctx)...).Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("cart_id", cartID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
		zap.Int("lines", len(order.Items)))

	return order, nil
}

// Checkout places an order for the identity's OPEN cart. A repeated request
// with the same idempotency key returns the order created the first time.
func (s *OrderService) Checkout(ctx context.Context, id Identity, in CheckoutInput) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Checkout")
	defer span.End()

	if id.Anonymous() {
		util.CheckoutFailedTotal.WithLabelValues("unauthorized").Inc()
		return nil, fmt.Errorf("%w: no user or guest cart identity", ErrUnauthorized)
	}

	address, err := s.shippingAddress(ctx, id, in)
	if err != nil {
		util.CheckoutFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	idemKey := scopedKey(id, in.IdempotencyKey)
	if order := s.replay(ctx, idemKey); order != nil {
		return order, nil
	}

	cart, err := s.carts.Find(ctx, id)
	if err != nil {
		util.CheckoutFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	release, err := s.lockCart(ctx, cart.ID)
	if err != nil {
		util.CheckoutFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}
	defer release()

	order, err := s.CreateOrder(ctx, cart.ID, *address, models.OrderStatusPending)
	if err != nil {
		return nil, err
	}

	if s.guard != nil && idemKey != "" {
		if err := s.guard.RememberOrder(ctx, idemKey, order.ID, s.opts.IdempotencyTTL); err != nil {
			s.logger.Warn("Failed to remember idempotency key", zap.Int64("order_id", order.ID), zap.Error(err))
		}
	}

	s.publishOrderPlaced(ctx, order)
	return order, nil
}

func (s *OrderService) shippingAddress(ctx context.Context, id Identity, in CheckoutInput) (*models.ShippingAddress, error) {
	if in.AddressID == nil {
		if in.Address == nil {
			return nil, badRequest("address is required")
		}
		return in.Address, nil
	}

	if id.UserID == nil {
		return nil, badRequest("saved addresses require a signed-in user")
	}
	saved, err := s.addresses.GetAddressForUser(ctx, *in.AddressID, *id.UserID)
	if err != nil {
		return nil, persistence("get address", err)
	}
	if saved == nil {
		return nil, notFound("address %d not found", *in.AddressID)
	}

	return &models.ShippingAddress{
		Name:       saved.Name,
		Line1:      saved.Line1,
		Line2:      saved.Line2,
		City:       saved.City,
		Province:   saved.Province,
		PostalCode: saved.PostalCode,
		Country:    saved.Country,
	}, nil
}

// replay returns the order already created for an idempotency key, if any.
// Guard failures are logged and checkout proceeds unguarded.
func (s *OrderService) replay(ctx context.Context, key string) *models.Order {
	if s.guard == nil || key == "" {
		return nil
	}

	orderID, found, err := s.guard.LookupOrder(ctx, key)
	if err != nil {
		s.logger.Warn("Idempotency lookup failed", zap.Error(err))
		return nil
	}
	if !found {
		return nil
	}

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil || order == nil {
		s.logger.Warn("Remembered order not loadable", zap.Int64("order_id", orderID), zap.Error(err))
		return nil
	}

	s.logger.Info("Duplicate checkout request detected", zap.Int64("order_id", orderID))
	return order
}

// lockCart takes the per-cart checkout lock when a guard is configured
func (s *OrderService) lockCart(ctx context.Context, cartID int64) (func(), error) {
	noop := func() {}
	if s.guard == nil {
		return noop, nil
	}

	key := fmt.Sprintf("checkout:cart:%d", cartID)
	ok, err := s.guard.AcquireLock(ctx, key, s.opts.LockTTL)
	if err != nil {
		s.logger.Warn("Checkout lock unavailable, relying on row lock", zap.Int64("cart_id", cartID), zap.Error(err))
		return noop, nil
	}
	if !ok {
		return nil, fmt.Errorf("%w: checkout already in progress for this cart", ErrConflict)
	}

	return func() {
		if err := s.guard.ReleaseLock(context.Background(), key); err != nil {
			s.logger.Warn("Failed to release checkout lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func (s *OrderService) publishOrderPlaced(ctx context.Context, order *models.Order) {
	if s.events == nil {
		return
	}

	items := make([]models.OrderItemData, len(order.Items))
	for i, item := range order.Items {
		items[i] = models.OrderItemData{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
		}
	}

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		CartID:      order.CartID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Items:       items,
	}

	if err := s.events.PublishOrderPlaced(ctx, event); err != nil {
		util.OrderEventsFailedTotal.Inc()
		s.logger.With(util.TraceFields(ctx)...).Error("Failed to publish OrderPlaced event",
			zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

// GetOrder retrieves an order with its items and their products
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, persistence("get order", err)
	}
	if order == nil {
		return nil, notFound("order %d not found", orderID)
	}
	return order, nil
}

// GetOrderFor retrieves an order visible to id. A member's order is visible
// to that member only; a guest order only to the guest token that owned its
// cart. Hidden orders read as not found.
func (s *OrderService) GetOrderFor(ctx context.Context, orderID int64, id Identity) (*models.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	hidden := notFound("order %d not found", orderID)
	if order.UserID != nil {
		if id.UserID == nil || *id.UserID != *order.UserID {
			return nil, hidden
		}
		return order, nil
	}

	if id.GuestToken == "" {
		return nil, hidden
	}
	cart, err := s.carts.ByID(ctx, order.CartID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, hidden
		}
		return nil, err
	}
	if cart.GuestToken == nil || *cart.GuestToken != id.GuestToken {
		return nil, hidden
	}
	return order, nil
}

// ListOrdersForUser returns the user's orders newest first
func (s *OrderService) ListOrdersForUser(ctx context.Context, userID int64, limit int) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrdersForUser")
	defer span.End()

	if limit <= 0 {
		limit = defaultOrderListLimit
	}
	if limit > maxOrderListLimit {
		limit = maxOrderListLimit
	}

	orders, err := s.orders.ListOrdersByUser(ctx, userID, limit)
	if err != nil {
		return nil, persistence("list orders", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// scopedKey ties a client idempotency key to the identity that sent it
func scopedKey(id Identity, key string) string {
	if key == "" {
		return ""
	}
	if id.UserID != nil {
		return fmt.Sprintf("user:%d:%s", *id.UserID, key)
	}
	return fmt.Sprintf("guest:%s:%s", id.GuestToken, key)
}
