package port

import (
	"context"
	"time"

	"storefront/internal/models"
)

// CheckoutGuard protects checkout against double submits.
type CheckoutGuard interface {
	// AcquireLock returns false when the lock is already held.
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
	// LookupOrder returns the order id remembered for an idempotency key.
	LookupOrder(ctx context.Context, key string) (int64, bool, error)
	RememberOrder(ctx context.Context, key string, orderID int64, ttl time.Duration) error
}

type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
}
