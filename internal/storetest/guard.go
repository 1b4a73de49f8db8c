package storetest

import (
	"context"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/port"
)

// Guard is an in-process CheckoutGuard. TTLs are ignored.
type Guard struct {
	mu     sync.Mutex
	locks  map[string]bool
	orders map[string]int64
	Err    error
}

var _ port.CheckoutGuard = (*Guard)(nil)

func NewGuard() *Guard {
	return &Guard{locks: make(map[string]bool), orders: make(map[string]int64)}
}

func (g *Guard) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return false, g.Err
	}
	if g.locks[key] {
		return false, nil
	}
	g.locks[key] = true
	return true, nil
}

func (g *Guard) ReleaseLock(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.locks, key)
	return nil
}

func (g *Guard) LookupOrder(ctx context.Context, key string) (int64, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return 0, false, g.Err
	}
	id, ok := g.orders[key]
	return id, ok, nil
}

func (g *Guard) RememberOrder(ctx context.Context, key string, orderID int64, ttl time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return g.Err
	}
	g.orders[key] = orderID
	return nil
}

// Publisher records published events
type Publisher struct {
	mu     sync.Mutex
	Events []*models.OrderPlacedEvent
	Err    error
}

var _ port.EventPublisher = (*Publisher)(nil)

func (p *Publisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Events = append(p.Events, event)
	return nil
}

// Published returns a copy of the recorded events
func (p *Publisher) Published() []*models.OrderPlacedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*models.OrderPlacedEvent(nil), p.Events...)
}
