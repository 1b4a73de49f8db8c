package broker

import (
	"context"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/port"
)

// EventPublisher publishes order events to Kafka
type EventPublisher struct {
	producer *Producer
}

var _ port.EventPublisher = (*EventPublisher)(nil)

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderPlaced publishes ORDER_PLACED keyed by order so one order's
// events stay on one partition
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// NoopPublisher drops events; used when no brokers are configured
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderPlaced(context.Context, *models.OrderPlacedEvent) error {
	return nil
}
