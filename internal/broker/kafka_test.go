package broker

import (
	"context"
	"testing"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestPublishEventRejectsUnencodableEvent(t *testing.T) {
	producer := NewProducer([]string{"localhost:9092"}, "test-topic")
	defer producer.Close()

	err := producer.PublishEvent(context.Background(), "order-1", map[string]interface{}{"bad": make(chan int)})
	assert.ErrorContains(t, err, "failed to marshal event")
}

func TestNoopPublisher(t *testing.T) {
	var p NoopPublisher
	assert.NoError(t, p.PublishOrderPlaced(context.Background(), &models.OrderPlacedEvent{OrderID: 1}))
}
