package broker

import (
	"context"
	"fmt"

	"storefront/internal/models"
)

// EventPublisher handles publishing order events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderPlaced publishes OrderPlaced event
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderStatusChanged publishes OrderStatusChanged event
func (ep *EventPublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

func orderKey(orderID int64) string {
	return fmt.Sprintf("order-%d", orderID)
}

// NopPublisher drops every event. It is used when no brokers are configured.
type NopPublisher struct{}

// PublishOrderPlaced implements the publisher contract
func (NopPublisher) PublishOrderPlaced(context.Context, *models.OrderPlacedEvent) error { return nil }

// PublishOrderStatusChanged implements the publisher contract
func (NopPublisher) PublishOrderStatusChanged(context.Context, *models.OrderStatusChangedEvent) error {
	return nil
}
