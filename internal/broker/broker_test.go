package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"storefront/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestPublishOrderPlaced(t *testing.T) {
	w := &fakeWriter{}
	ep := NewEventPublisher(newProducer(w))

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{EventID: "e-1", EventType: models.EventTypeOrderPlaced},
		OrderID:   1741083330000,
		Total:     "15.00",
		Items:     []models.OrderItemData{{ProductID: "CHIP01", Quantity: 3, UnitPrice: "5.00"}},
	}
	require.NoError(t, ep.PublishOrderPlaced(context.Background(), event))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "order-1741083330000", string(w.msgs[0].Key))

	var decoded models.OrderPlacedEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, models.EventTypeOrderPlaced, decoded.EventType)
	assert.Equal(t, "15.00", decoded.Total)
	assert.Equal(t, 3, decoded.Items[0].Quantity)
}

func TestPublishOrderStatusChanged_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	ep := NewEventPublisher(newProducer(w))

	err := ep.PublishOrderStatusChanged(context.Background(), &models.OrderStatusChangedEvent{OrderID: 7})
	assert.ErrorContains(t, err, "broker down")
}

func TestNopPublisher(t *testing.T) {
	var p NopPublisher
	assert.NoError(t, p.PublishOrderPlaced(context.Background(), &models.OrderPlacedEvent{}))
	assert.NoError(t, p.PublishOrderStatusChanged(context.Background(), &models.OrderStatusChangedEvent{}))
}
