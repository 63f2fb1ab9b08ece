package models

import "time"

// Event types
const (
	EventTypeOrderPlaced        = "ORDER_PLACED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderPlacedEvent published after an order is stored in the ledger
type OrderPlacedEvent struct {
	BaseEvent
	OrderID       int64           `json:"order_id"`
	CustomerName  string          `json:"customer_name"`
	PaymentMethod string          `json:"payment_method"`
	Total         string          `json:"total"`
	Items         []OrderItemData `json:"items"`
}

// OrderStatusChangedEvent published when an order's status is rewritten
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID   int64  `json:"order_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// OrderStatusCommand is consumed from the status command topic
type OrderStatusCommand struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
}
