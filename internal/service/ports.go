package service

import (
	"context"

	"storefront/internal/cart"
	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

// OrderLedger is the ledger surface the services use
type OrderLedger interface {
	AddOrder(customerName, phone, address, paymentMethod, ccNumber, ccExpiry string,
		items []models.CartLine, total decimal.Decimal) (models.Order, error)
	UpdateStatus(orderID int64, status string) (bool, error)
	GetByID(orderID int64) (models.Order, bool)
	ListAll() []models.Order
}

// ProductCatalog is the catalog surface the services use
type ProductCatalog interface {
	List() []models.Product
	LowStock(threshold int) []models.Product
}

// SessionStore retires per-session carts at checkout
type SessionStore interface {
	Take(sessionKey string) (*cart.Cart, bool)
}

// EventPublisher publishes order events
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
}

// IdempotencyStore maps checkout idempotency keys to the orders they produced
type IdempotencyStore interface {
	Recall(ctx context.Context, key string) (int64, bool, error)
	Remember(ctx context.Context, key string, orderID int64) error
	TryLock(ctx context.Context, key string) (bool, error)
	Unlock(ctx context.Context, key string) error
}
