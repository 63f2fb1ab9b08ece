package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrEmptyCart is returned when checking out a session with nothing in its cart
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInvalidCheckout is returned when required customer details are missing
	ErrInvalidCheckout = errors.New("invalid checkout request")

	// ErrCheckoutInProgress is returned when another checkout with the same
	// idempotency key has not finished yet
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)

// OrderService turns session carts into ledger orders
type OrderService struct {
	ledger         OrderLedger
	sessions       SessionStore
	eventPublisher EventPublisher
	idempotency    IdempotencyStore
	logger         *zap.Logger
}

// NewOrderService creates a new order service. idempotency may be nil, in
// which case idempotency keys are ignored.
func NewOrderService(
	ledger OrderLedger,
	sessions SessionStore,
	eventPublisher EventPublisher,
	idempotency IdempotencyStore,
) *OrderService {
	return &OrderService{
		ledger:         ledger,
		sessions:       sessions,
		eventPublisher: eventPublisher,
		idempotency:    idempotency,
		logger:         util.GetLogger(),
	}
}

// CheckoutRequest carries the customer details of a checkout
type CheckoutRequest struct {
	CustomerName   string `json:"name" binding:"required"`
	Phone          string `json:"phone" binding:"required"`
	Address        string `json:"address" binding:"required"`
	PaymentMethod  string `json:"paymentMethod" binding:"required"`
	CCNumber       string `json:"ccNumber,omitempty"`
	CCExpiry       string `json:"ccExpiry,omitempty"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

func (r *CheckoutRequest) validate() error {
	for field, value := range map[string]string{
		"name":          r.CustomerName,
		"phone":         r.Phone,
		"address":       r.Address,
		"paymentMethod": r.PaymentMethod,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidCheckout, field)
		}
	}
	return nil
}

// Checkout places an order for everything in the session's cart and
// retires the cart. When the ledger could not be written the order is
// returned together with an error wrapping store.ErrPersistence.
func (s *OrderService) Checkout(ctx context.Context, sessionKey string, req *CheckoutRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Checkout")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	if err := req.validate(); err != nil {
		util.CheckoutFailedTotal.WithLabelValues("invalid_request").Inc()
		return nil, err
	}

	if key := req.IdempotencyKey; key != "" && s.idempotency != nil {
		if order, ok := s.recall(ctx, key); ok {
			s.logger.Info("Duplicate checkout request detected",
				zap.String("idempotency_key", key),
				zap.Int64("order_id", order.OrderID))
			return &order, nil
		}

		locked, err := s.idempotency.TryLock(ctx, key)
		switch {
		case err != nil:
			s.logger.Warn("Idempotency lock unavailable, continuing without it", zap.Error(err))
		case !locked:
			util.CheckoutFailedTotal.WithLabelValues("in_progress").Inc()
			return nil, ErrCheckoutInProgress
		default:
			defer func() {
				if err := s.idempotency.Unlock(context.Background(), key); err != nil {
					s.logger.Warn("Failed to release checkout lock", zap.Error(err))
				}
			}()
		}
	}

	c, ok := s.sessions.Take(sessionKey)
	if !ok {
		util.CheckoutFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}
	lines, total := c.Snapshot()
	if len(lines) == 0 {
		util.CheckoutFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}

	order, err := s.ledger.AddOrder(
		req.CustomerName,
		req.Phone,
		req.Address,
		req.PaymentMethod,
		orNotAvailable(req.CCNumber),
		orNotAvailable(req.CCExpiry),
		lines,
		total,
	)
	if err != nil {
		s.logger.Error("Order placed but not fully persisted",
			zap.Int64("order_id", order.OrderID),
			zap.Error(err))
	}

	if req.IdempotencyKey != "" && s.idempotency != nil {
		if rerr := s.idempotency.Remember(ctx, req.IdempotencyKey, order.OrderID); rerr != nil {
			s.logger.Warn("Failed to remember idempotency key",
				zap.String("idempotency_key", req.IdempotencyKey),
				zap.Error(rerr))
		}
	}

	s.publishOrderPlaced(ctx, order)

	s.logger.Info("Checkout completed",
		zap.String("session", sessionKey),
		zap.Int64("order_id", order.OrderID),
		zap.String("total", order.Total.StringFixed(2)))

	return &order, err
}

func (s *OrderService) recall(ctx context.Context, key string) (models.Order, bool) {
	orderID, found, err := s.idempotency.Recall(ctx, key)
	if err != nil {
		s.logger.Warn("Failed to check idempotency", zap.String("idempotency_key", key), zap.Error(err))
		return models.Order{}, false
	}
	if !found {
		return models.Order{}, false
	}
	return s.ledger.GetByID(orderID)
}

func (s *OrderService) publishOrderPlaced(ctx context.Context, order models.Order) {
	items := make([]models.OrderItemData, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, models.OrderItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
		})
	}

	event := &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID:       order.OrderID,
		CustomerName:  order.CustomerName,
		PaymentMethod: order.PaymentMethod,
		Total:         order.Total.StringFixed(2),
		Items:         items,
	}

	if err := s.eventPublisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}
}

// UpdateStatus rewrites an order's status. It reports false when the
// order does not exist.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, status string) (bool, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	previous, ok := s.ledger.GetByID(orderID)
	if !ok {
		return false, nil
	}

	found, err := s.ledger.UpdateStatus(orderID, status)
	if !found {
		return false, err
	}
	if err != nil {
		s.logger.Error("Order status updated but not persisted",
			zap.Int64("order_id", orderID),
			zap.Error(err))
	}

	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID:   orderID,
		OldStatus: previous.Status,
		NewStatus: strings.TrimSpace(status),
	}
	if perr := s.eventPublisher.PublishOrderStatusChanged(ctx, event); perr != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(perr))
	}

	return true, err
}

// GetOrder retrieves an order by ID
func (s *OrderService) GetOrder(orderID int64) (models.Order, error) {
	order, ok := s.ledger.GetByID(orderID)
	if !ok {
		return models.Order{}, fmt.Errorf("order %d: %w", orderID, store.ErrNotFound)
	}
	return order, nil
}

// ListOrders returns every order sorted by id
func (s *OrderService) ListOrders() []models.Order {
	return s.ledger.ListAll()
}

func orNotAvailable(s string) string {
	if strings.TrimSpace(s) == "" {
		return models.NotAvailable
	}
	return s
}
