package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"storefront/internal/cart"
	"storefront/internal/models"
	"storefront/internal/redisclient"
	"storefront/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu      sync.Mutex
	placed  []*models.OrderPlacedEvent
	changed []*models.OrderStatusChangedEvent
	err     error
}

func (p *recordingPublisher) PublishOrderPlaced(_ context.Context, e *models.OrderPlacedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.placed = append(p.placed, e)
	return p.err
}

func (p *recordingPublisher) PublishOrderStatusChanged(_ context.Context, e *models.OrderStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed = append(p.changed, e)
	return p.err
}

type fixture struct {
	catalog   *store.Catalog
	ledger    *store.Ledger
	sessions  *cart.Sessions
	publisher *recordingPublisher
	service   *OrderService
}

func newFixture(t *testing.T, idempotency IdempotencyStore) *fixture {
	t.Helper()
	dir := t.TempDir()

	catalog, err := store.NewCatalog(filepath.Join(dir, "products.txt"))
	require.NoError(t, err)
	require.NoError(t, catalog.Upsert(models.Product{
		ID: "CHIP01", Name: "Choc Chip Cookie", Price: decimal.RequireFromString("5.00"), Stock: 10,
	}))
	require.NoError(t, catalog.Upsert(models.Product{
		ID: "OAT002", Name: "Oat Cookie", Price: decimal.RequireFromString("6.50"), Stock: 4,
	}))

	ledger, err := store.NewLedger(filepath.Join(dir, "final_orders.txt"), catalog)
	require.NoError(t, err)

	sessions := cart.NewSessions(catalog)
	publisher := &recordingPublisher{}

	return &fixture{
		catalog:   catalog,
		ledger:    ledger,
		sessions:  sessions,
		publisher: publisher,
		service:   NewOrderService(ledger, sessions, publisher, idempotency),
	}
}

func checkoutRequest() *CheckoutRequest {
	return &CheckoutRequest{
		CustomerName:  "Aina",
		Phone:         "012-3456789",
		Address:       "1 Jalan Besar",
		PaymentMethod: models.PaymentMethodCash,
	}
}

func TestCheckout_EndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.sessions.GetCart("sid").AddItem("CHIP01", 3))

	order, err := f.service.Checkout(ctx, "sid", checkoutRequest())
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, "15.00", order.Total.StringFixed(2))
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.NotAvailable, order.CCNumber)
	assert.Equal(t, models.NotAvailable, order.CCExpiry)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "5.00", order.Items[0].UnitPrice.StringFixed(2))

	p, _ := f.catalog.GetByID("CHIP01")
	assert.Equal(t, 7, p.Stock)

	assert.True(t, f.sessions.GetCart("sid").IsEmpty())

	require.Len(t, f.publisher.placed, 1)
	assert.Equal(t, order.OrderID, f.publisher.placed[0].OrderID)
	assert.Equal(t, "15.00", f.publisher.placed[0].Total)
}

func TestCheckout_SnapshotPricing(t *testing.T) {
	f := newFixture(t, nil)

	require.NoError(t, f.sessions.GetCart("sid").AddItem("CHIP01", 2))

	p, _ := f.catalog.GetByID("CHIP01")
	p.Price = decimal.RequireFromString("6.00")
	require.NoError(t, f.catalog.Upsert(p))

	order, err := f.service.Checkout(context.Background(), "sid", checkoutRequest())
	require.NoError(t, err)
	assert.Equal(t, "10.00", order.Total.StringFixed(2))
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.service.Checkout(context.Background(), "nobody", checkoutRequest())
	assert.ErrorIs(t, err, ErrEmptyCart)

	f.sessions.GetCart("sid")
	_, err = f.service.Checkout(context.Background(), "sid", checkoutRequest())
	assert.ErrorIs(t, err, ErrEmptyCart)

	assert.Empty(t, f.ledger.ListAll())
	assert.Empty(t, f.publisher.placed)
}

func TestCheckout_InvalidRequestKeepsCart(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.sessions.GetCart("sid").AddItem("CHIP01", 1))

	req := checkoutRequest()
	req.Address = "  "
	_, err := f.service.Checkout(context.Background(), "sid", req)
	assert.ErrorIs(t, err, ErrInvalidCheckout)

	assert.Equal(t, 1, f.sessions.GetCart("sid").TotalItems())
}

func TestCheckout_CardDetails(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.sessions.GetCart("sid").AddItem("OAT002", 1))

	req := checkoutRequest()
	req.PaymentMethod = models.PaymentMethodCard
	req.CCNumber = "4111111111111111"
	req.CCExpiry = "12/27"

	order, err := f.service.Checkout(context.Background(), "sid", req)
	require.NoError(t, err)
	assert.Equal(t, "4111111111111111", order.CCNumber)
	assert.Equal(t, "12/27", order.CCExpiry)
}

func TestCheckout_ConcurrentSameSessionPlacesOneOrder(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.sessions.GetCart("sid").AddItem("CHIP01", 1))

	var wg sync.WaitGroup
	var mu sync.Mutex
	placed := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.service.Checkout(context.Background(), "sid", checkoutRequest()); err == nil {
				mu.Lock()
				placed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, placed)
	assert.Len(t, f.ledger.ListAll(), 1)
	p, _ := f.catalog.GetByID("CHIP01")
	assert.Equal(t, 9, p.Stock)
}

func TestCheckout_PublishFailureDoesNotFailCheckout(t *testing.T) {
	f := newFixture(t, nil)
	f.publisher.err = errors.New("broker down")
	require.NoError(t, f.sessions.GetCart("sid").AddItem("CHIP01", 1))

	order, err := f.service.Checkout(context.Background(), "sid", checkoutRequest())
	require.NoError(t, err)
	assert.NotZero(t, order.OrderID)
}

func TestCheckout_PersistenceFailureReturnsOrder(t *testing.T) {
	dir := t.TempDir()
	catalog, err := store.NewCatalog(filepath.Join(dir, "products.txt"))
	require.NoError(t, err)
	require.NoError(t, catalog.Upsert(models.Product{ID: "CHIP01", Name: "Chip", Price: decimal.RequireFromString("5"), Stock: 10}))
	ledger, err := store.NewLedger(filepath.Join(dir, "gone", "final_orders.txt"), catalog)
	require.NoError(t, err)

	sessions := cart.NewSessions(catalog)
	svc := NewOrderService(ledger, sessions, &recordingPublisher{}, nil)
	require.NoError(t, sessions.GetCart("sid").AddItem("CHIP01", 1))

	order, err := svc.Checkout(context.Background(), "sid", checkoutRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrPersistence)
	require.NotNil(t, order)
	assert.True(t, sessions.GetCart("sid").IsEmpty())

	_, ok := ledger.GetByID(order.OrderID)
	assert.True(t, ok)
}

func TestCheckout_IdempotencyKeyReturnsOriginalOrder(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	idem, err := redisclient.NewClient(mr.Addr(), "", 0, time.Hour)
	require.NoError(t, err)
	defer idem.Close()

	f := newFixture(t, idem)
	ctx := context.Background()
	require.NoError(t, f.sessions.GetCart("sid").AddItem("CHIP01", 2))

	req := checkoutRequest()
	req.IdempotencyKey = "retry-me"

	first, err := f.service.Checkout(ctx, "sid", req)
	require.NoError(t, err)

	// the retry arrives after the cart was already retired
	second, err := f.service.Checkout(ctx, "sid", req)
	require.NoError(t, err)

	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Len(t, f.ledger.ListAll(), 1)
	p, _ := f.catalog.GetByID("CHIP01")
	assert.Equal(t, 8, p.Stock)
}

func TestCheckout_IdempotencyKeyInFlight(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	idem, err := redisclient.NewClient(mr.Addr(), "", 0, time.Hour)
	require.NoError(t, err)
	defer idem.Close()

	f := newFixture(t, idem)
	require.NoError(t, f.sessions.GetCart("sid").AddItem("CHIP01", 1))

	locked, err := idem.TryLock(context.Background(), "busy")
	require.NoError(t, err)
	require.True(t, locked)

	req := checkoutRequest()
	req.IdempotencyKey = "busy"
	_, err = f.service.Checkout(context.Background(), "sid", req)
	assert.ErrorIs(t, err, ErrCheckoutInProgress)
	assert.Equal(t, 1, f.sessions.GetCart("sid").TotalItems())
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	found, err := f.service.UpdateStatus(ctx, 12345, models.OrderStatusCompleted)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, f.publisher.changed)

	require.NoError(t, f.sessions.GetCart("sid").AddItem("CHIP01", 1))
	order, err := f.service.Checkout(ctx, "sid", checkoutRequest())
	require.NoError(t, err)

	found, err = f.service.UpdateStatus(ctx, order.OrderID, models.OrderStatusCompleted)
	require.NoError(t, err)
	assert.True(t, found)

	got, err := f.service.GetOrder(order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, got.Status)

	require.Len(t, f.publisher.changed, 1)
	assert.Equal(t, models.OrderStatusPending, f.publisher.changed[0].OldStatus)
	assert.Equal(t, models.OrderStatusCompleted, f.publisher.changed[0].NewStatus)

	_, err = f.service.UpdateStatus(ctx, order.OrderID, "")
	assert.ErrorIs(t, err, store.ErrInvalidStatus)
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.service.GetOrder(99)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
