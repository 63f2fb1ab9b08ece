package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const ledgerStoreName = "ledger"

// ProductSource is the part of the catalog the ledger depends on
type ProductSource interface {
	GetByID(id string) (models.Product, bool)
	ReduceStock(id string, qty int) error
}

// Ledger is the authoritative order id -> order mapping, backed by a
// block-text file rewritten in full on every mutation.
//
// AddOrder reduces catalog stock before the ledger file is rewritten. A
// crash between the two leaves stock reduced for an order the file does
// not contain.
type Ledger struct {
	mu      sync.RWMutex
	path    string
	orders  map[int64]models.Order
	lastID  int64
	catalog ProductSource
	now     func() time.Time
	loc     *time.Location
	logger  *zap.Logger
}

// LedgerOption configures a Ledger
type LedgerOption func(*Ledger)

// WithClock overrides the time source used for order dates and ids
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// WithLocation sets the zone order dates are written and parsed in
func WithLocation(loc *time.Location) LedgerOption {
	return func(l *Ledger) { l.loc = loc }
}

// NewLedger loads the ledger from path, resolving item names through catalog.
// A missing file is an empty ledger.
func NewLedger(path string, catalog ProductSource, opts ...LedgerOption) (*Ledger, error) {
	l := &Ledger{
		path:    path,
		orders:  make(map[int64]models.Order),
		catalog: catalog,
		now:     time.Now,
		loc:     time.Local,
		logger:  util.GetLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}

	if err := l.load(); err != nil {
		return nil, err
	}

	l.logger.Info("Ledger loaded",
		zap.String("path", path),
		zap.Int("count", len(l.orders)))
	return l, nil
}

func (l *Ledger) load() error {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		l.logger.Info("No ledger file found, will create on first order", zap.String("path", l.path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	dec := orderDecoder{
		loc: l.loc,
		productName: func(id string) (string, bool) {
			p, ok := l.catalog.GetByID(id)
			return p.Name, ok
		},
		now:  l.now,
		warn: l.warnMalformed,
	}

	orders, err := dec.decode(f)
	if err != nil {
		return err
	}

	for _, o := range orders {
		l.orders[o.OrderID] = o
		if o.OrderID > l.lastID {
			l.lastID = o.OrderID
		}
	}
	return nil
}

func (l *Ledger) warnMalformed(err error) {
	util.MalformedRecordsTotal.WithLabelValues(ledgerStoreName).Inc()
	l.logger.Warn("Skipping ledger record", zap.Error(err))
}

// AddOrder stores a new Pending order, reduces stock for each item and
// rewrites the ledger. The returned order is valid even when err reports a
// persistence failure of the ledger or catalog file.
func (l *Ledger) AddOrder(
	customerName, phone, address, paymentMethod, ccNumber, ccExpiry string,
	items []models.CartLine,
	total decimal.Decimal,
) (models.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	order := models.Order{
		OrderID:       l.nextIDLocked(),
		CustomerName:  singleLine(customerName),
		Phone:         singleLine(phone),
		Address:       singleLine(address),
		PaymentMethod: singleLine(paymentMethod),
		CCNumber:      singleLine(ccNumber),
		CCExpiry:      singleLine(ccExpiry),
		Items:         append([]models.CartLine(nil), items...),
		Total:         total,
		Status:        models.OrderStatusPending,
		OrderDate:     l.now().Truncate(time.Second),
	}
	l.orders[order.OrderID] = order

	var errs []error
	for _, item := range order.Items {
		if err := l.catalog.ReduceStock(item.ProductID, item.Quantity); err != nil {
			errs = append(errs, fmt.Errorf("failed to reduce stock for %s: %w", item.ProductID, err))
		}
	}
	if err := l.persistLocked(); err != nil {
		errs = append(errs, err)
	}

	util.OrdersPlacedTotal.Inc()
	l.logger.Info("Order saved",
		zap.Int64("order_id", order.OrderID),
		zap.String("customer", order.CustomerName),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.Total.StringFixed(2)))

	return order.Clone(), errors.Join(errs...)
}

// UpdateStatus rewrites the status of orderID. It reports false, without
// touching the file, when the order does not exist.
func (l *Ledger) UpdateStatus(orderID int64, status string) (bool, error) {
	status = strings.TrimSpace(status)
	if status == "" || strings.ContainsAny(status, "\r\n") {
		return false, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	order, ok := l.orders[orderID]
	if !ok {
		return false, nil
	}
	order.Status = status
	l.orders[orderID] = order

	util.OrderStatusUpdatesTotal.WithLabelValues(status).Inc()
	l.logger.Info("Order status updated",
		zap.Int64("order_id", orderID),
		zap.String("status", status))

	return true, l.persistLocked()
}

// GetByID returns the order with orderID, if any
func (l *Ledger) GetByID(orderID int64) (models.Order, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	o, ok := l.orders[orderID]
	if !ok {
		return models.Order{}, false
	}
	return o.Clone(), true
}

// ListAll returns a snapshot of every order sorted by ascending id
func (l *Ledger) ListAll() []models.Order {
	l.mu.RLock()
	defer l.mu.RUnlock()

	sorted := l.sortedLocked()
	for i := range sorted {
		sorted[i] = sorted[i].Clone()
	}
	return sorted
}

// Len returns the number of orders
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.orders)
}

// nextIDLocked hands out ids from the wall clock in milliseconds, bumped
// past the last id so two orders in the same millisecond never collide.
func (l *Ledger) nextIDLocked() int64 {
	id := l.now().UnixMilli()
	if id <= l.lastID {
		id = l.lastID + 1
	}
	l.lastID = id
	return id
}

func (l *Ledger) sortedLocked() []models.Order {
	out := make([]models.Order, 0, len(l.orders))
	for _, o := range l.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out
}

func (l *Ledger) persistLocked() error {
	return rewriteFile(ledgerStoreName, l.path, encodeOrders(l.sortedLocked(), l.loc), l.logger)
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// singleLine keeps free-text fields on one line of the block format
func singleLine(s string) string {
	return strings.TrimSpace(lineBreaks.Replace(s))
}
