package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Description string          `json:"description"`
	Ingredients string          `json:"ingredients"`
	Allergens   string          `json:"allergens"`
}

// CartLine is one product entry in a cart or an order. UnitPrice is the
// catalog price captured when the line was created.
type CartLine struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
}

// Subtotal returns UnitPrice * Quantity
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order represents a placed customer order. Status is the only field
// rewritten after creation.
type Order struct {
	OrderID       int64           `json:"order_id"`
	CustomerName  string          `json:"customer_name"`
	Phone         string          `json:"phone"`
	Address       string          `json:"address"`
	PaymentMethod string          `json:"payment_method"`
	CCNumber      string          `json:"cc_number"`
	CCExpiry      string          `json:"cc_expiry"`
	Items         []CartLine      `json:"items"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	OrderDate     time.Time       `json:"order_date"`
}

// Clone returns a copy that shares no item slice with o
func (o Order) Clone() Order {
	items := make([]CartLine, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

// Order statuses
const (
	OrderStatusPending    = "Pending"
	OrderStatusProcessing = "Processing"
	OrderStatusCompleted  = "Completed"
	OrderStatusCancelled  = "Cancelled"
)

// Payment methods
const (
	PaymentMethodCard = "CC"
	PaymentMethodCash = "COD"
)

// NotAvailable marks card fields that were not supplied
const NotAvailable = "N/A"

// SumSubtotals adds up the subtotals of lines
func SumSubtotals(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}
