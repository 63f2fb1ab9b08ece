package cart

import (
	"errors"
	"fmt"
	"sync"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

var (
	// ErrProductNotFound is returned when adding an id the catalog does not know
	ErrProductNotFound = errors.New("product not found")

	// ErrInvalidQuantity is returned when adding fewer than one unit
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// ErrCartRetired is returned when adding to a cart that was checked out
	// or cleared after the caller fetched it
	ErrCartRetired = errors.New("cart is no longer active")
)

// ProductLookup resolves products for cart lines
type ProductLookup interface {
	GetByID(id string) (models.Product, bool)
}

// Cart is one session's ordered list of lines, unique by product id.
// Prices are captured when a line is created and never re-read.
type Cart struct {
	mu      sync.Mutex
	lines   []models.CartLine
	retired bool
	catalog ProductLookup
}

func newCart(catalog ProductLookup) *Cart {
	return &Cart{catalog: catalog}
}

// AddItem adds qty units of productID, merging into an existing line.
// The product must exist in the catalog at the time of the call.
func (c *Cart) AddItem(productID string, qty int) error {
	if qty < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, qty)
	}

	p, ok := c.catalog.GetByID(productID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.retired {
		return ErrCartRetired
	}

	// merged lines keep the price captured when they were created
	if i := c.indexLocked(productID); i >= 0 {
		c.lines[i].Quantity += qty
		return nil
	}

	c.lines = append(c.lines, models.CartLine{
		ProductID:   p.ID,
		ProductName: p.Name,
		UnitPrice:   p.Price,
		Quantity:    qty,
	})
	return nil
}

// retire stops further additions; lines already present stay readable
func (c *Cart) retire() {
	c.mu.Lock()
	c.retired = true
	c.mu.Unlock()
}

// RemoveItem deletes the line for productID
func (c *Cart) RemoveItem(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexLocked(productID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

// UpdateQuantity sets the quantity of an existing line. A quantity below
// one removes the line; unknown ids are ignored.
func (c *Cart) UpdateQuantity(productID string, qty int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(productID)
	if i < 0 {
		return
	}
	if qty < 1 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
		return
	}
	c.lines[i].Quantity = qty
}

// Lines returns a copy of the cart lines in insertion order
func (c *Cart) Lines() []models.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of distinct lines
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// TotalItems sums the quantities of all lines
func (c *Cart) TotalItems() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// TotalPrice sums the line subtotals
func (c *Cart) TotalPrice() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.SumSubtotals(c.lines)
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return c.Len() == 0
}

// Snapshot returns the lines and their total under one lock, so checkout
// sees a consistent pair.
func (c *Cart) Snapshot() ([]models.CartLine, decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.CartLine, len(c.lines))
	copy(out, c.lines)
	return out, models.SumSubtotals(out)
}

func (c *Cart) indexLocked(productID string) int {
	for i, l := range c.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}
