package cart

import (
	"errors"
	"sync"
)

// Sessions maps opaque session keys to carts
type Sessions struct {
	mu      sync.Mutex
	carts   map[string]*Cart
	catalog ProductLookup
}

// NewSessions creates an empty session store whose carts resolve products
// through catalog.
func NewSessions(catalog ProductLookup) *Sessions {
	return &Sessions{
		carts:   make(map[string]*Cart),
		catalog: catalog,
	}
}

// GetCart returns the cart for sessionKey, creating it on first use. Only
// one cart per key is ever handed out.
func (s *Sessions) GetCart(sessionKey string) *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[sessionKey]
	if !ok {
		c = newCart(s.catalog)
		s.carts[sessionKey] = c
	}
	return c
}

// Peek returns the cart for sessionKey without creating one
func (s *Sessions) Peek(sessionKey string) (*Cart, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[sessionKey]
	return c, ok
}

// AddItem adds to the session's live cart, creating it on first use. An
// add that races with checkout or clear lands in the session's next cart.
func (s *Sessions) AddItem(sessionKey, productID string, qty int) (*Cart, error) {
	for {
		c := s.GetCart(sessionKey)
		err := c.AddItem(productID, qty)
		if errors.Is(err, ErrCartRetired) {
			continue
		}
		return c, err
	}
}

// Take removes the cart for sessionKey and returns it retired. Checkout
// takes the cart before placing the order, so a concurrent checkout of the
// same session finds nothing to order.
func (s *Sessions) Take(sessionKey string) (*Cart, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[sessionKey]
	if ok {
		delete(s.carts, sessionKey)
		c.retire()
	}
	return c, ok
}

// ClearCart drops the cart for sessionKey; the next GetCart starts fresh
func (s *Sessions) ClearCart(sessionKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.carts[sessionKey]; ok {
		delete(s.carts, sessionKey)
		c.retire()
	}
}

// Len returns the number of live carts
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.carts)
}
