package client

import (
	"errors"
	"sync"

	"shopcart-service/reconcile"
)

var ErrInvalidLine = errors.New("product id and a quantity of at least 1 are required")

// LocalCart is the cart held before the shopper has any server identity.
// Every mutation is written through to its Store.
type LocalCart struct {
	mu    sync.Mutex
	store Store
	lines []reconcile.Line
}

// NewLocalCart hydrates the cart from store.
func NewLocalCart(store Store) (*LocalCart, error) {
	lines, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &LocalCart{store: store, lines: reconcile.Normalize(lines)}, nil
}

// Add merges qty of productID into the cart using the same rule the server
// applies when the cart is later synced.
func (c *LocalCart) Add(productID string, qty int) error {
	if productID == "" || qty < 1 {
		return ErrInvalidLine
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	next := reconcile.Merge([]reconcile.Line{{ProductID: productID, Qty: qty}}, c.lines)
	if err := c.store.Save(next); err != nil {
		return err
	}
	c.lines = next
	return nil
}

func (c *LocalCart) Remove(productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make([]reconcile.Line, 0, len(c.lines))
	for _, l := range c.lines {
		if l.ProductID != productID {
			next = append(next, l)
		}
	}
	if err := c.store.Save(next); err != nil {
		return err
	}
	c.lines = next
	return nil
}

func (c *LocalCart) Lines() []reconcile.Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]reconcile.Line(nil), c.lines...)
}

func (c *LocalCart) Quantity(productID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return reconcile.Quantity(c.lines, productID)
}

func (c *LocalCart) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

func (c *LocalCart) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Clear(); err != nil {
		return err
	}
	c.lines = nil
	return nil
}
