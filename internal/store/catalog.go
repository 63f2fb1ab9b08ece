package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

const catalogStoreName = "catalog"

// Catalog is the authoritative product id -> product mapping, backed by a
// pipe-delimited file that is rewritten in full on every mutation.
type Catalog struct {
	mu       sync.RWMutex
	path     string
	order    []string
	products map[string]models.Product
	logger   *zap.Logger
}

// NewCatalog loads the catalog from path. A missing file is an empty catalog.
func NewCatalog(path string) (*Catalog, error) {
	c := &Catalog{
		path:     path,
		products: make(map[string]models.Product),
		logger:   util.GetLogger(),
	}

	if err := c.load(); err != nil {
		return nil, err
	}

	c.logger.Info("Catalog loaded",
		zap.String("path", path),
		zap.Int("count", len(c.order)))
	return c, nil
}

func (c *Catalog) load() error {
	f, err := os.Open(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		c.logger.Info("No catalog file found, starting empty", zap.String("path", c.path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	products, err := decodeProducts(f, c.warnMalformed)
	if err != nil {
		return err
	}

	for _, p := range products {
		if _, exists := c.products[p.ID]; !exists {
			c.order = append(c.order, p.ID)
		}
		c.products[p.ID] = p
	}
	return nil
}

func (c *Catalog) warnMalformed(err error) {
	util.MalformedRecordsTotal.WithLabelValues(catalogStoreName).Inc()
	c.logger.Warn("Skipping catalog record", zap.Error(err))
}

// List returns a snapshot of every product in insertion order
func (c *Catalog) List() []models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// GetByID returns the product for id, if any
func (c *Catalog) GetByID(id string) (models.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	return p, ok
}

// Len returns the number of products
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// LowStock returns products whose stock is below threshold, in catalog order
func (c *Catalog) LowStock(threshold int) []models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []models.Product
	for _, id := range c.order {
		if p := c.products[id]; p.Stock < threshold {
			out = append(out, p)
		}
	}
	return out
}

// Upsert inserts p or fully replaces the product with the same id. A
// replaced product keeps its position. Prices are kept to two decimals,
// the precision of the backing file.
func (c *Catalog) Upsert(p models.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	p.Price = p.Price.Round(2)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.products[p.ID]; !exists {
		c.order = append(c.order, p.ID)
	}
	c.products[p.ID] = p

	c.logger.Info("Product saved", zap.String("product_id", p.ID))
	return c.persistLocked()
}

// Delete removes the product if present
func (c *Catalog) Delete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.products[id]; !exists {
		return nil
	}
	delete(c.products, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}

	c.logger.Info("Product deleted", zap.String("product_id", id))
	return c.persistLocked()
}

// ReduceStock lowers stock by qty, clamped at zero. Unknown ids and
// non-positive quantities are no-ops.
func (c *Catalog) ReduceStock(id string, qty int) error {
	if qty <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[id]
	if !ok {
		c.logger.Warn("Stock reduction for unknown product ignored",
			zap.String("product_id", id),
			zap.Int("quantity", qty))
		return nil
	}

	p.Stock -= qty
	if p.Stock < 0 {
		p.Stock = 0
	}
	c.products[id] = p

	return c.persistLocked()
}

func (c *Catalog) snapshotLocked() []models.Product {
	out := make([]models.Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.products[id])
	}
	return out
}

func (c *Catalog) persistLocked() error {
	return rewriteFile(catalogStoreName, c.path, encodeProducts(c.snapshotLocked()), c.logger)
}
