// Package catalog exposes the read-only product lookup the visualization
// engine consumes. The engine never writes through this interface; catalog
// rows are maintained by the import pipeline.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sahityapandiri3/omnishop/internal/store"
	"github.com/sahityapandiri3/omnishop/pkg/models"
)

var ErrProductNotFound = errors.New("product not found in catalog")

// Catalog is the lookup interface. Unknown ids return ErrProductNotFound.
type Catalog interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, filter store.ProductFilter) ([]*models.Product, int, error)
}

// StoreCatalog implements Catalog over the Postgres store.
type StoreCatalog struct {
	store store.Store
}

func New(s store.Store) *StoreCatalog {
	return &StoreCatalog{store: s}
}

func (c *StoreCatalog) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := c.store.GetProduct(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}
	return p, nil
}

func (c *StoreCatalog) ListProducts(ctx context.Context, filter store.ProductFilter) ([]*models.Product, int, error) {
	return c.store.ListProducts(ctx, filter)
}

var _ Catalog = (*StoreCatalog)(nil)
