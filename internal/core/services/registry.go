package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/manualkit/internal/core/domain"
	"github.com/custodia-labs/manualkit/internal/core/ports/driven"
	"github.com/custodia-labs/manualkit/internal/logger"
)

// ProductRegistry owns the in-memory product indexes. Entries are added and
// removed only through the operations below; no other component reaches
// into the map.
//
// Replacement is atomic from a reader's perspective: a ProductIndex is
// immutable after construction, so Get hands out a consistent snapshot
// pointer and a concurrent Replace swaps the map entry without affecting
// in-flight searches against the old index.
type ProductRegistry struct {
	mu       sync.RWMutex
	products map[string]*domain.ProductIndex
}

// NewProductRegistry creates an empty registry.
func NewProductRegistry() *ProductRegistry {
	return &ProductRegistry{
		products: make(map[string]*domain.ProductIndex),
	}
}

// Get returns the current index snapshot for a product.
func (r *ProductRegistry) Get(productID string) (*domain.ProductIndex, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.products[productID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
	}
	return idx, nil
}

// Has reports whether a product is registered.
func (r *ProductRegistry) Has(productID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.products[productID]
	return ok
}

// Replace installs a freshly built index, replacing any previous one
// wholesale. There is no partial merge.
func (r *ProductRegistry) Replace(idx *domain.ProductIndex) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[idx.ProductID] = idx
	logger.Debug("Registry: installed index for %s (%d chunks)", idx.ProductID, idx.Len())
}

// Delete removes a product index.
func (r *ProductRegistry) Delete(productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[productID]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
	}
	delete(r.products, productID)
	return nil
}

// All returns the registered indexes ordered by product id.
func (r *ProductRegistry) All() []*domain.ProductIndex {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.ProductIndex, 0, len(r.products))
	for _, idx := range r.products {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

// Len returns the number of registered products.
func (r *ProductRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.products)
}

// LoadAll repopulates the registry from persisted products. A product that
// fails to rebuild is skipped and logged; the rest still load.
func (r *ProductRegistry) LoadAll(ctx context.Context, store driven.ProductStore) error {
	stored, err := store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}

	loaded := 0
	for _, p := range stored {
		idx, err := domain.NewProductIndex(p.ProductID, p.Name, p.TotalPages, p.Chunks)
		if err != nil {
			logger.Warn("Registry: skipping product %s: %v", p.ProductID, err)
			continue
		}
		r.Replace(idx)
		loaded++
	}

	logger.Info("Registry: loaded %d products", loaded)
	return nil
}
