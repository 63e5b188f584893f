package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/manualkit/internal/core/domain"
	"github.com/custodia-labs/manualkit/internal/core/ports/driven"
)

// Ensure ProductStore implements the interface.
var _ driven.ProductStore = (*ProductStore)(nil)

// ProductStore is an in-memory implementation of driven.ProductStore.
// Nothing survives process exit; it backs tests and ephemeral runs.
type ProductStore struct {
	mu       sync.RWMutex
	products map[string]driven.StoredProduct
	feedback []domain.Feedback
}

// NewProductStore creates a new in-memory product store.
func NewProductStore() *ProductStore {
	return &ProductStore{
		products: make(map[string]driven.StoredProduct),
	}
}

// LoadAll returns every persisted product, sorted by product ID.
func (s *ProductStore) LoadAll(_ context.Context) ([]driven.StoredProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]driven.StoredProduct, 0, len(s.products))
	for _, product := range s.products {
		result = append(result, product)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ProductID < result[j].ProductID
	})
	return result, nil
}

// Save persists a product's chunks, replacing any previous set.
func (s *ProductStore) Save(_ context.Context, product driven.StoredProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[product.ProductID] = product
	return nil
}

// Delete removes a product and its chunks.
func (s *ProductStore) Delete(_ context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[productID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.products, productID)
	return nil
}

// SaveFeedback appends a feedback record.
func (s *ProductStore) SaveFeedback(_ context.Context, fb domain.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedback = append(s.feedback, fb)
	return nil
}

// FeedbackStats aggregates stored feedback for a product. An empty
// productID aggregates across all products.
func (s *ProductStore) FeedbackStats(_ context.Context, productID string) (domain.FeedbackStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats domain.FeedbackStats
	var total int
	for _, fb := range s.feedback {
		if productID != "" && fb.ProductID != productID {
			continue
		}
		stats.TotalSubmissions++
		total += fb.Rating
	}
	if stats.TotalSubmissions > 0 {
		stats.AverageRating = float64(total) / float64(stats.TotalSubmissions)
	}
	return stats, nil
}

// Close releases resources.
func (s *ProductStore) Close() error {
	return nil
}
