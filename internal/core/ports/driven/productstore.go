package driven

import (
	"context"

	"github.com/custodia-labs/manualkit/internal/core/domain"
)

// StoredProduct is the persisted form of one product's document set.
type StoredProduct struct {
	// ProductID identifies the product.
	ProductID string

	// Name is the product display name.
	Name string

	// TotalPages is the page count of the source manual.
	TotalPages int

	// Chunks are the embedded chunks in insertion order.
	Chunks []domain.Chunk
}

// ProductStore persists ingested product document sets so the registry can
// be repopulated at process start. The schema behind it is external to the
// core; implementations own their layout.
type ProductStore interface {
	// LoadAll returns every persisted product.
	LoadAll(ctx context.Context) ([]StoredProduct, error)

	// Save persists a product's chunks, replacing any previous set.
	Save(ctx context.Context, product StoredProduct) error

	// Delete removes a product and its chunks.
	// Deleting an unknown product returns domain.ErrNotFound.
	Delete(ctx context.Context, productID string) error

	// SaveFeedback appends a feedback record.
	SaveFeedback(ctx context.Context, fb domain.Feedback) error

	// FeedbackStats aggregates stored feedback for a product.
	// An empty productID aggregates across all products.
	FeedbackStats(ctx context.Context, productID string) (domain.FeedbackStats, error)

	// Close releases resources.
	Close() error
}
