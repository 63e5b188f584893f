package driving

import (
	"context"

	"github.com/custodia-labs/manualkit/internal/core/domain"
)

// AskOptions configures a manual question.
type AskOptions struct {
	// Language is the answer language (default "en").
	Language string

	// SectionFilter restricts retrieval to one manual section.
	SectionFilter string

	// SafetySensitive forces safety-priority ranking regardless of what
	// the query classifier detects.
	SafetySensitive bool

	// TopK is the number of chunks to retrieve (default 5).
	TopK int
}

// IngestRequest carries one product's extracted pages into the core.
type IngestRequest struct {
	// ProductID identifies the product.
	ProductID string

	// ProductName is the display name.
	ProductName string

	// Pages are the extracted manual pages.
	Pages []domain.Page
}

// AssistantService is the transport-agnostic surface of the retrieval core.
type AssistantService interface {
	// Ingest chunks, tags, embeds and indexes a product's pages.
	// Page failures are isolated: the result carries per-page statuses.
	Ingest(ctx context.Context, req IngestRequest) (*domain.IngestResult, error)

	// IngestBatch ingests several products, isolating failures per product.
	IngestBatch(ctx context.Context, reqs []IngestRequest) []BatchItemResult

	// Ask answers a natural-language question about a product.
	// Returns domain.ErrProductNotFound for unknown products; upstream
	// failures degrade to low-confidence structured answers.
	Ask(ctx context.Context, query, productID string, opts AskOptions) (*domain.AnswerResult, error)

	// Detect analyses an installation image against a step's expected
	// components.
	Detect(ctx context.Context, productID string, stepNumber int, image []byte) (*domain.DetectionResult, error)

	// Products lists all indexed products.
	Products(ctx context.Context) []domain.ProductInfo

	// FindProducts returns products whose name or content matches the query.
	FindProducts(ctx context.Context, query string) []domain.ProductInfo

	// DeleteProduct removes a product from the registry and the store.
	DeleteProduct(ctx context.Context, productID string) error

	// SubmitFeedback records a user's rating of an analysed step.
	SubmitFeedback(ctx context.Context, fb domain.Feedback) (string, error)

	// FeedbackStats aggregates recorded feedback for a product, or for
	// all products when productID is empty.
	FeedbackStats(ctx context.Context, productID string) (domain.FeedbackStats, error)
}

// BatchItemResult is the per-product outcome of a batch ingestion.
type BatchItemResult struct {
	ProductID string               `json:"product_id"`
	Status    string               `json:"status"`
	Result    *domain.IngestResult `json:"result,omitempty"`
	Err       string               `json:"error,omitempty"`
}
