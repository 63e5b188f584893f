package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/manualkit/internal/chunker"
	"github.com/custodia-labs/manualkit/internal/core/domain"
	"github.com/custodia-labs/manualkit/internal/core/ports/driven"
	"github.com/custodia-labs/manualkit/internal/core/ports/driving"
	"github.com/custodia-labs/manualkit/internal/logger"
)

// Ensure AssistantService implements the interface.
var _ driving.AssistantService = (*AssistantService)(nil)

// DefaultTopK is the retrieval depth when the caller does not specify one.
const DefaultTopK = 5

// defaultExpectedComponents is used when a product index carries no
// component tags to derive step expectations from.
var defaultExpectedComponents = []string{
	"surge protector",
	"terminal block",
	"ground wire",
	"live wire",
	"neutral wire",
	"mounting bracket",
	"connection terminals",
}

// AssistantService implements the transport-agnostic retrieval surface:
// ingestion, question answering and image detection.
type AssistantService struct {
	registry    *ProductRegistry
	store       driven.ProductStore
	embedder    driven.EmbeddingProvider
	synthesizer *ResponseSynthesizer
	ranker      *Ranker
	splitter    *chunker.Splitter
}

// NewAssistantService creates the assistant. The store and embedder are
// optional: without a store nothing persists, without an embedder searches
// degrade to zero-score ranking.
func NewAssistantService(
	registry *ProductRegistry,
	store driven.ProductStore,
	embedder driven.EmbeddingProvider,
	synthesizer *ResponseSynthesizer,
	ranker *Ranker,
	splitter *chunker.Splitter,
) *AssistantService {
	return &AssistantService{
		registry:    registry,
		store:       store,
		embedder:    embedder,
		synthesizer: synthesizer,
		ranker:      ranker,
		splitter:    splitter,
	}
}

// Ingest chunks, tags, embeds and indexes a product's pages, replacing any
// existing index wholesale. Failures are isolated per page; the result
// carries a status for every page.
func (a *AssistantService) Ingest(ctx context.Context, req driving.IngestRequest) (*domain.IngestResult, error) {
	logger.Section("Ingest " + req.ProductID)

	if req.ProductID == "" {
		return nil, fmt.Errorf("%w: product id required", domain.ErrInvalidInput)
	}

	var chunks []domain.Chunk
	statuses := make([]domain.PageStatus, 0, len(req.Pages))

	for _, page := range req.Pages {
		pageChunks, err := a.chunkPage(req.ProductID, page)
		status := domain.PageStatus{PageNumber: page.Number, Chunks: len(pageChunks)}
		if err != nil {
			status.Err = err.Error()
			logger.Warn("Ingest: page %d failed: %v", page.Number, err)
		}
		chunks = append(chunks, pageChunks...)
		statuses = append(statuses, status)
	}

	a.embedChunks(ctx, chunks)

	idx, err := domain.NewProductIndex(req.ProductID, req.ProductName, len(req.Pages), chunks)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	a.registry.Replace(idx)

	if a.store != nil {
		stored := driven.StoredProduct{
			ProductID:  req.ProductID,
			Name:       req.ProductName,
			TotalPages: len(req.Pages),
			Chunks:     idx.Chunks(),
		}
		if err := a.store.Save(ctx, stored); err != nil {
			logger.Warn("Ingest: persist %s failed: %v", req.ProductID, err)
		}
	}

	logger.Info("Ingest: %s indexed with %d chunks (%d text, %d image)",
		req.ProductID, idx.Len(), idx.TextCount(), idx.ImageCount())

	return &domain.IngestResult{
		ProductID:     req.ProductID,
		TotalPages:    len(req.Pages),
		DocumentCount: idx.Len(),
		TextCount:     idx.TextCount(),
		ImageCount:    idx.ImageCount(),
		Pages:         statuses,
	}, nil
}

// IngestBatch processes several products, isolating failures per product.
func (a *AssistantService) IngestBatch(ctx context.Context, reqs []driving.IngestRequest) []driving.BatchItemResult {
	results := make([]driving.BatchItemResult, 0, len(reqs))
	for _, req := range reqs {
		res, err := a.Ingest(ctx, req)
		if err != nil {
			results = append(results, driving.BatchItemResult{
				ProductID: req.ProductID,
				Status:    "error",
				Err:       err.Error(),
			})
			continue
		}
		results = append(results, driving.BatchItemResult{
			ProductID: req.ProductID,
			Status:    "success",
			Result:    res,
		})
	}
	return results
}

// chunkPage splits one page's text and images into tagged chunks.
func (a *AssistantService) chunkPage(productID string, page domain.Page) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	var firstErr error

	for i, text := range a.splitter.Split(page.Text) {
		c, err := domain.NewTextChunk(productID, page.Number, i, text)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		chunker.Tag(&c)
		chunks = append(chunks, c)
	}

	for i, img := range page.Images {
		c, err := domain.NewImageChunk(productID, page.Number, i, img)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		chunks = append(chunks, c)
	}

	return chunks, firstErr
}

// embedChunks generates embeddings for all chunks. Text chunks go through
// the batch path; image chunks are embedded concurrently with results
// assigned by index, so out-of-order completion never mixes up chunks.
// Embedding failures leave the chunk unembedded and degrade ranking rather
// than aborting the ingest.
func (a *AssistantService) embedChunks(ctx context.Context, chunks []domain.Chunk) {
	if a.embedder == nil {
		logger.Warn("Ingest: no embedding provider, index will rank at zero similarity")
		return
	}

	var textIdx []int
	var texts []string
	var imageIdx []int
	for i := range chunks {
		if chunks[i].Kind == domain.ChunkImage {
			imageIdx = append(imageIdx, i)
		} else {
			textIdx = append(textIdx, i)
			texts = append(texts, chunks[i].Content)
		}
	}

	if len(texts) > 0 {
		vectors, err := a.embedder.EmbedTextBatch(ctx, texts)
		if err != nil {
			logger.Warn("Ingest: batch embedding failed: %v", err)
		} else {
			for j, vec := range vectors {
				if len(vec) == 0 {
					continue
				}
				if err := chunks[textIdx[j]].SetEmbedding(vec); err != nil {
					logger.Warn("Ingest: %v", err)
				}
			}
		}
	}

	if len(imageIdx) > 0 {
		vectors := make([][]float32, len(imageIdx))
		var wg sync.WaitGroup
		for j, ci := range imageIdx {
			wg.Add(1)
			go func(j, ci int) {
				defer wg.Done()
				vec, err := a.embedder.EmbedImage(ctx, chunks[ci].ImageData)
				if err != nil {
					logger.Debug("Ingest: image embedding for %s failed: %v", chunks[ci].ID, err)
					return
				}
				vectors[j] = vec
			}(j, ci)
		}
		wg.Wait()

		for j, vec := range vectors {
			if len(vec) == 0 {
				continue
			}
			if err := chunks[imageIdx[j]].SetEmbedding(vec); err != nil {
				logger.Warn("Ingest: %v", err)
			}
		}
	}
}

// Ask answers a question about one product.
func (a *AssistantService) Ask(
	ctx context.Context, query, productID string, opts driving.AskOptions,
) (*domain.AnswerResult, error) {
	logger.Section("Ask " + productID)
	logger.Debug("Query: %q", query)

	idx, err := a.registry.Get(productID)
	if err != nil {
		return nil, err
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	results := a.retrieve(ctx, idx, query, topK, opts.SectionFilter)
	ranked := a.ranker.Rank(results, query, opts.SafetySensitive)

	return a.synthesizer.Synthesize(ctx, query, idx.Name, opts.Language, ranked)
}

// retrieve embeds the query and searches the index, optionally restricted
// to one section. An embedding failure degrades to a zero-vector query (all
// scores 0.0, insertion order) and is logged, never fatal.
func (a *AssistantService) retrieve(
	ctx context.Context, idx *domain.ProductIndex, query string, topK int, sectionFilter string,
) []domain.SearchResult {
	var queryVec []float32
	if a.embedder != nil {
		vec, err := a.embedder.EmbedText(ctx, query)
		if err != nil {
			logger.Warn("Ask: query embedding failed, ranking degrades: %v", err)
		} else {
			queryVec = vec
		}
	}

	if sectionFilter == "" {
		return idx.Search(queryVec, topK)
	}

	// Section-filtered retrieval searches the whole index and keeps the
	// filtered subset, preserving score order.
	all := idx.Search(queryVec, idx.Len())
	filtered := make([]domain.SearchResult, 0, topK)
	for _, r := range all {
		if r.Chunk.Section == sectionFilter {
			filtered = append(filtered, r)
			if len(filtered) >= topK {
				break
			}
		}
	}
	return filtered
}

// Detect analyses an installation image for one step of a product.
func (a *AssistantService) Detect(
	ctx context.Context, productID string, stepNumber int, image []byte,
) (*domain.DetectionResult, error) {
	idx, err := a.registry.Get(productID)
	if err != nil {
		return nil, err
	}

	expected := ExpectedComponents(idx)
	return a.synthesizer.DetectComponents(ctx, image, productID, stepNumber, expected)
}

// ExpectedComponents derives the component names expected in installation
// images from the index's component tags, in first-seen chunk order. Falls
// back to the standard component list when the index carries no tags.
func ExpectedComponents(idx *domain.ProductIndex) []string {
	seen := make(map[string]bool)
	var components []string
	for _, c := range idx.Chunks() {
		for _, tag := range c.ComponentTags {
			if !seen[tag] {
				seen[tag] = true
				components = append(components, strings.ReplaceAll(tag, "_", " "))
			}
		}
	}
	if len(components) == 0 {
		return defaultExpectedComponents
	}
	return components
}

// Products lists all indexed products ordered by id.
func (a *AssistantService) Products(_ context.Context) []domain.ProductInfo {
	indexes := a.registry.All()
	infos := make([]domain.ProductInfo, 0, len(indexes))
	for _, idx := range indexes {
		infos = append(infos, productInfo(idx))
	}
	return infos
}

// FindProducts returns products whose name or chunk content contains the
// query, case-insensitively.
func (a *AssistantService) FindProducts(_ context.Context, query string) []domain.ProductInfo {
	lower := strings.ToLower(query)
	var matches []domain.ProductInfo

	for _, idx := range a.registry.All() {
		if strings.Contains(strings.ToLower(idx.Name), lower) {
			matches = append(matches, productInfo(idx))
			continue
		}
		for _, c := range idx.Chunks() {
			if strings.Contains(strings.ToLower(c.Content), lower) {
				matches = append(matches, productInfo(idx))
				break
			}
		}
	}
	return matches
}

// DeleteProduct removes a product from the registry and the store.
func (a *AssistantService) DeleteProduct(ctx context.Context, productID string) error {
	if err := a.registry.Delete(productID); err != nil {
		return err
	}
	if a.store != nil {
		if err := a.store.Delete(ctx, productID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("delete stored product: %w", err)
		}
	}
	logger.Info("Deleted product %s", productID)
	return nil
}

// SubmitFeedback records a user's step rating and returns the feedback id.
func (a *AssistantService) SubmitFeedback(ctx context.Context, fb domain.Feedback) (string, error) {
	if !a.registry.Has(fb.ProductID) {
		return "", fmt.Errorf("%w: %s", domain.ErrProductNotFound, fb.ProductID)
	}
	if fb.ID == "" {
		fb.ID = uuid.New().String()
	}
	if fb.SubmittedAt.IsZero() {
		fb.SubmittedAt = time.Now()
	}
	if a.store != nil {
		if err := a.store.SaveFeedback(ctx, fb); err != nil {
			return "", fmt.Errorf("save feedback: %w", err)
		}
	}
	return fb.ID, nil
}

// FeedbackStats aggregates recorded feedback for a product, or across all
// products when productID is empty. Without a store there is nothing
// recorded, so the stats are zero.
func (a *AssistantService) FeedbackStats(ctx context.Context, productID string) (domain.FeedbackStats, error) {
	if a.store == nil {
		return domain.FeedbackStats{}, nil
	}
	stats, err := a.store.FeedbackStats(ctx, productID)
	if err != nil {
		return domain.FeedbackStats{}, fmt.Errorf("feedback stats: %w", err)
	}
	return stats, nil
}

func productInfo(idx *domain.ProductIndex) domain.ProductInfo {
	return domain.ProductInfo{
		ID:              idx.ProductID,
		Name:            idx.Name,
		TotalPages:      idx.TotalPages,
		LastUpdated:     idx.IngestedAt,
		EmbeddingsCount: idx.Summary().Embedded,
	}
}
