package services

import (
	"sort"

	"github.com/custodia-labs/manualkit/internal/chunker"
	"github.com/custodia-labs/manualkit/internal/core/domain"
	"github.com/custodia-labs/manualkit/internal/logger"
)

// Ranker orders search results, applying the safety-priority rule on top of
// raw similarity when a query is safety-sensitive. Surfacing safety content
// above slightly better similarity matches is a deliberate precision/recall
// tradeoff favouring caution.
type Ranker struct{}

// NewRanker creates a ranker.
func NewRanker() *Ranker {
	return &Ranker{}
}

// IsSafetySensitive reports whether a query should trigger safety-priority
// ranking, using the same keyword classifiers that tag chunks.
func (r *Ranker) IsSafetySensitive(query string) bool {
	return chunker.DetectSection(query) == domain.SectionSafety ||
		chunker.DetectSafetyLevel(query) != domain.SafetyInfo
}

// Rank orders results for the given query. For safety-sensitive queries
// (caller flag or detected from the query text), results are re-sorted by
// (safety priority desc, similarity desc); otherwise the similarity order
// from the index is kept. Both sorts are stable, so tie order is
// deterministic across repeated calls.
func (r *Ranker) Rank(results []domain.SearchResult, query string, safetySensitive bool) []domain.SearchResult {
	if !safetySensitive && !r.IsSafetySensitive(query) {
		return results
	}

	logger.Debug("Ranker: safety-priority ordering for query %q", query)

	ranked := make([]domain.SearchResult, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		pi := ranked[i].Chunk.SafetyLevel.Priority()
		pj := ranked[j].Chunk.SafetyLevel.Priority()
		if pi != pj {
			return pi > pj
		}
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}
