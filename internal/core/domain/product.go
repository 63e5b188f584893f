package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Keywords that mark a chunk as safety-related even without a safety tag.
var safetyKeywords = []string{"safety", "warning", "caution", "danger"}

// SearchResult pairs a chunk with its similarity score for one query.
// Results are ephemeral and never persisted.
type SearchResult struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Score is the cosine similarity in [-1, 1].
	Score float64
}

// ProductIndex owns the ordered chunk collection for one product together
// with aggregate counters. It is immutable after construction: re-ingestion
// replaces the whole index, never merges into it. That immutability is what
// makes the registry's pointer-swap atomic for in-flight readers.
type ProductIndex struct {
	// ProductID identifies the product.
	ProductID string

	// Name is the human-readable product name.
	Name string

	// IngestedAt records when this index was built.
	IngestedAt time.Time

	// TotalPages is the page count of the source manual.
	TotalPages int

	chunks     []Chunk
	dimensions int
	textCount  int
	imageCount int
}

// NewProductIndex bulk-loads chunks into a fresh index.
// All embedded chunks must share one embedding dimension; a mismatch is a
// contract violation and fails construction. Chunks without embeddings are
// accepted and simply never match a query (cosine of an empty vector is 0).
func NewProductIndex(productID, name string, totalPages int, chunks []Chunk) (*ProductIndex, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: product id required", ErrInvalidInput)
	}

	idx := &ProductIndex{
		ProductID:  productID,
		Name:       name,
		IngestedAt: time.Now(),
		TotalPages: totalPages,
		chunks:     make([]Chunk, len(chunks)),
	}
	copy(idx.chunks, chunks)

	for i := range idx.chunks {
		c := &idx.chunks[i]
		if c.Kind == ChunkImage {
			idx.imageCount++
		} else {
			idx.textCount++
		}
		if !c.HasEmbedding() {
			continue
		}
		if idx.dimensions == 0 {
			idx.dimensions = len(c.Embedding)
		} else if len(c.Embedding) != idx.dimensions {
			return nil, fmt.Errorf("%w: chunk %s has %d dimensions, index has %d",
				ErrDimensionMismatch, c.ID, len(c.Embedding), idx.dimensions)
		}
	}

	return idx, nil
}

// Chunks returns the chunks in insertion order.
// The returned slice must not be mutated.
func (idx *ProductIndex) Chunks() []Chunk {
	return idx.chunks
}

// Len returns the total chunk count.
func (idx *ProductIndex) Len() int { return len(idx.chunks) }

// TextCount returns the number of text chunks.
func (idx *ProductIndex) TextCount() int { return idx.textCount }

// ImageCount returns the number of image chunks.
func (idx *ProductIndex) ImageCount() int { return idx.imageCount }

// Dimensions returns the embedding dimension, 0 if nothing is embedded.
func (idx *ProductIndex) Dimensions() int { return idx.dimensions }

// Search returns up to k chunks ordered by descending cosine similarity to
// the query vector. The sort is stable: equal scores keep insertion order,
// so repeated searches against an unchanged index return identical ordering.
func (idx *ProductIndex) Search(queryVector []float32, k int) []SearchResult {
	if k <= 0 {
		return nil
	}

	results := make([]SearchResult, 0, len(idx.chunks))
	for i := range idx.chunks {
		results = append(results, SearchResult{
			Chunk: idx.chunks[i],
			Score: CosineSimilarity(queryVector, idx.chunks[i].Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// SearchMultimodal fuses independent text and image searches. Text results
// come first, then image results; duplicates are removed keeping the first
// occurrence and the combined list is truncated to k. The text-first bias is
// deliberate: textual instructions are more authoritative than image
// similarity for primary answers. A nil query vector skips that leg.
func (idx *ProductIndex) SearchMultimodal(textVector, imageVector []float32, k int) []SearchResult {
	if k <= 0 {
		return nil
	}

	var combined []SearchResult
	if textVector != nil {
		combined = append(combined, idx.Search(textVector, k)...)
	}
	if imageVector != nil {
		combined = append(combined, idx.Search(imageVector, k)...)
	}

	seen := make(map[string]bool, len(combined))
	unique := make([]SearchResult, 0, k)
	for _, r := range combined {
		if seen[r.Chunk.ID] {
			continue
		}
		seen[r.Chunk.ID] = true
		unique = append(unique, r)
		if len(unique) >= k {
			break
		}
	}
	return unique
}

// FilterBySection returns the chunks tagged with the given section,
// preserving insertion order.
func (idx *ProductIndex) FilterBySection(section string) []Chunk {
	var filtered []Chunk
	for i := range idx.chunks {
		if idx.chunks[i].Section == section {
			filtered = append(filtered, idx.chunks[i])
		}
	}
	return filtered
}

// SafetyContent returns every safety-related chunk: tagged with the safety
// section, carrying a Warning or Critical level, or containing a safety
// keyword. Results are sorted by safety priority descending, stable on ties.
func (idx *ProductIndex) SafetyContent() []Chunk {
	var safety []Chunk
	for i := range idx.chunks {
		c := idx.chunks[i]
		if c.Section == SectionSafety ||
			c.SafetyLevel == SafetyWarning || c.SafetyLevel == SafetyCritical ||
			containsAnyKeyword(c.Content, safetyKeywords) {
			safety = append(safety, c)
		}
	}

	sort.SliceStable(safety, func(i, j int) bool {
		return safety[i].SafetyLevel.Priority() > safety[j].SafetyLevel.Priority()
	})
	return safety
}

// Cluster partitions the embedded chunks into k groups by embedding
// similarity. Fewer embedded chunks than k is a documented degenerate case,
// not an error: everything lands in a single partition. Clustering is
// deterministic: centroids seed from the first k embedded chunks in
// insertion order.
func (idx *ProductIndex) Cluster(k int) [][]Chunk {
	var embedded []Chunk
	for i := range idx.chunks {
		if idx.chunks[i].HasEmbedding() {
			embedded = append(embedded, idx.chunks[i])
		}
	}

	if len(embedded) == 0 {
		return nil
	}
	if len(embedded) < k || k <= 1 {
		return [][]Chunk{embedded}
	}

	// Plain k-means with cosine assignment and a fixed iteration cap.
	centroids := make([][]float64, k)
	for i := 0; i < k; i++ {
		centroids[i] = widen(embedded[i].Embedding)
	}

	assignments := make([]int, len(embedded))
	const maxIterations = 10
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i := range embedded {
			best, bestScore := 0, math.Inf(-1)
			for j := range centroids {
				score := cosine64(widen(embedded[i].Embedding), centroids[j])
				if score > bestScore {
					best, bestScore = j, score
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		// Recompute centroids as member means; empty clusters keep theirs.
		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range embedded {
			a := assignments[i]
			if sums[a] == nil {
				sums[a] = make([]float64, len(embedded[i].Embedding))
			}
			for d, v := range embedded[i].Embedding {
				sums[a][d] += float64(v)
			}
			counts[a]++
		}
		for j := range centroids {
			if counts[j] == 0 {
				continue
			}
			for d := range sums[j] {
				sums[j][d] /= float64(counts[j])
			}
			centroids[j] = sums[j]
		}
	}

	clusters := make([][]Chunk, k)
	for i := range embedded {
		clusters[assignments[i]] = append(clusters[assignments[i]], embedded[i])
	}

	// Drop empty partitions so callers never see nil groups.
	out := clusters[:0]
	for _, cl := range clusters {
		if len(cl) > 0 {
			out = append(out, cl)
		}
	}
	return out
}

// IndexSummary aggregates counts across one product index.
type IndexSummary struct {
	TotalChunks  int            `json:"total_chunks"`
	TextChunks   int            `json:"text_chunks"`
	ImageChunks  int            `json:"image_chunks"`
	Embedded     int            `json:"embedded"`
	Sections     map[string]int `json:"sections"`
	SafetyLevels map[string]int `json:"safety_levels"`
}

// Summary computes aggregate statistics over the index.
func (idx *ProductIndex) Summary() IndexSummary {
	s := IndexSummary{
		TotalChunks:  len(idx.chunks),
		TextChunks:   idx.textCount,
		ImageChunks:  idx.imageCount,
		Sections:     make(map[string]int),
		SafetyLevels: make(map[string]int),
	}
	for i := range idx.chunks {
		c := idx.chunks[i]
		s.Sections[c.Section]++
		s.SafetyLevels[string(c.SafetyLevel)]++
		if c.HasEmbedding() {
			s.Embedded++
		}
	}
	return s
}

// CosineSimilarity computes the normalised dot product of two vectors.
// Mismatched lengths, empty inputs and zero vectors all yield exactly 0.0
// rather than an error, so a partially-embedded corpus degrades ranking
// instead of failing the search.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func cosine64(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

func containsAnyKeyword(content string, keywords []string) bool {
	lower := strings.ToLower(content)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
