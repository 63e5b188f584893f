package domain

import "fmt"

// ChunkKind distinguishes text excerpts from extracted images.
type ChunkKind string

const (
	// ChunkText is a word-bounded excerpt of page text.
	ChunkText ChunkKind = "text"
	// ChunkImage is a single extracted image, carried as a byte handle.
	ChunkImage ChunkKind = "image"
)

// SafetyLevel is the coarse severity tag attached to manual content.
// It biases ranking: higher levels surface first for safety-sensitive queries.
type SafetyLevel string

const (
	SafetyInfo     SafetyLevel = "info"
	SafetyWarning  SafetyLevel = "warning"
	SafetyCritical SafetyLevel = "critical"
)

// Priority returns the numeric rank used for safety ordering.
// Critical=3, Warning=2, Info=1, anything else 0.
func (l SafetyLevel) Priority() int {
	switch l {
	case SafetyCritical:
		return 3
	case SafetyWarning:
		return 2
	case SafetyInfo:
		return 1
	default:
		return 0
	}
}

// Manual section categories assigned by the chunk tagger.
const (
	SectionSafety          = "safety"
	SectionInstallation    = "installation"
	SectionWiring          = "wiring"
	SectionTroubleshooting = "troubleshooting"
	SectionSpecifications  = "specifications"
	SectionGeneral         = "general"
)

// Chunk is a bounded unit of product-manual content.
// Immutable after creation except Embedding, which is set exactly once.
type Chunk struct {
	// ID is unique within a product and reproducible from
	// (productID, pageNumber, kind, localIndex). See ChunkID.
	ID string

	// ProductID links to the owning product.
	ProductID string

	// PageNumber is the zero-based source page.
	PageNumber int

	// Kind is text or image.
	Kind ChunkKind

	// Content is the chunk text; for images, a descriptive placeholder.
	Content string

	// ImageData holds the raw image bytes for image chunks, nil for text.
	ImageData []byte

	// Embedding is the vector representation for similarity search.
	// Nil until set; length is constant across one ProductIndex.
	Embedding []float32

	// Section is the tagged manual section (safety, installation, ...).
	Section string

	// SafetyLevel is the tagged severity.
	SafetyLevel SafetyLevel

	// ComponentTags lists component categories mentioned in the content.
	ComponentTags []string
}

// ChunkID builds the reproducible chunk identifier.
// Text chunks: "<product>_page_<n>_text_<i>"; images: "<product>_page_<n>_img_<i>".
func ChunkID(productID string, pageNumber int, kind ChunkKind, localIndex int) string {
	marker := "text"
	if kind == ChunkImage {
		marker = "img"
	}
	return fmt.Sprintf("%s_page_%d_%s_%d", productID, pageNumber, marker, localIndex)
}

// NewTextChunk creates a text chunk with a reproducible id.
// Returns ErrInvalidInput for empty product ids or content.
func NewTextChunk(productID string, pageNumber, localIndex int, content string) (Chunk, error) {
	if productID == "" || content == "" {
		return Chunk{}, fmt.Errorf("%w: text chunk requires product id and content", ErrInvalidInput)
	}
	return Chunk{
		ID:          ChunkID(productID, pageNumber, ChunkText, localIndex),
		ProductID:   productID,
		PageNumber:  pageNumber,
		Kind:        ChunkText,
		Content:     content,
		SafetyLevel: SafetyInfo,
		Section:     SectionGeneral,
	}, nil
}

// NewImageChunk creates an image chunk with a reproducible id.
// Content is set to a standard placeholder describing the image's origin.
func NewImageChunk(productID string, pageNumber, localIndex int, imageData []byte) (Chunk, error) {
	if productID == "" || len(imageData) == 0 {
		return Chunk{}, fmt.Errorf("%w: image chunk requires product id and image bytes", ErrInvalidInput)
	}
	id := ChunkID(productID, pageNumber, ChunkImage, localIndex)
	return Chunk{
		ID:          id,
		ProductID:   productID,
		PageNumber:  pageNumber,
		Kind:        ChunkImage,
		Content:     fmt.Sprintf("[Image: %s - Technical diagram from page %d]", id, pageNumber),
		ImageData:   imageData,
		SafetyLevel: SafetyInfo,
		Section:     SectionGeneral,
	}, nil
}

// SetEmbedding attaches the embedding vector. It may be called at most once
// per chunk; a second call is a contract violation.
func (c *Chunk) SetEmbedding(embedding []float32) error {
	if c.Embedding != nil {
		return fmt.Errorf("%w: chunk %s", ErrEmbeddingAlreadySet, c.ID)
	}
	c.Embedding = embedding
	return nil
}

// HasEmbedding reports whether a non-empty embedding is attached.
func (c *Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}
