package driven

import "context"

// EmbeddingProvider turns chunk or query content into fixed-length vectors.
//
// Every vector returned by one provider instance has the same dimension;
// mixing providers within one product index violates the index contract.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
//   - A describe-then-embed decorator that routes images through a vision
//     model and embeds the description
type EmbeddingProvider interface {
	// EmbedText generates a vector embedding for the given text.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedImage generates a vector embedding for raw image bytes.
	// Providers without image support return domain.ErrEmbeddingUnavailable.
	EmbedImage(ctx context.Context, image []byte) ([]float32, error)

	// EmbedTextBatch generates embeddings for multiple texts efficiently.
	// The result is index-aligned with the input even when the upstream
	// API returns out of order.
	EmbedTextBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the provider is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
