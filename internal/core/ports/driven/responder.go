package driven

import "context"

// PromptPart is one element of a multimodal prompt. Exactly one field is set.
type PromptPart struct {
	// Text is a plain text segment.
	Text string

	// Image holds raw image bytes for vision prompts.
	Image []byte

	// MIMEType describes Image when set (default image/jpeg).
	MIMEType string
}

// TextPart builds a text prompt part.
func TextPart(text string) PromptPart {
	return PromptPart{Text: text}
}

// ImagePart builds an image prompt part.
func ImagePart(image []byte, mimeType string) PromptPart {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return PromptPart{Image: image, MIMEType: mimeType}
}

// CompleteOptions configures a responder call.
type CompleteOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64
}

// GenerativeResponder is the external model that turns ranked context into
// answers. Its reasoning is opaque; the core only depends on this call
// shape and treats the reply as possibly malformed text.
type GenerativeResponder interface {
	// Complete sends the prompt parts and returns the raw reply text.
	Complete(ctx context.Context, parts []PromptPart, opts CompleteOptions) (string, error)

	// ModelName returns the responder model identifier.
	ModelName() string

	// Ping validates the responder is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
