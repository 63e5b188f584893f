// Package described wraps a text-only embedding provider with image
// support. Images are first described by a vision-capable responder
// and the resulting description is embedded as text, placing image
// content in the same vector space as the surrounding manual text.
package described

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/manualkit/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.EmbeddingProvider = (*Provider)(nil)

// describePrompt asks the vision model for a retrieval-friendly
// description of a manual page image.
const describePrompt = `Describe this technical diagram or image in detail, focusing on electrical components, connections, wiring, and installation steps shown. Mention any labels, part numbers, or safety markings that are visible.`

// describeMaxTokens bounds the description length.
const describeMaxTokens = 300

// Provider embeds images by describing them with a vision model and
// embedding the description through the inner text provider.
type Provider struct {
	inner     driven.EmbeddingProvider
	responder driven.GenerativeResponder
}

// NewProvider creates a describe-then-embed provider around inner.
func NewProvider(inner driven.EmbeddingProvider, responder driven.GenerativeResponder) *Provider {
	return &Provider{
		inner:     inner,
		responder: responder,
	}
}

// EmbedText delegates to the inner provider.
func (p *Provider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return p.inner.EmbedText(ctx, text)
}

// EmbedTextBatch delegates to the inner provider.
func (p *Provider) EmbedTextBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return p.inner.EmbedTextBatch(ctx, texts)
}

// EmbedImage describes the image with the vision responder and embeds
// the description.
func (p *Provider) EmbedImage(ctx context.Context, imageData []byte) ([]float32, error) {
	parts := []driven.PromptPart{
		driven.TextPart(describePrompt),
		driven.ImagePart(imageData, ""),
	}
	description, err := p.responder.Complete(ctx, parts, driven.CompleteOptions{
		MaxTokens:   describeMaxTokens,
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("describe image: %w", err)
	}

	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("describe image: empty description returned")
	}

	return p.inner.EmbedText(ctx, description)
}

// Dimensions returns the inner provider's vector size.
func (p *Provider) Dimensions() int {
	return p.inner.Dimensions()
}

// ModelName returns the inner provider's model name.
func (p *Provider) ModelName() string {
	return p.inner.ModelName()
}

// Ping validates both the inner provider and the vision responder.
func (p *Provider) Ping(ctx context.Context) error {
	if err := p.inner.Ping(ctx); err != nil {
		return err
	}
	return p.responder.Ping(ctx)
}

// Close releases the inner provider. The responder is shared with the
// synthesis pipeline and is closed by its owner.
func (p *Provider) Close() error {
	return p.inner.Close()
}
