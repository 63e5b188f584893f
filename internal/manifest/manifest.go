// Package manifest loads extracted manual files from disk. A manifest is
// the JSON hand-off produced by an upstream PDF extraction step: one
// product with its page texts and page images (base64-encoded).
package manifest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/manualkit/internal/core/domain"
	"github.com/custodia-labs/manualkit/internal/core/ports/driving"
)

// Manifest is the on-disk form of one extracted manual.
type Manifest struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Pages       []Page `json:"pages"`
}

// Page is one extracted manual page.
type Page struct {
	Number int      `json:"number"`
	Text   string   `json:"text"`
	Images []string `json:"images,omitempty"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", filepath.Base(path), err)
	}

	if m.ProductID == "" {
		return nil, fmt.Errorf("manifest %s: %w: product_id is required",
			filepath.Base(path), domain.ErrInvalidInput)
	}
	if m.ProductName == "" {
		m.ProductName = m.ProductID
	}

	return &m, nil
}

// ToRequest converts the manifest into an ingestion request, decoding
// page images. Images that fail base64 decoding are skipped; the rest
// of the page is still ingested.
func (m *Manifest) ToRequest() driving.IngestRequest {
	req := driving.IngestRequest{
		ProductID:   m.ProductID,
		ProductName: m.ProductName,
	}

	for _, page := range m.Pages {
		p := domain.Page{
			Number: page.Number,
			Text:   page.Text,
		}
		for _, encoded := range page.Images {
			decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
			if err != nil {
				continue
			}
			p.Images = append(p.Images, decoded)
		}
		req.Pages = append(req.Pages, p)
	}

	return req
}
