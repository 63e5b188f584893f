package manifest

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/manualkit/internal/core/domain"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manual.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("valid manifest", func(t *testing.T) {
		path := writeManifest(t, `{
			"product_id": "dehnguard",
			"product_name": "DEHNguard M",
			"pages": [{"number": 0, "text": "mount on the rail"}]
		}`)

		m, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "dehnguard", m.ProductID)
		assert.Equal(t, "DEHNguard M", m.ProductName)
		require.Len(t, m.Pages, 1)
	})

	t.Run("missing name defaults to id", func(t *testing.T) {
		path := writeManifest(t, `{"product_id": "dehnguard", "pages": []}`)

		m, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "dehnguard", m.ProductName)
	})

	t.Run("missing product id fails", func(t *testing.T) {
		path := writeManifest(t, `{"product_name": "Orphan", "pages": []}`)

		_, err := Load(path)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("broken json fails", func(t *testing.T) {
		path := writeManifest(t, `{"product_id": `)

		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
		assert.Error(t, err)
	})
}

func TestManifest_ToRequest(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8})

	m := &Manifest{
		ProductID:   "dehnguard",
		ProductName: "DEHNguard M",
		Pages: []Page{
			{Number: 0, Text: "safety first", Images: []string{encoded, "not base64!!!"}},
			{Number: 1, Text: "wiring diagram"},
		},
	}

	req := m.ToRequest()
	assert.Equal(t, "dehnguard", req.ProductID)
	assert.Equal(t, "DEHNguard M", req.ProductName)
	require.Len(t, req.Pages, 2)

	// The undecodable image is skipped, not fatal.
	require.Len(t, req.Pages[0].Images, 1)
	assert.Equal(t, []byte{0xFF, 0xD8}, req.Pages[0].Images[0])
	assert.Empty(t, req.Pages[1].Images)
}
