package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestManifest(t *testing.T, name, productID string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	content := `{"product_id": "` + productID + `", "product_name": "Test Product", "pages": [{"number": 0, "text": "mount the device"}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest [manifest.json...]", ingestCmd.Use)
}

func TestIngestCmd_RequiresAtLeastOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ingest"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestIngestCmd_SingleManifest(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	path := writeTestManifest(t, "dehnguard.json", "dehnguard")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ingest", path})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Ingested dehnguard")
	assert.Contains(t, buf.String(), "3 chunks")
}

func TestIngestCmd_MultipleManifests(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	first := writeTestManifest(t, "dehnguard.json", "dehnguard")
	second := writeTestManifest(t, "ventil.json", "ventil")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ingest", first, second})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "dehnguard: success")
	assert.Contains(t, buf.String(), "ventil: success")
}

func TestIngestCmd_MissingManifestFails(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"ingest", filepath.Join(t.TempDir(), "absent.json")})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	assert.Error(t, err)
}

func TestIngestCmd_JSONOutput(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	path := writeTestManifest(t, "dehnguard.json", "dehnguard")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"ingest", "--json", path})
	defer func() {
		rootCmd.SetArgs(nil)
		ingestJSON = false
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "\"product_id\"")
	assert.Contains(t, buf.String(), "\"document_count\"")
}
