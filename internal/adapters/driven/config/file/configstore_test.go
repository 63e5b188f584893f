package file

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig seeds a config.toml in dir before the store opens it.
func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600)
	require.NoError(t, err)
}

func TestNewConfigStore_FreshInstall(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())

	// No file yet, so every lookup misses.
	_, ok := store.Get("responder.backend")
	assert.False(t, ok)
	assert.Equal(t, "", store.GetString("storage.data_dir"))
	assert.Equal(t, 0, store.GetInt("embedding.dimensions"))
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot determine home directory")
	}

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".manualkit", "config.toml"), store.Path())

	_ = os.Remove(store.Path())
}

func TestNewConfigStore_NestedDirCreated(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "var", "lib", "manualkit")

	store, err := NewConfigStore(nested)

	require.NoError(t, err)
	require.NotNil(t, store)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestNewConfigStore_MkdirFails(t *testing.T) {
	store, err := NewConfigStore("/dev/null/manualkit")

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_ReadsProviderSections(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `
[responder]
backend = "ollama"
model = "llava"
base_url = "http://localhost:11434"

[embedding]
backend = "openai"
dimensions = 1536

[storage]
data_dir = "/var/lib/manualkit"
verbose = true
`)

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "ollama", store.GetString("responder.backend"))
	assert.Equal(t, "llava", store.GetString("responder.model"))
	assert.Equal(t, "http://localhost:11434", store.GetString("responder.base_url"))
	assert.Equal(t, "openai", store.GetString("embedding.backend"))
	assert.Equal(t, 1536, store.GetInt("embedding.dimensions"))
	assert.Equal(t, "/var/lib/manualkit", store.GetString("storage.data_dir"))
	assert.True(t, store.GetBool("storage.verbose"))
}

func TestConfigStore_SetPersistsAsSections(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("responder.backend", "anthropic"))
	require.NoError(t, store.Set("embedding.dimensions", 768))

	// The written file uses TOML tables, not quoted dotted keys.
	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[responder]")
	assert.Contains(t, string(data), "[embedding]")
	assert.NotContains(t, string(data), `"responder.backend"`)

	// A fresh store sees the same values.
	reopened, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", reopened.GetString("responder.backend"))
	assert.Equal(t, 768, reopened.GetInt("embedding.dimensions"))
}

func TestConfigStore_OverwriteBackend(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("responder.backend", "gemini"))
	require.NoError(t, store.Set("responder.backend", "openai"))

	assert.Equal(t, "openai", store.GetString("responder.backend"))
}

func TestConfigStore_GetInt_AcceptsWholeFloat(t *testing.T) {
	tmpDir := t.TempDir()
	// Hand-edited configs sometimes write integers with a decimal point.
	writeConfig(t, tmpDir, `
[embedding]
dimensions = 1536.0

[chunker]
overlap = 2.5
`)

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, 1536, store.GetInt("embedding.dimensions"))
	// Fractional values do not round.
	assert.Equal(t, 0, store.GetInt("chunker.overlap"))
}

func TestConfigStore_GetString_WrongType(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("embedding.dimensions", 1536))

	assert.Equal(t, "", store.GetString("embedding.dimensions"))
	assert.Equal(t, 0, store.GetInt("responder.backend"))
	assert.False(t, store.GetBool("embedding.dimensions"))
}

func TestConfigStore_GetStringSlice(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `
[session]
languages = ["en", "de", "fr"]
mixed = ["en", 7, "de"]
`)

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, []string{"en", "de", "fr"}, store.GetStringSlice("session.languages"))
	// Non-string elements are dropped, not errored.
	assert.Equal(t, []string{"en", "de"}, store.GetStringSlice("session.mixed"))
	assert.Nil(t, store.GetStringSlice("session.missing"))
}

func TestConfigStore_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("responder.backend", "ollama"))
	require.NoError(t, store.Set("responder.api_key", "sk-test"))
	require.NoError(t, store.Set("embedding.dimensions", 1536))
	require.NoError(t, store.Set("storage.data_dir", "/tmp/manualkit"))
	require.NoError(t, store.Set("storage.verbose", false))

	reopened, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "ollama", reopened.GetString("responder.backend"))
	assert.Equal(t, "sk-test", reopened.GetString("responder.api_key"))
	assert.Equal(t, 1536, reopened.GetInt("embedding.dimensions"))
	assert.Equal(t, "/tmp/manualkit", reopened.GetString("storage.data_dir"))
	assert.False(t, reopened.GetBool("storage.verbose"))
}

func TestConfigStore_Save(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Save())

	_, err = os.Stat(store.Path())
	assert.NoError(t, err)
}

func TestConfigStore_FilePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	// API keys live in this file, so it must stay owner-only.
	require.NoError(t, store.Set("responder.api_key", "sk-secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "# managed by manualkit config\n")

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	_, ok := store.Get("responder.backend")
	assert.False(t, ok)
}

func TestConfigStore_CorruptFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "[responder\nbackend = ")

	store, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_ReloadPicksUpExternalEdit(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set("responder.backend", "gemini"))

	// Simulate the user editing the file by hand.
	writeConfig(t, tmpDir, "[responder]\nbackend = \"ollama\"\n")

	require.NoError(t, store.Load())
	assert.Equal(t, "ollama", store.GetString("responder.backend"))
}

func TestConfigStore_SetRejectsUnmarshallable(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	err = store.Set("responder.backend", make(chan int))

	assert.Error(t, err)
}

func TestConfigStore_SetFailsWhenPathIsDir(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store.Set("responder.backend", "gemini"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	err = store.Set("responder.backend", "openai")
	assert.Error(t, err)
}

func TestConfigStore_Concurrency(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	sections := []string{"responder", "embedding", "storage", "session", "chunker"}

	var wg sync.WaitGroup
	for i, section := range sections {
		wg.Add(1)
		go func(i int, section string) {
			defer wg.Done()
			_ = store.Set(section+".dimensions", i)
			_ = store.GetInt(section + ".dimensions")
			_ = store.GetString(section + ".backend")
			_, _ = store.Get(section + ".data_dir")
		}(i, section)
	}
	wg.Wait()

	for _, section := range sections {
		_, ok := store.Get(section + ".dimensions")
		assert.True(t, ok, "missing %s.dimensions after concurrent writes", section)
	}
}

func TestConfigStore_DeepKeys(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	require.NoError(t, store.Set("responder.retry.max_attempts", 3))

	reopened, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 3, reopened.GetInt("responder.retry.max_attempts"))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "[responder.retry]") ||
		strings.Contains(string(data), "[responder]"),
		"expected nested table in %q", string(data))
}
