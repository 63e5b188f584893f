package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductsCmd_Use(t *testing.T) {
	assert.Equal(t, "products", productsCmd.Use)
}

func TestProductsCmd_HasDeleteSubcommand(t *testing.T) {
	names := make([]string, 0)
	for _, cmd := range productsCmd.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Contains(t, names, "delete")
}

func TestProductsCmd_ListsProducts(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"products"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "dehnguard")
	assert.Contains(t, buf.String(), "DEHNguard M")
	assert.Contains(t, buf.String(), "12 pages")
}

func TestProductsCmd_FindFiltersResults(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"products", "--find", "toaster"})
	defer func() {
		rootCmd.SetArgs(nil)
		productsFind = ""
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No products indexed.")
}

func TestProductsCmd_JSONOutput(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"products", "--json"})
	defer func() {
		rootCmd.SetArgs(nil)
		productsJSON = false
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "\"id\"")
	assert.Contains(t, buf.String(), "\"embeddings_count\"")
}

func TestProductsDeleteCmd_Deletes(t *testing.T) {
	assistant, _, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"products", "delete", "dehnguard"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Equal(t, []string{"dehnguard"}, assistant.deleted)
	assert.Contains(t, buf.String(), "Deleted dehnguard")
}

func TestProductsDeleteCmd_UnknownProductFails(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"products", "delete", "missing"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	assert.Error(t, err)
}
