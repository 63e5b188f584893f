package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/manualkit/internal/core/domain"
	"github.com/custodia-labs/manualkit/internal/core/ports/driven"
)

func testIndex(t *testing.T, productID string) *domain.ProductIndex {
	t.Helper()
	c, err := domain.NewTextChunk(productID, 0, 0, "mount the device on the rail")
	require.NoError(t, err)
	idx, err := domain.NewProductIndex(productID, productID, 1, []domain.Chunk{c})
	require.NoError(t, err)
	return idx
}

func TestProductRegistry_GetReplace(t *testing.T) {
	r := NewProductRegistry()

	_, err := r.Get("dehnguard")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	first := testIndex(t, "dehnguard")
	r.Replace(first)

	got, err := r.Get("dehnguard")
	require.NoError(t, err)
	assert.Same(t, first, got)
	assert.True(t, r.Has("dehnguard"))
	assert.Equal(t, 1, r.Len())

	// Replacement swaps the snapshot pointer wholesale.
	second := testIndex(t, "dehnguard")
	r.Replace(second)

	got, err = r.Get("dehnguard")
	require.NoError(t, err)
	assert.Same(t, second, got)
	assert.Equal(t, 1, r.Len())
}

func TestProductRegistry_Delete(t *testing.T) {
	r := NewProductRegistry()
	r.Replace(testIndex(t, "dehnguard"))

	require.NoError(t, r.Delete("dehnguard"))
	assert.False(t, r.Has("dehnguard"))

	err := r.Delete("dehnguard")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestProductRegistry_All(t *testing.T) {
	r := NewProductRegistry()
	r.Replace(testIndex(t, "ventil"))
	r.Replace(testIndex(t, "blitzductor"))
	r.Replace(testIndex(t, "dehnguard"))

	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, "blitzductor", all[0].ProductID)
	assert.Equal(t, "dehnguard", all[1].ProductID)
	assert.Equal(t, "ventil", all[2].ProductID)
}

// stubLoadStore returns a canned product list for LoadAll tests.
type stubLoadStore struct {
	products []driven.StoredProduct
	loadErr  error
}

func (s *stubLoadStore) LoadAll(_ context.Context) ([]driven.StoredProduct, error) {
	return s.products, s.loadErr
}

func (s *stubLoadStore) Save(_ context.Context, _ driven.StoredProduct) error { return nil }

func (s *stubLoadStore) Delete(_ context.Context, _ string) error { return nil }

func (s *stubLoadStore) SaveFeedback(_ context.Context, _ domain.Feedback) error { return nil }

func (s *stubLoadStore) FeedbackStats(_ context.Context, _ string) (domain.FeedbackStats, error) {
	return domain.FeedbackStats{}, nil
}

func (s *stubLoadStore) Close() error { return nil }

func TestProductRegistry_LoadAll(t *testing.T) {
	t.Run("loads persisted products", func(t *testing.T) {
		good, err := domain.NewTextChunk("dehnguard", 0, 0, "some content")
		require.NoError(t, err)

		r := NewProductRegistry()
		err = r.LoadAll(context.Background(), &stubLoadStore{products: []driven.StoredProduct{
			{ProductID: "dehnguard", Name: "DEHNguard", TotalPages: 1, Chunks: []domain.Chunk{good}},
		}})
		require.NoError(t, err)
		assert.True(t, r.Has("dehnguard"))
	})

	t.Run("skips unbuildable products", func(t *testing.T) {
		a, err := domain.NewTextChunk("broken", 0, 0, "a")
		require.NoError(t, err)
		require.NoError(t, a.SetEmbedding([]float32{1, 0}))
		b, err := domain.NewTextChunk("broken", 0, 1, "b")
		require.NoError(t, err)
		require.NoError(t, b.SetEmbedding([]float32{1, 0, 0}))
		good, err := domain.NewTextChunk("dehnguard", 0, 0, "fine")
		require.NoError(t, err)

		r := NewProductRegistry()
		err = r.LoadAll(context.Background(), &stubLoadStore{products: []driven.StoredProduct{
			{ProductID: "broken", Name: "Broken", TotalPages: 1, Chunks: []domain.Chunk{a, b}},
			{ProductID: "dehnguard", Name: "DEHNguard", TotalPages: 1, Chunks: []domain.Chunk{good}},
		}})
		require.NoError(t, err)
		assert.False(t, r.Has("broken"))
		assert.True(t, r.Has("dehnguard"))
	})

	t.Run("store failure is fatal", func(t *testing.T) {
		r := NewProductRegistry()
		err := r.LoadAll(context.Background(), &stubLoadStore{loadErr: errors.New("disk gone")})
		assert.Error(t, err)
	})
}
