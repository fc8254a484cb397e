package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingCacheDir_RoundTrip(t *testing.T) {
	cache, err := NewEmbeddingCacheDir(t.TempDir())
	require.NoError(t, err)

	embeddings := map[int][]float64{
		1: {0.1, 0.2},
		2: {0.3, 0.4},
	}
	require.NoError(t, cache.Save("nomic-embed-text", embeddings))

	loaded, err := cache.Load("nomic-embed-text")
	require.NoError(t, err)
	assert.Equal(t, embeddings, loaded)

	models, err := cache.Models()
	require.NoError(t, err)
	assert.Equal(t, []string{"nomic-embed-text"}, models)
}

func TestEmbeddingCacheDir_LoadMissing(t *testing.T) {
	cache, err := NewEmbeddingCacheDir(t.TempDir())
	require.NoError(t, err)

	loaded, err := cache.Load("absent-model")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestEmbeddingCacheDir_Delete(t *testing.T) {
	cache, err := NewEmbeddingCacheDir(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, cache.Save("bge-m3", map[int][]float64{1: {1}}))
	require.NoError(t, cache.Save("all-minilm", map[int][]float64{1: {1}}))

	removed, err := cache.Delete("bge-m3")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = cache.Delete("bge-m3")
	require.NoError(t, err)
	assert.False(t, removed)

	// Empty model deletes everything remaining.
	removed, err = cache.Delete("")
	require.NoError(t, err)
	assert.True(t, removed)

	models, err := cache.Models()
	require.NoError(t, err)
	assert.Empty(t, models)
}
