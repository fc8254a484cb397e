package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinefind/cinefind/reco/db"
)

type countingEmbedder struct {
	calls int
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	e.calls++
	return []float64{float64(len(text)), 1}, nil
}

func (e *countingEmbedder) Model() string { return "test-model" }

func indexerFixture(t *testing.T) *Store {
	t.Helper()
	conn, err := db.Connect(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	store := NewStore(conn)
	ctx := context.Background()
	require.NoError(t, store.Insert(ctx, &Movie{Title: "Alien", Genres: "horror", ReleaseYear: 1979}))
	require.NoError(t, store.Insert(ctx, &Movie{Title: "Heat", Genres: "crime", ReleaseYear: 1995}))
	return store
}

func TestIndexerBackfillsAndIsIdempotent(t *testing.T) {
	cacheDir := t.TempDir()
	cache, err := NewEmbeddingCacheDir(cacheDir)
	require.NoError(t, err)

	store := indexerFixture(t)
	embedder := &countingEmbedder{}
	ix := NewIndexer(store, cache, embedder)
	ctx := context.Background()

	written, err := ix.EnsureEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, written)
	assert.Equal(t, 2, embedder.calls)

	vec, err := store.Embedding(ctx, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, vec)

	// Second run finds everything stored already.
	written, err = ix.EnsureEmbeddings(ctx)
	require.NoError(t, err)
	assert.Zero(t, written)
	assert.Equal(t, 2, embedder.calls)
}

func TestIndexerReusesFileCacheAcrossDatabases(t *testing.T) {
	cacheDir := t.TempDir()
	cache, err := NewEmbeddingCacheDir(cacheDir)
	require.NoError(t, err)
	ctx := context.Background()

	store1 := indexerFixture(t)
	embedder := &countingEmbedder{}
	_, err = NewIndexer(store1, cache, embedder).EnsureEmbeddings(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, embedder.calls)

	// A rebuilt database with the same rows restores vectors from the file
	// cache without touching the provider.
	store2 := indexerFixture(t)
	written, err := NewIndexer(store2, cache, embedder).EnsureEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, written)
	assert.Equal(t, 2, embedder.calls)
}

func TestIndexerWithoutCacheDir(t *testing.T) {
	store := indexerFixture(t)
	embedder := &countingEmbedder{}
	written, err := NewIndexer(store, nil, embedder).EnsureEmbeddings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, written)
}
