package catalog

import (
	"context"
	"fmt"
)

// TextEmbedder is the slice of the embedding provider the indexer needs.
type TextEmbedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Model() string
}

// Indexer backfills catalog embeddings. Vectors are looked up in the
// per-model file cache before the provider is asked, so re-indexing after a
// wipe or on a new machine costs no provider calls for known movies.
type Indexer struct {
	store    *Store
	cache    *EmbeddingCacheDir
	embedder TextEmbedder
}

func NewIndexer(store *Store, cache *EmbeddingCacheDir, embedder TextEmbedder) *Indexer {
	return &Indexer{store: store, cache: cache, embedder: embedder}
}

// EnsureEmbeddings embeds every movie that has no stored vector yet and
// refreshes the file cache for the active model. It returns the number of
// vectors newly written to the database.
func (ix *Indexer) EnsureEmbeddings(ctx context.Context) (int, error) {
	model := ix.embedder.Model()

	cached := map[int][]float64{}
	if ix.cache != nil {
		loaded, err := ix.cache.Load(model)
		if err != nil {
			return 0, fmt.Errorf("load embedding cache for %s: %w", model, err)
		}
		cached = loaded
	}

	rows, err := ix.store.AllMovies(ctx)
	if err != nil {
		return 0, err
	}

	written := 0
	for i := range rows {
		m := &rows[i]
		if existing, err := ix.store.Embedding(ctx, m.ID); err == nil && len(existing) > 0 {
			cached[m.ID] = existing
			continue
		}

		vector, ok := cached[m.ID]
		if !ok {
			vector, err = ix.embedder.Embed(ctx, m.EmbeddingText())
			if err != nil {
				return written, fmt.Errorf("embed movie %d (%s): %w", m.ID, m.Title, err)
			}
			cached[m.ID] = vector
		}
		if err := ix.store.UpsertEmbedding(ctx, m.ID, vector); err != nil {
			return written, err
		}
		written++
	}

	if ix.cache != nil {
		if err := ix.cache.Save(model, cached); err != nil {
			return written, fmt.Errorf("save embedding cache for %s: %w", model, err)
		}
	}
	return written, nil
}
