package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// CosineMetric names the similarity metric the flat index reports. Scores
// are comparable across calls only under one fixed metric.
const CosineMetric = "cosine"

// Hit is one nearest-neighbor result: a catalog id with its distance from
// the query vector (lower is closer).
type Hit struct {
	ID       int
	Distance float64
}

// EmbeddingSource supplies the stored vectors the index searches over.
// *Store satisfies it.
type EmbeddingSource interface {
	AllEmbeddings(ctx context.Context) ([]EmbeddingRow, error)
}

// FlatIndex is a brute-force nearest-neighbor index over the catalog's
// precomputed embeddings. It loads vectors lazily and caches them; Refresh
// drops the cache after new embeddings are written.
type FlatIndex struct {
	store EmbeddingSource

	mu     sync.RWMutex
	rows   []EmbeddingRow
	loaded bool
}

// NewFlatIndex creates a flat index over the store's embeddings.
func NewFlatIndex(store EmbeddingSource) *FlatIndex {
	return &FlatIndex{store: store}
}

// Search returns up to k catalog ids ordered by ascending cosine distance
// from the query vector.
func (f *FlatIndex) Search(ctx context.Context, query []float64, k int) ([]Hit, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}

	rows, err := f.embeddings(ctx)
	if err != nil {
		return nil, err
	}

	queryNorm := floats.Norm(query, 2)
	if queryNorm == 0 {
		return nil, fmt.Errorf("zero query vector")
	}

	hits := make([]Hit, 0, len(rows))
	for _, row := range rows {
		if len(row.Vector) != len(query) {
			continue
		}
		norm := floats.Norm(row.Vector, 2)
		if norm == 0 {
			continue
		}
		similarity := floats.Dot(query, row.Vector) / (queryNorm * norm)
		hits = append(hits, Hit{ID: row.ID, Distance: 1 - similarity})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Refresh invalidates the cached vectors so the next Search reloads them.
func (f *FlatIndex) Refresh() {
	f.mu.Lock()
	f.rows = nil
	f.loaded = false
	f.mu.Unlock()
}

func (f *FlatIndex) embeddings(ctx context.Context) ([]EmbeddingRow, error) {
	f.mu.RLock()
	if f.loaded {
		rows := f.rows
		f.mu.RUnlock()
		return rows, nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loaded {
		return f.rows, nil
	}
	rows, err := f.store.AllEmbeddings(ctx)
	if err != nil {
		return nil, err
	}
	f.rows = rows
	f.loaded = true
	return rows, nil
}
