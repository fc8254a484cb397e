package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinefind/cinefind/reco/catalog"
)

type mapCache struct {
	entries map[string][]byte
}

func (c *mapCache) Get(ctx context.Context, key string) ([]byte, bool) {
	v, ok := c.entries[key]
	return v, ok
}

func (c *mapCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	if c.entries == nil {
		c.entries = map[string][]byte{}
	}
	c.entries[key] = value
	return nil
}

func (c *mapCache) Delete(ctx context.Context, key string) error {
	delete(c.entries, key)
	return nil
}

func TestRetrieveOrderAndSimilarity(t *testing.T) {
	searcher := &fakeSearcher{fn: func(vector []float64, k int) ([]catalog.Hit, error) {
		return []catalog.Hit{{ID: 2, Distance: 0.1}, {ID: 1, Distance: 0.3}}, nil
	}}
	cat := &fakeCatalog{movies: map[int]catalog.Movie{
		1: mkMovie(1, "One", "drama", "en", 2001, 100, 10),
		2: mkMovie(2, "Two", "drama", "en", 2002, 100, 10),
	}}
	r := NewRetriever(&fakeEmbedder{}, searcher, cat, nil, nil)

	recs := r.Retrieve(context.Background(), "anything", 2)
	require.Len(t, recs, 2)
	assert.Equal(t, 2, recs[0].Movie.ID)
	assert.InDelta(t, 0.9, recs[0].Similarity, 1e-9)
	assert.Equal(t, catalog.CosineMetric, recs[0].Metric)
}

func TestRetrieveEmbeddingFailureYieldsEmpty(t *testing.T) {
	embedder := &fakeEmbedder{fn: func(text string) ([]float64, error) {
		return nil, errors.New("provider down")
	}}
	r := NewRetriever(embedder, &fakeSearcher{}, &fakeCatalog{}, nil, nil)
	assert.Empty(t, r.Retrieve(context.Background(), "anything", 5))
}

func TestRetrieveSearchFailureYieldsEmpty(t *testing.T) {
	searcher := &fakeSearcher{fn: func(vector []float64, k int) ([]catalog.Hit, error) {
		return nil, errors.New("index down")
	}}
	r := NewRetriever(&fakeEmbedder{}, searcher, &fakeCatalog{}, nil, nil)
	assert.Empty(t, r.Retrieve(context.Background(), "anything", 5))
}

func TestRetrieveMemoizesEmbeddings(t *testing.T) {
	embedder := &fakeEmbedder{}
	r := NewRetriever(embedder, &fakeSearcher{}, &fakeCatalog{}, &mapCache{}, nil)

	r.Retrieve(context.Background(), "same query", 5)
	r.Retrieve(context.Background(), "same query", 5)
	assert.Equal(t, 1, embedder.calls)

	r.Retrieve(context.Background(), "different query", 5)
	assert.Equal(t, 2, embedder.calls)
}

func TestRetrieveSimilarToTitleUsesStoredEmbedding(t *testing.T) {
	embedder := &fakeEmbedder{}
	searcher := &fakeSearcher{fn: func(vector []float64, k int) ([]catalog.Hit, error) {
		assert.Equal(t, []float64{0.5, 0.5}, vector)
		return hitsFor(1, 2, 3), nil
	}}
	cat := &fakeCatalog{
		movies: map[int]catalog.Movie{
			1: mkMovie(1, "Alien", "horror", "en", 1979, 117, 30),
			2: mkMovie(2, "The Thing", "horror", "en", 1982, 109, 20),
			3: mkMovie(3, "Predator", "action", "en", 1987, 107, 25),
		},
		embeddings: map[int][]float64{1: {0.5, 0.5}},
	}
	r := NewRetriever(embedder, searcher, cat, nil, nil)

	anchor, recs, err := r.RetrieveSimilarToTitle(context.Background(), "alien", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, anchor.ID)
	assert.Zero(t, embedder.calls, "stored embedding should be reused")
	// The anchor itself never appears in its own neighbors.
	require.Len(t, recs, 2)
	assert.Equal(t, 2, recs[0].Movie.ID)
	assert.Equal(t, 3, recs[1].Movie.ID)
}

func TestRetrieveSimilarToTitleUnknown(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{}, &fakeSearcher{}, &fakeCatalog{}, nil, nil)
	_, _, err := r.RetrieveSimilarToTitle(context.Background(), "nope", 3)
	assert.Error(t, err)
}
