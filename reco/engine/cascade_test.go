package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinefind/cinefind/reco/catalog"
	"github.com/cinefind/cinefind/reco/config"
)

func cascadeFixture(searcher *fakeSearcher) (*Cascade, *fakeCatalog) {
	cat := &fakeCatalog{movies: map[int]catalog.Movie{
		1: mkMovie(1, "One", "comedy", "en", 2015, 100, 10),
		2: mkMovie(2, "Two", "comedy", "en", 2016, 100, 10),
		3: mkMovie(3, "Three", "drama", "en", 2017, 100, 10),
		4: mkMovie(4, "Four", "drama", "en", 2018, 100, 10),
		5: mkMovie(5, "Five", "action", "en", 2019, 100, 10),
		6: mkMovie(6, "Six", "action", "en", 2020, 100, 10),
	}}
	retriever := NewRetriever(&fakeEmbedder{}, searcher, cat, nil, nil)
	cfg := config.Default()
	return NewCascade(retriever, NewRanker(cfg), cfg, nil), cat
}

func moviesByID(cat *fakeCatalog, ids ...int) []catalog.Movie {
	out := make([]catalog.Movie, len(ids))
	for i, id := range ids {
		out[i] = cat.movies[id]
	}
	return out
}

func TestCascadeFullSetUntouched(t *testing.T) {
	searcher := &fakeSearcher{}
	c, cat := cascadeFixture(searcher)

	initial := moviesByID(cat, 1, 2, 3, 4, 5)
	out, degraded := c.EnsureCount(context.Background(), initial, "comedy", NewUserPreferences(8), 5)
	require.Len(t, out, 5)
	assert.False(t, degraded)
	assert.Zero(t, searcher.calls, "no fallback tier should run when the set is full")
	assert.Equal(t, initial, out)
}

func TestCascadeTopsUpFromFallbacks(t *testing.T) {
	searcher := &fakeSearcher{fn: func(vector []float64, k int) ([]catalog.Hit, error) {
		return hitsFor(1, 2, 3, 4, 5, 6), nil
	}}
	c, cat := cascadeFixture(searcher)

	out, degraded := c.EnsureCount(context.Background(), moviesByID(cat, 1), "comedy", NewUserPreferences(8), 5)
	require.Len(t, out, 5)
	assert.False(t, degraded)
	// The seed result keeps its precedence.
	assert.Equal(t, 1, out[0].ID)
	assert.Equal(t, 1, searcher.calls, "one tier sufficed")
}

func TestCascadeDegradedWhenExhausted(t *testing.T) {
	searcher := &fakeSearcher{fn: func(vector []float64, k int) ([]catalog.Hit, error) {
		return hitsFor(1, 2), nil
	}}
	c, cat := cascadeFixture(searcher)

	prefs := NewUserPreferences(8)
	prefs.Genres.Add("comedy")
	out, degraded := c.EnsureCount(context.Background(), moviesByID(cat, 1), "comedy movies", prefs, 5)

	// Every tier returns the same two ids; the set cannot reach five.
	assert.Len(t, out, 2)
	assert.True(t, degraded)
	// query + genre tier + query-with-genres + four generic fallbacks
	assert.Equal(t, 7, searcher.calls)
}

func TestCascadeSkipsGenreTiersWithoutGenres(t *testing.T) {
	searcher := &fakeSearcher{fn: func(vector []float64, k int) ([]catalog.Hit, error) {
		return nil, nil
	}}
	c, _ := cascadeFixture(searcher)

	out, degraded := c.EnsureCount(context.Background(), nil, "anything good", NewUserPreferences(8), 5)
	assert.Empty(t, out)
	assert.True(t, degraded)
	// query tier + four generic fallbacks, no preference-derived tiers
	assert.Equal(t, 5, searcher.calls)
}
