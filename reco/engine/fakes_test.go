package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/cinefind/cinefind/reco/catalog"
)

var errFakeNotFound = errors.New("title not found")

type fakeEmbedder struct {
	model string
	fn    func(text string) ([]float64, error)
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	f.calls++
	if f.fn != nil {
		return f.fn(text)
	}
	return []float64{1, 0}, nil
}

func (f *fakeEmbedder) Model() string {
	if f.model == "" {
		return "fake-embed"
	}
	return f.model
}

type fakeSearcher struct {
	fn    func(vector []float64, k int) ([]catalog.Hit, error)
	calls int
}

func (f *fakeSearcher) Search(ctx context.Context, vector []float64, k int) ([]catalog.Hit, error) {
	f.calls++
	if f.fn != nil {
		return f.fn(vector, k)
	}
	return nil, nil
}

type fakeCatalog struct {
	movies     map[int]catalog.Movie
	embeddings map[int][]float64
}

func (f *fakeCatalog) ItemsByIDs(ctx context.Context, ids []int) ([]catalog.Movie, error) {
	out := make([]catalog.Movie, 0, len(ids))
	for _, id := range ids {
		if m, ok := f.movies[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeCatalog) ItemByTitle(ctx context.Context, title string) (*catalog.Movie, error) {
	var best *catalog.Movie
	for id := range f.movies {
		m := f.movies[id]
		if strings.Contains(strings.ToLower(m.Title), strings.ToLower(title)) {
			if best == nil || m.Popularity > best.Popularity {
				best = &m
			}
		}
	}
	if best == nil {
		return nil, errFakeNotFound
	}
	return best, nil
}

func (f *fakeCatalog) Embedding(ctx context.Context, id int) ([]float64, error) {
	if v, ok := f.embeddings[id]; ok {
		return v, nil
	}
	return nil, errFakeNotFound
}

type fakeCompleter struct {
	fn    func(prompt, model string) (string, error)
	calls int
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt, model string, temperature float64) (string, error) {
	f.calls++
	if f.fn != nil {
		return f.fn(prompt, model)
	}
	return "", errors.New("no completion configured")
}

type fakePlanner struct {
	plan *SearchPlan
}

func (f *fakePlanner) Plan(ctx context.Context, utterance string, state *ConversationState) *SearchPlan {
	return f.plan
}

func mkMovie(id int, title, genres, lang string, year, runtime int, popularity float64) catalog.Movie {
	return catalog.Movie{
		ID:               id,
		Title:            title,
		Overview:         "about " + strings.ToLower(title),
		Genres:           genres,
		OriginalLanguage: lang,
		ReleaseYear:      year,
		RuntimeMinutes:   runtime,
		Popularity:       popularity,
		VoteAverage:      7.0,
	}
}

func hitsFor(ids ...int) []catalog.Hit {
	hits := make([]catalog.Hit, len(ids))
	for i, id := range ids {
		hits[i] = catalog.Hit{ID: id, Distance: 0.1 + float64(i)*0.05}
	}
	return hits
}
