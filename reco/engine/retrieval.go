package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	json "github.com/goccy/go-json"

	"github.com/cinefind/cinefind/reco/catalog"
)

// Retriever runs embed-then-search against the catalog index. Retrieval is
// best-effort: any provider or index failure yields an empty candidate list,
// never an error, so the caller's cascade can try its next tier.
type Retriever struct {
	embedder Embedder
	searcher VectorSearcher
	catalog  CatalogReader
	cache    Cache
	tracer   Tracer
}

func NewRetriever(embedder Embedder, searcher VectorSearcher, cat CatalogReader, cache Cache, tracer Tracer) *Retriever {
	if tracer == nil {
		tracer = NoopTracer{}
	}
	return &Retriever{embedder: embedder, searcher: searcher, catalog: cat, cache: cache, tracer: tracer}
}

// Retrieve embeds query and returns up to k nearest catalog items with their
// similarity scores. Hit order (ascending distance) is preserved.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) []catalog.Recommendation {
	ctx, end := r.tracer.StartSpan(ctx, "retrieve", map[string]any{"query": query, "k": k})

	vector, err := r.embed(ctx, query)
	if err != nil {
		end(err)
		return nil
	}
	hits, err := r.searcher.Search(ctx, vector, k)
	if err != nil {
		end(err)
		return nil
	}
	recs, err := r.resolve(ctx, hits)
	end(err)
	return recs
}

// RetrieveSimilarToTitle finds neighbors of a stored movie. It searches with
// the movie's precomputed embedding when one exists and falls back to
// embedding its descriptive text, excluding the movie itself from results.
func (r *Retriever) RetrieveSimilarToTitle(ctx context.Context, title string, k int) (*catalog.Movie, []catalog.Recommendation, error) {
	anchor, err := r.catalog.ItemByTitle(ctx, title)
	if err != nil {
		return nil, nil, err
	}

	vector, err := r.catalog.Embedding(ctx, anchor.ID)
	if err != nil || len(vector) == 0 {
		vector, err = r.embed(ctx, anchor.EmbeddingText())
		if err != nil {
			return anchor, nil, err
		}
	}

	// Over-fetch by one so dropping the anchor still leaves k results.
	hits, err := r.searcher.Search(ctx, vector, k+1)
	if err != nil {
		return anchor, nil, err
	}
	filtered := hits[:0]
	for _, h := range hits {
		if h.ID != anchor.ID {
			filtered = append(filtered, h)
		}
	}
	if len(filtered) > k {
		filtered = filtered[:k]
	}
	recs, err := r.resolve(ctx, filtered)
	return anchor, recs, err
}

func (r *Retriever) resolve(ctx context.Context, hits []catalog.Hit) ([]catalog.Recommendation, error) {
	if len(hits) == 0 {
		return nil, nil
	}
	ids := make([]int, len(hits))
	distance := make(map[int]float64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
		distance[h.ID] = h.Distance
	}
	movies, err := r.catalog.ItemsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	recs := make([]catalog.Recommendation, 0, len(movies))
	for _, m := range movies {
		recs = append(recs, catalog.Recommendation{
			Movie:      m,
			Similarity: 1 - distance[m.ID],
			Metric:     catalog.CosineMetric,
		})
	}
	return recs, nil
}

// embed memoizes query vectors through the cache when one is configured.
func (r *Retriever) embed(ctx context.Context, text string) ([]float64, error) {
	if r.cache == nil {
		return r.embedder.Embed(ctx, text)
	}
	sum := sha256.Sum256([]byte(text))
	key := "embed:" + r.embedder.Model() + ":" + hex.EncodeToString(sum[:])

	if raw, ok := r.cache.Get(ctx, key); ok {
		var vector []float64
		if err := json.Unmarshal(raw, &vector); err == nil && len(vector) > 0 {
			return vector, nil
		}
	}
	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(vector); err == nil {
		_ = r.cache.Set(ctx, key, raw, 0)
	}
	return vector, nil
}
