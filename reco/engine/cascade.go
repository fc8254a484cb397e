package engine

import (
	"context"
	"strings"

	"github.com/cinefind/cinefind/reco/catalog"
	"github.com/cinefind/cinefind/reco/config"
	"github.com/cinefind/cinefind/reco/lexicon"
)

// Cascade tops up a result set that came back short. It widens the query
// tier by tier, from preference-derived rewrites down to generic crowd
// pleasers, and stops as soon as the target count is reached.
type Cascade struct {
	retriever *Retriever
	ranker    *Ranker
	cfg       *config.EngineConfig
	tracer    Tracer
}

// fallbackQueries are the terminal tiers, tried in order once every
// preference-derived rewrite is exhausted.
var fallbackQueries = []string{"popular", "highly rated", "classic", "popular blockbuster"}

func NewCascade(retriever *Retriever, ranker *Ranker, cfg *config.EngineConfig, tracer Tracer) *Cascade {
	if cfg == nil {
		cfg = config.Default()
	}
	if tracer == nil {
		tracer = NoopTracer{}
	}
	return &Cascade{retriever: retriever, ranker: ranker, cfg: cfg, tracer: tracer}
}

// EnsureCount grows initial to k movies, preserving the order and
// precedence of what is already there. The degraded flag reports that even
// the last tier could not fill the set.
func (c *Cascade) EnsureCount(ctx context.Context, initial []catalog.Movie, query string, prefs *UserPreferences, k int) ([]catalog.Movie, bool) {
	accepted := make([]catalog.Movie, 0, k)
	seen := make(map[int]struct{}, k)
	for _, m := range initial {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		accepted = append(accepted, m)
		if len(accepted) == k {
			return accepted, false
		}
	}

	for _, tier := range c.tiers(query, prefs) {
		c.tracer.Event(ctx, "cascade.tier", map[string]any{"query": tier, "have": len(accepted)})
		candidates := c.retriever.Retrieve(ctx, tier, c.cfg.RetrievalK)
		for _, m := range c.ranker.Rank(candidates, prefs, tier) {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			accepted = append(accepted, m)
			if len(accepted) == k {
				return accepted, false
			}
		}
	}
	return accepted, len(accepted) < k
}

// tiers builds the ordered fallback query list. Preference-derived tiers
// are skipped when no genres have accumulated yet.
func (c *Cascade) tiers(query string, prefs *UserPreferences) []string {
	var tiers []string
	if query != "" {
		tiers = append(tiers, query)
	}
	if prefs != nil && prefs.Genres.Len() > 0 {
		phrases := make([]string, 0, prefs.Genres.Len())
		for _, g := range prefs.Genres.Values() {
			phrases = append(phrases, lexicon.GenrePhrase(g))
		}
		genreQuery := strings.Join(phrases, " ")
		tiers = append(tiers, genreQuery)
		if query != "" {
			tiers = append(tiers, query+" "+strings.Join(prefs.Genres.Values(), " "))
		}
	}
	return append(tiers, fallbackQueries...)
}
