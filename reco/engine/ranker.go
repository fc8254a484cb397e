package engine

import (
	"sort"
	"strings"

	"github.com/cinefind/cinefind/reco/catalog"
	"github.com/cinefind/cinefind/reco/config"
	"github.com/cinefind/cinefind/reco/lexicon"
)

// Ranker deduplicates, hard-filters and scores candidates. Sorting is stable
// so equal scores keep their retrieval (similarity) order.
type Ranker struct {
	cfg *config.EngineConfig
}

func NewRanker(cfg *config.EngineConfig) *Ranker {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Ranker{cfg: cfg}
}

// Rank filters candidates against accumulated preferences and orders the
// survivors by composite relevance. Duplicates resolve first-wins, so the
// best-similarity copy survives.
func (r *Ranker) Rank(candidates []catalog.Recommendation, prefs *UserPreferences, query string) []catalog.Movie {
	terms := queryTerms(query)

	seen := make(map[int]struct{}, len(candidates))
	type scored struct {
		movie catalog.Movie
		score float64
	}
	kept := make([]scored, 0, len(candidates))

	for _, rec := range candidates {
		if _, dup := seen[rec.Movie.ID]; dup {
			continue
		}
		seen[rec.Movie.ID] = struct{}{}
		if !r.passes(rec.Movie, prefs) {
			continue
		}
		kept = append(kept, scored{movie: rec.Movie, score: r.score(rec.Movie, prefs, terms)})
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].score > kept[j].score })

	out := make([]catalog.Movie, len(kept))
	for i, s := range kept {
		out[i] = s.movie
	}
	return out
}

// passes applies the hard filters: original language, release-year bucket,
// runtime tolerance, and the avoid list. Items with an unknown language or
// runtime pass those filters; an unknown year under a year bucket drops.
func (r *Ranker) passes(m catalog.Movie, prefs *UserPreferences) bool {
	if prefs == nil {
		return true
	}
	if prefs.LanguagePreference != "" && m.OriginalLanguage != "" &&
		!strings.EqualFold(m.OriginalLanguage, prefs.LanguagePreference) {
		return false
	}
	if prefs.TimePeriod != "" {
		if bucket, ok := lexicon.TimeBuckets[prefs.TimePeriod]; ok {
			if m.ReleaseYear == 0 || !bucket.Contains(m.ReleaseYear) {
				return false
			}
		}
	}
	if prefs.DesiredRuntime > 0 && m.RuntimeMinutes > 0 {
		diff := m.RuntimeMinutes - prefs.DesiredRuntime
		if diff < 0 {
			diff = -diff
		}
		if diff > r.cfg.RuntimeTolerance {
			return false
		}
	}
	for _, avoided := range prefs.AvoidedMovies {
		if strings.EqualFold(strings.TrimSpace(avoided), strings.TrimSpace(m.Title)) {
			return false
		}
	}
	return true
}

func (r *Ranker) score(m catalog.Movie, prefs *UserPreferences, terms []string) float64 {
	title := strings.ToLower(m.Title)
	overview := strings.ToLower(m.Overview)
	genres := strings.ToLower(m.Genres)

	var score float64
	for _, term := range terms {
		if strings.Contains(title, term) {
			score += 3
		}
		if strings.Contains(overview, term) {
			score += 1
		}
	}
	if prefs != nil {
		// Binary overlap: one bonus whether one or several genres match.
		for _, g := range prefs.Genres.Values() {
			if strings.Contains(genres, g) {
				score += 2
				break
			}
		}
	}
	score += m.Popularity / 2
	if m.ReleaseYear > 2000 {
		score += 1
	}
	return score
}

// queryTerms splits a query into lowercase terms, skipping noise words too
// short to mean anything.
func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > 2 {
			terms = append(terms, f)
		}
	}
	return terms
}

// PopularityFloor is the lenient selection used when no explicit query terms
// are available: sweep the popularity threshold downward until enough
// sufficiently-similar items qualify, then drop the similarity requirement
// as a last resort.
func PopularityFloor(recs []catalog.Recommendation, limit int) []catalog.Movie {
	for floor := 20.0; floor >= 10; floor -= 5 {
		if out := sweep(recs, limit, floor, 0.4); len(out) == limit {
			return out
		}
	}
	for floor := 10.0; floor >= 0; floor -= 5 {
		if out := sweep(recs, limit, floor, 0); len(out) == limit {
			return out
		}
	}
	return sweep(recs, limit, 0, 0)
}

func sweep(recs []catalog.Recommendation, limit int, popFloor, simFloor float64) []catalog.Movie {
	out := make([]catalog.Movie, 0, limit)
	for _, rec := range recs {
		if rec.Movie.Popularity >= popFloor && rec.Similarity >= simFloor {
			out = append(out, rec.Movie)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}
