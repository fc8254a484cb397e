// Package catalog owns the movie catalog: the entity type, the libsql-backed
// store, JSON seeding, precomputed embeddings and their on-disk cache, and a
// brute-force nearest-neighbor index over those embeddings.
package catalog

import "fmt"

// Movie is a catalog entity. The engine only reads it.
type Movie struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title,omitempty"`
	Overview         string  `json:"overview,omitempty"`
	Genres           string  `json:"genres,omitempty"` // serialized tag list, e.g. "Comedy, Romance"
	OriginalLanguage string  `json:"original_language,omitempty"`
	ReleaseYear      int     `json:"release_year,omitempty"`
	RuntimeMinutes   int     `json:"runtime_minutes,omitempty"`
	Popularity       float64 `json:"popularity"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
}

// EmbeddingText synthesizes the text a movie is embedded under. Kept stable:
// changing it invalidates every precomputed embedding.
func (m *Movie) EmbeddingText() string {
	text := fmt.Sprintf("Title: %s\nOverview: %s\n", m.Title, m.Overview)
	if m.Genres != "" {
		text += fmt.Sprintf("Genres: %s\n", m.Genres)
	}
	if m.OriginalLanguage != "" {
		text += fmt.Sprintf("Language: %s\n", m.OriginalLanguage)
	}
	if m.ReleaseYear != 0 {
		text += fmt.Sprintf("Release Year: %d\n", m.ReleaseYear)
	}
	return text
}

// Recommendation pairs a movie with the similarity score that retrieved it.
type Recommendation struct {
	Movie      Movie   `json:"movie"`
	Similarity float64 `json:"similarity"`
	Metric     string  `json:"metric"` // similarity metric used, e.g. "cosine"
}
