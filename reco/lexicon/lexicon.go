// Package lexicon holds the static keyword and synonym tables the
// recommendation engine matches against user utterances. The tables live
// here, outside the engine, so they are independently testable and can be
// localized without touching decision logic.
package lexicon

import (
	"sort"
	"strings"
)

// GenreKeywords maps a canonical genre tag to the utterance keywords that
// imply it. Keywords are matched case-insensitively by containment against
// the lower-cased utterance. English and Russian variants are carried
// side by side.
var GenreKeywords = map[string][]string{
	"comedy":    {"comedy", "comedies", "funny", "hilarious", "laugh", "humor", "комеди", "смешн", "весел"},
	"drama":     {"drama", "dramatic", "serious", "драм", "серьезн"},
	"action":    {"action", "fight", "explosion", "боевик", "экшн", "экшен"},
	"romance":   {"romance", "romantic", "love story", "романти", "мелодрам", "любов"},
	"horror":    {"horror", "scary", "frightening", "ужас", "хоррор", "страшн"},
	"sci-fi":    {"sci-fi", "science fiction", "space", "futuristic", "фантасти", "космос"},
	"fantasy":   {"fantasy", "magical", "wizard", "фэнтези", "магия", "волшебн"},
	"thriller":  {"thriller", "suspense", "триллер", "напряжен"},
	"animation": {"animation", "animated", "cartoon", "anime", "мультфильм", "мультик", "аниме"},
	"adventure": {"adventure", "journey", "quest", "приключени"},
	"mystery":   {"mystery", "detective", "whodunit", "детектив", "загадк"},
	"western":   {"western", "cowboy", "вестерн", "ковбо"},
	"war":       {"war movie", "war film", "military", "военн"},
	"crime":     {"crime", "gangster", "heist", "криминал", "гангстер"},
	"family":    {"family movie", "for kids", "children", "семейн", "детск"},
}

// MoodKeywords maps a canonical mood tag to its utterance keywords,
// structured like GenreKeywords.
var MoodKeywords = map[string][]string{
	"funny":       {"funny", "lighthearted", "cheer me up", "смешн", "весел", "поднять настроение"},
	"exciting":    {"exciting", "thrilling", "intense", "adrenaline", "захватыва", "напряжен"},
	"emotional":   {"emotional", "touching", "tearjerker", "cry", "трогательн", "эмоциональн", "слез"},
	"relaxing":    {"relaxing", "calm", "cozy", "easy watching", "расслаб", "спокойн", "уютн"},
	"inspiring":   {"inspiring", "uplifting", "motivational", "вдохновля", "мотивиру"},
	"mysterious":  {"mysterious", "enigmatic", "таинствен", "загадочн"},
	"romantic":    {"romantic", "date night", "романтич", "свидани"},
	"adventurous": {"adventurous", "epic journey", "приключенческ"},
	"scary":       {"scary", "creepy", "terrifying", "страшн", "жутк"},
	"thoughtful":  {"thoughtful", "philosophical", "deep", "thought-provoking", "философск", "глубок"},
}

// GenrePhrases expands a genre tag into the keyword phrase used for
// embedding search. Unknown genres fall back to the genre plus a generic
// qualifier (see Phrase).
var GenrePhrases = map[string]string{
	"comedy":    "funny hilarious comedy laugh humor popular",
	"drama":     "drama emotional serious story award winning",
	"action":    "action adventure exciting thriller blockbuster",
	"romance":   "romance love relationship romantic heartfelt",
	"horror":    "horror scary suspense thriller",
	"sci-fi":    "sci-fi science fiction futuristic space",
	"fantasy":   "fantasy magical adventure epic",
	"thriller":  "thriller suspense mystery intense",
	"animation": "animation animated family cartoon",
	"adventure": "adventure journey exploration epic",
}

// MoodPhrases expands a mood tag into its embedding search phrase.
var MoodPhrases = map[string]string{
	"relaxing":    "calm peaceful drama relaxing easy watching",
	"exciting":    "action adventure thrilling exciting intense",
	"funny":       "comedy humorous lighthearted funny laugh",
	"emotional":   "drama romantic heartfelt emotional touching",
	"inspiring":   "motivational uplifting inspiring drama",
	"mysterious":  "mystery thriller suspense mysterious",
	"romantic":    "romance love relationship romantic date",
	"adventurous": "adventure action journey exploration",
	"scary":       "horror scary suspense thriller",
	"thoughtful":  "drama thoughtful philosophical deep",
}

// GenrePhrase returns the search phrase for a genre, falling back to the
// genre itself with a generic qualifier.
func GenrePhrase(genre string) string {
	if p, ok := GenrePhrases[strings.ToLower(genre)]; ok {
		return p
	}
	return genre + " movie"
}

// MoodPhrase returns the search phrase for a mood, falling back to the
// mood itself plus "mood".
func MoodPhrase(mood string) string {
	if p, ok := MoodPhrases[strings.ToLower(mood)]; ok {
		return p
	}
	return mood + " mood"
}

// MatchGenres scans an utterance and returns the canonical genre tags whose
// keywords appear in it. Each tag is reported at most once, in a stable
// order (sorted by tag).
func MatchGenres(utterance string) []string {
	return matchTags(utterance, GenreKeywords)
}

// MatchMoods scans an utterance for mood keywords.
func MatchMoods(utterance string) []string {
	return matchTags(utterance, MoodKeywords)
}

func matchTags(utterance string, table map[string][]string) []string {
	lowered := strings.ToLower(utterance)
	var tags []string
	for _, tag := range orderedKeys(table) {
		for _, kw := range table[tag] {
			if strings.Contains(lowered, kw) {
				tags = append(tags, tag)
				break
			}
		}
	}
	return tags
}

func orderedKeys(table map[string][]string) []string {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
