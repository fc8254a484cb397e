package engine

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/cinefind/cinefind/reco/lexicon"
)

// PartialPreferences is what one utterance reveals. Zero-valued fields mean
// "nothing new", never "clear the old value".
type PartialPreferences struct {
	Genres             []string
	Moods              []string
	TimePeriod         string
	LanguagePreference string
	DesiredRuntime     int
	LikedMovies        []string
	AvoidedMovies      []string
}

var runtimePattern = regexp.MustCompile(`(\d{2,3})\s*(?:minutes|mins|min|минут|мин)\b`)

// ExtractPreferences scans an utterance against the keyword tables. It is
// deliberately rule-based: the planner may enrich the result, but a planner
// outage must never cost us the signals we can read directly.
func ExtractPreferences(utterance string) PartialPreferences {
	lower := strings.ToLower(utterance)

	out := PartialPreferences{
		Genres: lexicon.MatchGenres(utterance),
		Moods:  lexicon.MatchMoods(utterance),
	}

	tokens := make([]string, 0, len(lexicon.TimeBuckets))
	for token := range lexicon.TimeBuckets {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	for _, token := range tokens {
		if matchesTimeToken(lower, token) {
			out.TimePeriod = token
			break
		}
	}

	hints := make([]string, 0, len(lexicon.LanguageHints))
	for phrase := range lexicon.LanguageHints {
		hints = append(hints, phrase)
	}
	sort.Strings(hints)
	for _, phrase := range hints {
		if strings.Contains(lower, phrase) {
			out.LanguagePreference = lexicon.LanguageHints[phrase]
			break
		}
	}

	if m := runtimePattern.FindStringSubmatch(lower); m != nil {
		if minutes, err := strconv.Atoi(m[1]); err == nil {
			out.DesiredRuntime = minutes
		}
	}

	return out
}

// ApplyTo folds the partial extraction into accumulated preferences. Set
// fields accumulate, scalar fields overwrite when non-zero, list fields
// append with case-insensitive dedupe.
func (p PartialPreferences) ApplyTo(prefs *UserPreferences) {
	for _, g := range p.Genres {
		prefs.Genres.Add(g)
	}
	for _, m := range p.Moods {
		prefs.Moods.Add(m)
	}
	if p.TimePeriod != "" {
		prefs.TimePeriod = p.TimePeriod
	}
	if p.LanguagePreference != "" {
		prefs.LanguagePreference = p.LanguagePreference
	}
	if p.DesiredRuntime > 0 {
		prefs.DesiredRuntime = p.DesiredRuntime
	}
	prefs.LikedMovies = appendUnique(prefs.LikedMovies, p.LikedMovies)
	prefs.AvoidedMovies = appendUnique(prefs.AvoidedMovies, p.AvoidedMovies)
}

// matchesTimeToken matches English time tokens as whole words so "old" does
// not fire inside "told" or "new" inside "knew". Russian tokens are stems
// and keep containment matching so inflected forms still hit.
func matchesTimeToken(lower, token string) bool {
	ascii := true
	for _, r := range token {
		if r > unicode.MaxASCII {
			ascii = false
			break
		}
	}
	if !ascii {
		return strings.Contains(lower, token)
	}
	for _, field := range strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if field == token {
			return true
		}
	}
	return false
}

func appendUnique(dst, src []string) []string {
	for _, s := range src {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		dup := false
		for _, existing := range dst {
			if strings.EqualFold(existing, s) {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, s)
		}
	}
	return dst
}
