package lexicon

import "unicode"

// LanguageAllowList is the fixed set of language codes the detector may
// return. Codes outside this list collapse to DefaultLanguage.
var LanguageAllowList = []string{"en", "ru", "es", "fr", "de", "it", "pt", "zh", "ja", "ko", "ar"}

// DefaultLanguage is used when detection fails or yields an unknown code.
const DefaultLanguage = "en"

// ScriptRange binds a unicode script to the language code it implies. The
// detector short-circuits on the first script with a match, so order the
// entries from most to least distinctive.
type ScriptRange struct {
	Lang  string
	Table *unicode.RangeTable
}

// ScriptRanges drives the fast script-heuristic tier of language detection.
var ScriptRanges = []ScriptRange{
	{Lang: "ru", Table: unicode.Cyrillic},
	{Lang: "zh", Table: unicode.Han},
	{Lang: "ja", Table: unicode.Hiragana},
	{Lang: "ja", Table: unicode.Katakana},
	{Lang: "ko", Table: unicode.Hangul},
	{Lang: "ar", Table: unicode.Arabic},
}

// AllowedLanguage reports whether code is in the allow-list.
func AllowedLanguage(code string) bool {
	for _, c := range LanguageAllowList {
		if c == code {
			return true
		}
	}
	return false
}

// LanguageHints maps phrases that express an original-language preference
// to the language code they name. Matched by case-insensitive containment.
var LanguageHints = map[string]string{
	"in english":     "en",
	"english movies": "en",
	"in russian":     "ru",
	"на английском":  "en",
	"на русском":     "ru",
	"русские фильмы": "ru",
	"in spanish":     "es",
	"in french":      "fr",
	"in german":      "de",
	"in italian":     "it",
	"in japanese":    "ja",
	"in korean":      "ko",
}

// TimeBucket is an inclusive release-year range implied by a time-period
// token. Zero Min or Max means unbounded on that side.
type TimeBucket struct {
	Min int
	Max int
}

// TimeBuckets maps time-period tokens to year ranges. Matching is by
// case-insensitive containment, so "старые фильмы" hits "старые". Tokens
// not listed here impose no release-year filter.
var TimeBuckets = map[string]TimeBucket{
	"old":    {Max: 2000},
	"new":    {Min: 2010},
	"90s":    {Min: 1990, Max: 1999},
	"2000s":  {Min: 2000, Max: 2009},
	"старые": {Max: 2000},
	"новые":  {Min: 2010},
	"90-е":   {Min: 1990, Max: 1999},
	"2000-е": {Min: 2000, Max: 2009},
}

// Contains reports whether year falls inside the bucket.
func (b TimeBucket) Contains(year int) bool {
	if b.Min != 0 && year < b.Min {
		return false
	}
	if b.Max != 0 && year > b.Max {
		return false
	}
	return true
}
