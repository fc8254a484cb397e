package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cinefind/cinefind/reco/catalog"
)

// DeepThink is the slow path: instead of embedding the utterance, it asks a
// reasoning model to name concrete movies and then resolves those titles
// against the catalog. Titles the catalog does not carry become synthetic
// entries so the user still sees the model's suggestion.
type DeepThink struct {
	completer Completer
	catalog   CatalogReader
	model     string
	tracer    Tracer
}

func NewDeepThink(completer Completer, cat CatalogReader, model string, tracer Tracer) *DeepThink {
	if tracer == nil {
		tracer = NoopTracer{}
	}
	return &DeepThink{completer: completer, catalog: cat, model: model, tracer: tracer}
}

const deepThinkPrompt = `You are a film expert. Think about the request below and recommend up to %d specific movies.

End your answer with a block in exactly this format:
RECOMMENDED_MOVIES:
- Title (Year): one-line reason
- Title (Year): one-line reason

Request: %s`

// markerPattern tolerates bold or spaced variants of the marker the model
// sometimes produces.
var (
	markerPattern = regexp.MustCompile(`(?i)RECOMMENDED[_ ]MOVIES:?\**`)
	bulletPattern = regexp.MustCompile(`^[-*•]\s*(.+?)(?:\s*\((\d{4})\))?\s*(?::\s*(.*))?$`)
)

// Process asks the model, extracts the recommended block and resolves each
// title. The returned text is the model's full reply for display.
func (d *DeepThink) Process(ctx context.Context, utterance string, k int) (string, []catalog.Movie, error) {
	reply, err := d.completer.Complete(ctx, fmt.Sprintf(deepThinkPrompt, k, utterance), d.model, 0.3)
	if err != nil {
		return "", nil, fmt.Errorf("deep think completion: %w", err)
	}

	titles := parseRecommendedBlock(reply, k)
	movies := make([]catalog.Movie, 0, len(titles))
	for _, t := range titles {
		if m, err := d.catalog.ItemByTitle(ctx, t.title); err == nil {
			movies = append(movies, *m)
			continue
		}
		d.tracer.Event(ctx, "deepthink.synthetic", map[string]any{"title": t.title})
		movies = append(movies, catalog.Movie{
			Title:       t.title,
			ReleaseYear: t.year,
			Overview:    t.reason,
			VoteAverage: 8.0,
		})
	}
	return reply, movies, nil
}

type extractedTitle struct {
	title  string
	year   int
	reason string
}

func parseRecommendedBlock(reply string, limit int) []extractedTitle {
	loc := markerPattern.FindStringIndex(reply)
	if loc == nil {
		return nil
	}
	var out []extractedTitle
	for _, line := range strings.Split(reply[loc[1]:], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := bulletPattern.FindStringSubmatch(line)
		if m == nil {
			break
		}
		title := strings.Trim(strings.TrimSpace(m[1]), `"*`)
		if title == "" {
			continue
		}
		year := 0
		if m[2] != "" {
			year, _ = strconv.Atoi(m[2])
		}
		out = append(out, extractedTitle{title: title, year: year, reason: strings.TrimSpace(m[3])})
		if len(out) == limit {
			break
		}
	}
	return out
}
