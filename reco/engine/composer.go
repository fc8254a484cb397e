package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/cinefind/cinefind/reco/config"
	"github.com/cinefind/cinefind/reco/lexicon"
)

// QueryComposer turns the raw utterance plus conversation carryover into the
// text that gets embedded for retrieval.
type QueryComposer struct {
	completer Completer
	model     string
	cfg       *config.EngineConfig
	tracer    Tracer
}

func NewQueryComposer(completer Completer, model string, cfg *config.EngineConfig, tracer Tracer) *QueryComposer {
	if cfg == nil {
		cfg = config.Default()
	}
	if tracer == nil {
		tracer = NoopTracer{}
	}
	return &QueryComposer{completer: completer, model: model, cfg: cfg, tracer: tracer}
}

// Compose shortens long utterances into search phrases and blends in prior
// genre context. priorGenres is the most-recent-first genre history from
// turns before this one; the caller snapshots it before folding in the
// current turn's extraction.
//
// A topic pivot (no overlap between the utterance's genres and recent prior
// genres) keeps a light echo of up to two prior genres so retrieval does not
// forget the conversation outright. A continuation reinforces the single top
// prior genre instead.
func (c *QueryComposer) Compose(ctx context.Context, utterance string, priorGenres []string) string {
	short := c.shorten(ctx, utterance)

	if len(priorGenres) > c.cfg.PriorGenreWindow {
		priorGenres = priorGenres[:c.cfg.PriorGenreWindow]
	}
	if len(priorGenres) == 0 {
		return short
	}

	currentGenres := lexicon.MatchGenres(utterance)
	if !genresOverlap(currentGenres, priorGenres) {
		echo := priorGenres
		if len(echo) > 2 {
			echo = echo[:2]
		}
		return short + " " + strings.Join(echo, " ")
	}

	top := priorGenres[0]
	if !strings.Contains(strings.ToLower(short), top) {
		return short + " " + top
	}
	return short
}

func genresOverlap(current, prior []string) bool {
	for _, cur := range current {
		for _, pri := range prior {
			if strings.Contains(cur, pri) || strings.Contains(pri, cur) {
				return true
			}
		}
	}
	return false
}

const shortenPrompt = `Rewrite the user request as a short movie search phrase of at most 8 words. Keep genres, moods, time periods and named movies. Reply with the phrase only.

Request: I had a really long day at work and I just want something funny and light to watch tonight, nothing too serious
Phrase: funny light comedy movie

Request: can you find me something like Blade Runner but newer, with that same dark futuristic city feeling?
Phrase: dark futuristic sci-fi like Blade Runner

Request: %s
Phrase:`

// shorten keeps cheap utterances as-is and distills long or interrogative
// ones through the model. Any model failure degrades to the raw utterance.
func (c *QueryComposer) shorten(ctx context.Context, utterance string) string {
	trimmed := strings.TrimSpace(utterance)
	if len(trimmed) < c.cfg.ShortenThreshold && !strings.Contains(trimmed, "?") {
		return trimmed
	}
	if c.completer == nil {
		return trimmed
	}
	reply, err := c.completer.Complete(ctx, fmt.Sprintf(shortenPrompt, trimmed), c.model, 0.2)
	if err != nil {
		c.tracer.Event(ctx, "compose.shorten.fallback", map[string]any{"error": err.Error()})
		return trimmed
	}
	short := strings.TrimSpace(strings.Trim(strings.TrimSpace(reply), `"`))
	if short == "" {
		return trimmed
	}
	return short
}
