package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/cinefind/cinefind/reco/catalog"
	"github.com/cinefind/cinefind/reco/config"
	"github.com/cinefind/cinefind/reco/lexicon"
)

// Dispatcher executes a plan's tool calls. Calls fan out concurrently with a
// bounded pool; results merge back in plan order so the planner's priority
// survives the concurrency.
type Dispatcher struct {
	retriever *Retriever
	ranker    *Ranker
	cascade   *Cascade
	cfg       *config.EngineConfig
	tracer    Tracer
}

func NewDispatcher(retriever *Retriever, ranker *Ranker, cascade *Cascade, cfg *config.EngineConfig, tracer Tracer) *Dispatcher {
	if cfg == nil {
		cfg = config.Default()
	}
	if tracer == nil {
		tracer = NoopTracer{}
	}
	return &Dispatcher{retriever: retriever, ranker: ranker, cascade: cascade, cfg: cfg, tracer: tracer}
}

// Execute runs every tool call, merges their movies first-occurrence-wins in
// plan order, and completes the merged set through the cascade. One failing
// call degrades that call's result only.
func (d *Dispatcher) Execute(ctx context.Context, plan *SearchPlan, utterance string, prefs *UserPreferences) ([]catalog.Movie, []ToolResult, bool) {
	if plan == nil || len(plan.ToolCalls) == 0 {
		return nil, nil, false
	}

	results := make([]ToolResult, len(plan.ToolCalls))
	p := pool.New().WithMaxGoroutines(d.cfg.ToolConcurrency)
	for i, call := range plan.ToolCalls {
		p.Go(func() {
			callCtx, cancel := context.WithTimeout(ctx, d.cfg.ToolTimeout)
			defer cancel()
			results[i] = d.run(callCtx, call, utterance, prefs)
		})
	}
	p.Wait()

	merged := make([]catalog.Movie, 0, d.cfg.K)
	seen := make(map[int]struct{})
	for _, res := range results {
		for _, m := range res.Items {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			merged = append(merged, m)
		}
	}

	movies, degraded := d.cascade.EnsureCount(ctx, merged, utterance, prefs, d.cfg.K)
	return movies, results, degraded
}

// run translates one call into a retrieval and ranks its candidates. Unknown
// tools and missing required parameters fail the call without executing it.
func (d *Dispatcher) run(ctx context.Context, call ToolCall, utterance string, prefs *UserPreferences) ToolResult {
	res := ToolResult{Tool: call.Tool, Params: call.Parameters}

	query, err := d.translate(call, utterance)
	if err != nil {
		res.Error = err.Error()
		d.tracer.Event(ctx, "dispatch.invalid", map[string]any{"tool": string(call.Tool), "error": res.Error})
		return res
	}

	candidates := d.retriever.Retrieve(ctx, query, d.cfg.RetrievalK)
	if ctx.Err() != nil {
		res.Error = ctx.Err().Error()
		return res
	}
	res.Items = d.ranker.Rank(candidates, prefs, query)
	res.Success = true
	return res
}

func (d *Dispatcher) translate(call ToolCall, utterance string) (string, error) {
	param := func(key string) string {
		return strings.TrimSpace(call.Parameters[key])
	}
	switch call.Tool {
	case ToolSearchMovies:
		if q := param("query"); q != "" {
			return q, nil
		}
		return utterance, nil
	case ToolSearchByGenre:
		genre := param("genre")
		if genre == "" {
			return "", fmt.Errorf("search_by_genre: missing genre parameter")
		}
		return lexicon.GenrePhrase(genre), nil
	case ToolSearchByMood:
		mood := param("mood")
		if mood == "" {
			return "", fmt.Errorf("search_by_mood: missing mood parameter")
		}
		return lexicon.MoodPhrase(mood), nil
	case ToolFindSimilar:
		if desc := param("description"); desc != "" {
			return desc, nil
		}
		if title := param("title"); title != "" {
			return "movies similar to " + title, nil
		}
		return utterance, nil
	}
	return "", fmt.Errorf("unknown tool %q", call.Tool)
}
