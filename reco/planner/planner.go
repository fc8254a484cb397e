// Package planner turns an utterance plus conversation context into a
// structured search plan. The plan shape is enforced by a JSON schema;
// anything the model produces that fails validation collapses to the
// conservative default plan, never to an error.
package planner

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"

	"github.com/cinefind/cinefind/reco/engine"
)

//go:embed schema.json
var planSchema string

var compiledSchema = gojsonschema.NewStringLoader(planSchema)

// LLMPlanner asks a completion model to produce the plan JSON.
type LLMPlanner struct {
	completer engine.Completer
	model     string
	tracer    engine.Tracer
}

func New(completer engine.Completer, model string, tracer engine.Tracer) *LLMPlanner {
	if tracer == nil {
		tracer = engine.NoopTracer{}
	}
	return &LLMPlanner{completer: completer, model: model, tracer: tracer}
}

const planPrompt = `You plan movie searches for a recommendation assistant.

Available tools:
- search_movies(query): free-text semantic search
- search_by_genre(genre): search by a single genre tag
- search_by_mood(mood): search by a single mood tag
- find_similar_movies(description | title): similarity search

Known preferences: %s
Recent conversation:
%s

User message: %s

Reply with a single JSON object and nothing else:
{"needsClarification": bool, "clarificationQuestions": [up to 2 strings], "shouldSearch": bool, "searchStrategy": string, "toolCalls": [{"tool": string, "parameters": {string: string}}], "reasoning": string}

Set needsClarification only when the message is too vague to search at all.`

// Plan produces the turn's search plan. Every failure mode (transport,
// missing JSON, schema violation, unknown tool) substitutes the
// conservative default.
func (p *LLMPlanner) Plan(ctx context.Context, utterance string, state *engine.ConversationState) *engine.SearchPlan {
	prompt := fmt.Sprintf(planPrompt, summarizePreferences(state), summarizeHistory(state, 6), utterance)

	reply, err := p.completer.Complete(ctx, prompt, p.model, 0.1)
	if err != nil {
		p.tracer.Event(ctx, "plan.fallback", map[string]any{"reason": "completion", "error": err.Error()})
		return engine.ConservativePlan()
	}

	plan, err := parsePlan(reply)
	if err != nil {
		p.tracer.Event(ctx, "plan.fallback", map[string]any{"reason": "parse", "error": err.Error()})
		return engine.ConservativePlan()
	}
	return plan
}

func parsePlan(reply string) (*engine.SearchPlan, error) {
	raw := extractJSONObject(reply)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in reply")
	}

	result, err := gojsonschema.Validate(compiledSchema, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("validate plan: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("plan schema violation: %v", result.Errors())
	}

	var plan engine.SearchPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	for _, call := range plan.ToolCalls {
		if !engine.KnownTool(call.Tool) {
			return nil, fmt.Errorf("unknown tool %q", call.Tool)
		}
	}
	if len(plan.ClarificationQuestions) > 2 {
		plan.ClarificationQuestions = plan.ClarificationQuestions[:2]
	}
	return &plan, nil
}

// extractJSONObject pulls the first balanced top-level object out of a reply
// that may be wrapped in prose or code fences.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func summarizePreferences(state *engine.ConversationState) string {
	if state == nil || state.Preferences == nil {
		return "none"
	}
	p := state.Preferences
	parts := []string{}
	if p.Genres.Len() > 0 {
		parts = append(parts, "genres: "+strings.Join(p.Genres.Values(), ", "))
	}
	if p.Moods.Len() > 0 {
		parts = append(parts, "moods: "+strings.Join(p.Moods.Values(), ", "))
	}
	if p.TimePeriod != "" {
		parts = append(parts, "time period: "+p.TimePeriod)
	}
	if p.LanguagePreference != "" {
		parts = append(parts, "language: "+p.LanguagePreference)
	}
	if p.DesiredRuntime > 0 {
		parts = append(parts, fmt.Sprintf("runtime: ~%d min", p.DesiredRuntime))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "; ")
}

func summarizeHistory(state *engine.ConversationState, limit int) string {
	if state == nil || len(state.Messages) == 0 {
		return "(empty)"
	}
	msgs := state.Messages
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	var b strings.Builder
	for _, m := range msgs {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

var _ engine.Planner = (*LLMPlanner)(nil)
