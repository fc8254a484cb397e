package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinefind/cinefind/reco/engine"
)

type stubCompleter struct {
	reply string
	err   error
}

func (s *stubCompleter) Complete(ctx context.Context, prompt, model string, temperature float64) (string, error) {
	return s.reply, s.err
}

func TestParsePlanValid(t *testing.T) {
	plan, err := parsePlan(`Here is my plan:
{"needsClarification": false, "shouldSearch": true, "searchStrategy": "semantic",
 "toolCalls": [{"tool": "search_by_genre", "parameters": {"genre": "comedy"}}],
 "reasoning": "clear genre request"}`)
	require.NoError(t, err)
	assert.False(t, plan.NeedsClarification)
	assert.True(t, plan.ShouldSearch)
	require.Len(t, plan.ToolCalls, 1)
	assert.Equal(t, engine.ToolSearchByGenre, plan.ToolCalls[0].Tool)
	assert.Equal(t, "comedy", plan.ToolCalls[0].Parameters["genre"])
}

func TestParsePlanCodeFence(t *testing.T) {
	plan, err := parsePlan("```json\n{\"needsClarification\": true, \"shouldSearch\": false, \"clarificationQuestions\": [\"What genre?\"]}\n```")
	require.NoError(t, err)
	assert.True(t, plan.NeedsClarification)
	assert.Equal(t, []string{"What genre?"}, plan.ClarificationQuestions)
}

func TestParsePlanNoJSON(t *testing.T) {
	_, err := parsePlan("I think we should search for comedies.")
	assert.Error(t, err)
}

func TestParsePlanSchemaViolation(t *testing.T) {
	// needsClarification has the wrong type.
	_, err := parsePlan(`{"needsClarification": "yes", "shouldSearch": true}`)
	assert.Error(t, err)

	// Required field missing.
	_, err = parsePlan(`{"shouldSearch": true}`)
	assert.Error(t, err)
}

func TestParsePlanUnknownTool(t *testing.T) {
	_, err := parsePlan(`{"needsClarification": false, "shouldSearch": true,
		"toolCalls": [{"tool": "search_books"}]}`)
	assert.Error(t, err)
}

func TestPlanFallsBackConservative(t *testing.T) {
	cases := map[string]*stubCompleter{
		"completion error": {err: errors.New("provider down")},
		"prose reply":      {reply: "let me think about that"},
		"invalid schema":   {reply: `{"needsClarification": 3, "shouldSearch": true}`},
	}
	for name, completer := range cases {
		t.Run(name, func(t *testing.T) {
			p := New(completer, "m", nil)
			plan := p.Plan(context.Background(), "anything", nil)
			require.NotNil(t, plan)
			assert.True(t, plan.NeedsClarification)
			assert.False(t, plan.ShouldSearch)
			assert.Len(t, plan.ClarificationQuestions, 1)
		})
	}
}

func TestPlanPassesThroughValid(t *testing.T) {
	completer := &stubCompleter{reply: `{"needsClarification": false, "shouldSearch": true,
		"toolCalls": [{"tool": "search_movies", "parameters": {"query": "space"}}]}`}
	p := New(completer, "m", nil)

	state := &engine.ConversationState{Preferences: engine.NewUserPreferences(8)}
	state.Preferences.Genres.Add("sci-fi")

	plan := p.Plan(context.Background(), "something in space", state)
	require.Len(t, plan.ToolCalls, 1)
	assert.True(t, plan.ShouldSearch)
}

func TestExtractJSONObjectNested(t *testing.T) {
	raw := extractJSONObject(`prefix {"a": {"b": "}"}, "c": [1,2]} suffix`)
	assert.Equal(t, `{"a": {"b": "}"}, "c": [1,2]}`, raw)
}
