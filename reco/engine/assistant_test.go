package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinefind/cinefind/reco/catalog"
	"github.com/cinefind/cinefind/reco/config"
)

func assistantFixture(planner Planner) (*Assistant, *Manager) {
	cfg := config.Default()
	searcher := &fakeSearcher{fn: func(vector []float64, k int) ([]catalog.Hit, error) {
		return hitsFor(1, 2, 3, 4, 5), nil
	}}
	cat := &fakeCatalog{movies: map[int]catalog.Movie{
		1: mkMovie(1, "Superbad", "comedy", "en", 2007, 113, 40),
		2: mkMovie(2, "The Hangover", "comedy", "en", 2009, 100, 45),
		3: mkMovie(3, "Airplane!", "comedy", "en", 1980, 88, 30),
		4: mkMovie(4, "Alien", "horror,sci-fi", "en", 1979, 117, 30),
		5: mkMovie(5, "The Thing", "horror", "en", 1982, 109, 25),
	}}
	retriever := NewRetriever(&fakeEmbedder{}, searcher, cat, nil, nil)
	ranker := NewRanker(cfg)
	cascade := NewCascade(retriever, ranker, cfg, nil)
	dispatcher := NewDispatcher(retriever, ranker, cascade, cfg, nil)
	manager := NewManager(nil, cfg.HistoryLimit, cfg.PreferenceCap)
	detector := NewLanguageDetector(nil, "", nil)
	composer := NewQueryComposer(nil, "", cfg, nil)

	return NewAssistant(manager, detector, composer, retriever, ranker, cascade, dispatcher, planner, nil, cfg, nil), manager
}

func TestProcessMessageFirstTurn(t *testing.T) {
	a, m := assistantFixture(nil)

	resp, err := a.ProcessMessage(context.Background(), Request{Message: "I want a funny comedy"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ConversationID)
	assert.Equal(t, "en", resp.Language)
	assert.Len(t, resp.RecommendedMovies, 5)
	assert.False(t, resp.Degraded)
	assert.NotEmpty(t, resp.Reply)

	// The turn committed: both messages and the extracted genre are stored.
	state, err := m.Get(context.Background(), resp.ConversationID)
	require.NoError(t, err)
	require.Len(t, state.Messages, 2)
	assert.Equal(t, "user", state.Messages[0].Role)
	assert.Equal(t, "assistant", state.Messages[1].Role)
	assert.True(t, state.Preferences.Genres.Contains("comedy"))
}

func TestProcessMessageSecondTurnCarriesContext(t *testing.T) {
	a, m := assistantFixture(nil)

	first, err := a.ProcessMessage(context.Background(), Request{Message: "I want a funny comedy"})
	require.NoError(t, err)

	second, err := a.ProcessMessage(context.Background(), Request{
		ConversationID: first.ConversationID,
		Message:        "что-нибудь страшное",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.Equal(t, "ru", second.Language, "language follows the latest utterance")
	// Pivot: the composed query still echoes the prior comedy context.
	assert.Contains(t, second.Query, "comedy")

	state, err := m.Get(context.Background(), second.ConversationID)
	require.NoError(t, err)
	assert.True(t, state.Preferences.Genres.Contains("comedy"))
	assert.True(t, state.Preferences.Genres.Contains("horror"))
	assert.Len(t, state.Messages, 4)
}

func TestProcessMessageReset(t *testing.T) {
	a, m := assistantFixture(nil)

	first, err := a.ProcessMessage(context.Background(), Request{Message: "I want a funny comedy"})
	require.NoError(t, err)

	_, err = a.ProcessMessage(context.Background(), Request{
		ConversationID: first.ConversationID,
		Message:        "start over, something scary",
		Reset:          true,
	})
	require.NoError(t, err)

	state, err := m.Get(context.Background(), first.ConversationID)
	require.NoError(t, err)
	assert.False(t, state.Preferences.Genres.Contains("comedy"), "reset wipes earlier preferences")
	assert.True(t, state.Preferences.Genres.Contains("horror"))
	assert.Len(t, state.Messages, 2)
}

func TestProcessMessageClarification(t *testing.T) {
	planner := &fakePlanner{plan: &SearchPlan{NeedsClarification: true}}
	a, _ := assistantFixture(planner)

	resp, err := a.ProcessMessage(context.Background(), Request{Message: "hi"})
	require.NoError(t, err)
	assert.True(t, resp.NeedsClarification)
	require.NotEmpty(t, resp.ClarificationQuestions)
	assert.LessOrEqual(t, len(resp.ClarificationQuestions), 2)
	assert.Empty(t, resp.RecommendedMovies)
}

func TestProcessMessagePlannedToolCalls(t *testing.T) {
	planner := &fakePlanner{plan: &SearchPlan{
		ShouldSearch: true,
		ToolCalls:    []ToolCall{{Tool: ToolSearchByGenre, Parameters: map[string]string{"genre": "comedy"}}},
	}}
	a, m := assistantFixture(planner)

	resp, err := a.ProcessMessage(context.Background(), Request{Message: "make me laugh"})
	require.NoError(t, err)
	require.Len(t, resp.ToolResults, 1)
	assert.True(t, resp.ToolResults[0].Success)
	assert.Len(t, resp.RecommendedMovies, 5)

	// The assistant message records what was dispatched.
	state, err := m.Get(context.Background(), resp.ConversationID)
	require.NoError(t, err)
	require.Len(t, state.Messages, 2)
	require.Len(t, state.Messages[1].ToolCalls, 1)
	assert.Equal(t, ToolSearchByGenre, state.Messages[1].ToolCalls[0].Tool)
}

func TestClarificationQuestionsDerivation(t *testing.T) {
	prefs := NewUserPreferences(8)
	qs := clarificationQuestions(prefs, "en")
	assert.Len(t, qs, 2)

	prefs.Genres.Add("comedy")
	prefs.Moods.Add("funny")
	prefs.TimePeriod = "new"
	qs = clarificationQuestions(prefs, "en")
	require.Len(t, qs, 1, "fully specified preferences still get one generic question")

	qs = clarificationQuestions(NewUserPreferences(8), "ru")
	assert.Contains(t, qs[0], "жанры")
}
