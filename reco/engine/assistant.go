package engine

import (
	"context"
	"strings"

	"github.com/cinefind/cinefind/reco/catalog"
	"github.com/cinefind/cinefind/reco/config"
)

// Request is one user turn.
type Request struct {
	ConversationID string `json:"conversationId,omitempty"`
	Message        string `json:"message"`
	Reset          bool   `json:"reset,omitempty"`
	UseDeepThink   bool   `json:"useDeepThink,omitempty"`
}

// Response is the computed outcome of one turn.
type Response struct {
	ConversationID         string          `json:"conversationId"`
	Reply                  string          `json:"reply"`
	RecommendedMovies      []catalog.Movie `json:"recommendedMovies,omitempty"`
	NeedsClarification     bool            `json:"needsClarification,omitempty"`
	ClarificationQuestions []string        `json:"clarificationQuestions,omitempty"`
	Degraded               bool            `json:"degraded,omitempty"`
	Language               string          `json:"language"`
	Query                  string          `json:"query,omitempty"`
	ToolResults            []ToolResult    `json:"toolResults,omitempty"`
	UsedDeepThink          bool            `json:"usedDeepThink,omitempty"`
}

// Assistant wires the per-turn pipeline together: detect language, fold in
// extracted preferences, plan, search (tool fan-out, composed query, or deep
// think), complete the result set, then commit the mutated state. State is
// committed only after the response is fully computed, so a failed turn
// leaves the conversation exactly as it was.
type Assistant struct {
	manager    *Manager
	detector   *LanguageDetector
	composer   *QueryComposer
	retriever  *Retriever
	ranker     *Ranker
	cascade    *Cascade
	dispatcher *Dispatcher
	planner    Planner
	deepThink  *DeepThink
	cfg        *config.EngineConfig
	tracer     Tracer
}

func NewAssistant(
	manager *Manager,
	detector *LanguageDetector,
	composer *QueryComposer,
	retriever *Retriever,
	ranker *Ranker,
	cascade *Cascade,
	dispatcher *Dispatcher,
	planner Planner,
	deepThink *DeepThink,
	cfg *config.EngineConfig,
	tracer Tracer,
) *Assistant {
	if cfg == nil {
		cfg = config.Default()
	}
	if tracer == nil {
		tracer = NoopTracer{}
	}
	return &Assistant{
		manager:    manager,
		detector:   detector,
		composer:   composer,
		retriever:  retriever,
		ranker:     ranker,
		cascade:    cascade,
		dispatcher: dispatcher,
		planner:    planner,
		deepThink:  deepThink,
		cfg:        cfg,
		tracer:     tracer,
	}
}

// ProcessMessage handles one turn end to end.
func (a *Assistant) ProcessMessage(ctx context.Context, req Request) (*Response, error) {
	ctx, end := a.tracer.StartSpan(ctx, "assistant.turn", map[string]any{"conversation": req.ConversationID})

	working, err := a.openState(ctx, req)
	if err != nil {
		end(err)
		return nil, err
	}

	// Prior genres are snapshotted before this turn's extraction lands so
	// the composer distinguishes carryover from the current utterance.
	priorGenres := working.Preferences.Genres.Recent(a.cfg.PriorGenreWindow)

	working.Language = a.detector.Detect(ctx, req.Message)
	ExtractPreferences(req.Message).ApplyTo(working.Preferences)

	resp := &Response{ConversationID: working.ID, Language: working.Language}
	var planCalls []ToolCall

	switch {
	case req.UseDeepThink && a.deepThink != nil:
		reply, movies, dtErr := a.deepThink.Process(ctx, req.Message, a.cfg.K)
		if dtErr == nil {
			resp.UsedDeepThink = true
			resp.Reply = reply
			resp.RecommendedMovies = movies
			break
		}
		a.tracer.Event(ctx, "assistant.deepthink.fallback", map[string]any{"error": dtErr.Error()})
		fallthrough
	default:
		var plan *SearchPlan
		if a.planner != nil {
			plan = a.planner.Plan(ctx, req.Message, working)
		}
		switch {
		case plan != nil && plan.NeedsClarification:
			questions := plan.ClarificationQuestions
			if len(questions) == 0 {
				questions = clarificationQuestions(working.Preferences, working.Language)
			}
			if len(questions) > 2 {
				questions = questions[:2]
			}
			resp.NeedsClarification = true
			resp.ClarificationQuestions = questions
			resp.Reply = strings.Join(questions, " ")
		case plan != nil && len(plan.ToolCalls) > 0:
			planCalls = plan.ToolCalls
			resp.RecommendedMovies, resp.ToolResults, resp.Degraded = a.dispatcher.Execute(ctx, plan, req.Message, working.Preferences)
			resp.Reply = recommendationReply(resp.RecommendedMovies, working.Language)
		default:
			query := a.composer.Compose(ctx, req.Message, priorGenres)
			candidates := a.retriever.Retrieve(ctx, query, a.cfg.RetrievalK)
			ranked := a.ranker.Rank(candidates, working.Preferences, query)
			resp.RecommendedMovies, resp.Degraded = a.cascade.EnsureCount(ctx, ranked, query, working.Preferences, a.cfg.K)
			resp.Query = query
			resp.Reply = recommendationReply(resp.RecommendedMovies, working.Language)
		}
	}

	limit := a.manager.HistoryLimit()
	working.AppendMessage(Message{Role: "user", Content: req.Message}, limit)
	working.AppendMessage(Message{Role: "assistant", Content: resp.Reply, ToolCalls: planCalls}, limit)

	if err := a.manager.Commit(ctx, working); err != nil {
		end(err)
		return nil, err
	}
	end(nil)
	return resp, nil
}

func (a *Assistant) openState(ctx context.Context, req Request) (*ConversationState, error) {
	if req.Reset && req.ConversationID != "" {
		return a.manager.Reset(ctx, req.ConversationID)
	}
	return a.manager.GetOrCreate(ctx, req.ConversationID)
}

// clarificationQuestions derives up to two questions from what the
// conversation has not revealed yet.
func clarificationQuestions(prefs *UserPreferences, lang string) []string {
	type candidate struct {
		missing bool
		en, ru  string
	}
	candidates := []candidate{
		{prefs.Genres.Len() == 0, "What genres do you usually enjoy?", "Какие жанры вам обычно нравятся?"},
		{prefs.Moods.Len() == 0, "Are you in the mood for something light or something intense?", "Хочется чего-то лёгкого или напряжённого?"},
		{prefs.TimePeriod == "", "Do you prefer recent releases or older classics?", "Предпочитаете новые фильмы или старую классику?"},
	}
	var out []string
	for _, c := range candidates {
		if !c.missing {
			continue
		}
		if lang == "ru" {
			out = append(out, c.ru)
		} else {
			out = append(out, c.en)
		}
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		if lang == "ru" {
			out = []string{"Расскажите подробнее, какой фильм вы ищете?"}
		} else {
			out = []string{"Could you tell me a bit more about what you are looking for?"}
		}
	}
	return out
}

func recommendationReply(movies []catalog.Movie, lang string) string {
	if len(movies) == 0 {
		if lang == "ru" {
			return "К сожалению, я ничего не нашёл. Попробуйте описать запрос иначе."
		}
		return "I could not find anything matching that. Try describing it differently."
	}
	titles := make([]string, len(movies))
	for i, m := range movies {
		titles[i] = m.Title
	}
	if lang == "ru" {
		return "Рекомендую: " + strings.Join(titles, ", ")
	}
	return "You might enjoy: " + strings.Join(titles, ", ")
}
