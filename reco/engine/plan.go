package engine

import "github.com/cinefind/cinefind/reco/catalog"

// ToolName identifies one entry of the fixed tool catalog.
type ToolName string

const (
	ToolSearchMovies  ToolName = "search_movies"
	ToolSearchByGenre ToolName = "search_by_genre"
	ToolSearchByMood  ToolName = "search_by_mood"
	ToolFindSimilar   ToolName = "find_similar_movies"
)

// KnownTool reports whether name is in the tool catalog.
func KnownTool(name ToolName) bool {
	switch name {
	case ToolSearchMovies, ToolSearchByGenre, ToolSearchByMood, ToolFindSimilar:
		return true
	}
	return false
}

// ToolCall is one planned invocation.
type ToolCall struct {
	Tool       ToolName          `json:"tool"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// ToolResult is the outcome of one dispatched call. A failed call carries
// its error text and contributes no items; it never aborts the turn.
type ToolResult struct {
	Tool    ToolName          `json:"tool"`
	Params  map[string]string `json:"parameters,omitempty"`
	Items   []catalog.Movie   `json:"items,omitempty"`
	Success bool              `json:"success"`
	Error   string            `json:"error,omitempty"`
}

// SearchPlan is the planner's structured decision for one turn.
type SearchPlan struct {
	NeedsClarification     bool       `json:"needsClarification"`
	ClarificationQuestions []string   `json:"clarificationQuestions,omitempty"`
	ShouldSearch           bool       `json:"shouldSearch"`
	SearchStrategy         string     `json:"searchStrategy,omitempty"`
	ToolCalls              []ToolCall `json:"toolCalls,omitempty"`
	Reasoning              string     `json:"reasoning,omitempty"`
}

// ConservativePlan is the substitute for an unusable planner reply: ask one
// generic question rather than search on garbage.
func ConservativePlan() *SearchPlan {
	return &SearchPlan{
		NeedsClarification: true,
		ClarificationQuestions: []string{
			"What kind of movie are you in the mood for?",
		},
		ShouldSearch: false,
	}
}
