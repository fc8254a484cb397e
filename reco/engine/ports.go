// Package engine implements the conversational recommendation core: session
// state and preference evolution, language detection, query composition,
// candidate retrieval, ranking and filtering, the result completion cascade,
// and the tool dispatch loop. External capabilities (embedding, nearest
// neighbor search, text completion, planning) sit behind the ports below.
package engine

import (
	"context"

	"github.com/cinefind/cinefind/reco/catalog"
)

// Embedder turns text into a fixed-length vector. Failures are reported as
// errors and converted to empty results at the retrieval boundary.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Model() string
}

// VectorSearcher performs nearest-neighbor search over the catalog's
// precomputed embeddings. Hits come back ordered by ascending distance.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float64, k int) ([]catalog.Hit, error)
}

// CatalogReader is the read-only slice of the catalog the engine consumes.
type CatalogReader interface {
	ItemsByIDs(ctx context.Context, ids []int) ([]catalog.Movie, error)
	ItemByTitle(ctx context.Context, title string) (*catalog.Movie, error)
	Embedding(ctx context.Context, id int) ([]float64, error)
}

// Completer is the opaque "complete text" capability. Prompt templates and
// transport live behind it.
type Completer interface {
	Complete(ctx context.Context, prompt, model string, temperature float64) (string, error)
}

// Planner produces a structured search plan for an utterance. An
// implementation must never surface a parse failure: it substitutes the
// conservative default plan instead.
type Planner interface {
	Plan(ctx context.Context, utterance string, state *ConversationState) *SearchPlan
}

// ConversationStore persists conversation state behind the state manager.
type ConversationStore interface {
	SaveState(ctx context.Context, state *ConversationState) error
	LoadState(ctx context.Context, id string) (*ConversationState, error)
	DeleteState(ctx context.Context, id string) (bool, error)
}

// Cache provides idempotent memoization, used for query embeddings.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// RateLimiter bounds outbound provider traffic.
type RateLimiter interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Tracer emits spans/events for observability.
type Tracer interface {
	StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error))
	Event(ctx context.Context, name string, attrs map[string]any)
}

// NoopTracer discards all spans and events.
type NoopTracer struct{}

func (NoopTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	return ctx, func(error) {}
}

func (NoopTracer) Event(ctx context.Context, name string, attrs map[string]any) {}

var _ Tracer = NoopTracer{}
