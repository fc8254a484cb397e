// Package adapters provides concrete implementations of the engine's ports:
// zerolog tracing, in-process LRU caching, token-bucket rate limiting, and
// libsql-backed conversation persistence.
package adapters

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinefind/cinefind/reco/engine"
)

type spanLoggerKey struct{}

// ZerologTracer emits engine spans and events as structured log lines.
type ZerologTracer struct {
	logger zerolog.Logger
}

func NewZerologTracer(logger zerolog.Logger) *ZerologTracer {
	return &ZerologTracer{logger: logger}
}

// StartSpan opens a span: a child logger carrying the span name and
// attributes is stored in the context so events inside the span inherit them.
func (t *ZerologTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	builder := t.logger.With().Str("span", name)
	for k, v := range attrs {
		builder = builder.Interface(k, v)
	}
	logger := builder.Logger()
	ctx = context.WithValue(ctx, spanLoggerKey{}, logger)

	start := time.Now()
	logger.Debug().Msg("span start")

	return ctx, func(err error) {
		evt := logger.Debug()
		if err != nil {
			evt = logger.Error().Err(err)
		}
		evt.Dur("duration", time.Since(start)).Msg("span end")
	}
}

// Event logs a point event, attached to the surrounding span when one exists.
func (t *ZerologTracer) Event(ctx context.Context, name string, attrs map[string]any) {
	logger := t.logger
	if spanLogger, ok := ctx.Value(spanLoggerKey{}).(zerolog.Logger); ok {
		logger = spanLogger
	}
	evt := logger.Debug().Str("event", name)
	for k, v := range attrs {
		evt = evt.Interface(k, v)
	}
	evt.Msg("trace event")
}

var _ engine.Tracer = (*ZerologTracer)(nil)
