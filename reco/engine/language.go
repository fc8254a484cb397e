package engine

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/cinefind/cinefind/reco/lexicon"
)

// LanguageDetector resolves the language of one utterance. Detection is
// stateless per turn: the result always overwrites the conversation's
// previous language, so a user who switches languages mid-conversation is
// answered in the new one.
type LanguageDetector struct {
	completer Completer
	model     string
	tracer    Tracer
}

func NewLanguageDetector(completer Completer, model string, tracer Tracer) *LanguageDetector {
	if tracer == nil {
		tracer = NoopTracer{}
	}
	return &LanguageDetector{completer: completer, model: model, tracer: tracer}
}

// Detect runs the script heuristic first, then falls back to the classifier
// model, then to the default. It never fails.
func (d *LanguageDetector) Detect(ctx context.Context, text string) string {
	for _, r := range text {
		for _, sr := range lexicon.ScriptRanges {
			if unicode.Is(sr.Table, r) {
				return sr.Lang
			}
		}
	}
	if d.completer == nil {
		return lexicon.DefaultLanguage
	}

	prompt := fmt.Sprintf(
		"Identify the language of the following text. Respond with exactly one two-letter code from this list: %s.\n\nText: %s\n\nCode:",
		strings.Join(lexicon.LanguageAllowList, ", "), text)

	reply, err := d.completer.Complete(ctx, prompt, d.model, 0.0)
	if err != nil {
		d.tracer.Event(ctx, "language.detect.fallback", map[string]any{"error": err.Error()})
		return lexicon.DefaultLanguage
	}
	code := strings.ToLower(strings.TrimSpace(reply))
	if len(code) > 2 {
		code = code[:2]
	}
	if lexicon.AllowedLanguage(code) {
		return code
	}
	return lexicon.DefaultLanguage
}
