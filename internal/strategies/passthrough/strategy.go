// internal/strategies/passthrough/strategy.go
package passthrough

import (
	"context"
	"strings"

	"prompt-retrieval/internal/retrieval"
)

const questionPlaceholder = "{question}"

// Config controls how the question text is turned into a prompt. All
// fields are optional; the zero value is the identity transform.
type Config struct {
	// Prefix is prepended to the question text with a single space.
	Prefix string
	// Suffix is appended to the question text with a single space.
	Suffix string
	// FormatTemplate, when set, replaces every "{question}" occurrence
	// with the question text before Prefix and Suffix are applied.
	FormatTemplate string
}

// Strategy turns the question itself into the prompt. It is deterministic,
// does no I/O, and always matches with score 1.0, which guarantees the
// fallback chain terminates when this stage is enabled.
type Strategy struct {
	config Config
}

func New(cfg Config) *Strategy {
	return &Strategy{config: cfg}
}

func (s *Strategy) Name() retrieval.StrategyName {
	return retrieval.StrategyPassthrough
}

func (s *Strategy) Attempt(_ context.Context, question retrieval.QuestionInput) retrieval.Outcome {
	return retrieval.Matched(s.buildPrompt(question.QuestionText), 1.0)
}

func (s *Strategy) buildPrompt(questionText string) string {
	text := questionText
	if s.config.FormatTemplate != "" {
		text = strings.ReplaceAll(s.config.FormatTemplate, questionPlaceholder, questionText)
	}
	if s.config.Prefix != "" {
		text = s.config.Prefix + " " + text
	}
	if s.config.Suffix != "" {
		text = text + " " + s.config.Suffix
	}
	return text
}
