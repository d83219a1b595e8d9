// internal/retrieval/strategy.go
package retrieval

import "context"

// OutcomeKind tags the result of a single strategy attempt.
type OutcomeKind int

const (
	OutcomeMatched OutcomeKind = iota
	OutcomeNoMatch
	OutcomeFailed
)

// Outcome is the tagged result of one strategy attempt for one question.
type Outcome struct {
	Kind       OutcomeKind
	PromptText string
	Score      float64
	Err        error
}

// Matched builds a successful outcome carrying the selected prompt.
func Matched(promptText string, score float64) Outcome {
	return Outcome{Kind: OutcomeMatched, PromptText: promptText, Score: score}
}

// NoMatch builds a declined outcome. Not a failure; it triggers fallback.
func NoMatch() Outcome {
	return Outcome{Kind: OutcomeNoMatch}
}

// Failed builds an errored outcome. The chain records it and advances.
func Failed(err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Err: err}
}

// Strategy is one stage of the fallback chain. Implementations must
// convert any internal fault into a Failed outcome rather than panicking;
// the orchestrator additionally recovers panics as a backstop.
type Strategy interface {
	Name() StrategyName
	Attempt(ctx context.Context, question QuestionInput) Outcome
}
