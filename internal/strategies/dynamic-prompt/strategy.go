// internal/strategies/dynamic-prompt/strategy.go
package dynamicprompt

import (
	"context"
	"fmt"
	"strings"

	"prompt-retrieval/internal/retrieval"
)

// Generator is the generative capability consumed by this strategy.
type Generator interface {
	Generate(ctx context.Context, questionText string) (string, error)
}

// Strategy asks a generative model to write a prompt for the question.
type Strategy struct {
	generator Generator
}

func New(generator Generator) *Strategy {
	return &Strategy{generator: generator}
}

func (s *Strategy) Name() retrieval.StrategyName {
	return retrieval.StrategyDynamic
}

func (s *Strategy) Attempt(ctx context.Context, question retrieval.QuestionInput) retrieval.Outcome {
	generated, err := s.generator.Generate(ctx, question.QuestionText)
	if err != nil {
		return retrieval.Failed(err)
	}

	if strings.TrimSpace(generated) == "" {
		return retrieval.Failed(fmt.Errorf("generator returned empty prompt for question %s", question.QuestionID))
	}

	return retrieval.Matched(generated, 1.0)
}
