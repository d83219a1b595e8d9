// internal/strategies/similarity-search/strategy.go
package similaritysearch

import (
	"context"

	"prompt-retrieval/internal/retrieval"
)

// Candidate is one prompt returned by the vector search backend.
type Candidate struct {
	PromptText   string
	QuestionText string
	Score        float64
}

// Searcher is the vector search capability consumed by this strategy.
type Searcher interface {
	Search(ctx context.Context, questionText string) ([]Candidate, error)
}

// Strategy resolves a question against the prompt library by vector
// similarity. The highest-scoring candidate is accepted when it meets
// the configured threshold; anything below it declines to the next stage.
type Strategy struct {
	searcher  Searcher
	threshold float64
}

func New(searcher Searcher, threshold float64) *Strategy {
	return &Strategy{searcher: searcher, threshold: threshold}
}

func (s *Strategy) Name() retrieval.StrategyName {
	return retrieval.StrategySimilarity
}

func (s *Strategy) Attempt(ctx context.Context, question retrieval.QuestionInput) retrieval.Outcome {
	candidates, err := s.searcher.Search(ctx, question.QuestionText)
	if err != nil {
		return retrieval.Failed(err)
	}

	if len(candidates) == 0 {
		return retrieval.NoMatch()
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > best.Score {
			best = c
		}
	}

	if best.Score >= s.threshold {
		return retrieval.Matched(best.PromptText, best.Score)
	}

	return retrieval.NoMatch()
}
