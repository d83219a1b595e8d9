// internal/strategies/similarity-search/strategy_test.go
package similaritysearch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"prompt-retrieval/internal/retrieval"
)

// ==========================
// Test Helper Functions
// ==========================

type stubSearcher struct {
	candidates []Candidate
	err        error
}

func (s *stubSearcher) Search(context.Context, string) ([]Candidate, error) {
	return s.candidates, s.err
}

func question() retrieval.QuestionInput {
	return retrieval.QuestionInput{QuestionID: "q-1", QuestionText: "What is your refund policy?"}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestAttempt_AcceptsBestCandidateAtThreshold(t *testing.T) {
	tests := []struct {
		name       string
		candidates []Candidate
		threshold  float64
		wantKind   retrieval.OutcomeKind
		wantPrompt string
		wantScore  float64
	}{
		{
			name: "best candidate above threshold",
			candidates: []Candidate{
				{PromptText: "weak prompt", Score: 0.4},
				{PromptText: "strong prompt", Score: 0.92},
				{PromptText: "medium prompt", Score: 0.6},
			},
			threshold:  0.8,
			wantKind:   retrieval.OutcomeMatched,
			wantPrompt: "strong prompt",
			wantScore:  0.92,
		},
		{
			name:       "score exactly at threshold is accepted",
			candidates: []Candidate{{PromptText: "edge prompt", Score: 0.8}},
			threshold:  0.8,
			wantKind:   retrieval.OutcomeMatched,
			wantPrompt: "edge prompt",
			wantScore:  0.8,
		},
		{
			name:       "best candidate below threshold declines",
			candidates: []Candidate{{PromptText: "weak prompt", Score: 0.3}},
			threshold:  0.8,
			wantKind:   retrieval.OutcomeNoMatch,
		},
		{
			name:       "no candidates declines",
			candidates: nil,
			threshold:  0.8,
			wantKind:   retrieval.OutcomeNoMatch,
		},
		{
			name:       "zero threshold accepts anything",
			candidates: []Candidate{{PromptText: "any prompt", Score: 0.01}},
			threshold:  0,
			wantKind:   retrieval.OutcomeMatched,
			wantPrompt: "any prompt",
			wantScore:  0.01,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&stubSearcher{candidates: tt.candidates}, tt.threshold)
			outcome := s.Attempt(context.Background(), question())

			assert.Equal(t, tt.wantKind, outcome.Kind)
			if tt.wantKind == retrieval.OutcomeMatched {
				assert.Equal(t, tt.wantPrompt, outcome.PromptText)
				assert.InDelta(t, tt.wantScore, outcome.Score, 0.0001)
			}
		})
	}
}

func TestAttempt_SearcherErrorBecomesFailed(t *testing.T) {
	searchErr := errors.New("connection refused")
	s := New(&stubSearcher{err: searchErr}, 0.8)

	outcome := s.Attempt(context.Background(), question())

	assert.Equal(t, retrieval.OutcomeFailed, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, searchErr)
}

func TestName(t *testing.T) {
	s := New(&stubSearcher{}, 0.8)
	assert.Equal(t, retrieval.StrategySimilarity, s.Name())
}
