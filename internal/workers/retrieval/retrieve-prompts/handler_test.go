// internal/workers/retrieval/retrieve-prompts/handler_test.go
package retrieveprompts

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "prompt-retrieval/internal/common/errors"
	"prompt-retrieval/internal/common/logger"
	"prompt-retrieval/internal/retrieval"
)

// ==========================
// Test Helper Functions
// ==========================

type stubRetriever struct {
	output *retrieval.PromptRetrievalOutput
	err    error
	gotIn  retrieval.PromptRetrievalInput
}

func (s *stubRetriever) RetrievePrompts(_ context.Context, input retrieval.PromptRetrievalInput) (*retrieval.PromptRetrievalOutput, error) {
	s.gotIn = input
	return s.output, s.err
}

type stubMatchWriter struct {
	savedRunID string
	saved      *retrieval.PromptRetrievalOutput
	err        error
}

func (s *stubMatchWriter) SaveMatches(_ context.Context, runID string, output *retrieval.PromptRetrievalOutput) error {
	s.savedRunID = runID
	s.saved = output
	return s.err
}

func createTestHandler(t *testing.T, retriever PromptRetriever, matches MatchWriter) *Handler {
	return NewHandler(
		&Config{Timeout: 30 * time.Second},
		retriever, matches,
		logger.NewTestLogger(t),
	)
}

func score(v float64) *float64 { return &v }

func resolvedOutput() *retrieval.PromptRetrievalOutput {
	return &retrieval.PromptRetrievalOutput{
		AssessmentTemplateID: "tmpl-1",
		Results: []retrieval.QuestionPromptMatch{
			{
				QuestionID:         "q-1",
				QuestionText:       "What is your refund policy?",
				SelectedPromptText: "library prompt",
				MatchScore:         score(0.92),
				MatchFound:         true,
				StrategyUsed:       retrieval.StrategySimilarity,
			},
			{
				QuestionID:   "q-2",
				QuestionText: "unknown question",
				MatchFound:   false,
			},
		},
	}
}

func sampleInput() *Input {
	return &Input{
		AssessmentTemplateID: "tmpl-1",
		Questions: []retrieval.QuestionInput{
			{QuestionID: "q-1", QuestionText: "What is your refund policy?"},
			{QuestionID: "q-2", QuestionText: "unknown question"},
		},
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestExecute_Success(t *testing.T) {
	retriever := &stubRetriever{output: resolvedOutput()}
	writer := &stubMatchWriter{}
	h := createTestHandler(t, retriever, writer)

	output, err := h.Execute(context.Background(), sampleInput())

	require.NoError(t, err)
	assert.Equal(t, "tmpl-1", output.AssessmentTemplateID)
	assert.NotEmpty(t, output.RunID)
	assert.Len(t, output.Results, 2)
	assert.Equal(t, 1, output.MatchedCount)
	assert.Equal(t, 1, output.UnresolvedCount)

	assert.Equal(t, "tmpl-1", retriever.gotIn.AssessmentTemplateID)
	assert.Len(t, retriever.gotIn.Questions, 2)

	assert.Equal(t, output.RunID, writer.savedRunID)
	require.NotNil(t, writer.saved)
	assert.Equal(t, "tmpl-1", writer.saved.AssessmentTemplateID)
}

func TestExecute_NilInput(t *testing.T) {
	h := createTestHandler(t, &stubRetriever{output: resolvedOutput()}, nil)

	output, err := h.Execute(context.Background(), nil)

	assert.Error(t, err)
	assert.Nil(t, output)
}

func TestExecute_RetrievalErrorWraps(t *testing.T) {
	retriever := &stubRetriever{err: errors.New("pool exhausted")}
	h := createTestHandler(t, retriever, nil)

	output, err := h.Execute(context.Background(), sampleInput())

	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrRetrievalFailed)

	bpmnErr := commonerrors.ConvertToBPMNError(h.normalizeError(err))
	assert.Equal(t, "PROMPT_RETRIEVAL_FAILED", bpmnErr.Code)
	assert.Equal(t, 3, bpmnErr.Retries)
	assert.True(t, bpmnErr.Retryable)
}

func TestExecute_ValidationErrorIsNotRetried(t *testing.T) {
	retriever := &stubRetriever{err: retrieval.ErrInvalidInput}
	h := createTestHandler(t, retriever, nil)

	output, err := h.Execute(context.Background(), sampleInput())

	assert.Nil(t, output)
	assert.ErrorIs(t, err, retrieval.ErrInvalidInput)

	bpmnErr := commonerrors.ConvertToBPMNError(h.normalizeError(err))
	assert.Equal(t, "VALIDATION_FAILED", bpmnErr.Code)
	assert.Equal(t, 0, bpmnErr.Retries)
	assert.False(t, bpmnErr.Retryable)
}

func TestExecute_TimeoutMapsToRetrievalTimeout(t *testing.T) {
	retriever := &stubRetriever{err: context.DeadlineExceeded}
	h := createTestHandler(t, retriever, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	output, err := h.Execute(ctx, sampleInput())

	assert.Nil(t, output)
	assert.ErrorIs(t, err, ErrRetrievalTimeout)

	bpmnErr := commonerrors.ConvertToBPMNError(h.normalizeError(err))
	assert.Equal(t, "PROMPT_RETRIEVAL_TIMEOUT", bpmnErr.Code)
	assert.Equal(t, 2, bpmnErr.Retries)
}

func TestExecute_MatchStoreFailureDoesNotFailJob(t *testing.T) {
	retriever := &stubRetriever{output: resolvedOutput()}
	writer := &stubMatchWriter{err: errors.New("postgres unavailable")}
	h := createTestHandler(t, retriever, writer)

	output, err := h.Execute(context.Background(), sampleInput())

	require.NoError(t, err)
	assert.Len(t, output.Results, 2)
}

func TestExecute_NoMatchWriterConfigured(t *testing.T) {
	retriever := &stubRetriever{output: resolvedOutput()}
	h := createTestHandler(t, retriever, nil)

	output, err := h.Execute(context.Background(), sampleInput())

	require.NoError(t, err)
	assert.Len(t, output.Results, 2)
}

// ==========================
// Input Schema Tests
// ==========================

func TestValidateInput(t *testing.T) {
	h := createTestHandler(t, &stubRetriever{output: resolvedOutput()}, nil)

	tests := []struct {
		name    string
		payload map[string]interface{}
		wantErr bool
	}{
		{
			name: "valid payload",
			payload: map[string]interface{}{
				"assessmentTemplateId": "tmpl-1",
				"questions": []map[string]interface{}{
					{"questionId": "q-1", "questionText": "text"},
				},
			},
			wantErr: false,
		},
		{
			name: "missing template id",
			payload: map[string]interface{}{
				"questions": []map[string]interface{}{
					{"questionId": "q-1", "questionText": "text"},
				},
			},
			wantErr: true,
		},
		{
			name: "empty questions array",
			payload: map[string]interface{}{
				"assessmentTemplateId": "tmpl-1",
				"questions":            []map[string]interface{}{},
			},
			wantErr: true,
		},
		{
			name: "question without text",
			payload: map[string]interface{}{
				"assessmentTemplateId": "tmpl-1",
				"questions": []map[string]interface{}{
					{"questionId": "q-1"},
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.payload)
			require.NoError(t, err)

			err = h.validateInput(string(raw))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
