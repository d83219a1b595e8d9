// internal/workers/retrieval/retrieve-prompts/handler.go
package retrieveprompts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	commonerrors "prompt-retrieval/internal/common/errors"
	"prompt-retrieval/internal/common/logger"
	"prompt-retrieval/internal/common/metrics"
	"prompt-retrieval/internal/retrieval"
)

const (
	TaskType = "retrieve-prompts"
)

var (
	ErrRetrievalFailed  = errors.New("PROMPT_RETRIEVAL_FAILED")
	ErrRetrievalTimeout = errors.New("PROMPT_RETRIEVAL_TIMEOUT")
)

// PromptRetriever is the orchestration capability this worker fronts.
type PromptRetriever interface {
	RetrievePrompts(ctx context.Context, input retrieval.PromptRetrievalInput) (*retrieval.PromptRetrievalOutput, error)
}

// MatchWriter persists resolved matches after a run. Optional.
type MatchWriter interface {
	SaveMatches(ctx context.Context, runID string, output *retrieval.PromptRetrievalOutput) error
}

type Handler struct {
	config    *Config
	retriever PromptRetriever
	matches   MatchWriter
	logger    logger.Logger
}

func NewHandler(config *Config, retriever PromptRetriever, matches MatchWriter, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		retriever: retriever,
		matches:   matches,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, commonerrors.NewValidationFailedError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	if err := h.validateInput(job.Variables); err != nil {
		h.failJob(client, job, commonerrors.NewValidationFailedError(err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		stdErr := h.normalizeError(err)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
		h.failJob(client, job, stdErr)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	runID := uuid.New().String()

	result, err := h.retriever.RetrievePrompts(ctx, retrieval.PromptRetrievalInput{
		AssessmentTemplateID: input.AssessmentTemplateID,
		Questions:            input.Questions,
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrRetrievalTimeout
		}
		if errors.Is(err, retrieval.ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}

	matched := 0
	for _, r := range result.Results {
		if r.MatchFound {
			matched++
		}
		metrics.RetrievalQuestionsProcessed.WithLabelValues(strategyLabel(r)).Inc()
	}

	if h.matches != nil {
		// Persistence is best-effort; the workflow still gets its
		// results when the store is down.
		if err := h.matches.SaveMatches(ctx, runID, result); err != nil {
			h.logger.Warn("failed to persist matches", map[string]interface{}{
				"runId": runID,
				"error": err.Error(),
			})
		}
	}

	return &Output{
		AssessmentTemplateID: result.AssessmentTemplateID,
		RunID:                runID,
		Results:              result.Results,
		MatchedCount:         matched,
		UnresolvedCount:      len(result.Results) - matched,
	}, nil
}

func (h *Handler) validateInput(variables string) error {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(variables), &doc); err != nil {
		return fmt.Errorf("parse variables: %w", err)
	}

	schemaLoader := gojsonschema.NewGoLoader(inputSchema)
	documentLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("input validation failed: %v", errs)
	}

	return nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, stdErr *commonerrors.StandardError) {
	bpmnErr := commonerrors.ConvertToBPMNError(stdErr)

	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":        job.Key,
		"errorCode":     bpmnErr.Code,
		"errorMessage":  bpmnErr.Message,
		"errorCategory": commonerrors.GetErrorCategory(stdErr.Code),
		"retryable":     bpmnErr.Retryable,
		"retries":       bpmnErr.Retries,
	})

	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	if vars, err := json.Marshal(bpmnErr.ToErrorVariables()); err == nil {
		if cmdWithVars, varErr := cmd.VariablesFromString(string(vars)); varErr == nil {
			if _, sendErr := cmdWithVars.Send(context.Background()); sendErr != nil {
				h.logger.Error("failed to throw error", map[string]interface{}{
					"error": sendErr.Error(),
				})
			}
			return
		}
	}

	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// normalizeError folds any execute failure into the standard taxonomy so
// the BPMN conversion can assign code and retries.
func (h *Handler) normalizeError(err error) *commonerrors.StandardError {
	var stdErr *commonerrors.StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}

	code := h.classify(err)
	return &commonerrors.StandardError{
		Code:      code,
		Message:   "Prompt retrieval job failed",
		Details:   err.Error(),
		Retryable: commonerrors.IsRetryableErrorCode(code),
		Timestamp: time.Now().UTC(),
	}
}

func (h *Handler) classify(err error) commonerrors.ErrorCode {
	if errors.Is(err, retrieval.ErrInvalidInput) {
		return commonerrors.ErrCodeValidationFailed
	} else if errors.Is(err, ErrRetrievalTimeout) {
		return commonerrors.ErrCodePromptRetrievalTimeout
	} else if errors.Is(err, ErrRetrievalFailed) {
		return commonerrors.ErrCodePromptRetrievalFailed
	}
	return "UNKNOWN_ERROR"
}

func strategyLabel(match retrieval.QuestionPromptMatch) string {
	if match.StrategyUsed == retrieval.StrategyNone {
		return "none"
	}
	return string(match.StrategyUsed)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
