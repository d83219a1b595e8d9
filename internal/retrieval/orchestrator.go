// internal/retrieval/orchestrator.go
package retrieval

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"prompt-retrieval/internal/common/logger"
)

// Orchestrator drives the per-question fallback chain across a batch of
// questions with bounded concurrency. Stages for one question run
// sequentially; questions run concurrently up to MaxParallelRequests.
type Orchestrator struct {
	config      Config
	similarity  Strategy
	passthrough Strategy
	dynamic     Strategy
	telemetry   Telemetry
	logger      logger.Logger
	pool        *ants.Pool
}

// Option customizes an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithPassthrough installs the passthrough fallback stage.
func WithPassthrough(s Strategy) Option {
	return func(o *Orchestrator) { o.passthrough = s }
}

// WithDynamicPrompt installs the generative fallback stage.
func WithDynamicPrompt(s Strategy) Option {
	return func(o *Orchestrator) { o.dynamic = s }
}

// WithTelemetry installs an observability sink.
func WithTelemetry(t Telemetry) Option {
	return func(o *Orchestrator) { o.telemetry = t }
}

// WithLogger installs a structured logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New validates the configuration and builds the orchestrator. The
// similarity stage is mandatory; passthrough and dynamic stages are
// installed via options and gated by the configuration flags.
func New(cfg Config, similarity Strategy, opts ...Option) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if similarity == nil {
		return nil, fmt.Errorf("%w: similarity strategy is required", ErrInvalidConfig)
	}

	o := &Orchestrator{
		config:     cfg,
		similarity: similarity,
		telemetry:  noopTelemetry{},
		logger:     logger.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.telemetry == nil {
		o.telemetry = noopTelemetry{}
	}
	if o.logger == nil {
		o.logger = logger.NewNoOpLogger()
	}

	if cfg.FallbackToPassthrough && o.passthrough == nil {
		return nil, fmt.Errorf("%w: passthrough fallback enabled but no passthrough strategy installed", ErrInvalidConfig)
	}
	if cfg.EnableDynamicPrompt && o.dynamic == nil {
		return nil, fmt.Errorf("%w: dynamic prompt enabled but no dynamic strategy installed", ErrInvalidConfig)
	}

	// Submit blocks when all workers are busy, which is exactly the
	// admission limiter the batch needs.
	pool, err := ants.NewPool(cfg.MaxParallelRequests)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	o.pool = pool

	return o, nil
}

// RetrievePrompts resolves a prompt for every question in the input and
// returns one record per question in input order. Per-question stage
// failures are absorbed into that question's record; only input
// validation or caller cancellation fails the whole call.
func (o *Orchestrator) RetrievePrompts(ctx context.Context, input PromptRetrievalInput) (*PromptRetrievalOutput, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	o.logger.Info("starting prompt retrieval", map[string]interface{}{
		"assessmentTemplateId": input.AssessmentTemplateID,
		"questionCount":        len(input.Questions),
	})

	results := make([]QuestionPromptMatch, len(input.Questions))
	var wg sync.WaitGroup

	for i, q := range input.Questions {
		if ctx.Err() != nil {
			break
		}

		i, q := i, q
		wg.Add(1)
		if err := o.pool.Submit(func() {
			defer wg.Done()
			results[i] = o.resolveQuestion(ctx, input.AssessmentTemplateID, q)
		}); err != nil {
			wg.Done()
			results[i] = QuestionPromptMatch{
				QuestionID:   q.QuestionID,
				QuestionText: q.QuestionText,
				MatchFound:   false,
				Error:        err.Error(),
			}
		}
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &PromptRetrievalOutput{
		AssessmentTemplateID: input.AssessmentTemplateID,
		Results:              results,
	}, nil
}

// Close releases the worker pool.
func (o *Orchestrator) Close() {
	if o.pool != nil {
		o.pool.Release()
	}
}

// resolveQuestion runs one question's linear fallback chain to a single
// terminal state.
func (o *Orchestrator) resolveQuestion(ctx context.Context, templateID string, q QuestionInput) QuestionPromptMatch {
	var lastErr error

	if ctx.Err() != nil {
		return o.unresolved(ctx, templateID, q, ctx.Err())
	}

	outcome := o.safeAttempt(ctx, o.similarity, q)
	switch outcome.Kind {
	case OutcomeMatched:
		return o.resolved(ctx, templateID, q, StrategySimilarity, outcome)
	case OutcomeFailed:
		lastErr = outcome.Err
		o.recordStageFailure(ctx, StrategySimilarity, q, outcome.Err)
	}

	if o.config.FallbackToPassthrough {
		if ctx.Err() != nil {
			return o.unresolved(ctx, templateID, q, ctx.Err())
		}
		outcome = o.safeAttempt(ctx, o.passthrough, q)
		switch outcome.Kind {
		case OutcomeMatched:
			return o.resolved(ctx, templateID, q, StrategyPassthrough, outcome)
		case OutcomeFailed:
			lastErr = outcome.Err
			o.recordStageFailure(ctx, StrategyPassthrough, q, outcome.Err)
		}
	} else if o.config.EnableDynamicPrompt {
		if ctx.Err() != nil {
			return o.unresolved(ctx, templateID, q, ctx.Err())
		}
		outcome = o.safeAttempt(ctx, o.dynamic, q)
		switch outcome.Kind {
		case OutcomeMatched:
			return o.resolved(ctx, templateID, q, StrategyDynamic, outcome)
		case OutcomeFailed:
			lastErr = outcome.Err
			o.recordStageFailure(ctx, StrategyDynamic, q, outcome.Err)
		}
	}

	return o.unresolved(ctx, templateID, q, lastErr)
}

// safeAttempt shields the chain from a panicking strategy.
func (o *Orchestrator) safeAttempt(ctx context.Context, s Strategy, q QuestionInput) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Failed(fmt.Errorf("strategy %s panicked: %v", s.Name(), r))
		}
	}()
	return s.Attempt(ctx, q)
}

func (o *Orchestrator) resolved(ctx context.Context, templateID string, q QuestionInput, strategy StrategyName, outcome Outcome) QuestionPromptMatch {
	o.telemetry.RecordQuestionMatched(ctx, templateID, string(strategy))

	o.logger.Debug("question resolved", map[string]interface{}{
		"questionId": q.QuestionID,
		"strategy":   string(strategy),
		"score":      outcome.Score,
	})

	score := outcome.Score
	return QuestionPromptMatch{
		QuestionID:         q.QuestionID,
		QuestionText:       q.QuestionText,
		SelectedPromptText: outcome.PromptText,
		MatchScore:         &score,
		MatchFound:         true,
		StrategyUsed:       strategy,
	}
}

func (o *Orchestrator) unresolved(ctx context.Context, templateID string, q QuestionInput, lastErr error) QuestionPromptMatch {
	o.telemetry.RecordQuestionUnresolved(ctx, templateID)

	match := QuestionPromptMatch{
		QuestionID:   q.QuestionID,
		QuestionText: q.QuestionText,
		MatchFound:   false,
		StrategyUsed: StrategyNone,
	}
	if lastErr != nil {
		match.Error = lastErr.Error()
	}
	return match
}

func (o *Orchestrator) recordStageFailure(ctx context.Context, strategy StrategyName, q QuestionInput, err error) {
	o.telemetry.RecordStageFailure(ctx, string(strategy))
	o.logger.Warn("strategy attempt failed", map[string]interface{}{
		"questionId": q.QuestionID,
		"strategy":   string(strategy),
		"error":      err.Error(),
	})
}
