package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider    *metric.MeterProvider
	matchedQuestions otelmetric.Int64Counter
	unresolvedCount  otelmetric.Int64Counter
	stageFailures    otelmetric.Int64Counter
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	matchedQuestions, _ := meter.Int64Counter(
		"matched_questions_total",
		otelmetric.WithDescription("Number of questions resolved to a prompt"),
	)

	unresolvedCount, _ := meter.Int64Counter(
		"unresolved_questions_total",
		otelmetric.WithDescription("Number of questions with no prompt after all strategies"),
	)

	stageFailures, _ := meter.Int64Counter(
		"strategy_failures_total",
		otelmetric.WithDescription("Number of strategy attempts that failed with an error"),
	)

	return &Observability{
		meterProvider:    provider,
		matchedQuestions: matchedQuestions,
		unresolvedCount:  unresolvedCount,
		stageFailures:    stageFailures,
	}
}

// RecordQuestionMatched counts a question resolved by the named strategy.
func (o *Observability) RecordQuestionMatched(ctx context.Context, assessmentTemplateID, strategy string) {
	if o.matchedQuestions != nil {
		o.matchedQuestions.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("assessment_template_id", assessmentTemplateID),
			attribute.String("strategy", strategy),
		))
	}
}

// RecordQuestionUnresolved counts a question that exhausted all strategies.
func (o *Observability) RecordQuestionUnresolved(ctx context.Context, assessmentTemplateID string) {
	if o.unresolvedCount != nil {
		o.unresolvedCount.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("assessment_template_id", assessmentTemplateID),
		))
	}
}

// RecordStageFailure counts a failed attempt for a single strategy stage.
func (o *Observability) RecordStageFailure(ctx context.Context, strategy string) {
	if o.stageFailures != nil {
		o.stageFailures.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("strategy", strategy),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
