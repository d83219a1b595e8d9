// internal/retrieval/telemetry.go
package retrieval

import "context"

// Telemetry receives fire-and-forget observability events. Implementations
// must not block or fail the chain; a nil sink is replaced with a no-op.
type Telemetry interface {
	RecordQuestionMatched(ctx context.Context, assessmentTemplateID, strategy string)
	RecordQuestionUnresolved(ctx context.Context, assessmentTemplateID string)
	RecordStageFailure(ctx context.Context, strategy string)
}

type noopTelemetry struct{}

func (noopTelemetry) RecordQuestionMatched(context.Context, string, string) {}
func (noopTelemetry) RecordQuestionUnresolved(context.Context, string)      {}
func (noopTelemetry) RecordStageFailure(context.Context, string)            {}
