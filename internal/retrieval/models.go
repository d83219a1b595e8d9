// internal/retrieval/models.go
package retrieval

// StrategyName identifies which stage of the fallback chain produced a match.
type StrategyName string

const (
	StrategySimilarity  StrategyName = "similarity"
	StrategyPassthrough StrategyName = "passthrough"
	StrategyDynamic     StrategyName = "dynamic"
	StrategyNone        StrategyName = ""
)

// QuestionInput is a single question submitted for prompt retrieval.
// Immutable once submitted.
type QuestionInput struct {
	QuestionID   string `json:"questionId"`
	QuestionText string `json:"questionText"`
}

// PromptRetrievalInput is a batch of questions for one assessment template.
type PromptRetrievalInput struct {
	AssessmentTemplateID string          `json:"assessmentTemplateId"`
	Questions            []QuestionInput `json:"questions"`
}

// QuestionPromptMatch is the per-question outcome. Exactly one record
// exists per input question.
type QuestionPromptMatch struct {
	QuestionID         string       `json:"questionId"`
	QuestionText       string       `json:"questionText"`
	SelectedPromptText string       `json:"selectedPromptText,omitempty"`
	MatchScore         *float64     `json:"matchScore,omitempty"`
	MatchFound         bool         `json:"matchFound"`
	StrategyUsed       StrategyName `json:"strategyUsed,omitempty"`
	Error              string       `json:"error,omitempty"`
}

// PromptRetrievalOutput holds one match record per input question,
// aligned 1:1 with input order.
type PromptRetrievalOutput struct {
	AssessmentTemplateID string                `json:"assessmentTemplateId"`
	Results              []QuestionPromptMatch `json:"results"`
}
