// internal/workers/retrieval/retrieve-prompts/models.go
package retrieveprompts

import "prompt-retrieval/internal/retrieval"

type Input struct {
	AssessmentTemplateID string                    `json:"assessmentTemplateId"`
	Questions            []retrieval.QuestionInput `json:"questions"`
}

type Output struct {
	AssessmentTemplateID string                          `json:"assessmentTemplateId"`
	RunID                string                          `json:"runId"`
	Results              []retrieval.QuestionPromptMatch `json:"results"`
	MatchedCount         int                             `json:"matchedCount"`
	UnresolvedCount      int                             `json:"unresolvedCount"`
}

// inputSchema validates job variables before any stage work starts.
var inputSchema = map[string]interface{}{
	"type":     "object",
	"required": []string{"assessmentTemplateId", "questions"},
	"properties": map[string]interface{}{
		"assessmentTemplateId": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
		"questions": map[string]interface{}{
			"type":     "array",
			"minItems": 1,
			"items": map[string]interface{}{
				"type":     "object",
				"required": []string{"questionId", "questionText"},
				"properties": map[string]interface{}{
					"questionId":   map[string]interface{}{"type": "string", "minLength": 1},
					"questionText": map[string]interface{}{"type": "string", "minLength": 1},
				},
			},
		},
	},
}
