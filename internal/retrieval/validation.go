// internal/retrieval/validation.go
package retrieval

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput marks a malformed request rejected before any stage work.
var ErrInvalidInput = errors.New("invalid prompt retrieval input")

func validateInput(input PromptRetrievalInput) error {
	if len(input.Questions) == 0 {
		return fmt.Errorf("%w: question list is empty", ErrInvalidInput)
	}

	seen := make(map[string]struct{}, len(input.Questions))
	for i, q := range input.Questions {
		if strings.TrimSpace(q.QuestionID) == "" {
			return fmt.Errorf("%w: question at index %d has empty questionId", ErrInvalidInput, i)
		}
		if strings.TrimSpace(q.QuestionText) == "" {
			return fmt.Errorf("%w: question %q has empty questionText", ErrInvalidInput, q.QuestionID)
		}
		if _, dup := seen[q.QuestionID]; dup {
			return fmt.Errorf("%w: duplicate questionId %q", ErrInvalidInput, q.QuestionID)
		}
		seen[q.QuestionID] = struct{}{}
	}

	return nil
}
