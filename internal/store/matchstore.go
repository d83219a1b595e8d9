// internal/store/matchstore.go
package store

import (
	"context"
	"database/sql"

	"prompt-retrieval/internal/common/errors"
	"prompt-retrieval/internal/common/logger"
	"prompt-retrieval/internal/retrieval"
)

const upsertMatchQuery = `
INSERT INTO question_prompt_matches
    (assessment_template_id, question_id, question_text, selected_prompt_text, match_score, strategy_used, run_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
ON CONFLICT (assessment_template_id, question_id)
DO UPDATE SET
    question_text = EXCLUDED.question_text,
    selected_prompt_text = EXCLUDED.selected_prompt_text,
    match_score = EXCLUDED.match_score,
    strategy_used = EXCLUDED.strategy_used,
    run_id = EXCLUDED.run_id,
    created_at = NOW()`

// MatchStore persists resolved prompt matches so later retrieval runs
// and reporting can see which prompt each question resolved to.
type MatchStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewMatchStore(db *sql.DB, log logger.Logger) *MatchStore {
	return &MatchStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "match-store"}),
	}
}

// SaveMatches upserts every resolved match from one retrieval run in a
// single transaction. Unresolved questions are skipped.
func (s *MatchStore) SaveMatches(ctx context.Context, runID string, output *retrieval.PromptRetrievalOutput) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewDatabaseConnectionFailedError(err)
	}

	stmt, err := tx.PrepareContext(ctx, upsertMatchQuery)
	if err != nil {
		tx.Rollback()
		return errors.NewMatchStoreWriteFailedError(err)
	}
	defer stmt.Close()

	saved := 0
	for _, match := range output.Results {
		if !match.MatchFound {
			continue
		}

		var score sql.NullFloat64
		if match.MatchScore != nil {
			score = sql.NullFloat64{Float64: *match.MatchScore, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			output.AssessmentTemplateID,
			match.QuestionID,
			match.QuestionText,
			match.SelectedPromptText,
			score,
			string(match.StrategyUsed),
			runID,
		); err != nil {
			tx.Rollback()
			return errors.NewMatchStoreWriteFailedError(err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return errors.NewMatchStoreWriteFailedError(err)
	}

	s.logger.Debug("persisted prompt matches", map[string]interface{}{
		"assessmentTemplateId": output.AssessmentTemplateID,
		"runId":                runID,
		"saved":                saved,
	})
	return nil
}
