package repository

import (
	"context"
	"errors"

	"localglobal-go/internal/database"
	"localglobal-go/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AppendResponse stores the response for trialIndex and advances the run in
// a single transaction. Responses must arrive in presentation order.
func AppendResponse(ctx context.Context, runID string, trialIndex int, record models.ResponseRecord, feedback string) (*models.TaskRun, error) {
	var run models.TaskRun
	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&run, "id = ?", runID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRunNotFound
		}
		if err != nil {
			return err
		}

		if run.IsComplete {
			return ErrRunComplete
		}
		if trialIndex != run.NextTrial {
			return ErrOutOfOrder
		}

		response := models.TrialResponse{
			RunID:          run.ID,
			TrialIndex:     trialIndex,
			FilePath:       record.FilePath,
			StimulusNumber: record.StimulusNumber,
			CorrectAnswer:  record.CorrectAnswer,
			Congruency:     record.Congruency,
			ResponseValue:  record.ResponseValue,
			ReactionTimeMs: record.ReactionTimeMs,
			IsCorrect:      record.IsCorrect,
			Feedback:       feedback,
		}
		if err := tx.Create(&response).Error; err != nil {
			return err
		}

		run.NextTrial++
		run.IsComplete = run.NextTrial >= len(run.Trials)
		return tx.Model(&run).Updates(map[string]interface{}{
			"next_trial":  run.NextTrial,
			"is_complete": run.IsComplete,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetResponses returns a run's stored responses in presentation order.
func GetResponses(ctx context.Context, runID string) ([]models.TrialResponse, error) {
	var responses []models.TrialResponse
	err := database.DB.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("trial_index").
		Find(&responses).Error
	return responses, err
}

// GetResponseRecords is GetResponses converted to ResponseRecords.
func GetResponseRecords(ctx context.Context, runID string) ([]models.ResponseRecord, error) {
	responses, err := GetResponses(ctx, runID)
	if err != nil {
		return nil, err
	}
	records := make([]models.ResponseRecord, len(responses))
	for i, r := range responses {
		records[i] = r.Record()
	}
	return records, nil
}
