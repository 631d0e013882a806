// internal/repository/results.go
package repository

import (
	"context"
	"errors"

	"localglobal-go/internal/database"
	"localglobal-go/internal/models"

	"gorm.io/gorm"
)

// SaveSwitchCostResultTx writes the labels back onto the run's responses and
// replaces the run's summary row in a single transaction.
func SaveSwitchCostResultTx(ctx context.Context, runID string, labeled []models.LabeledRecord, summary models.SessionSummary) (*models.SwitchCostResult, error) {
	result := &models.SwitchCostResult{
		RunID:          runID,
		SessionSummary: summary,
	}

	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, lr := range labeled {
			err := tx.Model(&models.TrialResponse{}).
				Where("run_id = ? AND trial_index = ?", runID, i).
				Updates(map[string]interface{}{
					"label":    string(lr.Label),
					"included": lr.IncludedInCalculation,
				}).Error
			if err != nil {
				return err
			}
		}

		if err := tx.Where("run_id = ?", runID).Delete(&models.SwitchCostResult{}).Error; err != nil {
			return err
		}
		return tx.Create(result).Error
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetSwitchCostResult loads the stored summary for a run, or
// ErrResultNotFound before the run has been aggregated.
func GetSwitchCostResult(ctx context.Context, runID string) (*models.SwitchCostResult, error) {
	var result models.SwitchCostResult
	err := database.DB.WithContext(ctx).First(&result, "run_id = ?", runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResultNotFound
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}
