// internal/repository/run.go
package repository

import (
	"context"
	"errors"
	"time"

	"localglobal-go/internal/database"
	"localglobal-go/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

var (
	ErrRunNotFound    = errors.New("task run not found")
	ErrRunComplete    = errors.New("task run is already complete")
	ErrOutOfOrder     = errors.New("response does not match the next trial")
	ErrResultNotFound = errors.New("switch cost result not found")
)

// CreateRun stores a freshly generated sequence as a new run.
func CreateRun(ctx context.Context, trials []models.TrialSpec, schedule []models.TransitionType, warmupTrials int) (*models.TaskRun, error) {
	stored := make(pq.StringArray, len(schedule))
	for i, s := range schedule {
		stored[i] = string(s)
	}

	run := &models.TaskRun{
		ID:           uuid.NewString(),
		Trials:       trials,
		Schedule:     stored,
		WarmupTrials: warmupTrials,
		IsComplete:   len(trials) == 0,
	}
	if err := database.DB.WithContext(ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

// GetRun loads a run by ID.
func GetRun(ctx context.Context, id string) (*models.TaskRun, error) {
	var run models.TaskRun
	err := database.DB.WithContext(ctx).First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// DeleteRunsBefore removes runs last touched before cutoff, together with
// their responses and results. It returns the number of runs deleted.
func DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&models.TaskRun{}).Where("updated_at < ?", cutoff).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		if err := tx.Where("run_id IN ?", ids).Delete(&models.TrialResponse{}).Error; err != nil {
			return err
		}
		if err := tx.Where("run_id IN ?", ids).Delete(&models.SwitchCostResult{}).Error; err != nil {
			return err
		}
		result := tx.Where("id IN ?", ids).Delete(&models.TaskRun{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}
