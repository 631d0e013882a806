// internal/repository/charts.go
package repository

import (
	"context"

	"localglobal-go/internal/database"
)

// TrialRTPoint is one answered trial for the reaction-time chart.
type TrialRTPoint struct {
	TrialIndex     int     `json:"trialIndex"`
	ReactionTimeMs float64 `json:"reactionTimeMs"`
	Label          string  `json:"label"`
	Included       bool    `json:"included"`
}

// GetTrialRTSeries returns the reaction times of a run's answered trials in
// presentation order. Labels are empty until the run has been aggregated.
func GetTrialRTSeries(ctx context.Context, runID string) ([]TrialRTPoint, error) {
	var data []TrialRTPoint
	query := `
		SELECT
			trial_index,
			reaction_time_ms,
			label,
			included
		FROM trial_responses
		WHERE run_id = ? AND reaction_time_ms IS NOT NULL
		ORDER BY trial_index;
	`
	err := database.DB.WithContext(ctx).Raw(query, runID).Scan(&data).Error
	return data, err
}
