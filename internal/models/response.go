// internal/models/response.go
package models

import (
	"time"
)

// AnalysisLabel is the post-hoc label assigned to a response.
type AnalysisLabel string

const (
	LabelWarmup AnalysisLabel = "Warmup"
	LabelRepeat AnalysisLabel = "Repeat"
	LabelSwitch AnalysisLabel = "Switch"
)

// ResponseRecord is the outcome of one presented trial. A nil ReactionTimeMs
// means the trial timed out without a response.
type ResponseRecord struct {
	FilePath       string   `json:"filePath,omitempty"`
	StimulusNumber string   `json:"stimulusNumber"`
	CorrectAnswer  string   `json:"correctAnswer"`
	Congruency     string   `json:"congruency,omitempty"`
	ResponseValue  *string  `json:"responseValue"`
	ReactionTimeMs *float64 `json:"reactionTimeMs"`
	IsCorrect      int      `json:"isCorrect"`
}

// LabeledRecord is a response with the labels derived during aggregation.
type LabeledRecord struct {
	ResponseRecord
	Category              Category      `json:"category"`
	Label                 AnalysisLabel `json:"label"`
	IncludedInCalculation bool          `json:"includedInCalculation"`
}

// SessionSummary holds the aggregate switch-cost figures for one session.
type SessionSummary struct {
	TotalCorrect int `json:"totalCorrect"`
	TotalTrials  int `json:"totalTrials"`
	MeanRepeatRT int `json:"meanRepeatRt" gorm:"column:mean_repeat_rt"`
	MeanSwitchRT int `json:"meanSwitchRt" gorm:"column:mean_switch_rt"`
	SwitchCost   int `json:"switchCost"`
	RepeatCount  int `json:"repeatCount"`
	SwitchCount  int `json:"switchCount"`
}

// TrialResponse is the stored form of a ResponseRecord. Label and Included
// are written back once the run has been aggregated.
type TrialResponse struct {
	ID             int     `gorm:"primaryKey"`
	RunID          string  `gorm:"uniqueIndex:idx_run_trial;size:36"`
	TrialIndex     int     `gorm:"uniqueIndex:idx_run_trial"`
	FilePath       string
	StimulusNumber string
	CorrectAnswer  string
	Congruency     string
	ResponseValue  *string
	ReactionTimeMs *float64
	IsCorrect      int
	Feedback       string
	Label          string
	Included       bool
	CreatedAt      time.Time
}

// Record converts the stored row back into a ResponseRecord.
func (r TrialResponse) Record() ResponseRecord {
	return ResponseRecord{
		FilePath:       r.FilePath,
		StimulusNumber: r.StimulusNumber,
		CorrectAnswer:  r.CorrectAnswer,
		Congruency:     r.Congruency,
		ResponseValue:  r.ResponseValue,
		ReactionTimeMs: r.ReactionTimeMs,
		IsCorrect:      r.IsCorrect,
	}
}
