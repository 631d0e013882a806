package metrics

import (
	"localglobal-go/internal/models"
)

// FeedbackIncorrect is the marker shown after an incorrect or missed trial.
const FeedbackIncorrect = "X"

// MapResponse converts a button index to the domain response value:
// 0 -> "1", anything else -> "2".
func MapResponse(button int) string {
	if button == 0 {
		return "1"
	}
	return "2"
}

// Classify turns a raw button press into a ResponseRecord for trial. A nil
// button or nil reaction time is a timeout and is never correct.
func Classify(button *int, reactionTimeMs *float64, trial models.TrialSpec) models.ResponseRecord {
	record := models.ResponseRecord{
		FilePath:       trial.FilePath,
		StimulusNumber: trial.StimulusNumber,
		CorrectAnswer:  trial.CorrectAnswer,
		Congruency:     trial.Congruency,
	}

	if button == nil || reactionTimeMs == nil {
		return record
	}

	value := MapResponse(*button)
	rt := *reactionTimeMs
	record.ResponseValue = &value
	record.ReactionTimeMs = &rt
	if value == trial.CorrectAnswer {
		record.IsCorrect = 1
	}
	return record
}

// Feedback returns the marker to display after record, empty when correct.
func Feedback(record models.ResponseRecord) string {
	if record.IsCorrect == 1 {
		return ""
	}
	return FeedbackIncorrect
}
