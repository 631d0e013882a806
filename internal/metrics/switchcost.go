package metrics

import (
	"math"

	"localglobal-go/internal/models"
)

// Aggregate labels each record against its predecessor and computes the
// session summary. Records must be in presentation order; they are not modified.
func Aggregate(records []models.ResponseRecord) ([]models.LabeledRecord, models.SessionSummary) {
	labeled := make([]models.LabeledRecord, len(records))
	var repeatRTs, switchRTs []float64
	totalCorrect := 0

	for i, curr := range records {
		lr := models.LabeledRecord{
			ResponseRecord: curr,
			Category:       models.CategoryOf(curr.StimulusNumber),
		}

		if i == 0 {
			lr.Label = models.LabelWarmup
		} else {
			prev := records[i-1]
			if lr.Category == models.CategoryOf(prev.StimulusNumber) {
				lr.Label = models.LabelRepeat
			} else {
				lr.Label = models.LabelSwitch
			}

			lr.IncludedInCalculation = curr.IsCorrect == 1 && prev.IsCorrect == 1 && curr.ReactionTimeMs != nil
			if lr.IncludedInCalculation {
				if lr.Label == models.LabelRepeat {
					repeatRTs = append(repeatRTs, *curr.ReactionTimeMs)
				} else {
					switchRTs = append(switchRTs, *curr.ReactionTimeMs)
				}
			}
		}

		totalCorrect += curr.IsCorrect
		labeled[i] = lr
	}

	summary := models.SessionSummary{
		TotalCorrect: totalCorrect,
		TotalTrials:  len(records),
		MeanRepeatRT: roundedMean(repeatRTs),
		MeanSwitchRT: roundedMean(switchRTs),
		RepeatCount:  len(repeatRTs),
		SwitchCount:  len(switchRTs),
	}
	summary.SwitchCost = switchCost(summary.MeanSwitchRT, summary.MeanRepeatRT)

	return labeled, summary
}

// switchCost is zero unless both means were calculated. The difference may be negative.
func switchCost(meanSwitch, meanRepeat int) int {
	if meanSwitch == 0 || meanRepeat == 0 {
		return 0
	}
	return meanSwitch - meanRepeat
}

func roundedMean(values []float64) int {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return int(math.Round(sum / float64(len(values))))
}
