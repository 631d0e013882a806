package models

import (
	"time"

	"github.com/lib/pq"
)

// TaskRun is one generated session: its trial sequence, the transition
// schedule it was built from, and how far the participant has progressed.
type TaskRun struct {
	ID           string         `gorm:"primaryKey;size:36"`
	Trials       []TrialSpec    `gorm:"serializer:json;type:text"`
	Schedule     pq.StringArray `gorm:"type:text"`
	WarmupTrials int
	NextTrial    int
	IsComplete   bool
	Responses    []TrialResponse `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TotalTrials is the length of the run's sequence.
func (r *TaskRun) TotalTrials() int {
	return len(r.Trials)
}

// CurrentTrial returns the next trial to present, or false once the run is complete.
func (r *TaskRun) CurrentTrial() (TrialSpec, bool) {
	if r.IsComplete || r.NextTrial >= len(r.Trials) {
		return TrialSpec{}, false
	}
	return r.Trials[r.NextTrial], true
}

// TransitionSchedule converts the stored schedule back to transition types.
func (r *TaskRun) TransitionSchedule() []TransitionType {
	out := make([]TransitionType, len(r.Schedule))
	for i, s := range r.Schedule {
		out[i] = TransitionType(s)
	}
	return out
}

// SwitchCostResult holds the processed summary for a completed run.
type SwitchCostResult struct {
	ID             int            `gorm:"primaryKey"`
	RunID          string         `gorm:"uniqueIndex;size:36"`
	SessionSummary `gorm:"embedded"`
	CreatedAt      time.Time
}
