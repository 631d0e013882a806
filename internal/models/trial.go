package models

// TransitionType is the intended relationship of a trial to its predecessor.
type TransitionType string

const (
	TransitionWarmup TransitionType = "warmup"
	TransitionSwitch TransitionType = "switch"
	TransitionRepeat TransitionType = "repeat"
)

// TrialSpec is one scheduled trial handed to the trial runner.
type TrialSpec struct {
	FilePath       string `json:"filePath"`
	CorrectAnswer  string `json:"correctAnswer"`
	StimulusNumber string `json:"stimulusNumber"`
	Congruency     string `json:"congruency"`
}

// Category returns the category of the trial's stimulus.
func (t TrialSpec) Category() Category {
	return CategoryOf(t.StimulusNumber)
}

// TrialSpecFrom copies the fields a trial needs out of a stimulus record.
func TrialSpecFrom(s StimulusRecord) TrialSpec {
	return TrialSpec{
		FilePath:       s.FilePath,
		CorrectAnswer:  s.CorrectAnswer,
		StimulusNumber: s.StimulusNumber,
		Congruency:     s.Congruency,
	}
}
