// protocol.go
package models

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// InstructionPage is one screen shown before the task starts.
type InstructionPage struct {
	Title  string `yaml:"title" json:"title"`
	Body   string `yaml:"body" json:"body"`
	Button string `yaml:"button" json:"button"`
}

// Timing holds the per-trial phase durations in milliseconds.
type Timing struct {
	FixationMs int `yaml:"fixation_ms" json:"fixationMs"`
	StimulusMs int `yaml:"stimulus_ms" json:"stimulusMs"`
	FeedbackMs int `yaml:"feedback_ms" json:"feedbackMs"`
}

// Protocol struct to match the task.yaml structure
type Protocol struct {
	Name         string            `yaml:"name"`
	StimulusFile string            `yaml:"stimulus_file"`
	TotalTrials  int               `yaml:"total_trials"`
	WarmupTrials int               `yaml:"warmup_trials"`
	Choices      []string          `yaml:"choices"`
	Timing       Timing            `yaml:"timing"`
	Instructions []InstructionPage `yaml:"instructions"`
	Preload      []string          `yaml:"preload"`
}

// DefaultProtocol returns the reference session configuration.
func DefaultProtocol() *Protocol {
	return &Protocol{
		Name:         "Local-Global Task",
		StimulusFile: "local_global_mixed.csv",
		TotalTrials:  40,
		WarmupTrials: 2,
		Choices:      []string{"S", "H"},
		Timing: Timing{
			FixationMs: 500,
			StimulusMs: 4000,
			FeedbackMs: 200,
		},
	}
}

// LoadProtocol reads and parses the task.yaml file. Fields missing from the
// file keep their DefaultProtocol values.
func LoadProtocol(path string) (*Protocol, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read protocol file: %w", err)
	}

	protocol := DefaultProtocol()
	if err := yaml.Unmarshal(data, protocol); err != nil {
		return nil, fmt.Errorf("failed to unmarshal protocol YAML: %w", err)
	}

	if err := protocol.Validate(); err != nil {
		return nil, fmt.Errorf("invalid protocol %s: %w", path, err)
	}
	return protocol, nil
}

// Validate checks the trial counts and response choices.
func (p *Protocol) Validate() error {
	switch {
	case p.TotalTrials <= 0:
		return errors.New("total_trials must be positive")
	case p.WarmupTrials < 0 || p.WarmupTrials > p.TotalTrials:
		return fmt.Errorf("warmup_trials must be between 0 and %d", p.TotalTrials)
	case len(p.Choices) != 2:
		return fmt.Errorf("exactly two choices are required, got %d", len(p.Choices))
	case p.Timing.StimulusMs <= 0:
		return errors.New("timing.stimulus_ms must be positive")
	}
	return nil
}
