// internal/models/stimulus.go
package models

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrNoStimuli is returned when a stimulus source yields no usable rows.
	ErrNoStimuli = errors.New("no stimuli loaded")
	// ErrInvalidStimulus wraps a row whose stimulus number or correct answer
	// is outside the stimulus set.
	ErrInvalidStimulus = errors.New("invalid stimulus row")
)

// Category is the coarse grouping a stimulus number belongs to.
type Category string

const (
	CategoryGlobal Category = "Global"
	CategoryLocal  Category = "Local"
)

// Other returns the opposite category.
func (c Category) Other() Category {
	if c == CategoryGlobal {
		return CategoryLocal
	}
	return CategoryGlobal
}

// CategoryOf maps a stimulus number to its category. Numbers 1-4 are Global,
// everything else is Local.
func CategoryOf(stimulusNumber string) Category {
	switch strings.TrimSpace(stimulusNumber) {
	case "1", "2", "3", "4":
		return CategoryGlobal
	default:
		return CategoryLocal
	}
}

// StimulusRecord is one row of the stimulus list.
type StimulusRecord struct {
	FrameType      string `json:"frameType,omitempty"`
	Stimulus       string `json:"stimulus,omitempty"`
	FilePath       string `json:"filePath"`
	CorrectAnswer  string `json:"correctAnswer"`
	BlockType      string `json:"blockType,omitempty"`
	StimulusNumber string `json:"stimulusNumber"`
	Congruency     string `json:"congruency"`
}

// Category returns the category derived from the stimulus number.
func (s StimulusRecord) Category() Category {
	return CategoryOf(s.StimulusNumber)
}

// Column order of the stimulus CSV. The header row is skipped, not matched.
const (
	colFrameType = iota
	colStimulus
	colFilePath
	colCorrectAnswer
	colBlockType
	colStimulusNumber
	colCongruency
)

// LoadStimuli reads and parses the stimulus CSV file.
func LoadStimuli(path string) ([]StimulusRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open stimulus file: %w", err)
	}
	defer f.Close()

	stimuli, err := ParseStimuli(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stimulus file %s: %w", path, err)
	}
	return stimuli, nil
}

// ParseStimuli parses stimulus rows from r. Rows without a file path are
// dropped; any other row must carry a stimulus number 1-8 and a correct
// answer of "1" or "2", otherwise parsing fails with ErrInvalidStimulus.
func ParseStimuli(r io.Reader) ([]StimulusRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return nil, ErrNoStimuli
	}

	var stimuli []StimulusRecord
	for i, row := range rows[1:] {
		s := StimulusRecord{
			FrameType:      field(row, colFrameType),
			Stimulus:       field(row, colStimulus),
			FilePath:       field(row, colFilePath),
			CorrectAnswer:  field(row, colCorrectAnswer),
			BlockType:      field(row, colBlockType),
			StimulusNumber: field(row, colStimulusNumber),
			Congruency:     field(row, colCongruency),
		}
		if s.FilePath == "" {
			continue
		}
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		stimuli = append(stimuli, s)
	}

	if len(stimuli) == 0 {
		return nil, ErrNoStimuli
	}
	return stimuli, nil
}

func (s StimulusRecord) validate() error {
	switch s.StimulusNumber {
	case "1", "2", "3", "4", "5", "6", "7", "8":
	default:
		return fmt.Errorf("%w: stimulus number %q for %s", ErrInvalidStimulus, s.StimulusNumber, s.FilePath)
	}
	if s.CorrectAnswer != "1" && s.CorrectAnswer != "2" {
		return fmt.Errorf("%w: correct answer %q for %s", ErrInvalidStimulus, s.CorrectAnswer, s.FilePath)
	}
	return nil
}

func field(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	v := strings.TrimSpace(row[i])
	if i == 0 {
		v = strings.TrimPrefix(v, "\uFEFF")
	}
	return v
}

// MissingAssets returns the stimulus image paths that do not exist under
// assetDir, in pool order without duplicates.
func MissingAssets(stimuli []StimulusRecord, assetDir string) []string {
	seen := make(map[string]bool, len(stimuli))
	var missing []string
	for _, s := range stimuli {
		if seen[s.FilePath] {
			continue
		}
		seen[s.FilePath] = true
		if _, err := os.Stat(filepath.Join(assetDir, filepath.FromSlash(s.FilePath))); err != nil {
			missing = append(missing, s.FilePath)
		}
	}
	return missing
}
