package metrics

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"localglobal-go/internal/models"
)

// ExportHeader is the column layout of the exported trial table.
var ExportHeader = []string{
	"trial_index",
	"stimulus_number",
	"file_path",
	"analysis_set",
	"congruency",
	"correct_answer",
	"response_value",
	"rt",
	"is_correct",
	"analysis_label",
	"calculation_inclusion",
}

// summaryMarker is written in the trial_index column of the summary row.
const summaryMarker = "summary"

// ExportRows flattens labeled records into one row per trial, followed by a
// summary row holding the SessionSummary fields as key=value cells.
func ExportRows(labeled []models.LabeledRecord, summary models.SessionSummary) ([]string, [][]string) {
	rows := make([][]string, 0, len(labeled)+1)
	for i, lr := range labeled {
		responseValue, rt := "", ""
		if lr.ResponseValue != nil {
			responseValue = *lr.ResponseValue
		}
		if lr.ReactionTimeMs != nil {
			rt = strconv.FormatFloat(*lr.ReactionTimeMs, 'f', -1, 64)
		}
		inclusion := "0"
		if lr.IncludedInCalculation {
			inclusion = "1"
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			lr.StimulusNumber,
			lr.FilePath,
			string(lr.Category),
			lr.Congruency,
			lr.CorrectAnswer,
			responseValue,
			rt,
			strconv.Itoa(lr.IsCorrect),
			string(lr.Label),
			inclusion,
		})
	}

	summaryRow := make([]string, len(ExportHeader))
	summaryRow[0] = summaryMarker
	cells := []string{
		fmt.Sprintf("total_correct=%d", summary.TotalCorrect),
		fmt.Sprintf("total_trials=%d", summary.TotalTrials),
		fmt.Sprintf("mean_repeat_rt=%d", summary.MeanRepeatRT),
		fmt.Sprintf("mean_switch_rt=%d", summary.MeanSwitchRT),
		fmt.Sprintf("switch_cost=%d", summary.SwitchCost),
		fmt.Sprintf("repeat_count=%d", summary.RepeatCount),
		fmt.Sprintf("switch_count=%d", summary.SwitchCount),
	}
	copy(summaryRow[1:], cells)
	rows = append(rows, summaryRow)

	return ExportHeader, rows
}

// WriteCSV writes the export table to w.
func WriteCSV(w io.Writer, labeled []models.LabeledRecord, summary models.SessionSummary) error {
	header, rows := ExportRows(labeled, summary)
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write export rows: %w", err)
	}
	return nil
}

// ReadResponsesCSV parses a table written by WriteCSV back into response
// records, in file order. The summary row and derived columns are ignored.
func ReadResponsesCSV(r io.Reader) ([]models.ResponseRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	if len(rows) == 0 {
		return []models.ResponseRecord{}, nil
	}

	index := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		index[name] = i
	}
	for _, required := range []string{"stimulus_number", "correct_answer", "response_value", "rt", "is_correct"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("export is missing column %q", required)
		}
	}

	get := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	records := make([]models.ResponseRecord, 0, len(rows)-1)
	for line, row := range rows[1:] {
		if len(row) > 0 && row[0] == summaryMarker {
			continue
		}

		record := models.ResponseRecord{
			StimulusNumber: get(row, "stimulus_number"),
			FilePath:       get(row, "file_path"),
			Congruency:     get(row, "congruency"),
			CorrectAnswer:  get(row, "correct_answer"),
		}
		if v := get(row, "response_value"); v != "" {
			record.ResponseValue = &v
		}
		if v := get(row, "rt"); v != "" {
			rt, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid rt %q: %w", line+2, v, err)
			}
			record.ReactionTimeMs = &rt
		}
		if get(row, "is_correct") == "1" {
			record.IsCorrect = 1
		}
		records = append(records, record)
	}
	return records, nil
}
