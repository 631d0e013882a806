package metrics

import (
	"bytes"
	"encoding/csv"
	"reflect"
	"strings"
	"testing"

	"localglobal-go/internal/models"
)

func TestExportRows(t *testing.T) {
	records := []models.ResponseRecord{
		answered("1", 500, 1),
		answered("2", 420.5, 1),
		timedOut("6"),
	}
	labeled, summary := Aggregate(records)
	header, rows := ExportRows(labeled, summary)

	if len(rows) != len(records)+1 {
		t.Fatalf("rows = %d, want %d", len(rows), len(records)+1)
	}
	for i, row := range rows {
		if len(row) != len(header) {
			t.Errorf("row %d has %d cells, want %d", i, len(row), len(header))
		}
	}

	want := []string{"1", "2", "", "Global", "", "1", "1", "420.5", "1", "Repeat", "1"}
	if !reflect.DeepEqual(rows[1], want) {
		t.Errorf("row 1 = %v, want %v", rows[1], want)
	}
	if rows[2][6] != "" || rows[2][7] != "" || rows[2][9] != "Switch" || rows[2][10] != "0" {
		t.Errorf("timeout row = %v", rows[2])
	}

	last := rows[len(rows)-1]
	if last[0] != "summary" || last[1] != "total_correct=2" || last[3] != "mean_repeat_rt=421" {
		t.Errorf("summary row = %v", last)
	}
}

func TestWriteCSV_ReadBack(t *testing.T) {
	records := []models.ResponseRecord{
		answered("1", 500, 1),
		answered("5", 610, 1),
		timedOut("6"),
		answered("7", 433, 0),
	}
	labeled, summary := Aggregate(records)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, labeled, summary); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	parsed, err := ReadResponsesCSV(&buf)
	if err != nil {
		t.Fatalf("ReadResponsesCSV: %v", err)
	}
	if !reflect.DeepEqual(parsed, records) {
		t.Errorf("parsed = %+v, want %+v", parsed, records)
	}

	_, again := Aggregate(parsed)
	if again != summary {
		t.Errorf("re-aggregated summary = %+v, want %+v", again, summary)
	}
}

func TestReadResponsesCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "missing column", input: "stimulus_number,rt\n1,500\n"},
		{name: "bad rt", input: strings.Join(ExportHeader, ",") + "\n0,1,,Global,,1,1,fast,1,Warmup,0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadResponsesCSV(strings.NewReader(tt.input)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReadResponsesCSV_Empty(t *testing.T) {
	records, err := ReadResponsesCSV(strings.NewReader(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %v, want none", records)
	}
}

func TestWriteCSV_IsValidCSV(t *testing.T) {
	labeled, summary := Aggregate([]models.ResponseRecord{answered("1", 500, 1)})
	var buf bytes.Buffer
	if err := WriteCSV(&buf, labeled, summary); err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if !reflect.DeepEqual(rows[0], ExportHeader) {
		t.Errorf("header = %v", rows[0])
	}
}
