package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"localglobal-go/internal/config"
	"localglobal-go/internal/metrics"
	"localglobal-go/internal/models"
)

const stimulusCSV = "../../config/local_global_mixed.csv"

func execute(t *testing.T, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out.String())
	}
	return out.Bytes()
}

func TestGenerate_Deterministic(t *testing.T) {
	args := []string{"generate", "--seed", "42", "--total", "40", "--warmup", "2", "--stimuli", stimulusCSV}
	first := execute(t, args...)
	second := execute(t, args...)
	if !bytes.Equal(first, second) {
		t.Fatal("same seed produced different sequences")
	}

	var seq generatedSequence
	if err := json.Unmarshal(first, &seq); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, first)
	}
	if seq.Seed != 42 || len(seq.Trials) != 40 || len(seq.Schedule) != 40 {
		t.Errorf("seed=%d trials=%d schedule=%d", seq.Seed, len(seq.Trials), len(seq.Schedule))
	}
	for i := 2; i < len(seq.Trials); i++ {
		same := seq.Trials[i].Category() == seq.Trials[i-1].Category()
		if same != (seq.Schedule[i] == models.TransitionRepeat) {
			t.Errorf("trial %d breaks its %s transition", i, seq.Schedule[i])
		}
	}
}

func TestAnalyze(t *testing.T) {
	ms := func(v float64) *float64 { return &v }
	one, two := "1", "2"
	records := []models.ResponseRecord{
		{StimulusNumber: "1", CorrectAnswer: "1", ResponseValue: &one, ReactionTimeMs: ms(450), IsCorrect: 1},
		{StimulusNumber: "2", CorrectAnswer: "2", ResponseValue: &two, ReactionTimeMs: ms(500), IsCorrect: 1},
		{StimulusNumber: "6", CorrectAnswer: "1", ResponseValue: &one, ReactionTimeMs: ms(800), IsCorrect: 1},
	}
	labeled, summary := metrics.Aggregate(records)

	path := filepath.Join(t.TempDir(), "results.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := metrics.WriteCSV(f, labeled, summary); err != nil {
		t.Fatal(err)
	}
	f.Close()

	out := execute(t, "analyze", "--json", "--out", "", path)
	var got models.SessionSummary
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if got != summary {
		t.Errorf("summary = %+v, want %+v", got, summary)
	}
	if got.MeanRepeatRT != 500 || got.MeanSwitchRT != 800 || got.SwitchCost != 300 {
		t.Errorf("unexpected figures %+v", got)
	}
}

func TestGenerate_UsesConfiguredStimulusDir(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "data"), 0o755); err != nil {
		t.Fatal(err)
	}
	body := "h1,h2,h3,h4,h5,h6,h7\n" +
		"blue,a,stimulus/only-global.png,1,mixed,2,congruent\n" +
		"green,b,stimulus/only-local.png,2,mixed,7,congruent\n"
	if err := os.WriteFile(filepath.Join(root, "data", models.DefaultProtocol().StimulusFile), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LGT_TASK_STIMULUS_DIR", "data")

	out := execute(t, "generate", "--root", root, "--stimuli", "", "--seed", "3", "--total", "6", "--warmup", "1")
	var seq generatedSequence
	if err := json.Unmarshal(out, &seq); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(seq.Trials) != 6 {
		t.Fatalf("trials = %d, want 6", len(seq.Trials))
	}
	for _, trial := range seq.Trials {
		if trial.FilePath != "stimulus/only-global.png" && trial.FilePath != "stimulus/only-local.png" {
			t.Errorf("trial %s did not come from the configured stimulus dir", trial.FilePath)
		}
	}
}

func TestStimulusFile(t *testing.T) {
	previous := projectRootFlag
	projectRootFlag = "/srv/task"
	t.Cleanup(func() { projectRootFlag = previous })

	got := stimulusFile(config.TaskConfig{StimulusDir: "stimuli"}, &models.Protocol{StimulusFile: "mixed.csv"})
	if want := filepath.Join("/srv/task", "stimuli", "mixed.csv"); got != want {
		t.Errorf("stimulusFile = %q, want %q", got, want)
	}
}
