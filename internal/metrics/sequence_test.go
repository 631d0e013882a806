package metrics

import (
	"math/rand/v2"
	"reflect"
	"testing"

	"localglobal-go/internal/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// recordingRand returns 0 for every draw and remembers the bounds it was asked for.
type recordingRand struct {
	calls []int
}

func (r *recordingRand) IntN(n int) int {
	r.calls = append(r.calls, n)
	return 0
}

func referencePool() []models.StimulusRecord {
	var pool []models.StimulusRecord
	answers := []string{"1", "2"}
	for n := 1; n <= 8; n++ {
		num := string(rune('0' + n))
		pool = append(pool, models.StimulusRecord{
			FilePath:       "stimulus/" + num + ".png",
			CorrectAnswer:  answers[n%2],
			StimulusNumber: num,
			Congruency:     "congruent",
		})
	}
	return pool
}

func countTransitions(schedule []models.TransitionType) map[models.TransitionType]int {
	counts := map[models.TransitionType]int{}
	for _, s := range schedule {
		counts[s]++
	}
	return counts
}

func TestBuildSchedule_ReferenceComposition(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		schedule := BuildSchedule(seeded(seed), 40, 2)
		if len(schedule) != 40 {
			t.Fatalf("seed %d: len = %d, want 40", seed, len(schedule))
		}
		for i := 0; i < 2; i++ {
			if schedule[i] != models.TransitionWarmup {
				t.Errorf("seed %d: schedule[%d] = %q, want warmup", seed, i, schedule[i])
			}
		}
		counts := countTransitions(schedule[2:])
		if counts[models.TransitionSwitch] != 19 || counts[models.TransitionRepeat] != 19 || counts[models.TransitionWarmup] != 0 {
			t.Errorf("seed %d: counts = %v, want 19 switch / 19 repeat", seed, counts)
		}
	}
}

func TestBuildSchedule_Counts(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		warmup     int
		wantWarmup int
		wantSwitch int
		wantRepeat int
		wantLen    int
	}{
		{name: "odd remainder", total: 5, warmup: 0, wantSwitch: 2, wantRepeat: 3, wantLen: 5},
		{name: "all warmup", total: 3, warmup: 3, wantWarmup: 3, wantLen: 3},
		{name: "warmup clamped", total: 2, warmup: 7, wantWarmup: 2, wantLen: 2},
		{name: "negative warmup", total: 4, warmup: -1, wantSwitch: 2, wantRepeat: 2, wantLen: 4},
		{name: "empty", total: 0, warmup: 0, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedule := BuildSchedule(seeded(7), tt.total, tt.warmup)
			if len(schedule) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(schedule), tt.wantLen)
			}
			counts := countTransitions(schedule)
			if counts[models.TransitionWarmup] != tt.wantWarmup ||
				counts[models.TransitionSwitch] != tt.wantSwitch ||
				counts[models.TransitionRepeat] != tt.wantRepeat {
				t.Errorf("counts = %v, want warmup=%d switch=%d repeat=%d",
					counts, tt.wantWarmup, tt.wantSwitch, tt.wantRepeat)
			}
		})
	}
}

func TestShuffle_DrawsFromLastIndexDown(t *testing.T) {
	rng := &recordingRand{}
	items := []int{0, 1, 2, 3, 4}
	shuffle(rng, items)

	wantCalls := []int{5, 4, 3, 2}
	if !reflect.DeepEqual(rng.calls, wantCalls) {
		t.Errorf("IntN bounds = %v, want %v", rng.calls, wantCalls)
	}
	// Always swapping with index 0 rotates the slice.
	if want := []int{1, 2, 3, 4, 0}; !reflect.DeepEqual(items, want) {
		t.Errorf("items = %v, want %v", items, want)
	}
}

func TestGenerate_FollowsSchedule(t *testing.T) {
	pool := referencePool()
	for seed := uint64(0); seed < 20; seed++ {
		g := NewGenerator(seeded(seed), zap.NewNop())
		trials, schedule := g.GenerateWithSchedule(pool, 40, 2)

		if len(trials) != 40 {
			t.Fatalf("seed %d: len = %d, want 40", seed, len(trials))
		}
		for i := 2; i < len(trials); i++ {
			same := trials[i].Category() == trials[i-1].Category()
			switch schedule[i] {
			case models.TransitionRepeat:
				if !same {
					t.Errorf("seed %d trial %d: scheduled repeat but category changed", seed, i)
				}
			case models.TransitionSwitch:
				if same {
					t.Errorf("seed %d trial %d: scheduled switch but category repeated", seed, i)
				}
			default:
				t.Errorf("seed %d trial %d: unexpected schedule entry %q", seed, i, schedule[i])
			}
		}
	}
}

func TestGenerate_TrialsComeFromPool(t *testing.T) {
	pool := referencePool()
	known := map[models.TrialSpec]bool{}
	for _, s := range pool {
		known[models.TrialSpecFrom(s)] = true
	}

	trials := NewGenerator(seeded(42), nil).Generate(pool, 40, 2)
	for i, trial := range trials {
		if !known[trial] {
			t.Errorf("trial %d = %+v is not in the pool", i, trial)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	pool := referencePool()
	a := NewGenerator(seeded(3), nil).Generate(pool, 40, 2)
	b := NewGenerator(seeded(3), nil).Generate(pool, 40, 2)
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different sequences")
	}
}

func TestGenerate_FallsBackWhenCategoryExhausted(t *testing.T) {
	pool := []models.StimulusRecord{
		{FilePath: "a.png", CorrectAnswer: "1", StimulusNumber: "2", Congruency: "congruent"},
		{FilePath: "b.png", CorrectAnswer: "2", StimulusNumber: "3", Congruency: "incongruent"},
	}
	core, logs := observer.New(zapcore.WarnLevel)
	g := NewGenerator(seeded(11), zap.New(core))

	trials, schedule := g.GenerateWithSchedule(pool, 40, 2)
	if len(trials) != 40 {
		t.Fatalf("len = %d, want 40", len(trials))
	}

	switches := 0
	for i, trial := range trials {
		if trial.Category() != models.CategoryGlobal {
			t.Errorf("trial %d category = %s, want Global", i, trial.Category())
		}
		if trial.FilePath == "" {
			t.Errorf("trial %d is empty", i)
		}
		if schedule[i] == models.TransitionSwitch {
			switches++
			if want := models.TrialSpecFrom(pool[0]); trial != want {
				t.Errorf("trial %d = %+v, want fallback %+v", i, trial, want)
			}
		}
	}

	if got := logs.FilterMessage("Target category exhausted, falling back to first stimulus").Len(); got != switches {
		t.Errorf("fallback warnings = %d, want %d", got, switches)
	}
}

func TestGenerate_EmptyPool(t *testing.T) {
	trials := NewGenerator(seeded(1), nil).Generate(nil, 40, 2)
	if trials == nil || len(trials) != 0 {
		t.Errorf("trials = %v, want empty non-nil slice", trials)
	}
}

func TestGenerate_NoWarmup(t *testing.T) {
	pool := referencePool()
	trials, schedule := NewGenerator(seeded(5), nil).GenerateWithSchedule(pool, 10, 0)
	if len(trials) != 10 {
		t.Fatalf("len = %d, want 10", len(trials))
	}
	for i := 1; i < len(trials); i++ {
		same := trials[i].Category() == trials[i-1].Category()
		if (schedule[i] == models.TransitionRepeat) != same {
			t.Errorf("trial %d does not match schedule entry %q", i, schedule[i])
		}
	}
}
