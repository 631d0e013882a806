package metrics

import (
	"localglobal-go/internal/models"

	"go.uber.org/zap"
)

// RandSource is the randomness the generator draws from. *rand.Rand from
// math/rand/v2 satisfies it.
type RandSource interface {
	// IntN returns a uniform integer in [0, n). n is always > 0.
	IntN(n int) int
}

// Generator builds counterbalanced trial sequences from a stimulus pool.
type Generator struct {
	rng RandSource
	log *zap.Logger
}

func NewGenerator(rng RandSource, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{rng: rng, log: log}
}

// BuildSchedule returns the intended transition type for each position:
// warmupCount warm-up entries followed by a shuffled, count-balanced mix of
// switches and repeats. An odd remainder gets the extra repeat.
func BuildSchedule(rng RandSource, totalTrials, warmupCount int) []models.TransitionType {
	totalTrials, warmupCount = clampCounts(totalTrials, warmupCount)

	schedule := make([]models.TransitionType, 0, totalTrials)
	for i := 0; i < warmupCount; i++ {
		schedule = append(schedule, models.TransitionWarmup)
	}

	remainder := totalTrials - warmupCount
	switches := remainder / 2
	balanced := make([]models.TransitionType, 0, remainder)
	for i := 0; i < remainder; i++ {
		if i < switches {
			balanced = append(balanced, models.TransitionSwitch)
		} else {
			balanced = append(balanced, models.TransitionRepeat)
		}
	}
	shuffle(rng, balanced)

	return append(schedule, balanced...)
}

// shuffle is a Fisher-Yates pass from the last index down to 1.
func shuffle[T any](rng RandSource, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}

func clampCounts(totalTrials, warmupCount int) (int, int) {
	if totalTrials < 0 {
		totalTrials = 0
	}
	if warmupCount < 0 {
		warmupCount = 0
	}
	if warmupCount > totalTrials {
		warmupCount = totalTrials
	}
	return totalTrials, warmupCount
}

// Generate produces totalTrials trial specs drawn from pool.
func (g *Generator) Generate(pool []models.StimulusRecord, totalTrials, warmupCount int) []models.TrialSpec {
	trials, _ := g.GenerateWithSchedule(pool, totalTrials, warmupCount)
	return trials
}

// GenerateWithSchedule is Generate but also returns the schedule the
// sequence was built against. An empty pool yields no trials.
func (g *Generator) GenerateWithSchedule(pool []models.StimulusRecord, totalTrials, warmupCount int) ([]models.TrialSpec, []models.TransitionType) {
	if len(pool) == 0 {
		g.log.Warn("Sequence generation skipped, stimulus pool is empty")
		return []models.TrialSpec{}, []models.TransitionType{}
	}

	totalTrials, warmupCount = clampCounts(totalTrials, warmupCount)
	schedule := BuildSchedule(g.rng, totalTrials, warmupCount)

	// Pre-split the pool so each pick is a single uniform draw.
	byCategory := map[models.Category][]models.StimulusRecord{}
	for _, s := range pool {
		byCategory[s.Category()] = append(byCategory[s.Category()], s)
	}

	trials := make([]models.TrialSpec, 0, totalTrials)
	var lastCategory models.Category
	deviations := 0

	for i := 0; i < totalTrials; i++ {
		var selected models.StimulusRecord

		// The first trial has no predecessor to switch from or repeat.
		if i < warmupCount || i == 0 {
			selected = pool[g.rng.IntN(len(pool))]
		} else {
			target := lastCategory
			if schedule[i] == models.TransitionSwitch {
				target = lastCategory.Other()
			}

			candidates := byCategory[target]
			if len(candidates) > 0 {
				selected = candidates[g.rng.IntN(len(candidates))]
			} else {
				selected = pool[0]
				deviations++
				g.log.Warn("Target category exhausted, falling back to first stimulus",
					zap.Int("trial", i),
					zap.String("scheduled", string(schedule[i])),
					zap.String("target_category", string(target)),
					zap.String("fallback_stimulus", selected.StimulusNumber),
				)
			}
		}

		lastCategory = selected.Category()
		trials = append(trials, models.TrialSpecFrom(selected))
	}

	g.log.Debug("Trial sequence generated",
		zap.Int("total_trials", totalTrials),
		zap.Int("warmup_trials", warmupCount),
		zap.Int("pool_size", len(pool)),
		zap.Int("schedule_deviations", deviations),
	)
	return trials, schedule
}
