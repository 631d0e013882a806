package services

import (
	"context"
	"testing"
	"time"

	"localglobal-go/internal/config"
	"localglobal-go/internal/database"
	"localglobal-go/internal/models"
	"localglobal-go/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func setupDB(t *testing.T) {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver:   "sqlite",
		Path:     "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		LogLevel: "silent",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	previous := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = previous })
}

func TestSweeper_Sweep(t *testing.T) {
	setupDB(t)
	ctx := context.Background()
	trials := []models.TrialSpec{{FilePath: "a.png", CorrectAnswer: "1", StimulusNumber: "1"}}

	run, err := repository.CreateRun(ctx, trials, []models.TransitionType{models.TransitionWarmup}, 1)
	if err != nil {
		t.Fatal(err)
	}

	core, logs := observer.New(zapcore.InfoLevel)
	s := NewSweeper(zap.New(core), time.Minute, time.Hour)

	if n := s.Sweep(ctx); n != 0 {
		t.Errorf("fresh run swept: %d", n)
	}

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if n := s.Sweep(ctx); n != 1 {
		t.Errorf("swept = %d, want 1", n)
	}
	if _, err := repository.GetRun(ctx, run.ID); err == nil {
		t.Error("run should have been deleted")
	}
	if logs.FilterMessage("Deleted expired runs").Len() != 1 {
		t.Error("expected a deletion log entry")
	}
}

func TestSweeper_StartDisabled(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	NewSweeper(zap.New(core), 0, time.Hour).Start(context.Background())
	if logs.FilterMessage("Run retention sweeper disabled").Len() != 1 {
		t.Error("expected the sweeper to report itself disabled")
	}
}
