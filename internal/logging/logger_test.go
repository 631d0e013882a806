package logger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"localglobal-go/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestInit_WritesPerLevelFiles(t *testing.T) {
	root := t.TempDir()
	log, err := Init(root, config.LoggingConfig{Directory: "logs", MaxSize: 1, MaxBackups: 1, MaxAge: 1})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	log.Warn("schedule deviation", zap.Int("trial", 3))
	log.Error("write failed")
	_ = log.Sync()

	entries, err := os.ReadDir(filepath.Join(root, "logs"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	found := map[string]bool{}
	for _, e := range entries {
		for _, level := range []string{"warn", "error"} {
			if strings.HasSuffix(e.Name(), "-"+level+".log") {
				found[level] = true
			}
		}
	}
	if !found["warn"] || !found["error"] {
		t.Errorf("log files = %v, want warn and error files", entries)
	}
}

func TestParseGormLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"silent":  logger.Silent,
		"ERROR":   logger.Error,
		"info":    logger.Info,
		"warn":    logger.Warn,
		"unknown": logger.Warn,
	}
	for in, want := range tests {
		if got := ParseGormLevel(in); got != want {
			t.Errorf("ParseGormLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestGormZapLogger_Trace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormZapLogger(zap.New(core)).LogMode(logger.Info)
	query := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), query, errors.New("boom"))
	l.Trace(context.Background(), time.Now(), query, gorm.ErrRecordNotFound)
	l.Trace(context.Background(), time.Now().Add(-time.Second), query, nil)

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	if entries[0].Level != zapcore.ErrorLevel {
		t.Errorf("error trace level = %v", entries[0].Level)
	}
	if entries[1].Level != zapcore.InfoLevel {
		t.Errorf("record-not-found trace level = %v, want info", entries[1].Level)
	}
	if entries[2].Level != zapcore.WarnLevel {
		t.Errorf("slow trace level = %v, want warn", entries[2].Level)
	}
}

func TestGormZapLogger_Silent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormZapLogger(zap.New(core)).LogMode(logger.Silent)
	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT 1", 0 }, errors.New("boom"))
	l.Info(context.Background(), "hello %s", "world")
	if logs.Len() != 0 {
		t.Errorf("silent logger wrote %d entries", logs.Len())
	}
}

func TestGormZapLogger_RunID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormZapLogger(zap.New(core)).LogMode(logger.Info)
	query := func() (string, int64) { return "SELECT * FROM task_runs", 1 }

	ctx := WithRunID(context.Background(), "run-7")
	l.Trace(ctx, time.Now(), query, errors.New("boom"))
	l.Warn(ctx, "retrying %d", 2)
	l.Trace(context.Background(), time.Now(), query, nil)

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	for _, e := range entries[:2] {
		if got := e.ContextMap()["run_id"]; got != "run-7" {
			t.Errorf("%q run_id = %v, want run-7", e.Message, got)
		}
	}
	if entries[0].ContextMap()["error"] != "boom" {
		t.Errorf("failed query fields = %v", entries[0].ContextMap())
	}
	if entries[1].Message != "retrying 2" {
		t.Errorf("warn message = %q", entries[1].Message)
	}
	if _, ok := entries[2].ContextMap()["run_id"]; ok {
		t.Error("query without a run carries run_id")
	}
}

func TestRunIDFromContext(t *testing.T) {
	if _, ok := RunIDFromContext(context.Background()); ok {
		t.Error("empty context has a run ID")
	}
	if _, ok := RunIDFromContext(WithRunID(context.Background(), "")); ok {
		t.Error("blank run ID reported as present")
	}
	if id, ok := RunIDFromContext(WithRunID(context.Background(), "abc")); !ok || id != "abc" {
		t.Errorf("RunIDFromContext = %q, %v", id, ok)
	}
}
