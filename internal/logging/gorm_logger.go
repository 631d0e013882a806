package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// slowQueryThreshold is the duration above which a query is logged as slow.
const slowQueryThreshold = 200 * time.Millisecond

type runIDKey struct{}

// WithRunID returns a context whose database log lines carry the task run ID.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the task run ID stored by WithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) {
	runID, ok := ctx.Value(runIDKey{}).(string)
	return runID, ok && runID != ""
}

// GormZapLogger writes GORM messages and query traces to zap. Queries made
// on behalf of a task run are tagged with its run_id.
type GormZapLogger struct {
	ZapLogger *zap.Logger
	LogLevel  logger.LogLevel
}

func NewGormZapLogger(zapLogger *zap.Logger) *GormZapLogger {
	return &GormZapLogger{
		ZapLogger: zapLogger.Named("gorm"),
		LogLevel:  logger.Warn,
	}
}

// ParseGormLevel maps a config string to a GORM log level. Unknown values
// fall back to Warn.
func ParseGormLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func (l *GormZapLogger) LogMode(level logger.LogLevel) logger.Interface {
	copied := *l
	copied.LogLevel = level
	return &copied
}

func (l *GormZapLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, logger.Info, msg, data)
}

func (l *GormZapLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, logger.Warn, msg, data)
}

func (l *GormZapLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, logger.Error, msg, data)
}

func (l *GormZapLogger) message(ctx context.Context, level logger.LogLevel, format string, data []interface{}) {
	if l.LogLevel < level {
		return
	}
	log := l.ZapLogger.With(contextFields(ctx)...)
	msg := fmt.Sprintf(format, data...)
	switch level {
	case logger.Error:
		log.Error(msg)
	case logger.Warn:
		log.Warn(msg)
	default:
		log.Info(msg)
	}
}

// Trace logs failed queries at error, slow queries at warn and, at the Info
// level, every other query. Record-not-found is not treated as a failure.
func (l *GormZapLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.LogLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := elapsed > slowQueryThreshold

	var write func(string, ...zap.Field)
	msg := "Query"
	switch {
	case failed && l.LogLevel >= logger.Error:
		write, msg = l.ZapLogger.Error, "Query failed"
	case slow && l.LogLevel >= logger.Warn:
		write, msg = l.ZapLogger.Warn, "Slow query"
	case l.LogLevel >= logger.Info:
		write = l.ZapLogger.Info
	default:
		return
	}

	sql, rows := fc()
	fields := append(contextFields(ctx),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	)
	if failed {
		fields = append(fields, zap.Error(err))
	}
	write(msg, fields...)
}

func contextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	if runID, ok := RunIDFromContext(ctx); ok {
		return []zap.Field{zap.String("run_id", runID)}
	}
	return nil
}
