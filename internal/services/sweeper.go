package services

import (
	"context"
	"time"

	"localglobal-go/internal/repository"

	"go.uber.org/zap"
)

// Sweeper periodically deletes runs that have not been touched within maxAge.
type Sweeper struct {
	log      *zap.Logger
	interval time.Duration
	maxAge   time.Duration
	now      func() time.Time
}

func NewSweeper(log *zap.Logger, interval, maxAge time.Duration) *Sweeper {
	return &Sweeper{
		log:      log,
		interval: interval,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Start runs the sweeper in a goroutine until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	if s.interval <= 0 || s.maxAge <= 0 {
		s.log.Info("Run retention sweeper disabled")
		return
	}

	s.log.Info("Starting run retention sweeper...",
		zap.Duration("interval", s.interval),
		zap.Duration("max_age", s.maxAge),
	)
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.log.Info("Run retention sweeper stopped")
				return
			case <-ticker.C:
				s.Sweep(ctx)
			}
		}
	}()
}

// Sweep performs one retention pass and returns the number of runs removed.
func (s *Sweeper) Sweep(ctx context.Context) int64 {
	cutoff := s.now().Add(-s.maxAge)
	s.log.Debug("Running retention sweep", zap.Time("cutoff", cutoff))

	deleted, err := repository.DeleteRunsBefore(ctx, cutoff)
	if err != nil {
		s.log.Error("Failed to delete expired runs", zap.Error(err))
		return 0
	}
	if deleted > 0 {
		s.log.Info("Deleted expired runs", zap.Int64("count", deleted))
	}
	return deleted
}
