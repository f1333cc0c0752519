package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweepable is the part of the switchboard the sweeper drives.
type Sweepable interface {
	ExpireStale(ctx context.Context, ttl time.Duration) int
	PruneEnded(ctx context.Context, retention time.Duration) int
}

// QueueSweeper periodically expires stale call requests and forgets settled calls.
type QueueSweeper struct {
	target    Sweepable
	interval  time.Duration
	ttl       time.Duration
	retention time.Duration
	logger    *zap.Logger
}

// NewQueueSweeper builds the sweeper. A zero ttl leaves pending requests alone.
func NewQueueSweeper(target Sweepable, interval, ttl, retention time.Duration, logger *zap.Logger) *QueueSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &QueueSweeper{
		target:    target,
		interval:  interval,
		ttl:       ttl,
		retention: retention,
		logger:    logger,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *QueueSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass.
func (s *QueueSweeper) Sweep(ctx context.Context) {
	expired := s.target.ExpireStale(ctx, s.ttl)
	pruned := s.target.PruneEnded(ctx, s.retention)
	if expired > 0 || pruned > 0 {
		s.logger.Info("queue sweep", zap.Int("expired_requests", expired), zap.Int("pruned", pruned))
	}
}
