package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ClassStatusReader reads the timetable for one member.
type ClassStatusReader interface {
	ReadCurrentClassStatus(ctx context.Context, staffID string) (bool, error)
}

// PresenceTarget receives timetable readings for online staff.
type PresenceTarget interface {
	OnlineStaff() []string
	SetInClass(ctx context.Context, staffID string, inClass bool)
}

// PresenceRefresher keeps the in_class flag of online staff in step with the timetable.
type PresenceRefresher struct {
	target   PresenceTarget
	classes  ClassStatusReader
	interval time.Duration
	logger   *zap.Logger
}

// NewPresenceRefresher builds the refresher. A non-positive interval polls every minute.
func NewPresenceRefresher(target PresenceTarget, classes ClassStatusReader, interval time.Duration, logger *zap.Logger) *PresenceRefresher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &PresenceRefresher{target: target, classes: classes, interval: interval, logger: logger}
}

// Run refreshes on every tick until ctx is cancelled.
func (p *PresenceRefresher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

// Refresh polls every online member once. A failed read leaves that member's flag unchanged.
func (p *PresenceRefresher) Refresh(ctx context.Context) {
	for _, staffID := range p.target.OnlineStaff() {
		if ctx.Err() != nil {
			return
		}
		inClass, err := p.classes.ReadCurrentClassStatus(ctx, staffID)
		if err != nil {
			p.logger.Warn("timetable read failed", zap.String("staff_id", staffID), zap.Error(err))
			continue
		}
		p.target.SetInClass(ctx, staffID, inClass)
	}
}
