package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campusdesk/reception-service/internal/repository"
	apperrors "github.com/campusdesk/reception-service/pkg/util/errorutil"
)

// TimetableService answers whether a member is currently teaching. Readings are
// cached in Redis so the presence refresher does not hit Postgres on every tick.
type TimetableService struct {
	slots  repository.TimetableRepository
	cache  *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewTimetableService constructs the service. A nil cache or a zero ttl reads
// straight from the repository.
func NewTimetableService(slots repository.TimetableRepository, cache *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *TimetableService {
	return &TimetableService{
		slots:  slots,
		cache:  cache,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// ReadCurrentClassStatus reports whether staffID has a timetable slot covering now.
func (s *TimetableService) ReadCurrentClassStatus(ctx context.Context, staffID string) (bool, error) {
	key := s.cacheKey(staffID)
	if s.cacheEnabled() {
		val, err := s.cache.Get(ctx, key).Result()
		switch {
		case err == nil:
			return val == "1", nil
		case errors.Is(err, redis.Nil):
		default:
			s.logger.Warn("timetable cache read failed", zap.String("staff_id", staffID), zap.Error(err))
		}
	}

	slot, err := s.slots.CurrentSlot(ctx, staffID, s.now())
	if err != nil {
		return false, apperrors.NewTransient("timetable unavailable", err)
	}
	inClass := slot != nil

	if s.cacheEnabled() {
		val := "0"
		if inClass {
			val = "1"
		}
		if err := s.cache.Set(ctx, key, val, s.ttl).Err(); err != nil {
			s.logger.Warn("timetable cache write failed", zap.String("staff_id", staffID), zap.Error(err))
		}
	}
	return inClass, nil
}

// Invalidate drops the cached reading for staffID.
func (s *TimetableService) Invalidate(ctx context.Context, staffID string) error {
	if !s.cacheEnabled() {
		return nil
	}
	return s.cache.Del(ctx, s.cacheKey(staffID)).Err()
}

func (s *TimetableService) cacheEnabled() bool {
	return s.cache != nil && s.ttl > 0
}

func (s *TimetableService) cacheKey(staffID string) string {
	return fmt.Sprintf("%s:timetable:%s", s.prefix, staffID)
}
