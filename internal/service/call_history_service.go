package service

import (
	"context"

	"github.com/campusdesk/reception-service/internal/domain"
	"github.com/campusdesk/reception-service/internal/repository"
	apperrors "github.com/campusdesk/reception-service/pkg/util/errorutil"
)

const maxHistoryPage = 200

// CallHistoryService reads finished calls for the staff dashboard.
type CallHistoryService struct {
	logs repository.CallLogRepository
}

// NewCallHistoryService constructs the service.
func NewCallHistoryService(logs repository.CallLogRepository) *CallHistoryService {
	return &CallHistoryService{logs: logs}
}

// ListForStaff pages through the member's calls, newest first.
func (s *CallHistoryService) ListForStaff(ctx context.Context, staffID string, limit, offset int) ([]domain.CallLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > maxHistoryPage {
		limit = maxHistoryPage
	}
	if offset < 0 {
		return nil, apperrors.NewValidationError("offset must not be negative", nil)
	}
	entries, err := s.logs.ListByStaff(ctx, staffID, limit, offset)
	if err != nil {
		return nil, apperrors.NewTransient("call history unavailable", err)
	}
	if entries == nil {
		entries = []domain.CallLogEntry{}
	}
	return entries, nil
}
