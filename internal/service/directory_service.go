package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/campusdesk/reception-service/internal/domain"
	"github.com/campusdesk/reception-service/internal/repository"
	apperrors "github.com/campusdesk/reception-service/pkg/util/errorutil"
)

// DirectoryService answers identity questions from the staff table.
type DirectoryService struct {
	staff  repository.StaffRepository
	logger *zap.Logger
}

// NewDirectoryService constructs the service.
func NewDirectoryService(staff repository.StaffRepository, logger *zap.Logger) *DirectoryService {
	return &DirectoryService{staff: staff, logger: logger}
}

// ResolveIdentity returns the active member addressed by identifier, or nil.
func (d *DirectoryService) ResolveIdentity(ctx context.Context, identifier string) (*domain.StaffMember, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, nil
	}
	member, err := d.staff.FindByIdentifier(ctx, identifier)
	if err != nil {
		return nil, apperrors.NewTransient("staff directory unavailable", err)
	}
	if member != nil {
		d.logger.Debug("identity resolved from directory", zap.String("identifier", identifier), zap.String("staff_id", member.ID))
	}
	return member, nil
}

// LoadAll returns every active member for the startup sync.
func (d *DirectoryService) LoadAll(ctx context.Context) ([]domain.StaffMember, error) {
	members, err := d.staff.ListActive(ctx)
	if err != nil {
		return nil, apperrors.NewTransient("staff directory unavailable", err)
	}
	return members, nil
}
