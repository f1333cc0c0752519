package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campusdesk/reception-service/internal/auth"
	"github.com/campusdesk/reception-service/internal/config"
	"github.com/campusdesk/reception-service/internal/domain"
	"github.com/campusdesk/reception-service/internal/repository"
	apperrors "github.com/campusdesk/reception-service/pkg/util/errorutil"
)

// AuthService coordinates staff login and visitor token issuance.
type AuthService struct {
	staff      repository.StaffRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, staff repository.StaffRepository) *AuthService {
	return &AuthService{
		staff:      staff,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes, cfg.Auth.VisitorTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// VerifyCredentials looks the member up by email or short code and checks the
// password. Every mismatch is reported as the same Unauthorized error.
func (s *AuthService) VerifyCredentials(ctx context.Context, identifier, password string) (*domain.StaffMember, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	staff, err := s.findForLogin(ctx, identifier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.NewTransient("staff directory unavailable", err)
	}
	if !staff.Active {
		return nil, apperrors.NewUnauthorized("staff inactive")
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return staff, nil
}

// LoginStaff authenticates staff and returns a signed token.
func (s *AuthService) LoginStaff(ctx context.Context, identifier, password string) (*domain.StaffMember, domain.Token, string, error) {
	staff, err := s.VerifyCredentials(ctx, identifier, password)
	if err != nil {
		return nil, domain.Token{}, "", err
	}
	meta, token, err := s.tokenMgr.GenerateToken(staff.ID, domain.SubjectTypeStaff, staff.Name)
	if err != nil {
		return nil, domain.Token{}, "", apperrors.NewInternalError(err)
	}
	return staff, meta, token, nil
}

// IssueVisitorToken creates a short-lived token for an anonymous visitor.
func (s *AuthService) IssueVisitorToken(name string) (domain.Token, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Token{}, "", apperrors.NewValidationError("name is required", nil)
	}
	meta, token, err := s.tokenMgr.GenerateToken(uuid.NewString(), domain.SubjectTypeVisitor, name)
	if err != nil {
		return domain.Token{}, "", apperrors.NewInternalError(err)
	}
	return meta, token, nil
}

// RegisterStaff stores a new staff member with a hashed password.
func (s *AuthService) RegisterStaff(ctx context.Context, member *domain.StaffMember, password string) error {
	if strings.TrimSpace(member.Name) == "" || strings.TrimSpace(member.Email) == "" {
		return apperrors.NewValidationError("name and email are required", nil)
	}
	if len(password) < 8 {
		return apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	member.PasswordHash = hash
	member.Active = true
	return s.staff.Create(ctx, member)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) findForLogin(ctx context.Context, identifier string) (*domain.StaffMember, error) {
	if strings.Contains(identifier, "@") {
		return s.staff.GetByEmail(ctx, identifier)
	}
	return s.staff.GetByShortCode(ctx, identifier)
}
