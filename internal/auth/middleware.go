package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/campusdesk/reception-service/internal/domain"
	"github.com/campusdesk/reception-service/internal/repository"
	apperrors "github.com/campusdesk/reception-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	SubjectType domain.SubjectType
	SubjectID   string
	DisplayName string
	Staff       *domain.StaffMember
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
	staff  repository.StaffRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, staff repository.StaffRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, staff: staff}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	raw, err := bearerToken(c)
	if err != nil {
		return err
	}
	if raw == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}
	principal, err := m.authenticate(c, raw)
	if err != nil {
		return err
	}
	c.Locals(principalKey, principal)
	return c.Next()
}

// Optional loads a principal when a token is presented and lets anonymous
// callers through. A token that does not validate is still rejected.
func (m *AuthMiddleware) Optional(c *fiber.Ctx) error {
	raw, err := bearerToken(c)
	if err != nil {
		return err
	}
	if raw != "" {
		principal, err := m.authenticate(c, raw)
		if err != nil {
			return err
		}
		c.Locals(principalKey, principal)
	}
	return c.Next()
}

func (m *AuthMiddleware) authenticate(c *fiber.Ctx, raw string) (*Principal, error) {
	claims, err := m.tokens.ParseToken(raw)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}

	principal := &Principal{
		SubjectType: claims.Subject,
		SubjectID:   claims.SubjectID,
		DisplayName: claims.DisplayName,
	}

	switch claims.Subject {
	case domain.SubjectTypeVisitor:
	case domain.SubjectTypeStaff:
		staff, err := m.staff.GetByID(c.UserContext(), claims.SubjectID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewUnauthorized("staff not found")
			}
			return nil, apperrors.MapError(err)
		}
		if !staff.Active {
			return nil, apperrors.NewUnauthorized("staff inactive")
		}
		principal.Staff = staff
		principal.DisplayName = staff.Name
	default:
		return nil, apperrors.NewUnauthorized("unknown subject")
	}
	return principal, nil
}

// bearerToken reads the Authorization header, falling back to the token query
// parameter browsers use for WebSocket upgrades.
func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Query("token"), nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return parts[1], nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
