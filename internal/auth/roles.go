package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/campusdesk/reception-service/internal/domain"
)

// RequireStaff ensures a staff member is authenticated.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeStaff || principal.Staff == nil {
			return fiber.NewError(http.StatusForbidden, "staff required")
		}
		return c.Next()
	}
}

// RequireAnyRole ensures caller is authenticated (visitor or staff).
func RequireAnyRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		return c.Next()
	}
}
