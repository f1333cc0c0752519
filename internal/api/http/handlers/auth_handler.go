package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/campusdesk/reception-service/internal/api/dto"
	"github.com/campusdesk/reception-service/internal/domain"
	"github.com/campusdesk/reception-service/internal/service"
)

// AuthHandler issues staff and visitor tokens.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// StaffLogin handles POST /auth/staff/login.
func (h *AuthHandler) StaffLogin(c *fiber.Ctx) error {
	var req dto.StaffLoginRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	staff, meta, token, err := h.authService.LoginStaff(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"staff": staffResponse(staff),
			"auth":  dto.AuthResponse{Token: token, ExpiresAt: meta.ExpiresAt},
		},
	})
}

// Visitor handles POST /auth/visitor.
func (h *AuthHandler) Visitor(c *fiber.Ctx) error {
	var req dto.VisitorTokenRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Name) == "" {
		return fiber.NewError(http.StatusBadRequest, "name required")
	}

	meta, token, err := h.authService.IssueVisitorToken(req.Name)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"visitor": dto.VisitorResponse{ID: meta.SubjectID, Name: meta.DisplayName},
			"auth":    dto.AuthResponse{Token: token, ExpiresAt: meta.ExpiresAt},
		},
	})
}

func staffResponse(staff *domain.StaffMember) dto.StaffResponse {
	return dto.StaffResponse{
		ID:         staff.ID,
		Name:       staff.Name,
		Email:      staff.Email,
		ShortCode:  staff.ShortCode,
		Department: staff.Department,
	}
}
