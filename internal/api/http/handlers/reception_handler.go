package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/campusdesk/reception-service/internal/api/dto"
	"github.com/campusdesk/reception-service/internal/auth"
	"github.com/campusdesk/reception-service/internal/domain"
	"github.com/campusdesk/reception-service/internal/service"
)

// PresenceSource provides the live presence board.
type PresenceSource interface {
	Presence() []domain.PresenceSnapshot
}

// ReceptionHandler serves the presence board and call history.
type ReceptionHandler struct {
	presence PresenceSource
	history  *service.CallHistoryService
}

// NewReceptionHandler constructs handler.
func NewReceptionHandler(presence PresenceSource, history *service.CallHistoryService) *ReceptionHandler {
	return &ReceptionHandler{presence: presence, history: history}
}

// Presence handles GET /api/presence.
func (h *ReceptionHandler) Presence(c *fiber.Ctx) error {
	snapshots := h.presence.Presence()
	resp := make([]dto.PresenceResponse, 0, len(snapshots))
	for _, s := range snapshots {
		resp = append(resp, dto.PresenceResponse{
			StaffID:    s.StaffID,
			Name:       s.Name,
			Department: s.Department,
			Status:     string(s.Status),
			LastSeen:   s.LastSeen,
		})
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Calls handles GET /api/calls for the authenticated staff member.
func (h *ReceptionHandler) Calls(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return fiber.NewError(http.StatusForbidden, "staff required")
	}

	limit := parseIntQuery(c, "limit", 50)
	offset := parseIntQuery(c, "offset", 0)
	entries, err := h.history.ListForStaff(c.UserContext(), principal.Staff.ID, limit, offset)
	if err != nil {
		return err
	}

	resp := make([]dto.CallLogResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, dto.CallLogResponse{
			CallID:          e.CallID,
			ClientName:      e.ClientName,
			Purpose:         e.Purpose,
			Status:          string(e.Status),
			EndedBy:         e.EndedBy,
			Reason:          e.Reason,
			StartedAt:       e.StartedAt,
			EndedAt:         e.EndedAt,
			DurationSeconds: e.DurationSeconds,
		})
	}
	return c.JSON(fiber.Map{
		"data": resp,
		"meta": dto.PageMeta{Limit: limit, Offset: offset, Count: len(resp)},
	})
}
