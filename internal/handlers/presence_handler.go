package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/liorbd/LuachBack/internal/services"
)

type PresenceHandler struct {
	service *services.PresenceService
}

func NewPresenceHandler(service *services.PresenceService) *PresenceHandler {
	return &PresenceHandler{service: service}
}

// Heartbeat is the 30-second keepalive clients post while a tab is open.
func (h *PresenceHandler) Heartbeat(c *fiber.Ctx) error {
	userID, err := parseAuthenticatedUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	status, err := h.service.Heartbeat(c.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to record heartbeat"})
	}

	return c.JSON(fiber.Map{"status": status})
}

func (h *PresenceHandler) MarkOffline(c *fiber.Ctx) error {
	userID, err := parseAuthenticatedUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	status, err := h.service.MarkOffline(c.Context(), userID)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to mark offline"})
	}

	return c.JSON(fiber.Map{"status": status})
}

// GetStatus reports another identity's presence, e.g. for the conversation
// header next to the seller's name.
func (h *PresenceHandler) GetStatus(c *fiber.Ctx) error {
	targetID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || targetID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	status, err := h.service.GetStatus(c.Context(), targetID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch status"})
	}

	return c.JSON(fiber.Map{"status": status})
}
