package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/liorbd/LuachBack/internal/repository"
	"github.com/liorbd/LuachBack/internal/services"
)

type FavoriteHandler struct {
	service *services.FavoriteService
}

func NewFavoriteHandler(service *services.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{service: service}
}

type toggleFavoriteRequest struct {
	ItemID   int64  `json:"item_id"`
	ItemType string `json:"item_type"`
}

func (h *FavoriteHandler) Toggle(c *fiber.Ctx) error {
	userID, err := parseAuthenticatedUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req toggleFavoriteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	result, err := h.service.Toggle(c.Context(), userID, req.ItemID, req.ItemType)
	if err != nil {
		return mapFavoriteError(c, err)
	}

	return c.JSON(result)
}

func (h *FavoriteHandler) GetStatus(c *fiber.Ctx) error {
	userID, err := parseAuthenticatedUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	itemID, err := strconv.ParseInt(c.Params("item_id"), 10, 64)
	if err != nil || itemID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid item id"})
	}

	isFavorite, err := h.service.IsFavorite(c.Context(), userID, itemID, c.Query("item_type"))
	if err != nil {
		return mapFavoriteError(c, err)
	}

	return c.JSON(fiber.Map{"is_favorite": isFavorite})
}

func (h *FavoriteHandler) List(c *fiber.Ctx) error {
	userID, err := parseAuthenticatedUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	favorites, err := h.service.List(c.Context(), userID)
	if err != nil {
		return mapFavoriteError(c, err)
	}

	return c.JSON(fiber.Map{"favorites": favorites})
}

func mapFavoriteError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repository.ErrUnknownItemType):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown item type"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrItemNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Item not found"})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Already favorited"})
	default:
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to process favorite request"})
	}
}
