package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/liorbd/LuachBack/internal/repository"
	"github.com/liorbd/LuachBack/internal/services"
)

type PromotionHandler struct {
	service *services.PromotionService
}

func NewPromotionHandler(service *services.PromotionService) *PromotionHandler {
	return &PromotionHandler{service: service}
}

type purchasePromotionRequest struct {
	ItemID    int64  `json:"item_id"`
	ItemType  string `json:"item_type"`
	PackageID int64  `json:"package_id"`
}

func (h *PromotionHandler) ListPackages(c *fiber.Ctx) error {
	packages, err := h.service.ListPackages(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to list packages"})
	}

	return c.JSON(fiber.Map{"packages": packages})
}

func (h *PromotionHandler) Purchase(c *fiber.Ctx) error {
	userID, err := parseAuthenticatedUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req purchasePromotionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	detail, err := h.service.Purchase(c.Context(), userID, services.PurchasePromotionInput{
		ItemID:    req.ItemID,
		ItemType:  req.ItemType,
		PackageID: req.PackageID,
	})
	if err != nil {
		return mapPromotionError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"promotion": detail})
}

func (h *PromotionHandler) Pay(c *fiber.Ctx) error {
	userID, err := parseAuthenticatedUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	promotionID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || promotionID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid promotion id"})
	}

	detail, err := h.service.Pay(c.Context(), userID, promotionID)
	if err != nil {
		return mapPromotionError(c, err)
	}

	return c.JSON(fiber.Map{"promotion": detail})
}

func (h *PromotionHandler) GetPromotion(c *fiber.Ctx) error {
	userID, err := parseAuthenticatedUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	promotionID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || promotionID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid promotion id"})
	}

	detail, err := h.service.GetPromotion(c.Context(), userID, promotionID)
	if err != nil {
		return mapPromotionError(c, err)
	}

	return c.JSON(fiber.Map{"promotion": detail})
}

func (h *PromotionHandler) ListPromotions(c *fiber.Ctx) error {
	userID, err := parseAuthenticatedUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	details, err := h.service.ListPromotions(c.Context(), userID)
	if err != nil {
		return mapPromotionError(c, err)
	}

	return c.JSON(fiber.Map{"promotions": details})
}

func mapPromotionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, repository.ErrUnknownItemType):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown item type"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrItemNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Item not found"})
	case errors.Is(err, services.ErrPackageNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Package not found"})
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusConflict).
			JSON(fiber.Map{"error": "Promotion is not payable in its current state"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Promotion not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to process promotion request"})
	}
}
