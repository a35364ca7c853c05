package handlers

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/liorbd/LuachBack/internal/repository"
	"github.com/liorbd/LuachBack/internal/services"
)

const maxAvatarSize = 5 << 20

var allowedAvatarExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

type ProfileHandler struct {
	profileRepo *repository.ProfileRepository
	storage     services.StorageService
}

func NewProfileHandler(profileRepo *repository.ProfileRepository, storage services.StorageService) *ProfileHandler {
	return &ProfileHandler{
		profileRepo: profileRepo,
		storage:     storage,
	}
}

type updateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	City        *string `json:"city"`
	Phone       *string `json:"phone"`
}

func (h *ProfileHandler) GetMyProfile(c *fiber.Ctx) error {
	userID, err := parseAuthenticatedUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	return h.respondWithProfile(c, userID)
}

func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	targetID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || targetID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	return h.respondWithProfile(c, targetID)
}

func (h *ProfileHandler) respondWithProfile(c *fiber.Ctx, userID int64) error {
	profile, err := h.profileRepo.GetByUserID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch profile"})
	}

	return c.JSON(fiber.Map{"profile": profile})
}

func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := parseAuthenticatedUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.DisplayName != nil {
		trimmed := strings.TrimSpace(*req.DisplayName)
		if trimmed == "" || len([]rune(trimmed)) > 100 {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"error": "Display name must be 1-100 characters"})
		}
		req.DisplayName = &trimmed
	}

	profile, err := h.profileRepo.UpdatePartial(c.Context(), userID, repository.UpdateProfileInput{
		DisplayName: req.DisplayName,
		City:        req.City,
		Phone:       req.Phone,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to update profile"})
	}

	return c.JSON(fiber.Map{"profile": profile})
}

func (h *ProfileHandler) UploadAvatar(c *fiber.Ctx) error {
	userID, err := parseAuthenticatedUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	if h.storage == nil {
		return c.Status(fiber.StatusServiceUnavailable).
			JSON(fiber.Map{"error": "Storage service is not configured"})
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Avatar file is required"})
	}
	if fileHeader.Size > maxAvatarSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).
			JSON(fiber.Map{"error": "Avatar must be 5MB or smaller"})
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if _, ok := allowedAvatarExtensions[ext]; !ok {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"error": "Avatar must be a jpg, png or webp image"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to read avatar"})
	}
	defer file.Close()

	current, err := h.profileRepo.GetByUserID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to fetch profile"})
	}

	filename := fmt.Sprintf("avatar_%d_%d%s", userID, time.Now().UnixNano(), ext)
	avatarURL, err := h.storage.UploadFile(c.Context(), file, filename, "avatars")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to upload avatar"})
	}

	profile, err := h.profileRepo.UpdatePartial(c.Context(), userID, repository.UpdateProfileInput{
		AvatarURL: &avatarURL,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Failed to save avatar"})
	}

	if current.AvatarURL != nil && *current.AvatarURL != avatarURL {
		if err := h.storage.DeleteFile(c.Context(), *current.AvatarURL); err != nil {
			log.Printf("profile: delete previous avatar for user %d: %v", userID, err)
		}
	}

	return c.JSON(fiber.Map{"profile": profile})
}
