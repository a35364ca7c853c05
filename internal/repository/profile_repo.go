package repository

import (
	"context"

	"github.com/liorbd/LuachBack/internal/models"
)

type UpdateProfileInput struct {
	DisplayName *string
	AvatarURL   *string
	City        *string
	Phone       *string
}

type ProfileRepository struct {
	db DBTX
}

func NewProfileRepository(db DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) CreateEmpty(ctx context.Context, userID int64) error {
	query := `INSERT INTO profiles (user_id) VALUES ($1)`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.Profile, error) {
	query := `
		SELECT id, user_id, display_name, avatar_url, city, phone, created_at, updated_at
		FROM profiles
		WHERE user_id = $1
	`
	var profile models.Profile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.DisplayName,
		&profile.AvatarURL,
		&profile.City,
		&profile.Phone,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepository) UpdatePartial(ctx context.Context, userID int64, req UpdateProfileInput) (*models.Profile, error) {
	query := `
		UPDATE profiles
		SET display_name = COALESCE($1, display_name),
			avatar_url = COALESCE($2, avatar_url),
			city = COALESCE($3, city),
			phone = COALESCE($4, phone),
			updated_at = NOW()
		WHERE user_id = $5
		RETURNING id, user_id, display_name, avatar_url, city, phone, created_at, updated_at
	`
	var profile models.Profile
	err := r.db.QueryRow(ctx, query,
		req.DisplayName,
		req.AvatarURL,
		req.City,
		req.Phone,
		userID,
	).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.DisplayName,
		&profile.AvatarURL,
		&profile.City,
		&profile.Phone,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
