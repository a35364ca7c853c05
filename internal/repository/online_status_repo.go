package repository

import (
	"context"

	"github.com/liorbd/LuachBack/internal/models"
)

type OnlineStatusRepository struct {
	db DBTX
}

func NewOnlineStatusRepository(db DBTX) *OnlineStatusRepository {
	return &OnlineStatusRepository{db: db}
}

// Upsert writes the identity's own row. Only the owning identity ever writes
// it, so last-write-wins is safe.
func (r *OnlineStatusRepository) Upsert(ctx context.Context, userID int64, isOnline bool) (*models.OnlineStatus, error) {
	query := `
		INSERT INTO online_status (user_id, is_online, last_seen, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET is_online = $2, last_seen = NOW(), updated_at = NOW()
		RETURNING user_id, is_online, last_seen, updated_at
	`

	var status models.OnlineStatus
	err := r.db.QueryRow(ctx, query, userID, isOnline).Scan(
		&status.UserID,
		&status.IsOnline,
		&status.LastSeen,
		&status.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *OnlineStatusRepository) GetByUserID(ctx context.Context, userID int64) (*models.OnlineStatus, error) {
	query := `
		SELECT user_id, is_online, last_seen, updated_at
		FROM online_status
		WHERE user_id = $1
	`

	var status models.OnlineStatus
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&status.UserID,
		&status.IsOnline,
		&status.LastSeen,
		&status.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &status, nil
}
