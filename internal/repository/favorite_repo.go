package repository

import (
	"context"

	"github.com/liorbd/LuachBack/internal/models"
)

type CreateFavoriteInput struct {
	UserID        int64
	ItemID        int64
	ItemType      string
	OriginalPrice float64
}

type FavoriteRepository struct {
	db DBTX
}

func NewFavoriteRepository(db DBTX) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

func (r *FavoriteRepository) Create(ctx context.Context, input CreateFavoriteInput) (*models.Favorite, error) {
	query := `
		INSERT INTO favorites (user_id, item_id, item_type, original_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, item_id, item_type, original_price, created_at
	`

	var favorite models.Favorite
	err := r.db.QueryRow(ctx, query, input.UserID, input.ItemID, input.ItemType, input.OriginalPrice).Scan(
		&favorite.ID,
		&favorite.UserID,
		&favorite.ItemID,
		&favorite.ItemType,
		&favorite.OriginalPrice,
		&favorite.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &favorite, nil
}

func (r *FavoriteRepository) GetByKey(ctx context.Context, userID, itemID int64, itemType string) (*models.Favorite, error) {
	query := `
		SELECT id, user_id, item_id, item_type, original_price, created_at
		FROM favorites
		WHERE user_id = $1 AND item_id = $2 AND item_type = $3
	`

	var favorite models.Favorite
	err := r.db.QueryRow(ctx, query, userID, itemID, itemType).Scan(
		&favorite.ID,
		&favorite.UserID,
		&favorite.ItemID,
		&favorite.ItemType,
		&favorite.OriginalPrice,
		&favorite.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &favorite, nil
}

func (r *FavoriteRepository) DeleteByKey(ctx context.Context, userID, itemID int64, itemType string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM favorites
		WHERE user_id = $1 AND item_id = $2 AND item_type = $3
	`, userID, itemID, itemType)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *FavoriteRepository) ListByUser(ctx context.Context, userID int64) ([]models.Favorite, error) {
	query := `
		SELECT id, user_id, item_id, item_type, original_price, created_at
		FROM favorites
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	favorites := make([]models.Favorite, 0)
	for rows.Next() {
		var favorite models.Favorite
		if err := rows.Scan(
			&favorite.ID,
			&favorite.UserID,
			&favorite.ItemID,
			&favorite.ItemType,
			&favorite.OriginalPrice,
			&favorite.CreatedAt,
		); err != nil {
			return nil, err
		}
		favorites = append(favorites, favorite)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return favorites, nil
}
