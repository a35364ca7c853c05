package repository

import (
	"context"
	"time"

	"github.com/liorbd/LuachBack/internal/models"
)

type CreatePromotionInput struct {
	UserID    int64
	ItemID    int64
	ItemType  string
	PackageID int64
	StartsAt  time.Time
	ExpiresAt time.Time
}

type PromotionRepository struct {
	db DBTX
}

func NewPromotionRepository(db DBTX) *PromotionRepository {
	return &PromotionRepository{db: db}
}

func (r *PromotionRepository) GetPackageByID(ctx context.Context, packageID int64) (*models.PromotionPackage, error) {
	query := `
		SELECT id, name, duration_days, price, created_at
		FROM promotion_packages
		WHERE id = $1
	`

	var pkg models.PromotionPackage
	err := r.db.QueryRow(ctx, query, packageID).Scan(
		&pkg.ID,
		&pkg.Name,
		&pkg.DurationDays,
		&pkg.Price,
		&pkg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *PromotionRepository) ListPackages(ctx context.Context) ([]models.PromotionPackage, error) {
	query := `
		SELECT id, name, duration_days, price, created_at
		FROM promotion_packages
		ORDER BY price ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	packages := make([]models.PromotionPackage, 0)
	for rows.Next() {
		var pkg models.PromotionPackage
		if err := rows.Scan(&pkg.ID, &pkg.Name, &pkg.DurationDays, &pkg.Price, &pkg.CreatedAt); err != nil {
			return nil, err
		}
		packages = append(packages, pkg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return packages, nil
}

func (r *PromotionRepository) Create(ctx context.Context, input CreatePromotionInput) (*models.ListingPromotion, error) {
	query := `
		INSERT INTO listing_promotions (user_id, item_id, item_type, package_id, status, starts_at, expires_at)
		VALUES ($1, $2, $3, $4, 'pending', $5, $6)
		RETURNING id, user_id, item_id, item_type, package_id, status, starts_at, expires_at, created_at, updated_at
	`

	var promotion models.ListingPromotion
	err := r.db.QueryRow(ctx, query,
		input.UserID,
		input.ItemID,
		input.ItemType,
		input.PackageID,
		input.StartsAt,
		input.ExpiresAt,
	).Scan(
		&promotion.ID,
		&promotion.UserID,
		&promotion.ItemID,
		&promotion.ItemType,
		&promotion.PackageID,
		&promotion.Status,
		&promotion.StartsAt,
		&promotion.ExpiresAt,
		&promotion.CreatedAt,
		&promotion.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &promotion, nil
}

func (r *PromotionRepository) GetByID(ctx context.Context, promotionID int64) (*models.ListingPromotion, error) {
	query := `
		SELECT id, user_id, item_id, item_type, package_id, status, starts_at, expires_at, created_at, updated_at
		FROM listing_promotions
		WHERE id = $1
	`

	var promotion models.ListingPromotion
	err := r.db.QueryRow(ctx, query, promotionID).Scan(
		&promotion.ID,
		&promotion.UserID,
		&promotion.ItemID,
		&promotion.ItemType,
		&promotion.PackageID,
		&promotion.Status,
		&promotion.StartsAt,
		&promotion.ExpiresAt,
		&promotion.CreatedAt,
		&promotion.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &promotion, nil
}

func (r *PromotionRepository) ListByUser(ctx context.Context, userID int64) ([]models.ListingPromotion, error) {
	query := `
		SELECT id, user_id, item_id, item_type, package_id, status, starts_at, expires_at, created_at, updated_at
		FROM listing_promotions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	promotions := make([]models.ListingPromotion, 0)
	for rows.Next() {
		var promotion models.ListingPromotion
		if err := rows.Scan(
			&promotion.ID,
			&promotion.UserID,
			&promotion.ItemID,
			&promotion.ItemType,
			&promotion.PackageID,
			&promotion.Status,
			&promotion.StartsAt,
			&promotion.ExpiresAt,
			&promotion.CreatedAt,
			&promotion.UpdatedAt,
		); err != nil {
			return nil, err
		}
		promotions = append(promotions, promotion)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return promotions, nil
}

// UpdateStatusIfCurrent is a compare-and-swap on the status column; it
// returns pgx.ErrNoRows through Scan when the current status no longer
// matches.
func (r *PromotionRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	promotionID int64,
	currentStatus string,
	nextStatus string,
) (*models.ListingPromotion, error) {
	query := `
		UPDATE listing_promotions
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING id, user_id, item_id, item_type, package_id, status, starts_at, expires_at, created_at, updated_at
	`

	var promotion models.ListingPromotion
	err := r.db.QueryRow(ctx, query, promotionID, currentStatus, nextStatus).Scan(
		&promotion.ID,
		&promotion.UserID,
		&promotion.ItemID,
		&promotion.ItemType,
		&promotion.PackageID,
		&promotion.Status,
		&promotion.StartsAt,
		&promotion.ExpiresAt,
		&promotion.CreatedAt,
		&promotion.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &promotion, nil
}

// ExpireDue sweeps active promotions whose window has lapsed.
func (r *PromotionRepository) ExpireDue(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE listing_promotions
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'active' AND expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
