package repository

import (
	"context"

	"github.com/liorbd/LuachBack/internal/models"
)

type CreatePaymentInput struct {
	PromotionID int64
	UserID      int64
	Amount      float64
	Status      string
}

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, input CreatePaymentInput) (*models.Payment, error) {
	query := `
		INSERT INTO payments (promotion_id, user_id, amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, promotion_id, user_id, amount, status, created_at
	`

	var payment models.Payment
	err := r.db.QueryRow(ctx, query, input.PromotionID, input.UserID, input.Amount, input.Status).Scan(
		&payment.ID,
		&payment.PromotionID,
		&payment.UserID,
		&payment.Amount,
		&payment.Status,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) GetByPromotionID(ctx context.Context, promotionID int64) (*models.Payment, error) {
	query := `
		SELECT id, promotion_id, user_id, amount, status, created_at
		FROM payments
		WHERE promotion_id = $1
		ORDER BY id DESC
		LIMIT 1
	`

	var payment models.Payment
	err := r.db.QueryRow(ctx, query, promotionID).Scan(
		&payment.ID,
		&payment.PromotionID,
		&payment.UserID,
		&payment.Amount,
		&payment.Status,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) GetByPromotionIDForUpdate(ctx context.Context, promotionID int64) (*models.Payment, error) {
	query := `
		SELECT id, promotion_id, user_id, amount, status, created_at
		FROM payments
		WHERE promotion_id = $1
		ORDER BY id DESC
		LIMIT 1
		FOR UPDATE
	`

	var payment models.Payment
	err := r.db.QueryRow(ctx, query, promotionID).Scan(
		&payment.ID,
		&payment.PromotionID,
		&payment.UserID,
		&payment.Amount,
		&payment.Status,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) ListByPromotionIDs(ctx context.Context, promotionIDs []int64) (map[int64]models.Payment, error) {
	payments := make(map[int64]models.Payment, len(promotionIDs))
	if len(promotionIDs) == 0 {
		return payments, nil
	}

	query := `
		SELECT DISTINCT ON (promotion_id) id, promotion_id, user_id, amount, status, created_at
		FROM payments
		WHERE promotion_id = ANY($1)
		ORDER BY promotion_id, id DESC
	`

	rows, err := r.db.Query(ctx, query, promotionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var payment models.Payment
		if err := rows.Scan(
			&payment.ID,
			&payment.PromotionID,
			&payment.UserID,
			&payment.Amount,
			&payment.Status,
			&payment.CreatedAt,
		); err != nil {
			return nil, err
		}
		payments[payment.PromotionID] = payment
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *PaymentRepository) UpdateStatusIfCurrent(ctx context.Context, paymentID int64, currentStatus string, nextStatus string) (*models.Payment, error) {
	query := `
		UPDATE payments
		SET status = $3
		WHERE id = $1 AND status = $2
		RETURNING id, promotion_id, user_id, amount, status, created_at
	`

	var payment models.Payment
	err := r.db.QueryRow(ctx, query, paymentID, currentStatus, nextStatus).Scan(
		&payment.ID,
		&payment.PromotionID,
		&payment.UserID,
		&payment.Amount,
		&payment.Status,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
