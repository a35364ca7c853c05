package services

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/liorbd/LuachBack/internal/models"
	"github.com/liorbd/LuachBack/internal/repository"
)

var (
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrPackageNotFound        = errors.New("package not found")
)

type PromotionService struct {
	db            *pgxpool.Pool
	promotionRepo *repository.PromotionRepository
	paymentRepo   *repository.PaymentRepository
	prices        priceLookup
}

func NewPromotionService(
	db *pgxpool.Pool,
	promotionRepo *repository.PromotionRepository,
	paymentRepo *repository.PaymentRepository,
	prices priceLookup,
) *PromotionService {
	return &PromotionService{
		db:            db,
		promotionRepo: promotionRepo,
		paymentRepo:   paymentRepo,
		prices:        prices,
	}
}

func (s *PromotionService) ListPackages(ctx context.Context) ([]models.PromotionPackage, error) {
	return s.promotionRepo.ListPackages(ctx)
}

type PurchasePromotionInput struct {
	ItemID    int64
	ItemType  string
	PackageID int64
}

// Purchase reserves a promotion window for the item and opens a placeholder
// payment, both in one transaction. The promotion stays pending until paid.
func (s *PromotionService) Purchase(
	ctx context.Context,
	actorID int64,
	input PurchasePromotionInput,
) (*models.PromotionDetail, error) {
	if input.ItemID <= 0 || input.PackageID <= 0 {
		return nil, ErrInvalidInput
	}
	if !repository.KnownItemType(input.ItemType) {
		return nil, repository.ErrUnknownItemType
	}

	// The item must exist; the price registry doubles as the existence check.
	if _, err := s.prices.LookupPrice(ctx, input.ItemType, input.ItemID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	pkg, err := s.promotionRepo.GetPackageByID(ctx, input.PackageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}

	startsAt := time.Now().UTC()
	expiresAt := startsAt.Add(time.Duration(pkg.DurationDays) * 24 * time.Hour)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txPromotionRepo := repository.NewPromotionRepository(tx)
	txPaymentRepo := repository.NewPaymentRepository(tx)

	promotion, err := txPromotionRepo.Create(ctx, repository.CreatePromotionInput{
		UserID:    actorID,
		ItemID:    input.ItemID,
		ItemType:  input.ItemType,
		PackageID: input.PackageID,
		StartsAt:  startsAt,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, err
	}

	payment, err := txPaymentRepo.Create(ctx, repository.CreatePaymentInput{
		PromotionID: promotion.ID,
		UserID:      actorID,
		Amount:      pkg.Price,
		Status:      "placeholder",
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &models.PromotionDetail{
		ListingPromotion: *promotion,
		Payment:          payment,
	}, nil
}

// Pay settles the placeholder payment and activates the promotion. Both
// status moves are compare-and-swap, so a replayed request is harmless.
func (s *PromotionService) Pay(
	ctx context.Context,
	actorID int64,
	promotionID int64,
) (*models.PromotionDetail, error) {
	if promotionID <= 0 {
		return nil, ErrInvalidInput
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txPromotionRepo := repository.NewPromotionRepository(tx)
	txPaymentRepo := repository.NewPaymentRepository(tx)

	promotion, err := txPromotionRepo.GetByID(ctx, promotionID)
	if err != nil {
		return nil, err
	}
	if promotion.UserID != actorID {
		return nil, ErrForbidden
	}

	payment, err := txPaymentRepo.GetByPromotionIDForUpdate(ctx, promotionID)
	if err != nil {
		return nil, err
	}
	if payment.Status == "paid" {
		return s.GetPromotion(ctx, actorID, promotionID)
	}
	if promotion.Status != "pending" {
		return nil, ErrInvalidStateTransition
	}

	if _, err := txPaymentRepo.UpdateStatusIfCurrent(ctx, payment.ID, "placeholder", "paid"); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}
	if _, err := txPromotionRepo.UpdateStatusIfCurrent(ctx, promotionID, "pending", "active"); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return s.GetPromotion(ctx, actorID, promotionID)
}

func (s *PromotionService) GetPromotion(
	ctx context.Context,
	actorID int64,
	promotionID int64,
) (*models.PromotionDetail, error) {
	promotion, err := s.promotionRepo.GetByID(ctx, promotionID)
	if err != nil {
		return nil, err
	}
	if promotion.UserID != actorID {
		return nil, ErrForbidden
	}

	detail := &models.PromotionDetail{ListingPromotion: *promotion}
	payment, err := s.paymentRepo.GetByPromotionID(ctx, promotionID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err == nil {
		detail.Payment = payment
	}
	return detail, nil
}

func (s *PromotionService) ListPromotions(
	ctx context.Context,
	actorID int64,
) ([]models.PromotionDetail, error) {
	promotions, err := s.promotionRepo.ListByUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	promotionIDs := make([]int64, 0, len(promotions))
	for _, promotion := range promotions {
		promotionIDs = append(promotionIDs, promotion.ID)
	}

	paymentsByPromotion, err := s.paymentRepo.ListByPromotionIDs(ctx, promotionIDs)
	if err != nil {
		return nil, err
	}

	details := make([]models.PromotionDetail, 0, len(promotions))
	for _, promotion := range promotions {
		detail := models.PromotionDetail{ListingPromotion: promotion}
		if payment, ok := paymentsByPromotion[promotion.ID]; ok {
			paymentCopy := payment
			detail.Payment = &paymentCopy
		}
		details = append(details, detail)
	}

	return details, nil
}

// ExpireDue is run periodically by the worker; promotions past their window
// move active -> expired.
func (s *PromotionService) ExpireDue(ctx context.Context) (int64, error) {
	return s.promotionRepo.ExpireDue(ctx)
}
