package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/liorbd/LuachBack/internal/models"
	"github.com/liorbd/LuachBack/internal/repository"
)

var ErrItemNotFound = errors.New("item not found")

type favoriteStore interface {
	Create(ctx context.Context, input repository.CreateFavoriteInput) (*models.Favorite, error)
	GetByKey(ctx context.Context, userID, itemID int64, itemType string) (*models.Favorite, error)
	DeleteByKey(ctx context.Context, userID, itemID int64, itemType string) (int64, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Favorite, error)
}

type priceLookup interface {
	LookupPrice(ctx context.Context, itemType string, itemID int64) (float64, error)
}

type FavoriteService struct {
	favoriteRepo favoriteStore
	prices       priceLookup
}

// ToggleResult tells the caller which way the toggle landed; Favorite is set
// only when the item was just saved.
type ToggleResult struct {
	IsFavorite bool             `json:"is_favorite"`
	Favorite   *models.Favorite `json:"favorite,omitempty"`
}

func NewFavoriteService(favoriteRepo favoriteStore, prices priceLookup) *FavoriteService {
	return &FavoriteService{
		favoriteRepo: favoriteRepo,
		prices:       prices,
	}
}

// Toggle saves or removes the (user, item, type) pairing. Saving snapshots the
// item's current price. Two racing saves are resolved by the unique constraint:
// the loser surfaces ErrConflict.
func (s *FavoriteService) Toggle(ctx context.Context, userID, itemID int64, itemType string) (*ToggleResult, error) {
	if userID <= 0 || itemID <= 0 {
		return nil, ErrInvalidInput
	}
	if !repository.KnownItemType(itemType) {
		return nil, repository.ErrUnknownItemType
	}

	_, err := s.favoriteRepo.GetByKey(ctx, userID, itemID, itemType)
	if err == nil {
		if _, err := s.favoriteRepo.DeleteByKey(ctx, userID, itemID, itemType); err != nil {
			return nil, err
		}
		return &ToggleResult{IsFavorite: false}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	price, err := s.prices.LookupPrice(ctx, itemType, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	favorite, err := s.favoriteRepo.Create(ctx, repository.CreateFavoriteInput{
		UserID:        userID,
		ItemID:        itemID,
		ItemType:      itemType,
		OriginalPrice: price,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrConflict
		}
		return nil, err
	}

	return &ToggleResult{IsFavorite: true, Favorite: favorite}, nil
}

func (s *FavoriteService) IsFavorite(ctx context.Context, userID, itemID int64, itemType string) (bool, error) {
	if userID <= 0 || itemID <= 0 {
		return false, ErrInvalidInput
	}
	if !repository.KnownItemType(itemType) {
		return false, repository.ErrUnknownItemType
	}

	_, err := s.favoriteRepo.GetByKey(ctx, userID, itemID, itemType)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return false, err
}

func (s *FavoriteService) List(ctx context.Context, userID int64) ([]models.Favorite, error) {
	if userID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.favoriteRepo.ListByUser(ctx, userID)
}

var _ favoriteStore = (*repository.FavoriteRepository)(nil)
var _ priceLookup = (*repository.ListingPriceRepository)(nil)
