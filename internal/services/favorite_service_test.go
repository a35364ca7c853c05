package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/liorbd/LuachBack/internal/models"
	"github.com/liorbd/LuachBack/internal/repository"
)

type favoriteKey struct {
	userID   int64
	itemID   int64
	itemType string
}

type stubFavoriteStore struct {
	rows      map[favoriteKey]*models.Favorite
	nextID    int64
	createErr error
}

func newStubFavoriteStore() *stubFavoriteStore {
	return &stubFavoriteStore{rows: make(map[favoriteKey]*models.Favorite), nextID: 1}
}

func (s *stubFavoriteStore) Create(_ context.Context, input repository.CreateFavoriteInput) (*models.Favorite, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	key := favoriteKey{userID: input.UserID, itemID: input.ItemID, itemType: input.ItemType}
	favorite := &models.Favorite{
		ID:            s.nextID,
		UserID:        input.UserID,
		ItemID:        input.ItemID,
		ItemType:      input.ItemType,
		OriginalPrice: input.OriginalPrice,
		CreatedAt:     time.Now().UTC(),
	}
	s.nextID++
	s.rows[key] = favorite
	return favorite, nil
}

func (s *stubFavoriteStore) GetByKey(_ context.Context, userID, itemID int64, itemType string) (*models.Favorite, error) {
	favorite, ok := s.rows[favoriteKey{userID: userID, itemID: itemID, itemType: itemType}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return favorite, nil
}

func (s *stubFavoriteStore) DeleteByKey(_ context.Context, userID, itemID int64, itemType string) (int64, error) {
	key := favoriteKey{userID: userID, itemID: itemID, itemType: itemType}
	if _, ok := s.rows[key]; !ok {
		return 0, nil
	}
	delete(s.rows, key)
	return 1, nil
}

func (s *stubFavoriteStore) ListByUser(_ context.Context, userID int64) ([]models.Favorite, error) {
	var favorites []models.Favorite
	for _, favorite := range s.rows {
		if favorite.UserID == userID {
			favorites = append(favorites, *favorite)
		}
	}
	return favorites, nil
}

type stubPriceLookup struct {
	prices map[int64]float64
}

func (s *stubPriceLookup) LookupPrice(_ context.Context, itemType string, itemID int64) (float64, error) {
	if !repository.KnownItemType(itemType) {
		return 0, repository.ErrUnknownItemType
	}
	price, ok := s.prices[itemID]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	return price, nil
}

func TestToggleSavesWithPriceSnapshot(t *testing.T) {
	store := newStubFavoriteStore()
	prices := &stubPriceLookup{prices: map[int64]float64{55: 74900}}
	service := NewFavoriteService(store, prices)

	result, err := service.Toggle(context.Background(), 42, 55, "car")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !result.IsFavorite || result.Favorite == nil {
		t.Fatalf("expected item to be saved, got %+v", result)
	}
	if result.Favorite.OriginalPrice != 74900 {
		t.Fatalf("expected snapshot of current price, got %f", result.Favorite.OriginalPrice)
	}
}

func TestToggleTwiceRemovesFavorite(t *testing.T) {
	store := newStubFavoriteStore()
	prices := &stubPriceLookup{prices: map[int64]float64{55: 74900}}
	service := NewFavoriteService(store, prices)
	ctx := context.Background()

	if _, err := service.Toggle(ctx, 42, 55, "car"); err != nil {
		t.Fatalf("first Toggle: %v", err)
	}
	result, err := service.Toggle(ctx, 42, 55, "car")
	if err != nil {
		t.Fatalf("second Toggle: %v", err)
	}
	if result.IsFavorite {
		t.Fatal("second toggle should remove the favorite")
	}

	saved, err := service.IsFavorite(ctx, 42, 55, "car")
	if err != nil {
		t.Fatalf("IsFavorite: %v", err)
	}
	if saved {
		t.Fatal("favorite should be gone after the round trip")
	}
}

func TestToggleSameItemDifferentTypesAreIndependent(t *testing.T) {
	store := newStubFavoriteStore()
	prices := &stubPriceLookup{prices: map[int64]float64{55: 120}}
	service := NewFavoriteService(store, prices)
	ctx := context.Background()

	if _, err := service.Toggle(ctx, 42, 55, "car"); err != nil {
		t.Fatalf("Toggle car: %v", err)
	}
	if _, err := service.Toggle(ctx, 42, 55, "laptop"); err != nil {
		t.Fatalf("Toggle laptop: %v", err)
	}

	favorites, err := service.List(ctx, 42)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(favorites) != 2 {
		t.Fatalf("expected two independent favorites, got %d", len(favorites))
	}
}

func TestToggleRejectsUnknownItemType(t *testing.T) {
	service := NewFavoriteService(newStubFavoriteStore(), &stubPriceLookup{})

	_, err := service.Toggle(context.Background(), 42, 55, "yacht")
	if !errors.Is(err, repository.ErrUnknownItemType) {
		t.Fatalf("expected ErrUnknownItemType, got %v", err)
	}
}

func TestToggleMissingItemIsNotFound(t *testing.T) {
	service := NewFavoriteService(newStubFavoriteStore(), &stubPriceLookup{prices: map[int64]float64{}})

	_, err := service.Toggle(context.Background(), 42, 55, "car")
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestToggleRaceLoserSeesConflict(t *testing.T) {
	store := newStubFavoriteStore()
	store.createErr = &pgconn.PgError{Code: "23505"}
	prices := &stubPriceLookup{prices: map[int64]float64{55: 74900}}
	service := NewFavoriteService(store, prices)

	_, err := service.Toggle(context.Background(), 42, 55, "car")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate insert, got %v", err)
	}
}
