package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	redis "github.com/redis/go-redis/v9"

	"github.com/liorbd/LuachBack/internal/models"
)

type stubStatusStore struct {
	rows map[int64]*models.OnlineStatus
}

func newStubStatusStore() *stubStatusStore {
	return &stubStatusStore{rows: make(map[int64]*models.OnlineStatus)}
}

func (s *stubStatusStore) Upsert(_ context.Context, userID int64, isOnline bool) (*models.OnlineStatus, error) {
	status := &models.OnlineStatus{
		UserID:    userID,
		IsOnline:  isOnline,
		LastSeen:  time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	s.rows[userID] = status
	return status, nil
}

func (s *stubStatusStore) GetByUserID(_ context.Context, userID int64) (*models.OnlineStatus, error) {
	status, ok := s.rows[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return status, nil
}

func newPresenceFixture(t *testing.T) (*PresenceService, *miniredis.Miniredis, *stubStatusStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := newStubStatusStore()
	return NewPresenceService(store, client), mr, store
}

func TestHeartbeatMarksUserOnline(t *testing.T) {
	service, _, store := newPresenceFixture(t)
	ctx := context.Background()

	status, err := service.Heartbeat(ctx, 42)
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if !status.IsOnline {
		t.Fatal("heartbeat should mark the user online")
	}
	if store.rows[42] == nil || !store.rows[42].IsOnline {
		t.Fatal("durable row should record the online state")
	}

	online, err := service.IsOnline(ctx, 42)
	if err != nil {
		t.Fatalf("IsOnline: %v", err)
	}
	if !online {
		t.Fatal("user should read as online right after a heartbeat")
	}
}

func TestUserReadsOfflineAfterTTLExpires(t *testing.T) {
	service, mr, _ := newPresenceFixture(t)
	ctx := context.Background()

	if _, err := service.Heartbeat(ctx, 42); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}

	// Two missed 30s beats and the key is gone.
	mr.FastForward(61 * time.Second)

	online, err := service.IsOnline(ctx, 42)
	if err != nil {
		t.Fatalf("IsOnline: %v", err)
	}
	if online {
		t.Fatal("user should read as offline after the liveness key lapses")
	}
}

func TestMarkOfflineClearsLivenessImmediately(t *testing.T) {
	service, _, _ := newPresenceFixture(t)
	ctx := context.Background()

	if _, err := service.Heartbeat(ctx, 42); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	status, err := service.MarkOffline(ctx, 42)
	if err != nil {
		t.Fatalf("MarkOffline: %v", err)
	}
	if status.IsOnline {
		t.Fatal("MarkOffline should record the offline state")
	}

	online, err := service.IsOnline(ctx, 42)
	if err != nil {
		t.Fatalf("IsOnline: %v", err)
	}
	if online {
		t.Fatal("user should read as offline immediately after MarkOffline")
	}
}

func TestIsOnlineUnknownUserIsOffline(t *testing.T) {
	service, _, _ := newPresenceFixture(t)

	online, err := service.IsOnline(context.Background(), 9999)
	if err != nil {
		t.Fatalf("IsOnline: %v", err)
	}
	if online {
		t.Fatal("a user with no presence record should read as offline")
	}
}

func TestGetStatusReturnsDefaultForUnknownUser(t *testing.T) {
	service, _, _ := newPresenceFixture(t)

	status, err := service.GetStatus(context.Background(), 9999)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.UserID != 9999 || status.IsOnline {
		t.Fatalf("expected offline default status, got %+v", status)
	}
}
