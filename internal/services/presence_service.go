package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	redis "github.com/redis/go-redis/v9"

	"github.com/liorbd/LuachBack/internal/models"
	"github.com/liorbd/LuachBack/internal/repository"
)

const (
	// Liveness key TTL; clients heartbeat every 30s, so one missed beat is
	// tolerated before the user reads as offline.
	onlineTTL = 60 * time.Second

	// How long a durable online row stays trusted when Redis is unavailable.
	// A crashed client stops heartbeating, so a stale row past this window
	// reads as offline.
	rowStaleness = 90 * time.Second
)

type onlineStatusStore interface {
	Upsert(ctx context.Context, userID int64, isOnline bool) (*models.OnlineStatus, error)
	GetByUserID(ctx context.Context, userID int64) (*models.OnlineStatus, error)
}

// PresenceService keeps a durable last-seen row per identity in Postgres and
// a TTL liveness key in Redis. The row is the record; the key is the truth
// about "now".
type PresenceService struct {
	statusRepo onlineStatusStore
	redis      *redis.Client
}

func NewPresenceService(statusRepo onlineStatusStore, redisClient *redis.Client) *PresenceService {
	return &PresenceService{
		statusRepo: statusRepo,
		redis:      redisClient,
	}
}

func onlineKey(userID int64) string {
	return fmt.Sprintf("online:%d", userID)
}

// Heartbeat marks the identity online: refresh the Redis liveness key and
// upsert the durable row.
func (s *PresenceService) Heartbeat(ctx context.Context, userID int64) (*models.OnlineStatus, error) {
	if userID <= 0 {
		return nil, ErrInvalidInput
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, onlineKey(userID), "1", onlineTTL).Err(); err != nil {
			return nil, err
		}
	}

	return s.statusRepo.Upsert(ctx, userID, true)
}

// MarkOffline is the page-unload / disconnect path.
func (s *PresenceService) MarkOffline(ctx context.Context, userID int64) (*models.OnlineStatus, error) {
	if userID <= 0 {
		return nil, ErrInvalidInput
	}

	if s.redis != nil {
		if err := s.redis.Del(ctx, onlineKey(userID)).Err(); err != nil {
			return nil, err
		}
	}

	return s.statusRepo.Upsert(ctx, userID, false)
}

func (s *PresenceService) IsOnline(ctx context.Context, userID int64) (bool, error) {
	if s.redis != nil {
		n, err := s.redis.Exists(ctx, onlineKey(userID)).Result()
		if err == nil {
			return n > 0, nil
		}
		// Redis down degrades to the durable row, it does not fail the caller.
	}

	status, err := s.statusRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	return status.IsOnline && time.Since(status.LastSeen) < rowStaleness, nil
}

// GetStatus returns the viewed identity's presence: live boolean plus the
// durable last-seen timestamp.
func (s *PresenceService) GetStatus(ctx context.Context, userID int64) (*models.OnlineStatus, error) {
	status, err := s.statusRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &models.OnlineStatus{UserID: userID, IsOnline: false}, nil
		}
		return nil, err
	}

	online, err := s.IsOnline(ctx, userID)
	if err != nil {
		return nil, err
	}
	status.IsOnline = online
	return status, nil
}

var _ onlineStatusStore = (*repository.OnlineStatusRepository)(nil)
