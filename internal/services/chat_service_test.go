package services

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
)

// A populated badge key answers UnreadCount without touching the database,
// so wiring only the cache is enough here.
func newBadgeCacheService(t *testing.T) (*ChatService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewChatService(nil, nil, nil, nil, nil).WithBadgeCache(client), mr
}

func TestUnreadCountServedFromBadgeCache(t *testing.T) {
	service, mr := newBadgeCacheService(t)

	if err := mr.Set("unread:42", "6"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	count, err := service.UnreadCount(context.Background(), 42, "user")
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 6 {
		t.Fatalf("expected cached total 6, got %d", count)
	}
}

func TestUnreadBadgeInvalidationDropsKey(t *testing.T) {
	service, mr := newBadgeCacheService(t)

	if err := mr.Set("unread:42", "6"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	service.invalidateUnread(context.Background(), 42)

	if mr.Exists("unread:42") {
		t.Fatal("invalidation should drop the cached badge total")
	}
}

func TestUnreadCountRejectsUnknownRole(t *testing.T) {
	service, _ := newBadgeCacheService(t)

	if _, err := service.UnreadCount(context.Background(), 42, "admin"); err != ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
