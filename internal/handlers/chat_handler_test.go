package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/liorbd/LuachBack/internal/models"
	"github.com/liorbd/LuachBack/internal/services"
	chatws "github.com/liorbd/LuachBack/internal/websocket"
)

type stubChatService struct {
	conversationsResult []models.ConversationSummary
	conversationsErr    error
	createResult        *models.Conversation
	createErr           error
	messagesResult      []models.ChatMessage
	messagesTotal       int
	messagesFlipped     int64
	messagesErr         error
	markReadResult      int64
	unreadResult        int
	peerResult          int64
	peerCalls           int
	lastActorID         int64
	lastRole            string
	lastNameFilter      string
	lastSellerID        int64
	lastConversationID  int64
	lastPage            int
	lastLimit           int
}

func (s *stubChatService) ListConversations(_ context.Context, actorID int64, role string, nameFilter string) ([]models.ConversationSummary, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastNameFilter = nameFilter
	return s.conversationsResult, s.conversationsErr
}

func (s *stubChatService) CreateConversation(_ context.Context, actorID int64, role string, sellerID int64) (*models.Conversation, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastSellerID = sellerID
	return s.createResult, s.createErr
}

func (s *stubChatService) ListMessages(_ context.Context, actorID int64, role string, conversationID int64, page int, limit int) ([]models.ChatMessage, int, int64, error) {
	s.lastActorID = actorID
	s.lastRole = role
	s.lastConversationID = conversationID
	s.lastPage = page
	s.lastLimit = limit
	return s.messagesResult, s.messagesTotal, s.messagesFlipped, s.messagesErr
}

func (s *stubChatService) MarkConversationRead(_ context.Context, actorID int64, _ string, conversationID int64) (int64, error) {
	s.lastActorID = actorID
	s.lastConversationID = conversationID
	return s.markReadResult, nil
}

func (s *stubChatService) SendMessage(_ context.Context, _ int64, _ string, _ int64, _ string) (*services.ChatDelivery, error) {
	return nil, nil
}

func (s *stubChatService) DeleteConversation(_ context.Context, actorID int64, _ string, conversationID int64) error {
	s.lastActorID = actorID
	s.lastConversationID = conversationID
	return nil
}

func (s *stubChatService) UnreadCount(_ context.Context, actorID int64, role string) (int, error) {
	s.lastActorID = actorID
	s.lastRole = role
	return s.unreadResult, nil
}

func (s *stubChatService) ConversationPeer(_ context.Context, _ int64, _ int64) (int64, error) {
	s.peerCalls++
	return s.peerResult, nil
}

func newChatTestApp(service *stubChatService, role, userID string) (*fiber.App, *ChatHandler) {
	handler := NewChatHandler(service, chatws.NewHub(), nil, "secret")
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("role", role)
		c.Locals("user_id", userID)
		return c.Next()
	})
	return app, handler
}

func TestListConversationsReturnsConversationSummaries(t *testing.T) {
	name := "דני המוכר"
	service := &stubChatService{
		conversationsResult: []models.ConversationSummary{
			{
				Conversation: models.Conversation{ID: 17, UserID: 42, SellerID: 8},
				OtherUserID:  8,
				OtherUserName: &name,
				LastMessage: &models.ChatMessage{
					ID:             3,
					ConversationID: 17,
					SenderID:       8,
					Content:        "הרכב עדיין זמין",
					CreatedAt:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
				},
				UnreadCount: 2,
			},
		},
	}
	app, handler := newChatTestApp(service, "user", "42")
	app.Get("/api/v1/conversations", handler.ListConversations)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations?q=%D7%93%D7%A0%D7%99", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastActorID != 42 || service.lastRole != "user" {
		t.Fatalf("unexpected actor context: %d %q", service.lastActorID, service.lastRole)
	}
	if service.lastNameFilter != "דני" {
		t.Fatalf("expected name filter to be forwarded, got %q", service.lastNameFilter)
	}

	var body struct {
		Conversations []models.ConversationSummary `json:"conversations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(body.Conversations) != 1 || body.Conversations[0].UnreadCount != 2 {
		t.Fatalf("unexpected response: %+v", body.Conversations)
	}
}

func TestCreateConversationReturnsCreatedConversation(t *testing.T) {
	service := &stubChatService{
		createResult: &models.Conversation{ID: 9, UserID: 42, SellerID: 7},
	}
	app, handler := newChatTestApp(service, "user", "42")
	app.Post("/api/v1/conversations", handler.CreateConversation)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations", strings.NewReader(`{"seller_id":7}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastSellerID != 7 {
		t.Fatalf("expected seller id 7, got %d", service.lastSellerID)
	}
}

func TestCreateConversationForbiddenForSellers(t *testing.T) {
	service := &stubChatService{}
	app, handler := newChatTestApp(service, "seller", "7")
	app.Post("/api/v1/conversations", handler.CreateConversation)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations", strings.NewReader(`{"seller_id":42}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestGetMessagesReturnsPagination(t *testing.T) {
	service := &stubChatService{
		messagesResult: []models.ChatMessage{
			{ID: 5, ConversationID: 11, SenderID: 7, Content: "שלום", CreatedAt: time.Now().UTC()},
		},
		messagesTotal: 12,
	}
	app, handler := newChatTestApp(service, "seller", "7")
	app.Get("/api/v1/conversations/:id/messages", handler.GetMessages)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/11/messages?page=2&limit=5", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastConversationID != 11 || service.lastPage != 2 || service.lastLimit != 5 {
		t.Fatalf("unexpected forwarded pagination: conversation=%d page=%d limit=%d", service.lastConversationID, service.lastPage, service.lastLimit)
	}

	var body struct {
		Messages   []models.ChatMessage  `json:"messages"`
		Pagination models.PaginationMeta `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(body.Messages) != 1 || body.Pagination.Total != 12 || body.Pagination.TotalPages != 3 {
		t.Fatalf("unexpected response body: %+v %+v", body.Messages, body.Pagination)
	}
}

func TestGetMessagesEmitsReadReceiptOnlyWhenMessagesFlip(t *testing.T) {
	service := &stubChatService{
		messagesResult: []models.ChatMessage{
			{ID: 5, ConversationID: 11, SenderID: 8, Content: "שלום", IsRead: true, CreatedAt: time.Now().UTC()},
		},
		messagesTotal: 1,
		peerResult:    8,
	}
	app, handler := newChatTestApp(service, "user", "42")
	app.Get("/api/v1/conversations/:id/messages", handler.GetMessages)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/11/messages", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()

	if service.peerCalls != 0 {
		t.Fatalf("expected no read receipt when nothing flipped, peer resolved %d times", service.peerCalls)
	}

	service.messagesFlipped = 1
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/conversations/11/messages", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()

	if service.peerCalls != 1 {
		t.Fatalf("expected one read receipt after a flip, peer resolved %d times", service.peerCalls)
	}
}

func TestGetMessagesReturnsNotFound(t *testing.T) {
	service := &stubChatService{messagesErr: pgx.ErrNoRows}
	app, handler := newChatTestApp(service, "seller", "7")
	app.Get("/api/v1/conversations/:id/messages", handler.GetMessages)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/99/messages", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetUnreadCountReturnsTotal(t *testing.T) {
	service := &stubChatService{unreadResult: 6}
	app, handler := newChatTestApp(service, "user", "42")
	app.Get("/api/v1/conversations/unread-count", handler.GetUnreadCount)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/unread-count", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		UnreadCount int `json:"unread_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.UnreadCount != 6 {
		t.Fatalf("expected unread count 6, got %d", body.UnreadCount)
	}
}

func TestMarkConversationReadReportsFlippedCount(t *testing.T) {
	service := &stubChatService{markReadResult: 3, peerResult: 8}
	app, handler := newChatTestApp(service, "user", "42")
	app.Post("/api/v1/conversations/:id/read", handler.MarkConversationRead)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/17/read", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastConversationID != 17 {
		t.Fatalf("expected conversation 17, got %d", service.lastConversationID)
	}

	var body struct {
		MarkedRead int64 `json:"marked_read"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.MarkedRead != 3 {
		t.Fatalf("expected 3 marked read, got %d", body.MarkedRead)
	}
}

func TestDeleteConversationReturnsNoContent(t *testing.T) {
	service := &stubChatService{}
	app, handler := newChatTestApp(service, "user", "42")
	app.Delete("/api/v1/conversations/:id", handler.DeleteConversation)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/conversations/17", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if service.lastConversationID != 17 {
		t.Fatalf("expected conversation 17, got %d", service.lastConversationID)
	}
}
