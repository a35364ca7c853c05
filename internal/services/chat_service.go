package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	"github.com/liorbd/LuachBack/internal/models"
	"github.com/liorbd/LuachBack/internal/repository"
)

// How long a cached unread badge total stays valid before the next read
// recounts from the database.
const unreadCacheTTL = 30 * time.Second

var (
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInvalidInput   = errors.New("invalid input")
	ErrSellerNotFound = errors.New("seller not found")
)

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type profileReader interface {
	GetByUserID(ctx context.Context, userID int64) (*models.Profile, error)
}

type presenceChecker interface {
	IsOnline(ctx context.Context, userID int64) (bool, error)
}

type notificationEnqueuer interface {
	EnqueueMessageNotification(ctx context.Context, recipientID int64, senderName, preview string) error
}

type ChatService struct {
	db               *pgxpool.Pool
	conversationRepo *repository.ConversationRepository
	messageRepo      *repository.MessageRepository
	userRepo         userReader
	profileRepo      profileReader
	presence         presenceChecker
	notifications    notificationEnqueuer
	redis            *redis.Client
}

type ChatDelivery struct {
	Conversation *models.Conversation
	Message      *models.ChatMessage
	RecipientID  int64
}

func NewChatService(
	db *pgxpool.Pool,
	conversationRepo *repository.ConversationRepository,
	messageRepo *repository.MessageRepository,
	userRepo userReader,
	profileRepo profileReader,
) *ChatService {
	return &ChatService{
		db:               db,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
		profileRepo:      profileRepo,
	}
}

// WithNotifications wires the offline-recipient email path. Both collaborators
// are optional; without them SendMessage simply skips the notification step.
func (s *ChatService) WithNotifications(presence presenceChecker, notifications notificationEnqueuer) *ChatService {
	s.presence = presence
	s.notifications = notifications
	return s
}

// WithBadgeCache keeps a short-lived unread total per user in Redis under
// unread:<id>. Best effort: the database recount wins on expiry and on
// invalidation; without Redis every badge read recounts.
func (s *ChatService) WithBadgeCache(redisClient *redis.Client) *ChatService {
	s.redis = redisClient
	return s
}

func unreadKey(userID int64) string {
	return fmt.Sprintf("unread:%d", userID)
}

func (s *ChatService) ListConversations(
	ctx context.Context,
	actorID int64,
	role string,
	nameFilter string,
) ([]models.ConversationSummary, error) {
	if role != "user" && role != "seller" {
		return nil, ErrForbidden
	}

	return s.conversationRepo.ListForParticipant(ctx, actorID, strings.TrimSpace(nameFilter))
}

func (s *ChatService) CreateConversation(
	ctx context.Context,
	actorID int64,
	role string,
	sellerID int64,
) (*models.Conversation, error) {
	if role != "user" {
		return nil, ErrForbidden
	}
	if sellerID <= 0 || sellerID == actorID {
		return nil, ErrInvalidInput
	}

	seller, err := s.userRepo.GetByID(ctx, sellerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSellerNotFound
		}
		return nil, err
	}
	if seller.Role != "seller" {
		return nil, ErrInvalidInput
	}

	return s.conversationRepo.CreateOrGet(ctx, actorID, sellerID)
}

// ListMessages returns a page of the transcript and, in the same transaction,
// marks the fetched foreign messages read. is_read only ever moves
// false -> true and only for the non-sender. The third return value is how
// many messages actually flipped, so callers emit a read event only when
// something changed.
func (s *ChatService) ListMessages(
	ctx context.Context,
	actorID int64,
	role string,
	conversationID int64,
	page int,
	limit int,
) ([]models.ChatMessage, int, int64, error) {
	if role != "user" && role != "seller" {
		return nil, 0, 0, ErrForbidden
	}
	if conversationID <= 0 || page <= 0 || limit <= 0 {
		return nil, 0, 0, ErrInvalidInput
	}

	_, err := s.conversationRepo.GetByIDForParticipant(ctx, conversationID, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, 0, pgx.ErrNoRows
		}
		return nil, 0, 0, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, 0, 0, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)

	messages, total, err := txMessageRepo.ListByConversation(
		ctx,
		conversationID,
		limit,
		(page-1)*limit,
	)
	if err != nil {
		return nil, 0, 0, err
	}

	messageIDs := make([]int64, 0, len(messages))
	for _, message := range messages {
		messageIDs = append(messageIDs, message.ID)
	}

	if err := txMessageRepo.MarkMessagesRead(ctx, messageIDs, actorID); err != nil {
		return nil, 0, 0, err
	}

	var flipped int64
	for i := range messages {
		if messages[i].SenderID != actorID && !messages[i].IsRead {
			messages[i].IsRead = true
			flipped++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, 0, err
	}

	if flipped > 0 {
		s.invalidateUnread(ctx, actorID)
	}

	return messages, total, flipped, nil
}

// MarkConversationRead flags every foreign message in the conversation as read
// and reports how many flipped, so callers can emit a read event only when
// something actually changed.
func (s *ChatService) MarkConversationRead(
	ctx context.Context,
	actorID int64,
	role string,
	conversationID int64,
) (int64, error) {
	if role != "user" && role != "seller" {
		return 0, ErrForbidden
	}
	if conversationID <= 0 {
		return 0, ErrInvalidInput
	}

	_, err := s.conversationRepo.GetByIDForParticipant(ctx, conversationID, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, pgx.ErrNoRows
		}
		return 0, err
	}

	marked, err := s.messageRepo.MarkConversationRead(ctx, conversationID, actorID)
	if err != nil {
		return 0, err
	}
	if marked > 0 {
		s.invalidateUnread(ctx, actorID)
	}
	return marked, nil
}

func (s *ChatService) SendMessage(
	ctx context.Context,
	actorID int64,
	role string,
	conversationID int64,
	content string,
) (*ChatDelivery, error) {
	if role != "user" && role != "seller" {
		return nil, ErrForbidden
	}
	if conversationID <= 0 {
		return nil, ErrInvalidInput
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, ErrInvalidInput
	}

	conversation, err := s.conversationRepo.GetByIDForParticipant(ctx, conversationID, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	recipientID := conversation.UserID
	if actorID == conversation.UserID {
		recipientID = conversation.SellerID
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)
	txConversationRepo := repository.NewConversationRepository(tx)

	message, err := txMessageRepo.Create(ctx, conversationID, actorID, trimmed)
	if err != nil {
		return nil, err
	}

	if err := txConversationRepo.Touch(ctx, conversationID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	delivery := &ChatDelivery{
		Conversation: conversation,
		Message:      message,
		RecipientID:  recipientID,
	}

	s.invalidateUnread(ctx, recipientID)
	s.notifyIfOffline(ctx, delivery)

	return delivery, nil
}

// DeleteConversation removes the transcript and the conversation row in one
// transaction, so a half-deleted conversation can never be observed.
func (s *ChatService) DeleteConversation(
	ctx context.Context,
	actorID int64,
	role string,
	conversationID int64,
) error {
	if role != "user" && role != "seller" {
		return ErrForbidden
	}
	if conversationID <= 0 {
		return ErrInvalidInput
	}

	_, err := s.conversationRepo.GetByIDForParticipant(ctx, conversationID, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)
	txConversationRepo := repository.NewConversationRepository(tx)

	if err := txMessageRepo.DeleteByConversation(ctx, conversationID); err != nil {
		return err
	}
	if err := txConversationRepo.Delete(ctx, conversationID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *ChatService) UnreadCount(ctx context.Context, actorID int64, role string) (int, error) {
	if role != "user" && role != "seller" {
		return 0, ErrForbidden
	}

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, unreadKey(actorID)).Int(); err == nil {
			return cached, nil
		}
	}

	count, err := s.messageRepo.CountUnreadForUser(ctx, actorID)
	if err != nil {
		return 0, err
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, unreadKey(actorID), count, unreadCacheTTL).Err(); err != nil {
			log.Printf("chat: cache unread total for user %d: %v", actorID, err)
		}
	}

	return count, nil
}

// invalidateUnread drops the cached badge total so the next read recounts
// from the database. Failures only cost freshness until the TTL lapses.
func (s *ChatService) invalidateUnread(ctx context.Context, userID int64) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, unreadKey(userID)).Err(); err != nil {
		log.Printf("chat: invalidate unread total for user %d: %v", userID, err)
	}
}

// ConversationPeer resolves the other participant of a conversation the actor
// belongs to. Used to route typing events.
func (s *ChatService) ConversationPeer(ctx context.Context, actorID int64, conversationID int64) (int64, error) {
	conversation, err := s.conversationRepo.GetByIDForParticipant(ctx, conversationID, actorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrForbidden
		}
		return 0, err
	}

	if actorID == conversation.UserID {
		return conversation.SellerID, nil
	}
	return conversation.UserID, nil
}

// notifyIfOffline enqueues an email for recipients with no live presence.
// Fire-and-forget: failures are logged and never fail the send path.
func (s *ChatService) notifyIfOffline(ctx context.Context, delivery *ChatDelivery) {
	if s.presence == nil || s.notifications == nil {
		return
	}

	online, err := s.presence.IsOnline(ctx, delivery.RecipientID)
	if err != nil {
		log.Printf("chat: presence check for user %d: %v", delivery.RecipientID, err)
		return
	}
	if online {
		return
	}

	senderName := ""
	if profile, err := s.profileRepo.GetByUserID(ctx, delivery.Message.SenderID); err == nil && profile.DisplayName != nil {
		senderName = *profile.DisplayName
	}

	preview := delivery.Message.Content
	if runes := []rune(preview); len(runes) > 120 {
		preview = string(runes[:120])
	}

	if err := s.notifications.EnqueueMessageNotification(ctx, delivery.RecipientID, senderName, preview); err != nil {
		log.Printf("chat: enqueue message notification for user %d: %v", delivery.RecipientID, err)
	}
}

func FormatChatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
