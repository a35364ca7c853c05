package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/liorbd/LuachBack/internal/models"
)

const TypeMessageNotification = "email:message_notification"

const emailQueue = "email"

type MessageNotificationPayload struct {
	RecipientID int64  `json:"recipient_id"`
	SenderName  string `json:"sender_name"`
	Preview     string `json:"preview"`
}

// Client enqueues notification tasks onto the Redis-backed queue.
type Client struct {
	client *asynq.Client
}

func NewClient(redisURL string) (*Client, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse redis url: %w", err)
	}
	return &Client{client: asynq.NewClient(opt)}, nil
}

func (c *Client) EnqueueMessageNotification(ctx context.Context, recipientID int64, senderName, preview string) error {
	payload, err := json.Marshal(MessageNotificationPayload{
		RecipientID: recipientID,
		SenderName:  senderName,
		Preview:     preview,
	})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TypeMessageNotification, payload)
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(emailQueue),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
	)
	return err
}

func (c *Client) Close() error {
	return c.client.Close()
}

type recipientReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// MessageNotificationHandler is the worker side: resolve the recipient's
// email and hand the message to the notifier.
type MessageNotificationHandler struct {
	users    recipientReader
	notifier Notifier
}

func NewMessageNotificationHandler(users recipientReader, notifier Notifier) *MessageNotificationHandler {
	return &MessageNotificationHandler{
		users:    users,
		notifier: notifier,
	}
}

func (h *MessageNotificationHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload MessageNotificationPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		// Malformed payloads never become deliverable; do not retry.
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	user, err := h.users.GetByID(ctx, payload.RecipientID)
	if err != nil {
		return fmt.Errorf("load recipient %d: %w", payload.RecipientID, err)
	}

	sender := payload.SenderName
	if sender == "" {
		sender = "משתמש"
	}

	subject := fmt.Sprintf("הודעה חדשה מ-%s", sender)
	body := fmt.Sprintf("%s שלח לך הודעה חדשה:\n\n%s\n\nהיכנס לאתר כדי להשיב.", sender, payload.Preview)

	if err := h.notifier.Send(ctx, user.Email, subject, body); err != nil {
		return err
	}

	log.Printf("notify: message notification sent to user %d", payload.RecipientID)
	return nil
}

// Mux builds the task router for the worker process.
func Mux(handler *MessageNotificationHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeMessageNotification, handler)
	return mux
}
