package models

import "time"

type Conversation struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	SellerID  int64     `json:"seller_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ChatMessage struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	Content        string    `json:"content"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationSummary is a conversation as seen by one participant: the other
// party's public profile fields are flattened in regardless of which side of
// the pairing that party holds.
type ConversationSummary struct {
	Conversation
	OtherUserID     int64        `json:"other_user_id"`
	OtherUserName   *string      `json:"other_user_name"`
	OtherUserAvatar *string      `json:"other_user_avatar"`
	LastMessage     *ChatMessage `json:"last_message,omitempty"`
	UnreadCount     int          `json:"unread_count"`
}
