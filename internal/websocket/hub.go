package chatws

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/liorbd/LuachBack/internal/services"
)

type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Event
	typing     *TypingTracker
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte

	mu     sync.Mutex
	closed bool
}

// trySend queues a payload without blocking. It reports false when the
// client's buffer is full or its channel is already closed.
func (c *Client) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// closeSend shuts the outgoing channel exactly once; later sends and closes
// become no-ops.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

type chatSender interface {
	SendMessage(
		ctx context.Context,
		actorID int64,
		role string,
		conversationID int64,
		content string,
	) (*services.ChatDelivery, error)
	ConversationPeer(ctx context.Context, actorID int64, conversationID int64) (int64, error)
}

// Event is the wire format for everything the hub pushes: new messages,
// typing state, and read receipts.
type Event struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	SenderID       string `json:"sender_id,omitempty"`
	RecipientID    string `json:"recipient_id,omitempty"`
	Content        string `json:"content,omitempty"`
	IsTyping       bool   `json:"is_typing,omitempty"`
	Timestamp      string `json:"timestamp"`
}

const (
	EventMessage = "message"
	EventTyping  = "typing"
	EventRead    = "read"
	EventError   = "error"
)

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Event, 64),
		typing:     NewTypingTracker(),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 32),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			set, ok := h.clients[client.userID]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				delete(set, client)
				client.closeSend()
			}
			if len(set) == 0 {
				delete(h.clients, client.userID)
			}
		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast queues an event for delivery; REST handlers use it for read
// receipts.
func (h *Hub) Broadcast(event *Event) {
	h.broadcast <- event
}

// Typing exposes the tracker so tests and handlers can observe typing state.
func (h *Hub) Typing() *TypingTracker {
	return h.typing
}

func (h *Hub) deliver(event *Event) {
	encoded, err := json.Marshal(event)
	if err != nil {
		log.Printf("chat hub encode event: %v", err)
		return
	}

	switch event.Type {
	case EventMessage:
		// The sender's other tabs see their own message too.
		h.sendToUser(event.SenderID, encoded)
		if event.RecipientID != "" && event.RecipientID != event.SenderID {
			h.sendToUser(event.RecipientID, encoded)
		}
	default:
		// Typing and read events only concern the counterpart.
		if event.RecipientID != "" {
			h.sendToUser(event.RecipientID, encoded)
		}
	}
}

func (h *Hub) sendToUser(userID string, payload []byte) {
	set, ok := h.clients[userID]
	if !ok {
		return
	}

	for client := range set {
		if !client.trySend(payload) {
			delete(set, client)
			client.closeSend()
		}
	}
	if len(set) == 0 {
		delete(h.clients, userID)
	}
}

func (c *Client) ReadPump(service chatSender, role string) {
	defer func() {
		// Release typing state on every exit path so a vanished client
		// never leaves a stuck indicator.
		c.hub.typing.ClearUser(c.userID)
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	actorID, err := strconv.ParseInt(c.userID, 10, 64)
	if err != nil {
		writeError(c, "invalid user")
		return
	}

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var incoming struct {
			Type           string `json:"type"`
			ConversationID string `json:"conversation_id"`
			Content        string `json:"content"`
		}
		if err := json.Unmarshal(payload, &incoming); err != nil {
			writeError(c, "invalid message payload")
			continue
		}

		conversationID, err := strconv.ParseInt(incoming.ConversationID, 10, 64)
		if err != nil || conversationID <= 0 {
			writeError(c, "invalid conversation id")
			continue
		}

		switch incoming.Type {
		case "message":
			delivery, err := service.SendMessage(
				context.Background(),
				actorID,
				role,
				conversationID,
				incoming.Content,
			)
			if err != nil {
				writeError(c, "failed to send message")
				continue
			}

			c.hub.broadcast <- &Event{
				Type:           EventMessage,
				ConversationID: strconv.FormatInt(delivery.Message.ConversationID, 10),
				SenderID:       strconv.FormatInt(delivery.Message.SenderID, 10),
				RecipientID:    strconv.FormatInt(delivery.RecipientID, 10),
				Content:        delivery.Message.Content,
				Timestamp:      services.FormatChatTimestamp(delivery.Message.CreatedAt),
			}
		case "typing_start", "typing_stop":
			peerID, err := service.ConversationPeer(context.Background(), actorID, conversationID)
			if err != nil {
				writeError(c, "invalid conversation id")
				continue
			}
			c.relayTyping(incoming.ConversationID, strconv.FormatInt(peerID, 10), incoming.Type == "typing_start")
		default:
			writeError(c, "unsupported message type")
		}
	}
}

// relayTyping forwards the typing flag to the peer. A start (re)arms the
// inactivity timer; when it lapses with no further keystrokes the tracker
// broadcasts the stop on the client's behalf.
func (c *Client) relayTyping(conversationID, peerID string, isTyping bool) {
	hub := c.hub
	userID := c.userID

	if isTyping {
		hub.typing.Start(conversationID, userID, func() {
			hub.broadcast <- typingEvent(conversationID, userID, peerID, false)
		})
	} else {
		hub.typing.Stop(conversationID, userID)
	}

	hub.broadcast <- typingEvent(conversationID, userID, peerID, isTyping)
}

func typingEvent(conversationID, senderID, recipientID string, isTyping bool) *Event {
	return &Event{
		Type:           EventTyping,
		ConversationID: conversationID,
		SenderID:       senderID,
		RecipientID:    recipientID,
		IsTyping:       isTyping,
		Timestamp:      services.FormatChatTimestamp(time.Now().UTC()),
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func writeError(client *Client, message string) {
	payload, err := json.Marshal(Event{
		Type:      EventError,
		Content:   message,
		Timestamp: services.FormatChatTimestamp(time.Now().UTC()),
	})
	if err != nil {
		return
	}
	if !client.trySend(payload) {
		client.hub.Unregister(client)
	}
}
