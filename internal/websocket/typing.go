package chatws

import (
	"sync"
	"time"
)

// DefaultTypingTimeout is how long a typing flag survives without being
// refreshed by another keystroke.
const DefaultTypingTimeout = 3 * time.Second

type typingKey struct {
	conversationID string
	userID         string
}

type typingEntry struct {
	timer  *time.Timer
	onStop func()
}

// TypingTracker holds the ephemeral per-conversation typing flags. Nothing
// here is persisted; state exists only while a subscription is live and is
// auto-cleared after the inactivity window.
type TypingTracker struct {
	mu      sync.Mutex
	timeout time.Duration
	entries map[typingKey]*typingEntry
}

func NewTypingTracker() *TypingTracker {
	return &TypingTracker{
		timeout: DefaultTypingTimeout,
		entries: make(map[typingKey]*typingEntry),
	}
}

// SetTimeout overrides the inactivity window; tests use this to avoid real
// three-second waits.
func (t *TypingTracker) SetTimeout(d time.Duration) {
	t.mu.Lock()
	t.timeout = d
	t.mu.Unlock()
}

// Start flags the user as typing in the conversation and (re)arms the
// inactivity timer. When the timer lapses the flag is dropped and onStop runs
// so the counterpart learns about the implicit stop.
func (t *TypingTracker) Start(conversationID, userID string, onStop func()) {
	key := typingKey{conversationID: conversationID, userID: userID}

	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, ok := t.entries[key]; ok {
		entry.timer.Reset(t.timeout)
		entry.onStop = onStop
		return
	}

	entry := &typingEntry{onStop: onStop}
	entry.timer = time.AfterFunc(t.timeout, func() {
		t.expire(key)
	})
	t.entries[key] = entry
}

// Stop clears the flag without firing onStop; the caller broadcasts the
// explicit stop itself.
func (t *TypingTracker) Stop(conversationID, userID string) {
	key := typingKey{conversationID: conversationID, userID: userID}

	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, ok := t.entries[key]; ok {
		entry.timer.Stop()
		delete(t.entries, key)
	}
}

// ClearUser drops every flag the user holds, firing onStop for each so peers
// are told. Called when a connection goes away on any path.
func (t *TypingTracker) ClearUser(userID string) {
	t.mu.Lock()
	var callbacks []func()
	for key, entry := range t.entries {
		if key.userID != userID {
			continue
		}
		entry.timer.Stop()
		if entry.onStop != nil {
			callbacks = append(callbacks, entry.onStop)
		}
		delete(t.entries, key)
	}
	t.mu.Unlock()

	for _, onStop := range callbacks {
		onStop()
	}
}

// IsOtherTyping reports whether any identity other than selfID is currently
// flagged in the conversation. Last write wins per identity.
func (t *TypingTracker) IsOtherTyping(conversationID, selfID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key := range t.entries {
		if key.conversationID == conversationID && key.userID != selfID {
			return true
		}
	}
	return false
}

func (t *TypingTracker) expire(key typingKey) {
	t.mu.Lock()
	entry, ok := t.entries[key]
	if !ok {
		t.mu.Unlock()
		return
	}
	delete(t.entries, key)
	onStop := entry.onStop
	t.mu.Unlock()

	if onStop != nil {
		onStop()
	}
}
