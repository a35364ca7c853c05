package chatws

import (
	"testing"
	"time"
)

func TestWriteErrorAfterDroppedClientDoesNotPanic(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := NewClient(hub, nil, "42")
	hub.Register(client)

	// Saturate the buffer so the next write has to drop the client.
	for i := 0; i < cap(client.send); i++ {
		if !client.trySend([]byte("{}")) {
			t.Fatal("buffer filled early")
		}
	}

	writeError(client, "slow consumer")

	waitFor(t, time.Second, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.closed
	})

	// The channel is closed now; a second error must degrade to a no-op
	// instead of panicking on the closed channel.
	writeError(client, "slow consumer")
}
