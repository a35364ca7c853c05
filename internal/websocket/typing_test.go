package chatws

import (
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestTypingFlagVisibleToCounterpartOnly(t *testing.T) {
	tracker := NewTypingTracker()
	tracker.Start("17", "42", nil)

	if !tracker.IsOtherTyping("17", "8") {
		t.Fatal("counterpart should see the typing flag")
	}
	if tracker.IsOtherTyping("17", "42") {
		t.Fatal("the typist must not see their own flag")
	}
	if tracker.IsOtherTyping("99", "8") {
		t.Fatal("flag must be scoped to its conversation")
	}
}

func TestTypingFlagExpiresAfterInactivity(t *testing.T) {
	tracker := NewTypingTracker()
	tracker.SetTimeout(20 * time.Millisecond)

	var stops atomic.Int32
	tracker.Start("17", "42", func() { stops.Add(1) })

	if !tracker.IsOtherTyping("17", "8") {
		t.Fatal("flag should be set right after start")
	}

	waitFor(t, time.Second, func() bool { return stops.Load() == 1 })
	if tracker.IsOtherTyping("17", "8") {
		t.Fatal("flag should be cleared after the inactivity window")
	}
}

func TestTypingRestartRearmsTimer(t *testing.T) {
	tracker := NewTypingTracker()
	tracker.SetTimeout(50 * time.Millisecond)

	var stops atomic.Int32
	tracker.Start("17", "42", func() { stops.Add(1) })

	// Keep typing faster than the window; the flag must survive.
	for i := 0; i < 4; i++ {
		time.Sleep(20 * time.Millisecond)
		tracker.Start("17", "42", func() { stops.Add(1) })
	}

	if stops.Load() != 0 {
		t.Fatalf("no implicit stop expected while typing continues, got %d", stops.Load())
	}
	if !tracker.IsOtherTyping("17", "8") {
		t.Fatal("flag should still be set while keystrokes keep arriving")
	}

	waitFor(t, time.Second, func() bool { return stops.Load() == 1 })
}

func TestExplicitStopDoesNotFireCallback(t *testing.T) {
	tracker := NewTypingTracker()
	tracker.SetTimeout(20 * time.Millisecond)

	var stops atomic.Int32
	tracker.Start("17", "42", func() { stops.Add(1) })
	tracker.Stop("17", "42")

	if tracker.IsOtherTyping("17", "8") {
		t.Fatal("explicit stop should clear the flag")
	}

	time.Sleep(60 * time.Millisecond)
	if stops.Load() != 0 {
		t.Fatalf("onStop must not fire after an explicit stop, got %d", stops.Load())
	}
}

func TestClearUserDropsAllFlagsAndNotifies(t *testing.T) {
	tracker := NewTypingTracker()

	var stops atomic.Int32
	tracker.Start("17", "42", func() { stops.Add(1) })
	tracker.Start("23", "42", func() { stops.Add(1) })
	tracker.Start("17", "8", nil)

	tracker.ClearUser("42")

	if stops.Load() != 2 {
		t.Fatalf("expected both of the user's flags to notify, got %d", stops.Load())
	}
	if !tracker.IsOtherTyping("17", "42") {
		t.Fatal("the other user's flag must survive ClearUser")
	}
	if tracker.IsOtherTyping("23", "8") {
		t.Fatal("cleared user's flag should be gone")
	}
}
