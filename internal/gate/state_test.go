package gate

import (
	"fmt"
	"testing"
	"time"
)

func TestAlertState_HistoryIsBounded(t *testing.T) {
	st := &AlertState{AlertID: "a1"}
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < historyCap+5; i++ {
		st.appendHash(fmt.Sprintf("hash-%d", i), 1, at.Add(time.Duration(i)*time.Minute))
	}

	if len(st.history) != historyCap {
		t.Fatalf("expected history capped at %d, got %d", historyCap, len(st.history))
	}
	// Oldest entries are discarded; the last entry is always the current hash.
	if st.history[0].Hash != "hash-5" {
		t.Errorf("expected oldest surviving entry 'hash-5', got %q", st.history[0].Hash)
	}
	if st.currentHash() != fmt.Sprintf("hash-%d", historyCap+4) {
		t.Errorf("expected current hash 'hash-%d', got %q", historyCap+4, st.currentHash())
	}
}

func TestAlertState_MaxPriority(t *testing.T) {
	st := &AlertState{AlertID: "a1"}
	at := time.Now()

	st.appendHash("h1", 3, at)
	st.appendHash("h2", 5, at)
	st.appendHash("h3", 2, at)

	if got := st.maxPriority(); got != 5 {
		t.Errorf("maxPriority = %d, want 5", got)
	}
}

func TestAlertState_Expired(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	fresh := &AlertState{FirstSeen: now.Add(-6 * 24 * time.Hour)}
	if fresh.expired(now) {
		t.Error("state first seen 6 days ago must not be expired")
	}

	old := &AlertState{FirstSeen: now.Add(-8 * 24 * time.Hour)}
	if !old.expired(now) {
		t.Error("state first seen 8 days ago must be expired")
	}
}
