package gate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/skywatch/skywatch/internal/wx"
)

func TestPersistence_RoundTrip(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "alert_state.json")
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	settings := testSettings()
	settings.PerAlertCooldown = 0
	m1 := NewManager(statePath, settings)

	a := severeAlert("A1")
	a.Sent = now.Add(-time.Minute)
	m1.ProcessAt([]wx.Alert{a}, now)

	// Grow a multi-entry history.
	a.Description = "rev 2"
	m1.ProcessAt([]wx.Alert{a}, now.Add(time.Minute))
	a.Description = "rev 3"
	a.Severity = "Extreme"
	m1.ProcessAt([]wx.Alert{a}, now.Add(2*time.Minute))

	m2 := NewManager(statePath, settings)
	m2.mu.Lock()
	m2.ensureLoadedLocked()
	st := m2.states[UniqueID(a)]
	m2.mu.Unlock()

	if st == nil {
		t.Fatal("expected state to survive reload")
	}
	if len(st.history) != 3 {
		t.Fatalf("expected 3 history entries after reload, got %d", len(st.history))
	}
	if st.currentHash() != ContentHash(a) {
		t.Error("expected current hash to survive reload")
	}
	if st.maxPriority() != wx.PriorityExtreme {
		t.Errorf("expected max priority %d after reload, got %d", wx.PriorityExtreme, st.maxPriority())
	}
	if st.NotificationCount != 3 {
		t.Errorf("expected notification count 3 after reload, got %d", st.NotificationCount)
	}
	if !st.FirstSeen.Equal(now) {
		t.Errorf("expected first seen %v, got %v", now, st.FirstSeen)
	}
	if !st.AlertSentTime.Equal(a.Sent) {
		t.Errorf("expected alert sent time %v, got %v", a.Sent, st.AlertSentTime)
	}
}

func TestPersistence_LegacySingleHashMigration(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "alert_state.json")
	firstSeen := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)

	legacy := `{
		"alert_states": [
			{
				"alert_id": "A1",
				"first_seen": "` + firstSeen.Format(time.RFC3339) + `",
				"last_notified": null,
				"notification_count": 2,
				"alert_sent_time": null,
				"content_hash": "deadbeef"
			}
		],
		"last_global_notification": null,
		"saved_at": "` + firstSeen.Format(time.RFC3339) + `"
	}`
	if err := os.WriteFile(statePath, []byte(legacy), 0600); err != nil {
		t.Fatalf("writing legacy fixture: %v", err)
	}

	m := NewManager(statePath, testSettings())
	m.mu.Lock()
	m.ensureLoadedLocked()
	st := m.states["A1"]
	m.mu.Unlock()

	if st == nil {
		t.Fatal("expected legacy record to be migrated")
	}
	if len(st.history) != 1 {
		t.Fatalf("expected 1 migrated history entry, got %d", len(st.history))
	}
	if st.currentHash() != "deadbeef" {
		t.Errorf("expected migrated hash 'deadbeef', got %q", st.currentHash())
	}
	// Legacy records carry no severity; the migration records unknown.
	if st.maxPriority() != wx.PriorityUnknown {
		t.Errorf("expected migrated priority %d, got %d", wx.PriorityUnknown, st.maxPriority())
	}
	if !st.LastNotified.IsZero() {
		t.Error("expected null last_notified to restore as never-notified")
	}
	if st.NotificationCount != 2 {
		t.Errorf("expected notification count 2, got %d", st.NotificationCount)
	}
}

func TestPersistence_CorruptFileStartsEmpty(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "alert_state.json")
	if err := os.WriteFile(statePath, []byte("{truncated"), 0600); err != nil {
		t.Fatalf("writing corrupt fixture: %v", err)
	}

	m := NewManager(statePath, testSettings())
	got := m.ProcessAt([]wx.Alert{severeAlert("A1")}, time.Now().UTC())
	if len(got) != 1 || got[0].Reason != ReasonNewAlert {
		t.Fatalf("expected corrupt state to degrade to empty, got %v", decisionReasons(got))
	}
}

func TestPersistence_SaveFailureIsSwallowed(t *testing.T) {
	// A state path whose parent cannot be created makes every save fail.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("writing blocker: %v", err)
	}

	m := NewManager(filepath.Join(blocker, "alert_state.json"), testSettings())
	got := m.ProcessAt([]wx.Alert{severeAlert("A1")}, time.Now().UTC())
	if len(got) != 1 {
		t.Fatalf("expected decisions despite save failure, got %d", len(got))
	}
}

func TestPersistence_FileFormatAndPermissions(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "alert_state.json")
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	m := NewManager(statePath, testSettings())
	m.ProcessAt([]wx.Alert{severeAlert("A1")}, now)

	info, err := os.Stat(statePath)
	if err != nil {
		t.Fatalf("expected state file to exist: %v", err)
	}
	if runtime.GOOS != "windows" {
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("expected owner-only permissions 0600, got %o", perm)
		}
	}

	data, err := os.ReadFile(statePath)
	if err != nil {
		t.Fatalf("reading state file: %v", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("state file is not valid JSON: %v", err)
	}
	for _, key := range []string{"alert_states", "last_global_notification", "saved_at"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("state file missing %q", key)
		}
	}

	// hash_history entries are [hash, priority, unix_timestamp] arrays.
	var states []struct {
		AlertID     string   `json:"alert_id"`
		HashHistory [][3]any `json:"hash_history"`
	}
	if err := json.Unmarshal(doc["alert_states"], &states); err != nil {
		t.Fatalf("decoding alert_states: %v", err)
	}
	if len(states) != 1 || len(states[0].HashHistory) != 1 {
		t.Fatalf("expected 1 state with 1 hash history triple, got %+v", states)
	}
	triple := states[0].HashHistory[0]
	if _, ok := triple[0].(string); !ok {
		t.Errorf("expected hash string in triple, got %T", triple[0])
	}
	if _, ok := triple[1].(float64); !ok {
		t.Errorf("expected numeric priority in triple, got %T", triple[1])
	}
	if _, ok := triple[2].(float64); !ok {
		t.Errorf("expected numeric timestamp in triple, got %T", triple[2])
	}
}

func TestPersistence_RetentionPurgeOnSave(t *testing.T) {
	m := newTestManager(t, testSettings())
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	m.ProcessAt([]wx.Alert{severeAlert("OLD")}, start)

	// Eight days later a new alert triggers a save, which purges the
	// retention-expired state first.
	m.ProcessAt([]wx.Alert{severeAlert("NEW")}, start.Add(8*24*time.Hour))

	m.mu.Lock()
	_, oldTracked := m.states["OLD"]
	_, newTracked := m.states["NEW"]
	m.mu.Unlock()

	if oldTracked {
		t.Error("expected retention-expired state to be purged on save")
	}
	if !newTracked {
		t.Error("expected fresh state to be retained")
	}
}
