package gate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// stateFile is the on-disk JSON document holding all tracked alert states
// and the last global-notification timestamp.
type stateFile struct {
	AlertStates            []stateRecord `json:"alert_states"`
	LastGlobalNotification *time.Time    `json:"last_global_notification"`
	SavedAt                time.Time     `json:"saved_at"`
}

// stateRecord is the wire form of one AlertState. ContentHash carries the
// legacy single-hash format, accepted on load and migrated into a one-entry
// history.
type stateRecord struct {
	AlertID           string          `json:"alert_id"`
	FirstSeen         time.Time       `json:"first_seen"`
	LastNotified      *time.Time      `json:"last_notified"`
	NotificationCount int             `json:"notification_count"`
	AlertSentTime     *time.Time      `json:"alert_sent_time"`
	HashHistory       []historyTriple `json:"hash_history,omitempty"`
	ContentHash       string          `json:"content_hash,omitempty"`
}

// historyTriple encodes a hash-history entry as the [hash, priority,
// unix_timestamp] array the state file uses.
type historyTriple struct {
	Hash     string
	Priority int
	At       float64
}

func (t historyTriple) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]any{t.Hash, t.Priority, t.At})
}

func (t *historyTriple) UnmarshalJSON(data []byte) error {
	var raw [3]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("hash history entry is not a 3-element array: %w", err)
	}
	if err := json.Unmarshal(raw[0], &t.Hash); err != nil {
		return fmt.Errorf("hash history hash: %w", err)
	}
	if err := json.Unmarshal(raw[1], &t.Priority); err != nil {
		return fmt.Errorf("hash history priority: %w", err)
	}
	if err := json.Unmarshal(raw[2], &t.At); err != nil {
		return fmt.Errorf("hash history timestamp: %w", err)
	}
	return nil
}

// loadStateFile reads and decodes the persisted state. A missing file is an
// empty state, not an error.
func loadStateFile(path string) (*stateFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &stateFile{}, nil
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var sf stateFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing state file: %w", err)
	}
	return &sf, nil
}

// restoreState converts a decoded record into the in-memory form, migrating
// legacy single-hash records into a one-entry history with unknown priority.
// Records with neither a history nor a legacy hash are dropped as corrupt.
func restoreState(rec stateRecord) *AlertState {
	st := &AlertState{
		AlertID:           rec.AlertID,
		FirstSeen:         rec.FirstSeen,
		NotificationCount: rec.NotificationCount,
	}
	if rec.LastNotified != nil {
		st.LastNotified = *rec.LastNotified
	}
	if rec.AlertSentTime != nil {
		st.AlertSentTime = *rec.AlertSentTime
	}

	for _, t := range rec.HashHistory {
		st.appendHash(t.Hash, t.Priority, time.Unix(0, int64(t.At*float64(time.Second))).UTC())
	}
	if len(st.history) == 0 {
		if rec.ContentHash == "" {
			return nil
		}
		st.appendHash(rec.ContentHash, 1, rec.FirstSeen)
	}
	return st
}

// encodeState converts an in-memory state into its wire record.
func encodeState(st *AlertState) stateRecord {
	rec := stateRecord{
		AlertID:           st.AlertID,
		FirstSeen:         st.FirstSeen,
		NotificationCount: st.NotificationCount,
	}
	if !st.LastNotified.IsZero() {
		ln := st.LastNotified
		rec.LastNotified = &ln
	}
	if !st.AlertSentTime.IsZero() {
		ast := st.AlertSentTime
		rec.AlertSentTime = &ast
	}
	for _, e := range st.history {
		rec.HashHistory = append(rec.HashHistory, historyTriple{
			Hash:     e.Hash,
			Priority: e.Priority,
			At:       float64(e.At.UnixNano()) / float64(time.Second),
		})
	}
	return rec
}

// writeStateFile writes the state document atomically: the JSON is written
// to a temporary file in the same directory, restricted to owner-only
// permissions, then renamed over the real file so a crash mid-write never
// leaves a truncated state file behind.
func writeStateFile(path string, sf *stateFile) error {
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing temp state file: %w", err)
	}

	if err := os.Chmod(tmpPath, 0600); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("restricting state file permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}
