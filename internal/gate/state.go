package gate

import (
	"time"

	"github.com/skywatch/skywatch/internal/wx"
)

// historyCap bounds the per-alert hash history. When full, the oldest entry
// is discarded on append.
const historyCap = 10

// retentionWindow is how long a tracked alert is kept after it was first
// seen. Older states are purged before every save.
const retentionWindow = 7 * 24 * time.Hour

// hashEntry is one observed content version of a tracked alert.
type hashEntry struct {
	Hash     string
	Priority int
	At       time.Time
}

// AlertState is the tracked history for one alert ID. Once a state exists
// its history holds at least one entry; the last entry is the current hash
// and the maximum-priority entry governs escalation comparisons.
type AlertState struct {
	AlertID           string
	FirstSeen         time.Time
	LastNotified      time.Time // zero means never notified
	NotificationCount int
	AlertSentTime     time.Time // provider issuance time, zero when unknown
	history           []hashEntry
}

// newAlertState creates the state for a first-seen alert with a single
// history entry for its current content.
func newAlertState(id string, a wx.Alert, now time.Time) *AlertState {
	st := &AlertState{
		AlertID:       id,
		FirstSeen:     now,
		AlertSentTime: a.IssuedAt(),
	}
	st.appendHash(ContentHash(a), a.Priority(), now)
	return st
}

// appendHash records a new content version, discarding the oldest entry
// when the bounded history is full.
func (st *AlertState) appendHash(hash string, priority int, at time.Time) {
	if len(st.history) >= historyCap {
		copy(st.history, st.history[1:])
		st.history = st.history[:historyCap-1]
	}
	st.history = append(st.history, hashEntry{Hash: hash, Priority: priority, At: at})
}

// currentHash returns the hash of the most recently observed content.
func (st *AlertState) currentHash() string {
	if len(st.history) == 0 {
		return ""
	}
	return st.history[len(st.history)-1].Hash
}

// maxPriority returns the highest severity priority ever recorded for this
// alert. Escalation compares against this, not just the previous entry, so
// a revert-then-reconfirm sequence cannot re-trigger an escalation.
func (st *AlertState) maxPriority() int {
	max := 0
	for _, e := range st.history {
		if e.Priority > max {
			max = e.Priority
		}
	}
	return max
}

// expired reports whether the state has aged out of the retention window.
func (st *AlertState) expired(now time.Time) bool {
	return now.Sub(st.FirstSeen) > retentionWindow
}
