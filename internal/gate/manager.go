package gate

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/skywatch/skywatch/internal/ratelimit"
	"github.com/skywatch/skywatch/internal/wx"
)

// Reason explains why the manager decided an alert is worth notifying about.
type Reason string

const (
	ReasonNewAlert       Reason = "new_alert"
	ReasonEscalation     Reason = "escalation"
	ReasonContentChanged Reason = "content_changed"
	ReasonReminder       Reason = "reminder"
	ReasonFreshAlert     Reason = "fresh_alert"
)

// Decision is one qualifying alert paired with the reason it qualified.
type Decision struct {
	Alert  wx.Alert
	Reason Reason
}

// Statistics is a read-only snapshot of the manager's bookkeeping.
type Statistics struct {
	TrackedAlerts           int
	NotificationsThisHour   int
	RecentNotifications     int
	TokensAvailable         float64
	TokenCapacity           float64
	MinSeverityPriority     int
	NotificationsEnabled    bool
	MaxNotificationsPerHour int
}

// Manager runs the per-cycle notification decision pipeline. It owns the
// tracked alert states, the token bucket, and the settings, and persists
// state to a single JSON file.
//
// All public methods serialize on one mutex: the token bucket, cooldown
// timestamps, and history mutation are not safe under concurrent refreshes.
type Manager struct {
	mu        sync.Mutex
	statePath string
	settings  Settings
	limiter   *ratelimit.TokenBucket

	states     map[string]*AlertState
	lastGlobal time.Time

	hourStart time.Time
	hourCount int

	// loaded guards the lazy first-use load of the state file, keeping
	// construction cheap for application startup.
	loaded bool
}

// NewManager creates a manager persisting to statePath with the given
// policy. The state file is not read until the first public operation.
func NewManager(statePath string, settings Settings) *Manager {
	return &Manager{
		statePath: statePath,
		settings:  settings,
		limiter:   ratelimit.New(settings.MaxNotificationsPerHour),
		states:    make(map[string]*AlertState),
	}
}

// Process runs the decision pipeline over one refresh cycle's alert batch
// and returns the alerts worth notifying about, in batch order. Expired and
// inactive alerts are filtered out; every gate failure is simply "no
// notification", never an error.
func (m *Manager) Process(batch []wx.Alert) []Decision {
	return m.ProcessAt(batch, time.Now())
}

// ProcessAt is Process with an explicit decision time for deterministic
// testing.
func (m *Manager) ProcessAt(batch []wx.Alert, now time.Time) []Decision {
	now = wx.NormalizeUTC(now)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoadedLocked()

	var decisions []Decision
	newBookkeeping := false

	for _, a := range batch {
		if !m.settings.NotificationsEnabled {
			continue
		}
		if a.Priority() < m.settings.MinSeverityPriority {
			continue
		}
		if m.settings.ignoresCategory(a.Event) {
			continue
		}
		if !a.Active(now) {
			continue
		}

		// The limiter models attempted notifications: the token is spent
		// here even when a cooldown below suppresses the alert.
		if !m.limiter.ConsumeAt(now) {
			continue
		}

		if !m.lastGlobal.IsZero() && now.Sub(m.lastGlobal) < m.settings.GlobalCooldown {
			continue
		}

		id := UniqueID(a)
		st, tracked := m.states[id]
		if !tracked {
			m.states[id] = newAlertState(id, a, now)
			newBookkeeping = true
			decisions = append(decisions, Decision{Alert: a, Reason: ReasonNewAlert})
			continue
		}

		if issued := a.IssuedAt(); !issued.IsZero() {
			st.AlertSentTime = issued
		}

		hash := ContentHash(a)
		if hash != st.currentHash() {
			if d, ok := m.decideChanged(st, a, hash, now); ok {
				decisions = append(decisions, d)
			}
			continue
		}

		if d, ok := m.decideUnchanged(st, a, now); ok {
			decisions = append(decisions, d)
		}
	}

	m.finishCycle(decisions, newBookkeeping, now)
	return decisions
}

// decideChanged handles an already-tracked alert whose content hash moved.
// The new hash is appended to history whether or not the alert qualifies,
// so later escalation comparisons see every observed version.
func (m *Manager) decideChanged(st *AlertState, a wx.Alert, hash string, now time.Time) (Decision, bool) {
	priority := a.Priority()
	escalation := priority > st.maxPriority()

	cooldown := m.settings.PerAlertCooldown
	reason := ReasonContentChanged
	if escalation {
		cooldown = m.settings.EscalationCooldown
		reason = ReasonEscalation
	}

	st.appendHash(hash, priority, now)

	if !st.LastNotified.IsZero() && now.Sub(st.LastNotified) < cooldown {
		return Decision{}, false
	}
	return Decision{Alert: a, Reason: reason}, true
}

// decideUnchanged handles a re-delivered identical alert. A never-notified
// alert whose provider issuance time falls within the freshness window (and
// not in the future) bypasses the per-alert cooldown once; otherwise the
// normal cooldown decides whether a reminder is due.
func (m *Manager) decideUnchanged(st *AlertState, a wx.Alert, now time.Time) (Decision, bool) {
	if st.LastNotified.IsZero() {
		if issued := a.IssuedAt(); !issued.IsZero() &&
			!issued.After(now) && now.Sub(issued) <= m.settings.FreshnessWindow {
			return Decision{Alert: a, Reason: ReasonFreshAlert}, true
		}
		return Decision{Alert: a, Reason: ReasonReminder}, true
	}

	if now.Sub(st.LastNotified) < m.settings.PerAlertCooldown {
		return Decision{}, false
	}
	return Decision{Alert: a, Reason: ReasonReminder}, true
}

// finishCycle applies the post-processing for one batch: notification
// bookkeeping on every qualifying state, the global cooldown timestamp, the
// hourly counter, and a best-effort save when there is anything new to
// persist.
func (m *Manager) finishCycle(decisions []Decision, newBookkeeping bool, now time.Time) {
	for _, d := range decisions {
		st := m.states[UniqueID(d.Alert)]
		if st == nil {
			continue
		}
		st.LastNotified = now
		st.NotificationCount++
	}

	if len(decisions) > 0 {
		m.lastGlobal = now
		if now.Sub(m.hourStart) >= time.Hour {
			m.hourStart = now
			m.hourCount = 0
		}
		m.hourCount += len(decisions)
	}

	if len(decisions) > 0 || newBookkeeping {
		m.saveLocked(now)
	}
}

// Statistics returns a snapshot of tracked state, hourly volume, limiter
// fill, and the policy values that drive the pipeline.
func (m *Manager) Statistics() Statistics {
	now := time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoadedLocked()

	recent := 0
	for _, st := range m.states {
		if !st.LastNotified.IsZero() && now.Sub(st.LastNotified) <= time.Hour {
			recent++
		}
	}

	hourCount := m.hourCount
	if now.Sub(m.hourStart) >= time.Hour {
		hourCount = 0
	}

	tokens, capacity := m.limiter.Snapshot(now)
	return Statistics{
		TrackedAlerts:           len(m.states),
		NotificationsThisHour:   hourCount,
		RecentNotifications:     recent,
		TokensAvailable:         tokens,
		TokenCapacity:           capacity,
		MinSeverityPriority:     m.settings.MinSeverityPriority,
		NotificationsEnabled:    m.settings.NotificationsEnabled,
		MaxNotificationsPerHour: m.settings.MaxNotificationsPerHour,
	}
}

// UpdateSettings swaps the policy atomically. When the hourly notification
// bound changes, the token bucket is rescaled so the proportion of remaining
// tokens carries over instead of resetting to full capacity.
func (m *Manager) UpdateSettings(settings Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoadedLocked()

	if settings.MaxNotificationsPerHour != m.settings.MaxNotificationsPerHour {
		m.limiter.Resize(settings.MaxNotificationsPerHour)
	}
	m.settings = settings
}

// ClearState wipes all tracked alert state and persists the empty document.
func (m *Manager) ClearState() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureLoadedLocked()

	m.states = make(map[string]*AlertState)
	m.lastGlobal = time.Time{}
	m.hourCount = 0
	m.saveLocked(time.Now().UTC())
}

// ensureLoadedLocked performs the one-time lazy load of the state file.
// A failed or corrupt load degrades to an empty state with a warning.
func (m *Manager) ensureLoadedLocked() {
	if m.loaded {
		return
	}
	m.loaded = true

	sf, err := loadStateFile(m.statePath)
	if err != nil {
		log.Printf("WARNING: alert state unavailable, starting empty: %v", err)
		return
	}

	for _, rec := range sf.AlertStates {
		st := restoreState(rec)
		if st == nil {
			log.Printf("WARNING: dropping corrupt alert state record %q", rec.AlertID)
			continue
		}
		m.states[st.AlertID] = st
	}
	if sf.LastGlobalNotification != nil {
		m.lastGlobal = *sf.LastGlobalNotification
	}
}

// saveLocked purges expired states and writes the state file. Persistence
// is best-effort: failures are logged and never surfaced to the caller.
func (m *Manager) saveLocked(now time.Time) {
	for id, st := range m.states {
		if st.expired(now) {
			delete(m.states, id)
		}
	}

	sf := &stateFile{SavedAt: now}
	if !m.lastGlobal.IsZero() {
		lg := m.lastGlobal
		sf.LastGlobalNotification = &lg
	}

	ids := make([]string, 0, len(m.states))
	for id := range m.states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		sf.AlertStates = append(sf.AlertStates, encodeState(m.states[id]))
	}

	if err := writeStateFile(m.statePath, sf); err != nil {
		log.Printf("WARNING: failed to save alert state: %v", err)
	}
}
