package notify

import (
	"log"
	"time"

	"github.com/skywatch/skywatch/internal/gate"
	"github.com/skywatch/skywatch/internal/wx"
)

// System is the thin façade over the gating engine: it runs the decision
// pipeline for a refresh cycle, composes a notification per qualifying
// alert, and dispatches each through the notifier, counting successes.
type System struct {
	manager  *gate.Manager
	notifier Notifier
	recorder Recorder
	timeout  time.Duration
}

// SystemOption configures the notification system.
type SystemOption func(*System)

// WithRecorder attaches a history recorder for dispatched notifications.
func WithRecorder(r Recorder) SystemOption {
	return func(s *System) {
		s.recorder = r
	}
}

// WithTimeout overrides the per-notification delivery timeout.
func WithTimeout(d time.Duration) SystemOption {
	return func(s *System) {
		s.timeout = d
	}
}

// NewSystem creates the façade around a gating manager and a notifier.
func NewSystem(manager *gate.Manager, notifier Notifier, opts ...SystemOption) *System {
	s := &System{
		manager:  manager,
		notifier: notifier,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process runs one refresh cycle's batch through the gating engine and
// dispatches every qualifying alert, returning the number delivered.
func (s *System) Process(batch []wx.Alert) int {
	return s.Dispatch(s.manager.Process(batch))
}

// ProcessAt is Process with an explicit decision time for deterministic
// testing.
func (s *System) ProcessAt(batch []wx.Alert, now time.Time) int {
	return s.Dispatch(s.manager.ProcessAt(batch, now))
}

// Dispatch composes and delivers each decision. Individual delivery
// failures are logged and skipped; they never abort the remaining alerts.
func (s *System) Dispatch(decisions []gate.Decision) int {
	sent := 0
	for _, d := range decisions {
		title, message, _ := Compose(d.Alert, d.Reason)

		if !s.notifier.Send(title, message, s.timeout) {
			log.Printf("WARNING: notification delivery failed for alert %q (%s)", gate.UniqueID(d.Alert), d.Reason)
			continue
		}
		sent++

		if s.recorder != nil {
			s.recorder.RecordNotification(Record{
				AlertID:  gate.UniqueID(d.Alert),
				Event:    d.Alert.Event,
				Severity: d.Alert.Severity,
				Priority: d.Alert.Priority(),
				Reason:   string(d.Reason),
				Title:    title,
				Message:  message,
				SentAt:   time.Now().UTC(),
			})
		}
	}
	return sent
}

// Statistics exposes the underlying manager's bookkeeping snapshot.
func (s *System) Statistics() gate.Statistics {
	return s.manager.Statistics()
}
