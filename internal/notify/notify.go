// Package notify turns gating decisions into desktop notifications: it maps
// each decision reason to a message template, composes the notification
// text, and dispatches it through a platform notifier.
package notify

import "time"

// DefaultTimeout bounds how long a single notification delivery may take.
const DefaultTimeout = 10 * time.Second

// Notifier delivers one desktop notification. Implementations report
// success with a boolean rather than an error; the caller only counts
// deliveries and never retries.
type Notifier interface {
	Send(title, message string, timeout time.Duration) bool
}

// Recorder persists a record of each successfully dispatched notification.
// The sqlite history store implements it; a nil recorder disables history.
type Recorder interface {
	RecordNotification(rec Record)
}

// Record describes one dispatched notification for the history log.
type Record struct {
	AlertID  string
	Event    string
	Severity string
	Priority int
	Reason   string
	Title    string
	Message  string
	SentAt   time.Time
}
