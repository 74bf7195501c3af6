// Package wx defines the weather alert data model shared by the gating
// engine, the notification layer, and the acquisition boundary. Alerts are
// produced by an external fetcher (a provider client or a replay file) and
// consumed read-only by the rest of the system.
package wx

import (
	"strings"
	"time"
)

// Severity priority levels. Provider severity strings are free text; anything
// unrecognized maps to PriorityUnknown.
const (
	PriorityUnknown  = 1
	PriorityMinor    = 2
	PriorityModerate = 3
	PrioritySevere   = 4
	PriorityExtreme  = 5
)

// Alert is one weather alert as delivered by a provider. All fields are
// free-text except the timestamps; timezone-naive timestamps are assumed UTC.
type Alert struct {
	ID          string     `json:"id,omitempty"`
	Source      string     `json:"source,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Severity    string     `json:"severity,omitempty"`
	Urgency     string     `json:"urgency,omitempty"`
	Certainty   string     `json:"certainty,omitempty"`
	Event       string     `json:"event,omitempty"`
	Headline    string     `json:"headline,omitempty"`
	Instruction string     `json:"instruction,omitempty"`
	Onset       time.Time  `json:"onset,omitzero"`
	Sent        time.Time  `json:"sent,omitzero"`
	Effective   time.Time  `json:"effective,omitzero"`
	Expires     *time.Time `json:"expires,omitempty"`
	Areas       []string   `json:"areas,omitempty"`
}

// SeverityPriority maps a free-text severity to an integer priority 1-5.
// Matching is case-insensitive; unknown severities map to PriorityUnknown.
func SeverityPriority(severity string) int {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "extreme":
		return PriorityExtreme
	case "severe":
		return PrioritySevere
	case "moderate":
		return PriorityModerate
	case "minor":
		return PriorityMinor
	default:
		return PriorityUnknown
	}
}

// Priority returns the integer severity priority for this alert.
func (a Alert) Priority() int {
	return SeverityPriority(a.Severity)
}

// Active reports whether the alert has not yet expired at the given time.
// An alert with no expiration is always active. Expiration is exclusive:
// an alert whose expiry equals now is no longer active.
func (a Alert) Active(now time.Time) bool {
	if a.Expires == nil {
		return true
	}
	return NormalizeUTC(*a.Expires).After(NormalizeUTC(now))
}

// IssuedAt returns the provider issuance timestamp used for freshness
// checks: Sent when present, falling back to Effective, then Onset.
// The zero time means the provider supplied no issuance timestamp.
func (a Alert) IssuedAt() time.Time {
	switch {
	case !a.Sent.IsZero():
		return NormalizeUTC(a.Sent)
	case !a.Effective.IsZero():
		return NormalizeUTC(a.Effective)
	case !a.Onset.IsZero():
		return NormalizeUTC(a.Onset)
	default:
		return time.Time{}
	}
}

// NormalizeUTC converts t to UTC. Provider feeds occasionally deliver
// timezone-naive timestamps; encoding/json parses those as UTC already, so
// conversion is sufficient to make all comparisons timezone-aware.
func NormalizeUTC(t time.Time) time.Time {
	return t.UTC()
}
