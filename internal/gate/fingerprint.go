// Package gate implements the alert notification gating engine: it tracks
// every alert seen across refresh cycles, detects content changes and
// severity escalations, enforces cooldown policies and an hourly rate limit,
// and persists its decision state so a restart neither re-notifies nor
// forgets history.
package gate

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/skywatch/skywatch/internal/wx"
)

// UniqueID derives the stable identifier used to recognize the same weather
// event across refresh cycles. The provider-assigned ID wins when present;
// otherwise the ID is built from fields that stay constant across content
// updates (event, severity, headline-or-title, source), lower-cased with
// runs of whitespace collapsed.
func UniqueID(a wx.Alert) string {
	if a.ID != "" {
		return a.ID
	}

	headline := a.Headline
	if headline == "" {
		headline = a.Title
	}

	raw := strings.Join([]string{a.Event, a.Severity, headline, a.Source}, "|")
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}

// ContentHash hashes the mutable textual fields of an alert. Any change to
// title, description, severity, urgency, headline, or instruction changes
// the hash; area lists and timestamps deliberately do not participate.
func ContentHash(a wx.Alert) string {
	joined := strings.Join([]string{
		a.Title,
		a.Description,
		a.Severity,
		a.Urgency,
		a.Headline,
		a.Instruction,
	}, "|")

	h := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(h[:])
}
