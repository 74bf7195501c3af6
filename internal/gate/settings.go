package gate

import (
	"strings"
	"time"
)

// Settings holds the user-tunable notification policy. The host application
// owns it and hands copies to the Manager; UpdateSettings is the only
// mutation path after construction. The engine does not re-validate values.
type Settings struct {
	// MinSeverityPriority is the lowest severity priority (1-5) worth
	// notifying about.
	MinSeverityPriority int

	// GlobalCooldown is the minimum gap between any two notification
	// cycles that produce output.
	GlobalCooldown time.Duration

	// PerAlertCooldown is the minimum gap between notifications for the
	// same alert ID.
	PerAlertCooldown time.Duration

	// EscalationCooldown replaces PerAlertCooldown when a content change
	// raises the severity above the historical maximum.
	EscalationCooldown time.Duration

	// FreshnessWindow is how recently the provider must have issued a
	// never-notified alert for it to bypass the per-alert cooldown.
	FreshnessWindow time.Duration

	// IgnoredCategories lists event types (case-insensitive) that never
	// notify.
	IgnoredCategories []string

	NotificationsEnabled bool
	SoundEnabled         bool

	// MaxNotificationsPerHour bounds attempted notifications per rolling
	// hour via the token bucket.
	MaxNotificationsPerHour int
}

// DefaultSettings returns the policy used when the host supplies nothing.
func DefaultSettings() Settings {
	return Settings{
		MinSeverityPriority:     2,
		GlobalCooldown:          5 * time.Minute,
		PerAlertCooldown:        60 * time.Minute,
		EscalationCooldown:      15 * time.Minute,
		FreshnessWindow:         30 * time.Minute,
		NotificationsEnabled:    true,
		SoundEnabled:            true,
		MaxNotificationsPerHour: 10,
	}
}

// ignoresCategory reports whether event is in the ignored-categories list.
func (s Settings) ignoresCategory(event string) bool {
	if event == "" {
		return false
	}
	lowered := strings.ToLower(event)
	for _, c := range s.IgnoredCategories {
		if strings.ToLower(c) == lowered {
			return true
		}
	}
	return false
}
