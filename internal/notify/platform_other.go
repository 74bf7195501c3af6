//go:build !linux && !darwin

package notify

import "time"

// noopNotifier is used on platforms without a desktop notification command.
type noopNotifier struct{}

// NewPlatformNotifier returns a notifier that drops every notification.
func NewPlatformNotifier(enabled bool) Notifier {
	return noopNotifier{}
}

func (noopNotifier) Send(title, message string, timeout time.Duration) bool {
	return false
}
