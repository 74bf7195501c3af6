//go:build linux

package notify

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"time"
)

// NotifySendNotifier delivers Linux desktop notifications via notify-send.
type NotifySendNotifier struct {
	// enabled controls whether notifications are actually sent. When
	// false, Send reports failure without invoking notify-send.
	enabled bool
}

// NewNotifySendNotifier creates a new Linux notification sender.
func NewNotifySendNotifier(enabled bool) *NotifySendNotifier {
	return &NotifySendNotifier{enabled: enabled}
}

// NewPlatformNotifier creates the platform-appropriate notifier for Linux.
func NewPlatformNotifier(enabled bool) Notifier {
	return NewNotifySendNotifier(enabled)
}

// Send displays a desktop notification and reports whether notify-send
// completed within the timeout. Failures are logged, never raised.
func (n *NotifySendNotifier) Send(title, message string, timeout time.Duration) bool {
	if !n.enabled {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "notify-send",
		"--app-name", "skywatch",
		"--expire-time", fmt.Sprintf("%d", timeout.Milliseconds()),
		title, message,
	)
	if err := cmd.Run(); err != nil {
		log.Printf("WARNING: failed to send Linux notification: %v", err)
		return false
	}
	return true
}
