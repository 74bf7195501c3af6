//go:build darwin

package notify

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"
)

// OSAScriptNotifier delivers macOS system notifications via osascript.
type OSAScriptNotifier struct {
	// enabled controls whether notifications are actually sent. When
	// false, Send reports failure without invoking osascript.
	enabled bool
}

// NewOSAScriptNotifier creates a new macOS notification sender.
func NewOSAScriptNotifier(enabled bool) *OSAScriptNotifier {
	return &OSAScriptNotifier{enabled: enabled}
}

// NewPlatformNotifier creates the platform-appropriate notifier for macOS.
func NewPlatformNotifier(enabled bool) Notifier {
	return NewOSAScriptNotifier(enabled)
}

// Send displays a macOS notification and reports whether osascript
// completed within the timeout. Failures are logged, never raised.
func (n *OSAScriptNotifier) Send(title, message string, timeout time.Duration) bool {
	if !n.enabled {
		return false
	}

	script := fmt.Sprintf(
		`display notification "%s" with title "%s"`,
		escapeAppleScript(message), escapeAppleScript(title),
	)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	if err := cmd.Run(); err != nil {
		log.Printf("WARNING: failed to send macOS notification: %v", err)
		return false
	}
	return true
}

// escapeAppleScript escapes characters that could break AppleScript strings.
func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
