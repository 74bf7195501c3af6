package notify

import (
	"fmt"
	"strings"

	"github.com/skywatch/skywatch/internal/gate"
	"github.com/skywatch/skywatch/internal/wx"
)

// template drives how one decision reason renders as a notification.
type template struct {
	titleFormat   string
	messageFormat string
	sound         string
}

// templateFor maps a decision reason to its template. Unrecognized reasons
// fall back to the new-alert template.
func templateFor(reason gate.Reason) template {
	switch reason {
	case gate.ReasonEscalation:
		return template{
			titleFormat:   "Alert Escalated: %s",
			messageFormat: "Severity has increased. %s",
			sound:         "alert-escalation",
		}
	case gate.ReasonContentChanged:
		return template{
			titleFormat:   "Alert Updated: %s",
			messageFormat: "Details have changed. %s",
			sound:         "alert-update",
		}
	case gate.ReasonReminder:
		return template{
			titleFormat:   "Alert Reminder: %s",
			messageFormat: "Still in effect. %s",
			sound:         "alert-reminder",
		}
	case gate.ReasonFreshAlert:
		return template{
			titleFormat:   "Just Issued: %s",
			messageFormat: "%s",
			sound:         "alert-new",
		}
	default:
		return template{
			titleFormat:   "Weather Alert: %s",
			messageFormat: "%s",
			sound:         "alert-new",
		}
	}
}

// Compose renders the notification title, message body, and sound tag for
// one qualifying alert. The body is the headline (falling back to the
// title), followed by an affected-area summary and the expiration time when
// present.
func Compose(a wx.Alert, reason gate.Reason) (title, message, sound string) {
	tmpl := templateFor(reason)

	subject := a.Event
	if subject == "" {
		subject = a.Title
	}
	title = fmt.Sprintf(tmpl.titleFormat, subject)

	headline := a.Headline
	if headline == "" {
		headline = a.Title
	}
	message = strings.TrimSpace(fmt.Sprintf(tmpl.messageFormat, headline))

	if summary := areaSummary(a.Areas); summary != "" {
		message += "\nAreas: " + summary
	}
	if a.Expires != nil {
		message += "\nUntil " + wx.NormalizeUTC(*a.Expires).Format("Mon 15:04 MST")
	}

	return title, message, tmpl.sound
}

// areaSummary names the first two affected areas and counts the rest,
// e.g. "King County, Pierce County and 3 more areas".
func areaSummary(areas []string) string {
	switch len(areas) {
	case 0:
		return ""
	case 1:
		return areas[0]
	case 2:
		return areas[0] + ", " + areas[1]
	case 3:
		return fmt.Sprintf("%s, %s and 1 more area", areas[0], areas[1])
	default:
		return fmt.Sprintf("%s, %s and %d more areas", areas[0], areas[1], len(areas)-2)
	}
}
