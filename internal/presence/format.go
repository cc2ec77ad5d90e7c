package presence

import (
	"fmt"
	"time"
)

// Bucket thresholds for relative last-seen rendering.
const (
	minuteBuckets = 60
	hourBuckets   = 24
	dayBuckets    = 7
)

// LastSeenText renders the short relative form shown next to a contact:
// "Just now", "5m ago", "2h ago", "3d ago" or an absolute date once the
// disconnect is a week old. A nil lastSeen means the user is online.
func LastSeenText(lastSeen *time.Time, now time.Time) string {
	if lastSeen == nil {
		return "Online"
	}

	diff := now.Sub(*lastSeen)
	mins := int(diff.Minutes())
	hours := int(diff.Hours())
	days := int(diff.Hours() / 24)

	switch {
	case mins < 1:
		return "Just now"
	case mins < minuteBuckets:
		return fmt.Sprintf("%dm ago", mins)
	case hours < hourBuckets:
		return fmt.Sprintf("%dh ago", hours)
	case days < dayBuckets:
		return fmt.Sprintf("%dd ago", days)
	default:
		return lastSeen.Format("Jan 2, 2006")
	}
}

// LastSeenDetailed renders the long form used on profile views, e.g.
// "Last seen 5 minutes ago". Uses the same bucket thresholds as
// LastSeenText.
func LastSeenDetailed(lastSeen *time.Time, now time.Time) string {
	if lastSeen == nil {
		return "Online"
	}

	diff := now.Sub(*lastSeen)
	mins := int(diff.Minutes())
	hours := int(diff.Hours())
	days := int(diff.Hours() / 24)

	switch {
	case mins < 1:
		return "Just now"
	case mins < minuteBuckets:
		return fmt.Sprintf("Last seen %d %s ago", mins, plural("minute", mins))
	case hours < hourBuckets:
		return fmt.Sprintf("Last seen %d %s ago", hours, plural("hour", hours))
	case days < dayBuckets:
		return fmt.Sprintf("Last seen %d %s ago", days, plural("day", days))
	default:
		return "Last seen " + lastSeen.Format("Jan 2, 3:04 PM")
	}
}

func plural(unit string, n int) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}
