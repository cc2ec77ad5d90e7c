package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLastSeenTextBuckets(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		ago      time.Duration
		expected string
	}{
		{"under a minute", 30 * time.Second, "Just now"},
		{"minutes", 5 * time.Minute, "5m ago"},
		{"hours", 2 * time.Hour, "2h ago"},
		{"days", 3 * 24 * time.Hour, "3d ago"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lastSeen := now.Add(-tc.ago)
			assert.Equal(t, tc.expected, LastSeenText(&lastSeen, now))
		})
	}
}

func TestLastSeenTextAbsoluteAfterAWeek(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	lastSeen := now.Add(-10 * 24 * time.Hour)

	assert.Equal(t, "Feb 28, 2025", LastSeenText(&lastSeen, now))
}

func TestLastSeenTextOnline(t *testing.T) {
	assert.Equal(t, "Online", LastSeenText(nil, time.Now()))
}

func TestLastSeenDetailedBuckets(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		ago      time.Duration
		expected string
	}{
		{"under a minute", 30 * time.Second, "Just now"},
		{"single minute", time.Minute, "Last seen 1 minute ago"},
		{"minutes", 5 * time.Minute, "Last seen 5 minutes ago"},
		{"hours", 2 * time.Hour, "Last seen 2 hours ago"},
		{"days", 3 * 24 * time.Hour, "Last seen 3 days ago"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lastSeen := now.Add(-tc.ago)
			assert.Equal(t, tc.expected, LastSeenDetailed(&lastSeen, now))
		})
	}
}

func TestLastSeenDetailedAbsoluteAfterAWeek(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	lastSeen := time.Date(2025, time.February, 28, 15, 4, 0, 0, time.UTC)

	assert.Equal(t, "Last seen Feb 28, 3:04 PM", LastSeenDetailed(&lastSeen, now))
}
