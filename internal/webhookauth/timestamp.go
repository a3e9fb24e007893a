package webhookauth

import (
	"strings"
	"time"
)

// DefaultFreshnessWindow is the maximum skew between X-Timestamp and the server clock.
const DefaultFreshnessWindow = 5 * time.Minute

// Accepted X-Timestamp layouts. Values without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// ParseTimestamp parses an ISO-8601 timestamp.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// TimestampGuard rejects timestamps outside the freshness window, in either
// direction. Unparseable timestamps are rejected.
type TimestampGuard struct {
	window time.Duration
	nowFn  func() time.Time
}

// NewTimestampGuard creates a guard. A non-positive window uses DefaultFreshnessWindow.
func NewTimestampGuard(window time.Duration) *TimestampGuard {
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	return &TimestampGuard{
		window: window,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Check parses raw and reports whether it is within the window.
func (g *TimestampGuard) Check(raw string) (time.Time, bool) {
	ts, ok := ParseTimestamp(raw)
	if !ok {
		return time.Time{}, false
	}

	skew := g.nowFn().Sub(ts)
	if skew < 0 {
		skew = -skew
	}
	return ts, skew <= g.window
}
