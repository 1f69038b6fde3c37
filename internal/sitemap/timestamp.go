package sitemap

import (
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the W3C datetime form written to <lastmod>.
const TimestampLayout = "2006-01-02T15:04:05-07:00"

// Layouts tried in order by NormalizeTimestamp. Values without a zone are
// read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// NormalizeTimestamp converts a last-modified value into TimestampLayout in
// UTC. It accepts "now", "@<unix seconds>" and the layouts above.
func NormalizeTimestamp(input string, now time.Time) (string, error) {
	s := strings.TrimSpace(input)
	if strings.EqualFold(s, Now) {
		return now.UTC().Format(TimestampLayout), nil
	}

	if rest, ok := strings.CutPrefix(s, "@"); ok {
		secs, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return "", timestampError(input)
		}
		return time.Unix(secs, 0).UTC().Format(TimestampLayout), nil
	}

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC().Format(TimestampLayout), nil
		}
	}
	return "", timestampError(input)
}

func timestampError(value string) *ValidationError {
	return &ValidationError{
		Field:   "lastmod",
		Value:   value,
		Message: "the last modification date must be \"now\", \"@<unix>\" or an ISO-8601 date",
		Kind:    ErrInvalidTimestamp,
	}
}
