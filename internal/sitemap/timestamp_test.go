package sitemap

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTimestamp(t *testing.T) {
	now := time.Date(2024, 12, 1, 10, 30, 0, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"now", "now", "2024-12-01T09:30:00+00:00"},
		{"now uppercase", "NOW", "2024-12-01T09:30:00+00:00"},
		{"date only", "2023-06-15", "2023-06-15T00:00:00+00:00"},
		{"datetime without zone", "2023-06-15 08:09:10", "2023-06-15T08:09:10+00:00"},
		{"rfc3339 utc", "2023-06-15T08:09:10Z", "2023-06-15T08:09:10+00:00"},
		{"rfc3339 offset converted to utc", "2023-06-15T08:09:10+02:00", "2023-06-15T06:09:10+00:00"},
		{"unix seconds", "@0", "1970-01-01T00:00:00+00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeTimestamp(tt.input, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeTimestamp_Invalid(t *testing.T) {
	for _, input := range []string{"yesterday-ish", "2023-13-45", "@abc", ""} {
		t.Run(input, func(t *testing.T) {
			_, err := NormalizeTimestamp(input, fixedTime)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTimestamp))
		})
	}
}
