package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClampDuration(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		expected int
	}{
		{"zero start", time.Time{}, base, 0},
		{"zero end", base, time.Time{}, 0},
		{"single event", base, base, 0},
		{"end before start", base, base.Add(-time.Minute), 0},
		{"normal span", base, base.Add(95 * time.Second), 95},
		{"just under a day", base, base.Add((MaxDurationSeconds - 1) * time.Second), MaxDurationSeconds - 1},
		{"exactly a day", base, base.Add(MaxDurationSeconds * time.Second), 0},
		{"beyond a day", base, base.Add(48 * time.Hour), 0},
		{"sub-second span", base, base.Add(500 * time.Millisecond), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClampDuration(tt.start, tt.end))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds  int
		expected string
	}{
		{0, "N/A"},
		{1, "1s"},
		{59, "59s"},
		{60, "1m"},
		{119, "1m"},
		{3599, "59m"},
		{3600, "1h 0m"},
		{3660, "1h 1m"},
		{7322, "2h 2m"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatDuration(tt.seconds), "seconds=%d", tt.seconds)
	}
}
