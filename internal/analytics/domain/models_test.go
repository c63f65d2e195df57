package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		total    int
		expected int
	}{
		{"zero total", 5, 0, 0},
		{"half", 1, 2, 50},
		{"rounds up", 1, 3, 33},
		{"rounds to nearest", 2, 3, 67},
		{"full", 4, 4, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Percentage(tt.count, tt.total))
		})
	}
}

func TestTrend(t *testing.T) {
	tests := []struct {
		name     string
		first    int
		second   int
		expected int
	}{
		{"no baseline", 0, 10, 0},
		{"flat", 10, 10, 0},
		{"doubled", 5, 10, 100},
		{"halved", 10, 5, -50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Trend(tt.first, tt.second))
		})
	}
}

func TestGrowth(t *testing.T) {
	tests := []struct {
		name     string
		previous int
		current  int
		expected int
	}{
		{"nothing before or after", 0, 0, 0},
		{"new activity from zero", 0, 7, 100},
		{"flat", 8, 8, 0},
		{"up fifty percent", 10, 15, 50},
		{"declined", 10, 4, -60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Growth(tt.previous, tt.current))
		})
	}
}
