package util

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatCount(t *testing.T) {
	tests := []struct {
		input    int
		expected string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatCount(tt.input))
		})
	}
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "2.000000", FormatSeconds(2, 6))
	assert.Equal(t, "0.123", FormatSeconds(0.1234567, 3))
	assert.Equal(t, "1", FormatSeconds(1.2, 0))
	assert.Equal(t, "-", FormatSeconds(math.NaN(), 3))
	assert.Equal(t, "-", FormatSeconds(math.Inf(1), 3))
}

func TestFormatOptionalSeconds(t *testing.T) {
	v := 0.5
	assert.Equal(t, "-", FormatOptionalSeconds(nil, 3))
	assert.Equal(t, "0.500", FormatOptionalSeconds(&v, 3))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "100.00%", FormatPercent(100))
	assert.Equal(t, "33.33%", FormatPercent(100.0/3))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "500µs", FormatDuration(500*time.Microsecond))
	assert.Equal(t, "12ms", FormatDuration(12*time.Millisecond))
	assert.Equal(t, "1.50s", FormatDuration(1500*time.Millisecond))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{name: "fits", input: "short", width: 10, expected: "short"},
		{name: "exact", input: "exact", width: 5, expected: "exact"},
		{name: "cut", input: "a long note", width: 6, expected: "a lon…"},
		{name: "zero width", input: "abc", width: 0, expected: ""},
		{name: "wide runes", input: "日本語テキスト", width: 7, expected: "日本語…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Truncate(tt.input, tt.width))
		})
	}
}

func TestPadding(t *testing.T) {
	assert.Equal(t, "ab   ", PadRight("ab", 5))
	assert.Equal(t, "   ab", PadLeft("ab", 5))
	assert.Equal(t, 4, GetDisplayWidth("日本"))
}
