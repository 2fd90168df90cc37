package util

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatCount renders a count with thousands separators.
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// FormatSeconds renders seconds with a fixed number of decimals.
func FormatSeconds(seconds float64, precision int) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "-"
	}
	return fmt.Sprintf("%.*f", precision, seconds)
}

// FormatOptionalSeconds renders nil as "-".
func FormatOptionalSeconds(seconds *float64, precision int) string {
	if seconds == nil {
		return "-"
	}
	return FormatSeconds(*seconds, precision)
}

// FormatPercent renders a percentage with two decimals.
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.2f%%", pct)
}

// FormatDuration renders a wall-clock duration for progress messages.
func FormatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// Truncate shortens s to width display cells, ending with "…" when cut.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if GetDisplayWidth(s) <= width {
		return s
	}

	var b strings.Builder
	used := 0
	for _, r := range s {
		w := GetDisplayWidth(string(r))
		if used+w > width-1 {
			break
		}
		b.WriteRune(r)
		used += w
	}
	b.WriteString("…")
	return b.String()
}
