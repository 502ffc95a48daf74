package assembler

import "fmt"

// FormatRelativeTime implements the time-formatting buckets for an
// epoch-milliseconds timestamp relative to now.
func FormatRelativeTime(epochMs, nowMs int64) string {
	deltaMs := nowMs - epochMs
	if deltaMs < 0 {
		deltaMs = 0
	}
	seconds := deltaMs / 1000
	switch {
	case seconds < 60:
		return "just now"
	case seconds < 3600:
		return fmt.Sprintf("%dm ago", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%dh ago", seconds/3600)
	default:
		return fmt.Sprintf("%dd ago", seconds/86400)
	}
}
