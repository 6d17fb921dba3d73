package filters

import (
	"time"
)

// Date range presets understood by range filters.
const (
	PresetToday       = "today"
	PresetYesterday   = "yesterday"
	PresetLast1Hour   = "last1hour"
	PresetLast24Hours = "last24hours"
	PresetLast7Days   = "last7days"
	PresetLast30Days  = "last30days"
	PresetThisWeek    = "thisWeek"
	PresetThisMonth   = "thisMonth"
	PresetLastMonth   = "lastMonth"
)

var Presets = []string{
	PresetToday, PresetYesterday, PresetLast1Hour, PresetLast24Hours,
	PresetLast7Days, PresetLast30Days, PresetThisWeek, PresetThisMonth, PresetLastMonth,
}

// ExpandPreset turns a preset name into a concrete [start, end] pair
// relative to now. Unknown names expand like "today".
func ExpandPreset(preset string, now time.Time) (start, end time.Time) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch preset {
	case PresetYesterday:
		return midnight.AddDate(0, 0, -1), midnight
	case PresetLast1Hour:
		return now.Add(-time.Hour), now
	case PresetLast24Hours:
		return now.Add(-24 * time.Hour), now
	case PresetLast7Days:
		return now.Add(-7 * 24 * time.Hour), now
	case PresetLast30Days:
		return now.Add(-30 * 24 * time.Hour), now
	case PresetThisWeek:
		return mondayOfWeek(midnight), now
	case PresetThisMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), now
	case PresetLastMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return first.AddDate(0, -1, 0), first
	default:
		return midnight, now
	}
}

func IsPreset(name string) bool {
	for _, p := range Presets {
		if p == name {
			return true
		}
	}
	return false
}

// FormatInstant is the wire form of range filter values.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func mondayOfWeek(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // ISO: Sunday = 7
	}
	return t.AddDate(0, 0, -(weekday - 1))
}
