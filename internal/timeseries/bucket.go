package timeseries

import (
	"math"
	"regexp"
	"strconv"
	"time"
)

const DefaultInterval = "5m"

const defaultWidth = 5 * time.Minute

var intervalPattern = regexp.MustCompile(`^(\d+)([mhd])$`)

// BucketWidth parses "<n><unit>" with unit m, h or d. Anything else,
// including a zero count, yields the five-minute default.
func BucketWidth(spec string) time.Duration {
	n, unit, ok := parseInterval(spec)
	if !ok {
		return defaultWidth
	}
	return time.Duration(n) * unitWidth(unit)
}

func unitWidth(unit string) time.Duration {
	switch unit {
	case "m":
		return time.Minute
	case "h":
		return time.Hour
	default:
		return 24 * time.Hour
	}
}

// ValidInterval reports whether spec parses without falling back.
func ValidInterval(spec string) bool {
	_, _, ok := parseInterval(spec)
	return ok
}

func parseInterval(spec string) (int64, string, bool) {
	m := intervalPattern.FindStringSubmatch(spec)
	if m == nil {
		return 0, "", false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	// The width must fit a time.Duration.
	if err != nil || n <= 0 || n > math.MaxInt64/int64(unitWidth(m[2])) {
		return 0, "", false
	}
	return n, m[2], true
}

// AutoInterval picks a bucket width for a time range from a fixed table.
// Boundaries are inclusive: exactly one day is still "5m".
func AutoInterval(start, end time.Time) string {
	span := end.Sub(start)
	switch {
	case span <= 24*time.Hour:
		return "5m"
	case span <= 7*24*time.Hour:
		return "15m"
	case span <= 30*24*time.Hour:
		return "1h"
	default:
		return "1d"
	}
}
