package timeseries

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"
)

type Aggregation string

const (
	Sum    Aggregation = "sum"
	Avg    Aggregation = "avg"
	Min    Aggregation = "min"
	Max    Aggregation = "max"
	Count  Aggregation = "count"
	Latest Aggregation = "latest"
)

const DefaultTimeField = "timestamp"

// ParseAggregation maps a measurement aggregation name to a reducer,
// defaulting to Avg.
func ParseAggregation(s string) Aggregation {
	switch a := Aggregation(strings.ToLower(s)); a {
	case Sum, Avg, Min, Max, Count, Latest:
		return a
	}
	return Avg
}

type Options struct {
	Interval    string
	TimeField   string
	ValueFields []string // empty: every numeric field found in the rows
	Aggregation Aggregation
}

type fieldStats struct {
	sum, min, max float64
	count         int
	latest        float64
	latestAt      int64
}

func (s *fieldStats) add(v float64, at int64) {
	if s.count == 0 || v < s.min {
		s.min = v
	}
	if s.count == 0 || v > s.max {
		s.max = v
	}
	if s.count == 0 || at >= s.latestAt {
		s.latest, s.latestAt = v, at
	}
	s.sum += v
	s.count++
}

func (s *fieldStats) value(agg Aggregation) float64 {
	switch agg {
	case Sum:
		return s.sum
	case Min:
		return s.min
	case Max:
		return s.max
	case Count:
		return float64(s.count)
	case Latest:
		return s.latest
	default:
		return s.sum / float64(s.count)
	}
}

// Aggregate groups rows into fixed-width buckets by their time field and
// reduces each numeric field per bucket. Buckets come out in ascending
// order with the time field set to the bucket start (RFC3339, UTC). Rows
// without a usable timestamp are skipped. A field with no numeric values in
// a bucket is left out of that bucket rather than reported as zero.
func Aggregate(rows []map[string]any, opts Options) []map[string]any {
	width := BucketWidth(opts.Interval).Milliseconds()
	if width <= 0 {
		width = defaultWidth.Milliseconds()
	}
	timeField := opts.TimeField
	if timeField == "" {
		timeField = DefaultTimeField
	}
	agg := opts.Aggregation
	if agg == "" {
		agg = Avg
	}

	buckets := map[int64]map[string]*fieldStats{}
	for _, row := range rows {
		ts, ok := ParseTimestamp(row[timeField])
		if !ok {
			continue
		}
		at := ts.UnixMilli()
		start := floorDiv(at, width) * width
		b, ok := buckets[start]
		if !ok {
			b = map[string]*fieldStats{}
			buckets[start] = b
		}

		fields := opts.ValueFields
		if len(fields) == 0 {
			fields = numericFields(row, timeField)
		}
		for _, f := range fields {
			v, ok := Number(row[f])
			if !ok {
				continue
			}
			st, ok := b[f]
			if !ok {
				st = &fieldStats{}
				b[f] = st
			}
			st.add(v, at)
		}
	}

	starts := make([]int64, 0, len(buckets))
	for s := range buckets {
		starts = append(starts, s)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	out := make([]map[string]any, 0, len(starts))
	for _, s := range starts {
		row := map[string]any{timeField: time.UnixMilli(s).UTC().Format(time.RFC3339)}
		for f, st := range buckets[s] {
			row[f] = st.value(agg)
		}
		out = append(out, row)
	}
	return out
}

func numericFields(row map[string]any, timeField string) []string {
	var out []string
	for k, v := range row {
		if k == timeField {
			continue
		}
		if _, ok := Number(v); ok {
			out = append(out, k)
		}
	}
	return out
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts RFC3339-style strings (zone-less ones are UTC)
// and epoch milliseconds.
func ParseTimestamp(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
		return time.Time{}, false
	case time.Time:
		return t, !t.IsZero()
	}
	if ms, ok := Number(v); ok {
		return time.UnixMilli(int64(ms)), true
	}
	return time.Time{}, false
}

// Number extracts a finite numeric value. Numeric strings are not numbers.
func Number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
