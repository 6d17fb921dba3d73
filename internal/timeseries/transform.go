package timeseries

import (
	"fmt"
	"sort"
	"strings"

	"github.com/GregMSThompson/dashboard-backend/internal/models"
)

// ApplyTransform sorts and truncates rows as a binding's transform asks.
// Rows missing the sort field go last. The input slice is not modified.
func ApplyTransform(rows []map[string]any, t *models.Transform) []map[string]any {
	if t == nil {
		return rows
	}
	out := append([]map[string]any{}, rows...)
	if t.Sort != nil && t.Sort.Field != "" {
		field := t.Sort.Field
		desc := strings.EqualFold(t.Sort.Order, "desc")
		sort.SliceStable(out, func(i, j int) bool {
			a, okA := out[i][field]
			b, okB := out[j][field]
			if !okA || !okB {
				return okA && !okB
			}
			c := compare(a, b)
			if desc {
				return c > 0
			}
			return c < 0
		})
	}
	if t.Limit > 0 && len(out) > t.Limit {
		out = out[:t.Limit]
	}
	return out
}

func compare(a, b any) int {
	if x, ok := Number(a); ok {
		if y, ok := Number(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
