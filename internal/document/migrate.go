package document

import (
	"fmt"

	"github.com/GregMSThompson/dashboard-backend/internal/models"
)

const (
	legacyBandColumns  = 24
	legacyFilterHeight = 2
)

var legacyFilterTypes = map[string]string{
	"select":       TypeFilterSelect,
	"multi-select": TypeFilterMultiSelect,
	"tree-select":  TypeFilterTreeSelect,
	"date-range":   TypeFilterDatePicker,
	"input":        TypeFilterInput,
}

// Migrate rewrites the deprecated top-level filters array into filter widgets
// packed in a band above the existing widgets. Existing widgets move down by
// the band height, except filter-submit controls which keep their position.
// The filters array is emptied, so a second run is a no-op.
func Migrate(doc *models.Document) *models.Document {
	if len(doc.Filters) == 0 {
		return doc
	}
	out := Clone(doc)

	used := map[string]bool{}
	for _, e := range Compile(out).Entries() {
		used[e.Widget.ID] = true
	}

	migrated := make([]models.Widget, 0, len(out.Filters))
	x, y := 0, 0
	for _, f := range out.Filters {
		wtype, ok := legacyFilterTypes[f.Type]
		if !ok {
			wtype = TypeFilterSelect
		}
		width := 4
		if wtype == TypeFilterDatePicker {
			width = 8
		}
		if x > 0 && x+width > legacyBandColumns {
			x = 0
			y += legacyFilterHeight
		}

		options := map[string]any{"filterKey": f.Key}
		if f.Label != "" {
			options["label"] = f.Label
		}
		if f.DefaultValue != nil {
			options["defaultValue"] = f.DefaultValue
		}
		if f.Placeholder != "" {
			options["placeholder"] = f.Placeholder
		}
		if len(f.Options) > 0 {
			options["options"] = optionsToValue(f.Options)
		}

		migrated = append(migrated, models.Widget{
			ID:      uniqueID("filter_"+f.ID, used),
			Type:    wtype,
			Title:   f.Label,
			Layout:  models.Layout{X: x, Y: y, W: width, H: legacyFilterHeight},
			Options: options,
		})
		x += width
	}

	band := y + legacyFilterHeight
	for i := range out.Widgets {
		if out.Widgets[i].Type == TypeFilterSubmit {
			continue
		}
		out.Widgets[i].Layout.Y += band
	}
	out.Widgets = append(migrated, out.Widgets...)
	out.Filters = []models.LegacyFilter{}
	return out
}

func uniqueID(base string, used map[string]bool) string {
	id := base
	for n := 2; used[id]; n++ {
		id = fmt.Sprintf("%s_%d", base, n)
	}
	used[id] = true
	return id
}

func optionsToValue(opts []models.FilterOption) []any {
	out := make([]any, len(opts))
	for i, o := range opts {
		m := map[string]any{"value": o.Value, "label": o.Label}
		if len(o.Children) > 0 {
			m["children"] = optionsToValue(o.Children)
		}
		out[i] = m
	}
	return out
}
