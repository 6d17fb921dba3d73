package document

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/GregMSThompson/dashboard-backend/internal/errs"
	"github.com/GregMSThompson/dashboard-backend/internal/models"
)

// Validate is the strict parse: it applies defaults to optional fields and
// fails with *errs.ValidationError on required-shape violations (missing ids,
// duplicate ids, children on non-card widgets, ...).
func Validate(raw []byte) (*models.Document, error) {
	var root any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, errs.NewFieldValidationError("$", "invalid JSON: "+err.Error())
	}
	return FromValue(root)
}

// FromValue validates an already-decoded JSON value.
func FromValue(root any) (*models.Document, error) {
	obj, ok := root.(map[string]any)
	if !ok {
		return nil, errs.NewFieldValidationError("$", "document must be an object")
	}

	doc := NewDefault()
	if v := stringOr(obj["version"], ""); v != "" {
		doc.Version = v
	}
	doc.Settings = parseSettings(obj["settings"])

	var err error
	if doc.DataSources, err = parseDataSources(obj["dataSources"]); err != nil {
		return nil, err
	}
	if doc.Filters, err = parseLegacyFilters(obj["filters"]); err != nil {
		return nil, err
	}

	seen := map[string]string{}
	for i, raw := range arrayOf(obj["widgets"]) {
		w, err := parseWidget(raw, fmt.Sprintf("widgets[%d]", i), seen, false)
		if err != nil {
			return nil, err
		}
		doc.Widgets = append(doc.Widgets, w)
	}

	if doc.Linkages, err = parseLinkages(obj["linkages"]); err != nil {
		return nil, err
	}
	return doc, nil
}

func parseSettings(v any) models.Settings {
	s := DefaultSettings()
	obj, ok := v.(map[string]any)
	if !ok {
		return s
	}
	if n, ok := intOf(obj["gridColumns"]); ok && n > 0 {
		s.GridColumns = n
	}
	if n, ok := intOf(obj["rowHeight"]); ok && n > 0 {
		s.RowHeight = n
	}
	if n, ok := intOf(obj["refreshInterval"]); ok && n >= 0 {
		s.RefreshInterval = n
	}
	if t := stringOr(obj["theme"], ""); validThemes[t] {
		s.Theme = t
	}
	if m := stringOr(obj["filterMode"], ""); m == FilterModeAuto || m == FilterModeManual {
		s.FilterMode = m
	}
	if bp, ok := obj["breakpoints"].(map[string]any); ok {
		for name, raw := range bp {
			if n, ok := intOf(raw); ok && n > 0 {
				if s.Breakpoints == nil {
					s.Breakpoints = map[string]int{}
				}
				s.Breakpoints[name] = n
			}
		}
	}
	return s
}

func parseDataSources(v any) ([]models.DataSourceRef, error) {
	out := []models.DataSourceRef{}
	for i, raw := range arrayOf(v) {
		path := fmt.Sprintf("dataSources[%d]", i)
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, errs.NewFieldValidationError(path, "must be an object")
		}
		id := stringOr(obj["id"], "")
		if id == "" {
			return nil, errs.NewFieldValidationError(path+".id", "is required")
		}
		out = append(out, models.DataSourceRef{
			ID:   id,
			Name: stringOr(obj["name"], ""),
			Type: stringOr(obj["type"], ""),
		})
	}
	return out, nil
}

func parseLegacyFilters(v any) ([]models.LegacyFilter, error) {
	out := []models.LegacyFilter{}
	for i, raw := range arrayOf(v) {
		path := fmt.Sprintf("filters[%d]", i)
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, errs.NewFieldValidationError(path, "must be an object")
		}
		key := stringOr(obj["key"], "")
		if key == "" {
			return nil, errs.NewFieldValidationError(path+".key", "is required")
		}
		out = append(out, models.LegacyFilter{
			ID:           stringOr(obj["id"], key),
			Type:         stringOr(obj["type"], "select"),
			Key:          key,
			Label:        stringOr(obj["label"], ""),
			DefaultValue: obj["defaultValue"],
			Placeholder:  stringOr(obj["placeholder"], ""),
			Options:      parseFilterOptions(obj["options"]),
		})
	}
	return out, nil
}

// parseFilterOptions is lenient: scalars become {value, label=value}.
func parseFilterOptions(v any) []models.FilterOption {
	var out []models.FilterOption
	for _, raw := range arrayOf(v) {
		switch o := raw.(type) {
		case map[string]any:
			label := stringOr(o["label"], "")
			if label == "" {
				label = fmt.Sprint(o["value"])
			}
			out = append(out, models.FilterOption{
				Value:    o["value"],
				Label:    label,
				Children: parseFilterOptions(o["children"]),
			})
		case nil:
		default:
			out = append(out, models.FilterOption{Value: o, Label: fmt.Sprint(o)})
		}
	}
	return out
}

func parseWidget(v any, path string, seen map[string]string, nested bool) (models.Widget, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return models.Widget{}, errs.NewFieldValidationError(path, "must be an object")
	}
	id := stringOr(obj["id"], "")
	if id == "" {
		return models.Widget{}, errs.NewFieldValidationError(path+".id", "is required")
	}
	if first, dup := seen[id]; dup {
		return models.Widget{}, errs.NewFieldValidationError(path+".id",
			fmt.Sprintf("duplicate widget id %q (first used at %s)", id, first))
	}
	seen[id] = path

	wtype := stringOr(obj["type"], "")
	if wtype == "" {
		return models.Widget{}, errs.NewFieldValidationError(path+".type", "is required")
	}

	w := models.Widget{
		ID:      id,
		Type:    wtype,
		Title:   stringOr(obj["title"], ""),
		Layout:  parseLayout(obj["layout"], wtype),
		Style:   objectCopy(obj["style"]),
		Options: objectCopy(obj["options"]),
	}

	if raw, ok := obj["dataBinding"].(map[string]any); ok {
		b, err := parseBinding(raw, path+".dataBinding")
		if err != nil {
			return models.Widget{}, err
		}
		w.DataBinding = b
	}

	children := arrayOf(obj["children"])
	if len(children) == 0 {
		return w, nil
	}
	if nested {
		return models.Widget{}, errs.NewFieldValidationError(path+".children", "card children cannot contain widgets")
	}
	if wtype != TypeCard {
		return models.Widget{}, errs.NewFieldValidationError(path+".children", "only card widgets may contain children")
	}
	for i, raw := range children {
		c, err := parseWidget(raw, fmt.Sprintf("%s.children[%d]", path, i), seen, true)
		if err != nil {
			return models.Widget{}, err
		}
		w.Children = append(w.Children, c)
	}
	return w, nil
}

func parseLayout(v any, widgetType string) models.Layout {
	l := DefaultLayout(widgetType)
	obj, ok := v.(map[string]any)
	if !ok {
		return l
	}
	if n, ok := intOf(obj["x"]); ok && n >= 0 {
		l.X = n
	}
	if n, ok := intOf(obj["y"]); ok && n >= 0 {
		l.Y = n
	}
	if n, ok := intOf(obj["w"]); ok && n >= 1 {
		l.W = n
	}
	if n, ok := intOf(obj["h"]); ok && n >= 1 {
		l.H = n
	}
	if n, ok := intOf(obj["minW"]); ok && n >= 0 {
		l.MinW = n
	}
	if n, ok := intOf(obj["minH"]); ok && n >= 0 {
		l.MinH = n
	}
	return l
}

// CheckLayout reports the first grid invariant l breaks: x and y must not
// be negative, w and h must be at least one, and the minimums must not be
// negative. Overflowing the column count is allowed.
func CheckLayout(path string, l models.Layout) error {
	switch {
	case l.X < 0:
		return errs.NewFieldValidationError(path+".x", "must be >= 0")
	case l.Y < 0:
		return errs.NewFieldValidationError(path+".y", "must be >= 0")
	case l.W < 1:
		return errs.NewFieldValidationError(path+".w", "must be >= 1")
	case l.H < 1:
		return errs.NewFieldValidationError(path+".h", "must be >= 1")
	case l.MinW < 0:
		return errs.NewFieldValidationError(path+".minW", "must be >= 0")
	case l.MinH < 0:
		return errs.NewFieldValidationError(path+".minH", "must be >= 0")
	}
	return nil
}

func parseBinding(obj map[string]any, path string) (*models.DataBinding, error) {
	dsID := stringOr(obj["dataSourceId"], "")
	if dsID == "" {
		return nil, errs.NewFieldValidationError(path+".dataSourceId", "is required")
	}
	b := &models.DataBinding{
		DataSourceID:  dsID,
		RequestParams: objectCopy(obj["requestParams"]),
		Mapping:       models.Mapping{Measurements: []models.Measurement{}},
	}

	if m, ok := obj["mapping"].(map[string]any); ok {
		b.Mapping.TimeField = stringOr(m["timeField"], "")
		for _, d := range arrayOf(m["dimensions"]) {
			if s, ok := d.(string); ok && s != "" {
				b.Mapping.Dimensions = append(b.Mapping.Dimensions, s)
			}
		}
		for i, raw := range arrayOf(m["measurements"]) {
			mpath := fmt.Sprintf("%s.mapping.measurements[%d]", path, i)
			mo, ok := raw.(map[string]any)
			if !ok {
				return nil, errs.NewFieldValidationError(mpath, "must be an object")
			}
			field := stringOr(mo["field"], "")
			if field == "" {
				return nil, errs.NewFieldValidationError(mpath+".field", "is required")
			}
			agg := stringOr(mo["aggregation"], "")
			if !validAggregations[agg] {
				agg = ""
			}
			b.Mapping.Measurements = append(b.Mapping.Measurements, models.Measurement{
				Field:       field,
				Label:       stringOr(mo["label"], field),
				Unit:        stringOr(mo["unit"], ""),
				Color:       stringOr(mo["color"], ""),
				Format:      stringOr(mo["format"], ""),
				Aggregation: agg,
			})
		}
		if c, ok := m["comparison"].(map[string]any); ok {
			if f := stringOr(c["field"], ""); f != "" {
				b.Mapping.Comparison = &models.Comparison{Field: f, Type: stringOr(c["type"], "")}
			}
		}
	}

	if t, ok := obj["transform"].(map[string]any); ok {
		tr := &models.Transform{}
		if s, ok := t["sort"].(map[string]any); ok {
			if f := stringOr(s["field"], ""); f != "" {
				order := stringOr(s["order"], "")
				if order != "asc" && order != "desc" {
					order = ""
				}
				tr.Sort = &models.SortSpec{Field: f, Order: order}
			}
		}
		if n, ok := intOf(t["limit"]); ok && n > 0 {
			tr.Limit = n
		}
		if tr.Sort != nil || tr.Limit > 0 {
			b.Transform = tr
		}
	}
	return b, nil
}

func parseLinkages(v any) ([]models.Linkage, error) {
	out := []models.Linkage{}
	for i, raw := range arrayOf(v) {
		path := fmt.Sprintf("linkages[%d]", i)
		obj, ok := raw.(map[string]any)
		if !ok {
			return nil, errs.NewFieldValidationError(path, "must be an object")
		}
		src := stringOr(obj["sourceWidgetId"], "")
		if src == "" {
			return nil, errs.NewFieldValidationError(path+".sourceWidgetId", "is required")
		}
		l := models.Linkage{
			ID:              stringOr(obj["id"], fmt.Sprintf("linkage_%d", i)),
			SourceWidgetID:  src,
			TargetWidgetIDs: []string{},
			Trigger:         stringOr(obj["trigger"], ""),
		}
		for _, t := range arrayOf(obj["targetWidgetIds"]) {
			if s, ok := t.(string); ok && s != "" {
				l.TargetWidgetIDs = append(l.TargetWidgetIDs, s)
			}
		}
		if fm, ok := obj["fieldMapping"].(map[string]any); ok {
			for k, v := range fm {
				if s, ok := v.(string); ok {
					if l.FieldMapping == nil {
						l.FieldMapping = map[string]string{}
					}
					l.FieldMapping[k] = s
				}
			}
		}
		out = append(out, l)
	}
	return out, nil
}

// --- JSON value helpers ---

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}

func intOf(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	}
	return 0, false
}

func arrayOf(v any) []any {
	a, _ := v.([]any)
	return a
}

func objectCopy(v any) map[string]any {
	obj, ok := v.(map[string]any)
	if !ok || len(obj) == 0 {
		return nil
	}
	out := make(map[string]any, len(obj))
	for k, val := range obj {
		out[k] = val
	}
	return out
}
