package document

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/GregMSThompson/dashboard-backend/internal/errs"
	"github.com/GregMSThompson/dashboard-backend/internal/models"
	"github.com/GregMSThompson/dashboard-backend/pkg/logger"
)

// Serialize renders the canonical JSON form of a document.
func Serialize(doc *models.Document) (string, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return "", errs.NewValidationError("document cannot be serialized: " + err.Error())
	}
	return string(b), nil
}

// ParseLenient is the best-effort read used where a broken stored document
// must not break the caller: any validation failure is logged and the empty
// default document is returned instead.
func ParseLenient(ctx context.Context, raw string) *models.Document {
	if strings.TrimSpace(raw) == "" {
		return NewDefault()
	}
	doc, err := Validate([]byte(raw))
	if err != nil {
		log := logger.FromContext(ctx)
		attrs := []any{"error", err}
		if ve, ok := err.(*errs.ValidationError); ok {
			attrs = append(attrs, "path", ve.Path)
		}
		log.Warn("stored document is malformed, using default document", attrs...)
		return NewDefault()
	}
	return doc
}

// Clone deep-copies a document so snapshots never share mutable state.
func Clone(doc *models.Document) *models.Document {
	if doc == nil {
		return nil
	}
	out := &models.Document{
		Version:     doc.Version,
		Settings:    doc.Settings,
		DataSources: append([]models.DataSourceRef{}, doc.DataSources...),
		Filters:     make([]models.LegacyFilter, len(doc.Filters)),
		Widgets:     make([]models.Widget, len(doc.Widgets)),
		Linkages:    make([]models.Linkage, len(doc.Linkages)),
	}
	if doc.Settings.Breakpoints != nil {
		out.Settings.Breakpoints = make(map[string]int, len(doc.Settings.Breakpoints))
		for k, v := range doc.Settings.Breakpoints {
			out.Settings.Breakpoints[k] = v
		}
	}
	for i, f := range doc.Filters {
		f.DefaultValue = cloneValue(f.DefaultValue)
		f.Options = cloneOptions(f.Options)
		out.Filters[i] = f
	}
	for i, w := range doc.Widgets {
		out.Widgets[i] = CloneWidget(w)
	}
	for i, l := range doc.Linkages {
		l.TargetWidgetIDs = append([]string{}, l.TargetWidgetIDs...)
		if l.FieldMapping != nil {
			fm := make(map[string]string, len(l.FieldMapping))
			for k, v := range l.FieldMapping {
				fm[k] = v
			}
			l.FieldMapping = fm
		}
		out.Linkages[i] = l
	}
	return out
}

func CloneWidget(w models.Widget) models.Widget {
	w.Style = cloneMap(w.Style)
	w.Options = cloneMap(w.Options)
	if w.DataBinding != nil {
		b := *w.DataBinding
		b.RequestParams = cloneMap(b.RequestParams)
		if b.Mapping.Dimensions != nil {
			b.Mapping.Dimensions = append([]string{}, b.Mapping.Dimensions...)
		}
		b.Mapping.Measurements = append([]models.Measurement{}, b.Mapping.Measurements...)
		if b.Mapping.Comparison != nil {
			c := *b.Mapping.Comparison
			b.Mapping.Comparison = &c
		}
		if b.Transform != nil {
			t := *b.Transform
			if t.Sort != nil {
				s := *t.Sort
				t.Sort = &s
			}
			b.Transform = &t
		}
		w.DataBinding = &b
	}
	if w.Children != nil {
		children := make([]models.Widget, len(w.Children))
		for i, c := range w.Children {
			children[i] = CloneWidget(c)
		}
		w.Children = children
	}
	return w
}

func cloneOptions(opts []models.FilterOption) []models.FilterOption {
	if opts == nil {
		return nil
	}
	out := make([]models.FilterOption, len(opts))
	for i, o := range opts {
		out[i] = models.FilterOption{
			Value:    cloneValue(o.Value),
			Label:    o.Label,
			Children: cloneOptions(o.Children),
		}
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
