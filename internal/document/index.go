package document

import (
	"github.com/GregMSThompson/dashboard-backend/internal/models"
)

const (
	DefaultRangeFilterKey = "timeRange"
	DefaultRangePreset    = "today"
	StartTimeKey          = "startTime"
	EndTimeKey            = "endTime"
)

// FilterConfig is the typed view of a filter widget's options.
type FilterConfig struct {
	WidgetID     string
	Kind         Kind
	FilterKey    string
	Label        string
	DefaultValue any
	OutputKeys   []string // range filters only: [start, end]
	Presets      []string
	Options      []models.FilterOption
	FixedValue   any
	Visible      bool
	DependsOn    *Dependency
}

// IsFixed reports whether the filter is read-only.
func (c FilterConfig) IsFixed() bool { return c.FixedValue != nil }

// Keys returns the value-map keys the filter writes.
func (c FilterConfig) Keys() []string {
	if c.Kind.IsRange() {
		return c.OutputKeys
	}
	return []string{c.FilterKey}
}

// Dependency makes a filter's options a function of another filter's value.
type Dependency struct {
	FilterKey  string
	OptionsMap map[string][]models.FilterOption
}

type ChartOptions struct {
	Interval    string
	Aggregation string
	Stacked     bool
	ShowLegend  bool
}

type CardOptions struct {
	ShowHeader bool
}

func CardOptionsOf(w models.Widget) CardOptions {
	return CardOptions{ShowHeader: boolOr(w.Options["showHeader"], true)}
}

// HeaderRows is the grid-row allowance reserved for the card header.
func (c CardOptions) HeaderRows() int {
	if c.ShowHeader {
		return 1
	}
	return 0
}

// Entry is one widget in the flat index.
type Entry struct {
	Widget   models.Widget
	ParentID string
	Kind     Kind
	Filter   *FilterConfig
	Chart    *ChartOptions
	Card     *CardOptions
}

// Index is a flat, id-keyed table over every widget in a document, nested
// card children included. Per-kind options are decoded once here.
type Index struct {
	entries map[string]*Entry
	order   []string
}

func Compile(doc *models.Document) *Index {
	ix := &Index{entries: map[string]*Entry{}}
	for _, w := range doc.Widgets {
		ix.add(w, "")
		for _, c := range w.Children {
			ix.add(c, w.ID)
		}
	}
	return ix
}

func (ix *Index) add(w models.Widget, parentID string) {
	if _, dup := ix.entries[w.ID]; dup {
		return
	}
	e := &Entry{Widget: w, ParentID: parentID, Kind: KindOf(w.Type)}
	switch {
	case w.Type == TypeFilterSubmit:
	case IsFilterType(w.Type):
		fc := filterConfigOf(w, e.Kind)
		e.Filter = &fc
	case e.Kind == KindCard:
		co := CardOptionsOf(w)
		e.Card = &co
	case e.Kind.IsTimeSeries() || e.Kind == KindPieChart:
		e.Chart = &ChartOptions{
			Interval:    stringOr(w.Options["interval"], ""),
			Aggregation: stringOr(w.Options["aggregation"], ""),
			Stacked:     boolOr(w.Options["stacked"], false),
			ShowLegend:  boolOr(w.Options["showLegend"], true),
		}
	}
	ix.entries[w.ID] = e
	ix.order = append(ix.order, w.ID)
}

func (ix *Index) Get(id string) (*Entry, bool) {
	e, ok := ix.entries[id]
	return e, ok
}

func (ix *Index) Len() int { return len(ix.order) }

// Entries returns every entry in document order, each card followed by its children.
func (ix *Index) Entries() []*Entry {
	out := make([]*Entry, 0, len(ix.order))
	for _, id := range ix.order {
		out = append(out, ix.entries[id])
	}
	return out
}

func (ix *Index) FilterConfigs() []FilterConfig {
	var out []FilterConfig
	for _, id := range ix.order {
		if f := ix.entries[id].Filter; f != nil {
			out = append(out, *f)
		}
	}
	return out
}

func (ix *Index) HasSubmit() bool {
	for _, e := range ix.entries {
		if e.Widget.Type == TypeFilterSubmit {
			return true
		}
	}
	return false
}

// DataBound returns the non-filter widgets that declare a data binding.
func (ix *Index) DataBound() []*Entry {
	var out []*Entry
	for _, id := range ix.order {
		e := ix.entries[id]
		if e.Widget.DataBinding != nil && !IsFilterType(e.Widget.Type) {
			out = append(out, e)
		}
	}
	return out
}

// EffectiveApplyMode returns "manual" when either the settings ask for it or
// a filter-submit widget exists; the two triggers are independent.
func EffectiveApplyMode(doc *models.Document, ix *Index) string {
	if doc.Settings.FilterMode == FilterModeManual || ix.HasSubmit() {
		return FilterModeManual
	}
	return FilterModeAuto
}

func filterConfigOf(w models.Widget, kind Kind) FilterConfig {
	opts := w.Options
	fc := FilterConfig{
		WidgetID:     w.ID,
		Kind:         kind,
		FilterKey:    stringOr(opts["filterKey"], ""),
		Label:        stringOr(opts["label"], w.Title),
		DefaultValue: opts["defaultValue"],
		Presets:      stringsOf(opts["presets"]),
		Options:      parseFilterOptions(opts["options"]),
		FixedValue:   opts["fixedValue"],
		Visible:      boolOr(opts["visible"], true),
	}
	if kind.IsRange() {
		if fc.FilterKey == "" {
			fc.FilterKey = DefaultRangeFilterKey
		}
		keys := stringsOf(opts["outputKeys"])
		if len(keys) != 2 {
			keys = []string{StartTimeKey, EndTimeKey}
		}
		fc.OutputKeys = keys
		if s, ok := fc.DefaultValue.(string); !ok || s == "" {
			fc.DefaultValue = DefaultRangePreset
		}
	}
	if fc.FilterKey == "" {
		fc.FilterKey = w.ID
	}
	if dep, ok := opts["dependsOn"].(map[string]any); ok {
		if key := stringOr(dep["filterKey"], ""); key != "" {
			d := &Dependency{FilterKey: key, OptionsMap: map[string][]models.FilterOption{}}
			if om, ok := dep["optionsMap"].(map[string]any); ok {
				for parent, raw := range om {
					d.OptionsMap[parent] = parseFilterOptions(raw)
				}
			}
			fc.DependsOn = d
		}
	}
	return fc
}

func stringsOf(v any) []string {
	var out []string
	for _, e := range arrayOf(v) {
		if s, ok := e.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func boolOr(v any, fallback bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return fallback
}
