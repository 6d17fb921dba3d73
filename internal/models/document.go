package models

// Document is the declarative dashboard description rendered by the engine.
type Document struct {
	Version     string          `json:"version"`
	Settings    Settings        `json:"settings"`
	DataSources []DataSourceRef `json:"dataSources"`
	Filters     []LegacyFilter  `json:"filters"` // deprecated, see document.Migrate
	Widgets     []Widget        `json:"widgets"`
	Linkages    []Linkage       `json:"linkages"`
}

// Settings holds grid and behaviour settings for the whole dashboard.
type Settings struct {
	GridColumns     int            `json:"gridColumns"`
	RowHeight       int            `json:"rowHeight"`
	RefreshInterval int            `json:"refreshInterval"` // milliseconds, 0 = disabled
	Theme           string         `json:"theme"`
	Breakpoints     map[string]int `json:"breakpoints,omitempty"`
	FilterMode      string         `json:"filterMode"` // "auto" | "manual"
}

type DataSourceRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// LegacyFilter is the pre-widget filter representation kept only so that
// old documents can be migrated.
type LegacyFilter struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Key          string         `json:"key"`
	Label        string         `json:"label,omitempty"`
	DefaultValue any            `json:"defaultValue,omitempty"`
	Placeholder  string         `json:"placeholder,omitempty"`
	Options      []FilterOption `json:"options,omitempty"`
}

type FilterOption struct {
	Value    any            `json:"value"`
	Label    string         `json:"label"`
	Children []FilterOption `json:"children,omitempty"`
}

// Widget is one grid item. Only "card" widgets carry Children, and children
// never carry children of their own.
type Widget struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Layout      Layout         `json:"layout"`
	DataBinding *DataBinding   `json:"dataBinding,omitempty"`
	Style       map[string]any `json:"style,omitempty"`
	Options     map[string]any `json:"options,omitempty"`
	Children    []Widget       `json:"children,omitempty"`
}

// Layout is expressed in grid units.
type Layout struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	W    int `json:"w"`
	H    int `json:"h"`
	MinW int `json:"minW,omitempty"`
	MinH int `json:"minH,omitempty"`
}

// Bottom is the first grid row below the widget.
func (l Layout) Bottom() int { return l.Y + l.H }

type DataBinding struct {
	DataSourceID  string         `json:"dataSourceId"`
	RequestParams map[string]any `json:"requestParams,omitempty"`
	Mapping       Mapping        `json:"mapping"`
	Transform     *Transform     `json:"transform,omitempty"`
}

type Mapping struct {
	TimeField    string        `json:"timeField,omitempty"`
	Dimensions   []string      `json:"dimensions,omitempty"`
	Measurements []Measurement `json:"measurements"`
	Comparison   *Comparison   `json:"comparison,omitempty"`
}

type Comparison struct {
	Field string `json:"field"`
	Type  string `json:"type"`
}

type Transform struct {
	Sort  *SortSpec `json:"sort,omitempty"`
	Limit int       `json:"limit,omitempty"`
}

type SortSpec struct {
	Field string `json:"field"`
	Order string `json:"order,omitempty"` // "asc" | "desc"
}

type Measurement struct {
	Field       string `json:"field"`
	Label       string `json:"label"`
	Unit        string `json:"unit,omitempty"`
	Color       string `json:"color,omitempty"`
	Format      string `json:"format,omitempty"`
	Aggregation string `json:"aggregation,omitempty"` // sum|avg|min|max|count|latest
}

// Linkage connects an interaction on one widget to other widgets.
type Linkage struct {
	ID              string            `json:"id"`
	SourceWidgetID  string            `json:"sourceWidgetId"`
	TargetWidgetIDs []string          `json:"targetWidgetIds"`
	Trigger         string            `json:"trigger,omitempty"`
	FieldMapping    map[string]string `json:"fieldMapping,omitempty"`
}
