package dto

import (
	"encoding/json"
	"time"

	"github.com/GregMSThompson/dashboard-backend/internal/models"
)

// Widget data status values
const (
	WidgetStatusOK           = "ok"
	WidgetStatusError        = "error"
	WidgetStatusUnconfigured = "unconfigured"
)

// --- Request types ---

// CreateDashboardRequest creates a dashboard. Schema is optional; an empty
// schema starts from the default document.
type CreateDashboardRequest struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema,omitempty"`
}

// SaveDashboardRequest replaces a dashboard's document. It goes through
// strict validation.
type SaveDashboardRequest struct {
	Name   *string         `json:"name,omitempty"`
	Schema json.RawMessage `json:"schema"`
}

// RenderRequest carries the filter values the viewer has applied. Keys of
// fixed filters are ignored.
type RenderRequest struct {
	Filters map[string]any `json:"filters"`
}

// --- Response types ---

type DashboardSummary struct {
	DashboardID string    `json:"dashboardId"`
	Name        string    `json:"name"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type DashboardResponse struct {
	DashboardID string           `json:"dashboardId"`
	Name        string           `json:"name"`
	Document    *models.Document `json:"document"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

type FilterDescriptor struct {
	WidgetID   string                `json:"widgetId"`
	Type       string                `json:"type"`
	FilterKey  string                `json:"filterKey"`
	Label      string                `json:"label,omitempty"`
	OutputKeys []string              `json:"outputKeys,omitempty"`
	Presets    []string              `json:"presets,omitempty"`
	Options    []models.FilterOption `json:"options,omitempty"`
	DependsOn  string                `json:"dependsOn,omitempty"`
	Fixed      bool                  `json:"fixed"`
	Visible    bool                  `json:"visible"`
}

type FilterStateResponse struct {
	DashboardID string             `json:"dashboardId"`
	Mode        string             `json:"mode"`
	Filters     []FilterDescriptor `json:"filters"`
	Values      map[string]any     `json:"values"`
}

// WidgetData is one widget's render slot. A failed fetch is reported here
// and never fails the whole render.
type WidgetData struct {
	WidgetID string             `json:"widgetId"`
	ParentID string             `json:"parentId,omitempty"`
	Type     string             `json:"type"`
	Status   string             `json:"status"`
	Endpoint string             `json:"endpoint,omitempty"`
	Params   map[string]any     `json:"params,omitempty"`
	Interval string             `json:"interval,omitempty"`
	Mapping  *models.Mapping    `json:"mapping,omitempty"`
	Rows     []map[string]any   `json:"rows,omitempty"`
	Summary  map[string]float64 `json:"summary,omitempty"`
	Error    string             `json:"error,omitempty"`
}

type RenderResponse struct {
	DashboardID string         `json:"dashboardId"`
	Mode        string         `json:"mode"`
	Filters     map[string]any `json:"filters"`
	Widgets     []WidgetData   `json:"widgets"`
	RenderedAt  time.Time      `json:"renderedAt"`
}

// --- Catalog ---

type WidgetTypeInfo struct {
	Type          string        `json:"type"`
	Category      string        `json:"category"`
	Shape         string        `json:"shape,omitempty"`
	DefaultLayout models.Layout `json:"defaultLayout"`
	Container     bool          `json:"container,omitempty"`
}

type DataSourceInfo struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	LatestEndpoint     string `json:"latestEndpoint"`
	TimeSeriesEndpoint string `json:"timeseriesEndpoint"`
}

type WidgetCatalog struct {
	Types        []WidgetTypeInfo `json:"types"`
	DataSources  []DataSourceInfo `json:"dataSources"`
	DatePresets  []string         `json:"datePresets"`
	Aggregations []string         `json:"aggregations"`
}
