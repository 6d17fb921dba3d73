// Package dispatch decides which telemetry request, if any, feeds a widget.
package dispatch

import (
	"github.com/GregMSThompson/dashboard-backend/internal/document"
	"github.com/GregMSThompson/dashboard-backend/internal/models"
	"github.com/GregMSThompson/dashboard-backend/internal/template"
	"github.com/GregMSThompson/dashboard-backend/internal/timeseries"
)

// Shape is the kind of telemetry request a widget needs.
type Shape string

const (
	ShapeNone       Shape = ""
	ShapeLatest     Shape = "latest"
	ShapeTimeSeries Shape = "timeseries"
)

// Source is one row of the static data-source table.
type Source struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Latest     string `json:"latestEndpoint"`
	TimeSeries string `json:"timeseriesEndpoint"`
}

// Sources is keyed by the conventional ds_<name> identifier.
var Sources = map[string]Source{
	"ds_energy":      {ID: "ds_energy", Name: "Energy", Latest: "/api/telemetry/energy/latest", TimeSeries: "/api/telemetry/energy/timeseries"},
	"ds_environment": {ID: "ds_environment", Name: "Environment", Latest: "/api/telemetry/environment/latest", TimeSeries: "/api/telemetry/environment/timeseries"},
	"ds_production":  {ID: "ds_production", Name: "Production", Latest: "/api/telemetry/production/latest", TimeSeries: "/api/telemetry/production/timeseries"},
	"ds_equipment":   {ID: "ds_equipment", Name: "Equipment", Latest: "/api/telemetry/equipment/latest", TimeSeries: "/api/telemetry/equipment/timeseries"},
	"ds_alarms":      {ID: "ds_alarms", Name: "Alarms", Latest: "/api/telemetry/alarms/latest", TimeSeries: "/api/telemetry/alarms/timeseries"},
}

// SourceIDs lists the table keys in a stable order.
var SourceIDs = []string{"ds_energy", "ds_environment", "ds_production", "ds_equipment", "ds_alarms"}

// ShapeFor returns the request shape for a widget type. Chart types that
// plot over time use the time-series shape; everything else reads latest.
func ShapeFor(widgetType string) Shape {
	if document.KindOf(widgetType).IsTimeSeries() {
		return ShapeTimeSeries
	}
	return ShapeLatest
}

// Endpoint looks up the endpoint for a widget type and data source. An
// unknown data source yields "", which callers render as not configured.
func Endpoint(widgetType, dataSourceID string) string {
	src, ok := Sources[dataSourceID]
	if !ok {
		return ""
	}
	if ShapeFor(widgetType) == ShapeTimeSeries {
		return src.TimeSeries
	}
	return src.Latest
}

// Request is everything needed to fetch and reduce one widget's data.
// Params holds only the resolved binding parameters; Interval travels
// separately.
type Request struct {
	WidgetID    string
	WidgetType  string
	Shape       Shape
	Endpoint    string
	Params      map[string]any
	Interval    string
	Aggregation timeseries.Aggregation
	TimeField   string
	ValueFields []string
}

// Configured reports whether a request was produced.
func (r Request) Configured() bool { return r.Endpoint != "" }

// Plan builds the request for a data-bound widget from the applied filter
// values. Widgets without a binding or with an unknown data source get a
// Request with an empty Endpoint.
func Plan(e *document.Entry, applied map[string]any) Request {
	req := Request{WidgetID: e.Widget.ID, WidgetType: e.Widget.Type}
	b := e.Widget.DataBinding
	if b == nil {
		return req
	}
	req.Endpoint = Endpoint(e.Widget.Type, b.DataSourceID)
	if req.Endpoint == "" {
		return req
	}
	req.Shape = ShapeFor(e.Widget.Type)
	req.Params = template.ResolveBinding(b, applied)
	req.TimeField = b.Mapping.TimeField
	if req.TimeField == "" {
		req.TimeField = timeseries.DefaultTimeField
	}
	for _, m := range b.Mapping.Measurements {
		req.ValueFields = append(req.ValueFields, m.Field)
	}
	if req.Shape == ShapeTimeSeries {
		req.Interval = intervalFor(e, req.Params)
		req.Aggregation = aggregationFor(e, b)
	}
	return req
}

// intervalFor prefers an explicit interval parameter, then the chart
// option, then a width derived from the requested time range.
func intervalFor(e *document.Entry, params map[string]any) string {
	if s, ok := params["interval"].(string); ok && timeseries.ValidInterval(s) {
		return s
	}
	if e.Chart != nil && timeseries.ValidInterval(e.Chart.Interval) {
		return e.Chart.Interval
	}
	start, okS := timeseries.ParseTimestamp(params[document.StartTimeKey])
	end, okE := timeseries.ParseTimestamp(params[document.EndTimeKey])
	if okS && okE {
		return timeseries.AutoInterval(start, end)
	}
	return timeseries.DefaultInterval
}

func aggregationFor(e *document.Entry, b *models.DataBinding) timeseries.Aggregation {
	if e.Chart != nil && e.Chart.Aggregation != "" {
		return timeseries.ParseAggregation(e.Chart.Aggregation)
	}
	for _, m := range b.Mapping.Measurements {
		if m.Aggregation != "" {
			return timeseries.ParseAggregation(m.Aggregation)
		}
	}
	return timeseries.Avg
}
