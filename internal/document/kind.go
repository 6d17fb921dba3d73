package document

import "strings"

// Kind is the closed set of widget variants the engine knows how to render.
// Documents may carry any type string; unrecognised ones map to KindUnknown
// and are passed through untouched.
type Kind int

const (
	KindUnknown Kind = iota
	KindCard
	KindFilterSelect
	KindFilterMultiSelect
	KindFilterTreeSelect
	KindFilterDatePicker
	KindFilterInput
	KindFilterSubmit
	KindLineChart
	KindBarChart
	KindAreaChart
	KindPieChart
	KindGauge
	KindStat
	KindTable
	KindText
)

// Widget type tags as they appear in documents.
const (
	TypeCard              = "card"
	TypeFilterSelect      = "filter-select"
	TypeFilterMultiSelect = "filter-multiselect"
	TypeFilterTreeSelect  = "filter-treeselect"
	TypeFilterDatePicker  = "filter-datepicker"
	TypeFilterInput       = "filter-input"
	TypeFilterSubmit      = "filter-submit"
	TypeLineChart         = "line-chart"
	TypeBarChart          = "bar-chart"
	TypeAreaChart         = "area-chart"
	TypePieChart          = "pie-chart"
	TypeGauge             = "gauge"
	TypeStat              = "stat"
	TypeTable             = "table"
	TypeText              = "text"

	filterTypePrefix = "filter-"
)

var kindsByType = map[string]Kind{
	TypeCard:              KindCard,
	TypeFilterSelect:      KindFilterSelect,
	TypeFilterMultiSelect: KindFilterMultiSelect,
	TypeFilterTreeSelect:  KindFilterTreeSelect,
	TypeFilterDatePicker:  KindFilterDatePicker,
	TypeFilterInput:       KindFilterInput,
	TypeFilterSubmit:      KindFilterSubmit,
	TypeLineChart:         KindLineChart,
	TypeBarChart:          KindBarChart,
	TypeAreaChart:         KindAreaChart,
	TypePieChart:          KindPieChart,
	TypeGauge:             KindGauge,
	TypeStat:              KindStat,
	TypeTable:             KindTable,
	TypeText:              KindText,
}

// KnownTypes lists every type tag in catalog order.
var KnownTypes = []string{
	TypeCard,
	TypeFilterSelect, TypeFilterMultiSelect, TypeFilterTreeSelect,
	TypeFilterDatePicker, TypeFilterInput, TypeFilterSubmit,
	TypeLineChart, TypeBarChart, TypeAreaChart, TypePieChart,
	TypeGauge, TypeStat, TypeTable, TypeText,
}

func KindOf(widgetType string) Kind {
	return kindsByType[widgetType]
}

func (k Kind) String() string {
	for t, kk := range kindsByType {
		if kk == k {
			return t
		}
	}
	return "unknown"
}

// IsFilterType reports whether the type belongs to the filter category.
// The check is by prefix so that filter types unknown to this build still
// behave as filters.
func IsFilterType(widgetType string) bool {
	return strings.HasPrefix(widgetType, filterTypePrefix)
}

// IsTimeSeries reports whether the kind renders a series over time.
func (k Kind) IsTimeSeries() bool {
	switch k {
	case KindLineChart, KindBarChart, KindAreaChart:
		return true
	}
	return false
}

// IsRange reports whether the kind produces a start/end pair.
func (k Kind) IsRange() bool {
	return k == KindFilterDatePicker
}
