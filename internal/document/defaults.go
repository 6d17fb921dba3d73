package document

import "github.com/GregMSThompson/dashboard-backend/internal/models"

const (
	CurrentVersion = "1.0"

	DefaultGridColumns = 24
	DefaultRowHeight   = 40

	ThemeLight = "light"
	ThemeDark  = "dark"
	ThemeAuto  = "auto"

	FilterModeAuto   = "auto"
	FilterModeManual = "manual"
)

var validThemes = map[string]bool{ThemeLight: true, ThemeDark: true, ThemeAuto: true}

var validAggregations = map[string]bool{
	"sum": true, "avg": true, "min": true, "max": true, "count": true, "latest": true,
}

// NewDefault returns the minimal valid document: default settings and empty arrays.
func NewDefault() *models.Document {
	return &models.Document{
		Version:     CurrentVersion,
		Settings:    DefaultSettings(),
		DataSources: []models.DataSourceRef{},
		Filters:     []models.LegacyFilter{},
		Widgets:     []models.Widget{},
		Linkages:    []models.Linkage{},
	}
}

func DefaultSettings() models.Settings {
	return models.Settings{
		GridColumns:     DefaultGridColumns,
		RowHeight:       DefaultRowHeight,
		RefreshInterval: 0,
		Theme:           ThemeLight,
		FilterMode:      FilterModeAuto,
	}
}

// DefaultLayout is used for widgets that arrive without a layout.
func DefaultLayout(widgetType string) models.Layout {
	switch {
	case widgetType == TypeFilterDatePicker:
		return models.Layout{W: 8, H: 2}
	case IsFilterType(widgetType):
		return models.Layout{W: 4, H: 2}
	case widgetType == TypeCard:
		return models.Layout{W: 12, H: 10}
	case KindOf(widgetType).IsTimeSeries():
		return models.Layout{W: 12, H: 8}
	default:
		return models.Layout{W: 6, H: 6}
	}
}
