package dto

import (
	"github.com/GregMSThompson/dashboard-backend/internal/builder"
	"github.com/GregMSThompson/dashboard-backend/internal/models"
)

type BuilderState struct {
	DashboardID string           `json:"dashboardId"`
	Document    *models.Document `json:"document"`
	Dirty       bool             `json:"dirty"`
	CanUndo     bool             `json:"canUndo"`
	CanRedo     bool             `json:"canRedo"`
}

// HistoryMoveResponse reports whether an undo or redo moved the cursor.
// Moved is false at either end of history.
type HistoryMoveResponse struct {
	Moved bool         `json:"moved"`
	State BuilderState `json:"state"`
}

type AddWidgetResponse struct {
	Widget models.Widget `json:"widget"`
	State  BuilderState  `json:"state"`
}

type UpdateLayoutsRequest struct {
	Layouts []builder.LayoutItem `json:"layouts"`
}
