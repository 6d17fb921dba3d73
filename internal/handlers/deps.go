package handlers

import (
	"log/slog"

	"firebase.google.com/go/v4/auth"

	"github.com/GregMSThompson/dashboard-backend/internal/metrics"
	"github.com/GregMSThompson/dashboard-backend/internal/response"
)

type Deps struct {
	Log             *slog.Logger
	ResponseHandler response.ResponseHandler
	DashboardSvc    dashboardService
	BuilderSvc      builderService
	Metrics         *metrics.Collector
	Firebase        *auth.Client
}
