package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/GregMSThompson/dashboard-backend/internal/bootstrap"
	telemetryclient "github.com/GregMSThompson/dashboard-backend/internal/client/telemetry"
	"github.com/GregMSThompson/dashboard-backend/internal/config"
	"github.com/GregMSThompson/dashboard-backend/internal/handlers"
	"github.com/GregMSThompson/dashboard-backend/internal/metrics"
	"github.com/GregMSThompson/dashboard-backend/internal/response"
	"github.com/GregMSThompson/dashboard-backend/internal/router"
	"github.com/GregMSThompson/dashboard-backend/internal/services"
)

func exitOnError(message string, err error, log *slog.Logger) {
	if err != nil {
		log.Error(message, "error", err)
		os.Exit(1)
	}
}

func main() {
	// bootstrap
	cfg, err := config.New()
	exitOnError("config failed", err, slog.Default())
	bs, err := bootstrap.Run(cfg)
	exitOnError("bootstrap failed", err, bs.Log)
	defer bs.Close()

	// clients
	telemetry := telemetryclient.NewAdapter(cfg.TelemetryBaseURL, cfg.TelemetryToken, cfg.TelemetryTimeout)
	collector := metrics.New()

	// services
	dserv := services.NewDashboardService(bs.Dashboards, telemetry, collector, cfg.FetchConcurrency)
	bserv := services.NewBuilderService(dserv, collector, cfg.HistoryLimit)

	// response handler
	rh := response.New(bs.Log)

	// dependancies
	deps := new(handlers.Deps)
	deps.Log = bs.Log
	deps.ResponseHandler = rh
	deps.Firebase = bs.Firebase
	deps.DashboardSvc = dserv
	deps.BuilderSvc = bserv
	deps.Metrics = collector

	// router
	r := router.NewRouter(deps)
	bs.Log.Info("server starting", "port", cfg.Port, "store", cfg.StoreBackend)
	err = http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r)
	exitOnError("server start failed", err, bs.Log)
}
