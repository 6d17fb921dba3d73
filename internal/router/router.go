package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/GregMSThompson/dashboard-backend/internal/handlers"
	"github.com/GregMSThompson/dashboard-backend/internal/middleware"
)

func NewRouter(deps *handlers.Deps) http.Handler {
	r := chi.NewRouter()

	lm := middleware.NewLoggerMiddleware(deps.Log)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(lm.LoggerMiddleware)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	dh := handlers.NewDashboardHandlers(deps)

	r.Group(func(r chi.Router) {
		if deps.Firebase != nil {
			r.Use(middleware.NewMiddleware(deps.Firebase).FirebaseAuth)
		}
		r.Mount("/dashboards", dh.DashboardRoutes())
	})

	return otelhttp.NewHandler(r, "dashboard-api")
}
