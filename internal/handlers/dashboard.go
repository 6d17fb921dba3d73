package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/dashboard-backend/internal/dto"
	"github.com/GregMSThompson/dashboard-backend/internal/errs"
	"github.com/GregMSThompson/dashboard-backend/internal/middleware"
	"github.com/GregMSThompson/dashboard-backend/internal/response"
)

type dashboardService interface {
	CreateDashboard(ctx context.Context, uid string, req dto.CreateDashboardRequest) (dto.DashboardResponse, error)
	ListDashboards(ctx context.Context, uid string) ([]dto.DashboardSummary, error)
	GetDashboard(ctx context.Context, uid, dashboardID string) (dto.DashboardResponse, error)
	SaveDashboard(ctx context.Context, uid, dashboardID string, req dto.SaveDashboardRequest) (dto.DashboardResponse, error)
	DeleteDashboard(ctx context.Context, uid, dashboardID string) error
	GetFilterState(ctx context.Context, uid, dashboardID string) (dto.FilterStateResponse, error)
	RenderDashboard(ctx context.Context, uid, dashboardID string, req dto.RenderRequest) (dto.RenderResponse, error)
	WidgetCatalog() dto.WidgetCatalog
}

type dashboardHandlers struct {
	ResponseHandler response.ResponseHandler
	DashboardSvc    dashboardService
	builder         *builderHandlers
}

func NewDashboardHandlers(deps *Deps) *dashboardHandlers {
	return &dashboardHandlers{
		ResponseHandler: deps.ResponseHandler,
		DashboardSvc:    deps.DashboardSvc,
		builder:         NewBuilderHandlers(deps),
	}
}

func (h *dashboardHandlers) DashboardRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListDashboards)
	r.Post("/", h.CreateDashboard)
	r.Get("/widget-types", h.GetWidgetTypes) // must be before /{dashboardId}
	r.Route("/{dashboardId}", func(r chi.Router) {
		r.Get("/", h.GetDashboard)
		r.Put("/", h.SaveDashboard)
		r.Delete("/", h.DeleteDashboard)
		r.Get("/filters", h.GetFilterState)
		r.Post("/render", h.RenderDashboard)
		r.Mount("/builder", h.builder.BuilderRoutes())
	})
	return r
}

func (h *dashboardHandlers) ListDashboards(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	list, err := h.DashboardSvc.ListDashboards(r.Context(), uid)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, list)
}

func (h *dashboardHandlers) CreateDashboard(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateDashboardRequest
	if err := decodeJSON(r, &req, true); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	uid := middleware.UID(r.Context())
	resp, err := h.DashboardSvc.CreateDashboard(r.Context(), uid, req)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusCreated, resp)
}

func (h *dashboardHandlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	resp, err := h.DashboardSvc.GetDashboard(r.Context(), uid, chi.URLParam(r, "dashboardId"))
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, resp)
}

func (h *dashboardHandlers) SaveDashboard(w http.ResponseWriter, r *http.Request) {
	var req dto.SaveDashboardRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	uid := middleware.UID(r.Context())
	resp, err := h.DashboardSvc.SaveDashboard(r.Context(), uid, chi.URLParam(r, "dashboardId"), req)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, resp)
}

func (h *dashboardHandlers) DeleteDashboard(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	if err := h.DashboardSvc.DeleteDashboard(r.Context(), uid, chi.URLParam(r, "dashboardId")); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, nil)
}

func (h *dashboardHandlers) GetFilterState(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	resp, err := h.DashboardSvc.GetFilterState(r.Context(), uid, chi.URLParam(r, "dashboardId"))
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, resp)
}

// RenderDashboard accepts an empty body, which renders with the
// dashboard's initial filter values.
func (h *dashboardHandlers) RenderDashboard(w http.ResponseWriter, r *http.Request) {
	var req dto.RenderRequest
	if err := decodeJSON(r, &req, true); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	uid := middleware.UID(r.Context())
	resp, err := h.DashboardSvc.RenderDashboard(r.Context(), uid, chi.URLParam(r, "dashboardId"), req)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, resp)
}

// GetWidgetTypes returns the catalog of widget types, data sources, date
// presets and aggregations this build understands.
func (h *dashboardHandlers) GetWidgetTypes(w http.ResponseWriter, r *http.Request) {
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, h.DashboardSvc.WidgetCatalog())
}

// decodeJSON decodes the request body into v. An empty body is accepted
// only when optional is set.
func decodeJSON(r *http.Request, v any, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		if optional {
			return nil
		}
		return errs.NewFieldValidationError("body", "is required")
	}
	return err
}
