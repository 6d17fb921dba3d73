package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/dashboard-backend/internal/builder"
	"github.com/GregMSThompson/dashboard-backend/internal/dto"
	"github.com/GregMSThompson/dashboard-backend/internal/middleware"
	"github.com/GregMSThompson/dashboard-backend/internal/models"
	"github.com/GregMSThompson/dashboard-backend/internal/response"
)

type builderService interface {
	OpenSession(ctx context.Context, uid, dashboardID string) (dto.BuilderState, error)
	GetSession(ctx context.Context, uid, dashboardID string) (dto.BuilderState, error)
	CloseSession(ctx context.Context, uid, dashboardID string) error
	AddWidget(ctx context.Context, uid, dashboardID string, w models.Widget) (dto.AddWidgetResponse, error)
	AddChildWidget(ctx context.Context, uid, dashboardID, cardID string, w models.Widget) (dto.AddWidgetResponse, error)
	UpdateWidget(ctx context.Context, uid, dashboardID, widgetID string, patch builder.WidgetPatch) (dto.BuilderState, error)
	UpdateChildWidget(ctx context.Context, uid, dashboardID, cardID, childID string, patch builder.WidgetPatch) (dto.BuilderState, error)
	RemoveWidget(ctx context.Context, uid, dashboardID, widgetID string) (dto.BuilderState, error)
	RemoveChildWidget(ctx context.Context, uid, dashboardID, cardID, childID string) (dto.BuilderState, error)
	UpdateLayout(ctx context.Context, uid, dashboardID, widgetID string, layout models.Layout) (dto.BuilderState, error)
	UpdateAllLayouts(ctx context.Context, uid, dashboardID string, items []builder.LayoutItem) (dto.BuilderState, error)
	UpdateChildLayouts(ctx context.Context, uid, dashboardID, cardID string, items []builder.LayoutItem) (dto.BuilderState, error)
	Undo(ctx context.Context, uid, dashboardID string) (dto.HistoryMoveResponse, error)
	Redo(ctx context.Context, uid, dashboardID string) (dto.HistoryMoveResponse, error)
	Save(ctx context.Context, uid, dashboardID string) (dto.BuilderState, error)
}

type builderHandlers struct {
	ResponseHandler response.ResponseHandler
	BuilderSvc      builderService
}

func NewBuilderHandlers(deps *Deps) *builderHandlers {
	return &builderHandlers{
		ResponseHandler: deps.ResponseHandler,
		BuilderSvc:      deps.BuilderSvc,
	}
}

// BuilderRoutes is mounted under /dashboards/{dashboardId}/builder. Card
// routes reuse {widgetId} for the card id.
func (h *builderHandlers) BuilderRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.OpenSession)
	r.Get("/", h.GetSession)
	r.Delete("/", h.CloseSession)
	r.Post("/undo", h.Undo)
	r.Post("/redo", h.Redo)
	r.Post("/save", h.Save)
	r.Put("/layouts", h.UpdateAllLayouts)
	r.Post("/widgets", h.AddWidget)
	r.Route("/widgets/{widgetId}", func(r chi.Router) {
		r.Patch("/", h.UpdateWidget)
		r.Delete("/", h.RemoveWidget)
		r.Put("/layout", h.UpdateLayout)
		r.Post("/children", h.AddChildWidget)
		r.Put("/children/layouts", h.UpdateChildLayouts) // must be before /{childId}
		r.Patch("/children/{childId}", h.UpdateChildWidget)
		r.Delete("/children/{childId}", h.RemoveChildWidget)
	})
	return r
}

func (h *builderHandlers) OpenSession(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	state, err := h.BuilderSvc.OpenSession(r.Context(), uid, chi.URLParam(r, "dashboardId"))
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, state)
}

func (h *builderHandlers) GetSession(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	state, err := h.BuilderSvc.GetSession(r.Context(), uid, chi.URLParam(r, "dashboardId"))
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, state)
}

func (h *builderHandlers) CloseSession(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	if err := h.BuilderSvc.CloseSession(r.Context(), uid, chi.URLParam(r, "dashboardId")); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, nil)
}

func (h *builderHandlers) AddWidget(w http.ResponseWriter, r *http.Request) {
	var widget models.Widget
	if err := decodeJSON(r, &widget, false); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	uid := middleware.UID(r.Context())
	resp, err := h.BuilderSvc.AddWidget(r.Context(), uid, chi.URLParam(r, "dashboardId"), widget)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusCreated, resp)
}

func (h *builderHandlers) AddChildWidget(w http.ResponseWriter, r *http.Request) {
	var widget models.Widget
	if err := decodeJSON(r, &widget, false); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	uid := middleware.UID(r.Context())
	resp, err := h.BuilderSvc.AddChildWidget(r.Context(), uid,
		chi.URLParam(r, "dashboardId"), chi.URLParam(r, "widgetId"), widget)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusCreated, resp)
}

func (h *builderHandlers) UpdateWidget(w http.ResponseWriter, r *http.Request) {
	var patch builder.WidgetPatch
	if err := decodeJSON(r, &patch, false); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	uid := middleware.UID(r.Context())
	state, err := h.BuilderSvc.UpdateWidget(r.Context(), uid,
		chi.URLParam(r, "dashboardId"), chi.URLParam(r, "widgetId"), patch)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, state)
}

func (h *builderHandlers) UpdateChildWidget(w http.ResponseWriter, r *http.Request) {
	var patch builder.WidgetPatch
	if err := decodeJSON(r, &patch, false); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	uid := middleware.UID(r.Context())
	state, err := h.BuilderSvc.UpdateChildWidget(r.Context(), uid,
		chi.URLParam(r, "dashboardId"), chi.URLParam(r, "widgetId"), chi.URLParam(r, "childId"), patch)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, state)
}

func (h *builderHandlers) RemoveWidget(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	state, err := h.BuilderSvc.RemoveWidget(r.Context(), uid,
		chi.URLParam(r, "dashboardId"), chi.URLParam(r, "widgetId"))
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, state)
}

func (h *builderHandlers) RemoveChildWidget(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	state, err := h.BuilderSvc.RemoveChildWidget(r.Context(), uid,
		chi.URLParam(r, "dashboardId"), chi.URLParam(r, "widgetId"), chi.URLParam(r, "childId"))
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, state)
}

func (h *builderHandlers) UpdateLayout(w http.ResponseWriter, r *http.Request) {
	var layout models.Layout
	if err := decodeJSON(r, &layout, false); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	uid := middleware.UID(r.Context())
	state, err := h.BuilderSvc.UpdateLayout(r.Context(), uid,
		chi.URLParam(r, "dashboardId"), chi.URLParam(r, "widgetId"), layout)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, state)
}

func (h *builderHandlers) UpdateAllLayouts(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateLayoutsRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	uid := middleware.UID(r.Context())
	state, err := h.BuilderSvc.UpdateAllLayouts(r.Context(), uid, chi.URLParam(r, "dashboardId"), req.Layouts)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, state)
}

func (h *builderHandlers) UpdateChildLayouts(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateLayoutsRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	uid := middleware.UID(r.Context())
	state, err := h.BuilderSvc.UpdateChildLayouts(r.Context(), uid,
		chi.URLParam(r, "dashboardId"), chi.URLParam(r, "widgetId"), req.Layouts)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, state)
}

func (h *builderHandlers) Undo(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	resp, err := h.BuilderSvc.Undo(r.Context(), uid, chi.URLParam(r, "dashboardId"))
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, resp)
}

func (h *builderHandlers) Redo(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	resp, err := h.BuilderSvc.Redo(r.Context(), uid, chi.URLParam(r, "dashboardId"))
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, resp)
}

func (h *builderHandlers) Save(w http.ResponseWriter, r *http.Request) {
	uid := middleware.UID(r.Context())
	state, err := h.BuilderSvc.Save(r.Context(), uid, chi.URLParam(r, "dashboardId"))
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}
	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, state)
}
