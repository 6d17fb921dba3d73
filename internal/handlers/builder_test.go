package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/GregMSThompson/dashboard-backend/internal/builder"
	"github.com/GregMSThompson/dashboard-backend/internal/dto"
	"github.com/GregMSThompson/dashboard-backend/internal/errs"
	"github.com/GregMSThompson/dashboard-backend/internal/models"
)

// --- Stub service ---

type stubBuilderService struct {
	calls      []string
	dashboard  string
	widgetID   string
	childID    string
	widget     models.Widget
	patch      builder.WidgetPatch
	layout     models.Layout
	items      []builder.LayoutItem
	err        error
	undoResult bool
}

func (s *stubBuilderService) record(name, dashboardID string) {
	s.calls = append(s.calls, name)
	s.dashboard = dashboardID
}

func (s *stubBuilderService) OpenSession(_ context.Context, _, id string) (dto.BuilderState, error) {
	s.record("open", id)
	return dto.BuilderState{DashboardID: id}, s.err
}

func (s *stubBuilderService) GetSession(_ context.Context, _, id string) (dto.BuilderState, error) {
	s.record("get", id)
	return dto.BuilderState{DashboardID: id}, s.err
}

func (s *stubBuilderService) CloseSession(_ context.Context, _, id string) error {
	s.record("close", id)
	return s.err
}

func (s *stubBuilderService) AddWidget(_ context.Context, _, id string, w models.Widget) (dto.AddWidgetResponse, error) {
	s.record("add", id)
	s.widget = w
	return dto.AddWidgetResponse{Widget: w}, s.err
}

func (s *stubBuilderService) AddChildWidget(_ context.Context, _, id, cardID string, w models.Widget) (dto.AddWidgetResponse, error) {
	s.record("add_child", id)
	s.widgetID = cardID
	s.widget = w
	return dto.AddWidgetResponse{Widget: w}, s.err
}

func (s *stubBuilderService) UpdateWidget(_ context.Context, _, id, widgetID string, p builder.WidgetPatch) (dto.BuilderState, error) {
	s.record("update", id)
	s.widgetID = widgetID
	s.patch = p
	return dto.BuilderState{}, s.err
}

func (s *stubBuilderService) UpdateChildWidget(_ context.Context, _, id, cardID, childID string, p builder.WidgetPatch) (dto.BuilderState, error) {
	s.record("update_child", id)
	s.widgetID, s.childID = cardID, childID
	s.patch = p
	return dto.BuilderState{}, s.err
}

func (s *stubBuilderService) RemoveWidget(_ context.Context, _, id, widgetID string) (dto.BuilderState, error) {
	s.record("remove", id)
	s.widgetID = widgetID
	return dto.BuilderState{}, s.err
}

func (s *stubBuilderService) RemoveChildWidget(_ context.Context, _, id, cardID, childID string) (dto.BuilderState, error) {
	s.record("remove_child", id)
	s.widgetID, s.childID = cardID, childID
	return dto.BuilderState{}, s.err
}

func (s *stubBuilderService) UpdateLayout(_ context.Context, _, id, widgetID string, l models.Layout) (dto.BuilderState, error) {
	s.record("layout", id)
	s.widgetID = widgetID
	s.layout = l
	return dto.BuilderState{}, s.err
}

func (s *stubBuilderService) UpdateAllLayouts(_ context.Context, _, id string, items []builder.LayoutItem) (dto.BuilderState, error) {
	s.record("layouts", id)
	s.items = items
	return dto.BuilderState{}, s.err
}

func (s *stubBuilderService) UpdateChildLayouts(_ context.Context, _, id, cardID string, items []builder.LayoutItem) (dto.BuilderState, error) {
	s.record("child_layouts", id)
	s.widgetID = cardID
	s.items = items
	return dto.BuilderState{}, s.err
}

func (s *stubBuilderService) Undo(_ context.Context, _, id string) (dto.HistoryMoveResponse, error) {
	s.record("undo", id)
	return dto.HistoryMoveResponse{Moved: s.undoResult}, s.err
}

func (s *stubBuilderService) Redo(_ context.Context, _, id string) (dto.HistoryMoveResponse, error) {
	s.record("redo", id)
	return dto.HistoryMoveResponse{}, s.err
}

func (s *stubBuilderService) Save(_ context.Context, _, id string) (dto.BuilderState, error) {
	s.record("save", id)
	return dto.BuilderState{}, s.err
}

func serveBuilder(t *testing.T, svc *stubBuilderService, resp *stubResponseHandler, method, target, body string) {
	t.Helper()
	deps := &Deps{ResponseHandler: resp, DashboardSvc: &stubDashboardService{}, BuilderSvc: svc}
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req = withUID(req, "uid1")
	NewDashboardHandlers(deps).DashboardRoutes().ServeHTTP(httptest.NewRecorder(), req)
}

// --- Tests ---

func TestBuilderRoutes_SessionLifecycle(t *testing.T) {
	svc := &stubBuilderService{}
	resp := &stubResponseHandler{}

	serveBuilder(t, svc, resp, http.MethodPost, "/d1/builder", "")
	serveBuilder(t, svc, resp, http.MethodGet, "/d1/builder", "")
	serveBuilder(t, svc, resp, http.MethodPost, "/d1/builder/undo", "")
	serveBuilder(t, svc, resp, http.MethodPost, "/d1/builder/redo", "")
	serveBuilder(t, svc, resp, http.MethodPost, "/d1/builder/save", "")
	serveBuilder(t, svc, resp, http.MethodDelete, "/d1/builder", "")

	want := []string{"open", "get", "undo", "redo", "save", "close"}
	if strings.Join(svc.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, svc.calls)
	}
	if svc.dashboard != "d1" {
		t.Fatalf("expected dashboard id from parent route, got %q", svc.dashboard)
	}
}

func TestBuilderRoutes_AddWidget(t *testing.T) {
	svc := &stubBuilderService{}
	resp := &stubResponseHandler{}

	serveBuilder(t, svc, resp, http.MethodPost, "/d1/builder/widgets", `{"type":"stat","title":"Power"}`)

	if svc.widget.Type != "stat" || svc.widget.Title != "Power" {
		t.Fatalf("unexpected widget: %+v", svc.widget)
	}
	if resp.writeSuccessStatus != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.writeSuccessStatus)
	}
}

func TestBuilderRoutes_AddWidgetRequiresBody(t *testing.T) {
	svc := &stubBuilderService{}
	resp := &stubResponseHandler{}

	serveBuilder(t, svc, resp, http.MethodPost, "/d1/builder/widgets", "")

	if _, ok := resp.handleError.(*errs.ValidationError); !ok || len(svc.calls) != 0 {
		t.Fatalf("expected validation error before the service, got %v calls=%v", resp.handleError, svc.calls)
	}
}

func TestBuilderRoutes_UpdateWidgetPatch(t *testing.T) {
	svc := &stubBuilderService{}
	resp := &stubResponseHandler{}

	serveBuilder(t, svc, resp, http.MethodPatch, "/d1/builder/widgets/w7", `{"title":"Renamed","layout":{"h":6}}`)

	if svc.widgetID != "w7" || svc.patch.Title == nil || *svc.patch.Title != "Renamed" {
		t.Fatalf("unexpected patch: id=%q %+v", svc.widgetID, svc.patch)
	}
	if svc.patch.Layout == nil || svc.patch.Layout.H == nil || *svc.patch.Layout.H != 6 || svc.patch.Layout.W != nil {
		t.Fatalf("expected only h in layout patch, got %+v", svc.patch.Layout)
	}
}

func TestBuilderRoutes_ChildRoutes(t *testing.T) {
	svc := &stubBuilderService{}
	resp := &stubResponseHandler{}

	serveBuilder(t, svc, resp, http.MethodPost, "/d1/builder/widgets/card1/children", `{"type":"gauge"}`)
	if svc.widgetID != "card1" || svc.widget.Type != "gauge" {
		t.Fatalf("unexpected add child: card=%q widget=%+v", svc.widgetID, svc.widget)
	}

	serveBuilder(t, svc, resp, http.MethodPut, "/d1/builder/widgets/card1/children/layouts",
		`{"layouts":[{"id":"c1","layout":{"x":0,"y":2,"w":4,"h":3}}]}`)
	if svc.calls[len(svc.calls)-1] != "child_layouts" || len(svc.items) != 1 || svc.items[0].Layout.Y != 2 {
		t.Fatalf("layouts route misrouted: calls=%v items=%+v", svc.calls, svc.items)
	}

	serveBuilder(t, svc, resp, http.MethodPatch, "/d1/builder/widgets/card1/children/c1", `{"title":"x"}`)
	if svc.widgetID != "card1" || svc.childID != "c1" {
		t.Fatalf("unexpected child update: %q/%q", svc.widgetID, svc.childID)
	}

	serveBuilder(t, svc, resp, http.MethodDelete, "/d1/builder/widgets/card1/children/c1", "")
	if svc.calls[len(svc.calls)-1] != "remove_child" {
		t.Fatalf("expected remove_child, got %v", svc.calls)
	}
}

func TestBuilderRoutes_Layouts(t *testing.T) {
	svc := &stubBuilderService{}
	resp := &stubResponseHandler{}

	serveBuilder(t, svc, resp, http.MethodPut, "/d1/builder/widgets/w1/layout", `{"x":1,"y":2,"w":3,"h":4}`)
	if svc.widgetID != "w1" || svc.layout != (models.Layout{X: 1, Y: 2, W: 3, H: 4}) {
		t.Fatalf("unexpected layout: %q %+v", svc.widgetID, svc.layout)
	}

	serveBuilder(t, svc, resp, http.MethodPut, "/d1/builder/layouts", `{"layouts":[{"id":"a","layout":{"w":2,"h":2}},{"id":"b","layout":{"w":3,"h":3}}]}`)
	if len(svc.items) != 2 || svc.items[1].ID != "b" {
		t.Fatalf("unexpected bulk layouts: %+v", svc.items)
	}
}

func TestBuilderRoutes_ServiceError(t *testing.T) {
	svc := &stubBuilderService{err: errs.NewNotFoundError("builder session not found")}
	resp := &stubResponseHandler{}

	serveBuilder(t, svc, resp, http.MethodDelete, "/d1/builder/widgets/w1", "")

	if _, ok := resp.handleError.(*errs.NotFoundError); !ok {
		t.Fatalf("expected NotFoundError, got %v", resp.handleError)
	}
}
