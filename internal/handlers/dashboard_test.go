package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/GregMSThompson/dashboard-backend/internal/dto"
	"github.com/GregMSThompson/dashboard-backend/internal/errs"
	"github.com/GregMSThompson/dashboard-backend/internal/middleware"
)

// --- Stub response handler ---

type stubResponseHandler struct {
	writeSuccessCalled bool
	writeSuccessStatus int
	writeSuccessData   any

	handleErrorCalled bool
	handleError       error

	errorWriteCalled bool
	errorWriteStatus int
	errorWriteCode   string
	errorWriteMsg    string
}

func (s *stubResponseHandler) WriteSuccess(w http.ResponseWriter, _ *http.Request, status int, data any) {
	s.writeSuccessCalled = true
	s.writeSuccessStatus = status
	s.writeSuccessData = data

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"success":true}`))
}

func (s *stubResponseHandler) WriteError(w http.ResponseWriter, _ *http.Request, status int, code, message string) {
	s.errorWriteCalled = true
	s.errorWriteStatus = status
	s.errorWriteCode = code
	s.errorWriteMsg = message
	w.WriteHeader(status)
}

func (s *stubResponseHandler) HandleError(w http.ResponseWriter, _ *http.Request, err error) {
	s.handleErrorCalled = true
	s.handleError = err
	w.WriteHeader(http.StatusInternalServerError)
}

// --- Stub service ---

type stubDashboardService struct {
	createResp  dto.DashboardResponse
	createErr   error
	listResp    []dto.DashboardSummary
	getErr      error
	saveErr     error
	renderResp  dto.RenderResponse
	renderErr   error
	filterResp  dto.FilterStateResponse
	lastCreate  dto.CreateDashboardRequest
	lastSave    dto.SaveDashboardRequest
	lastRender  dto.RenderRequest
	lastID      string
	lastUID     string
	deleteCalls int
}

func (s *stubDashboardService) CreateDashboard(_ context.Context, uid string, req dto.CreateDashboardRequest) (dto.DashboardResponse, error) {
	s.lastUID = uid
	s.lastCreate = req
	return s.createResp, s.createErr
}

func (s *stubDashboardService) ListDashboards(_ context.Context, uid string) ([]dto.DashboardSummary, error) {
	s.lastUID = uid
	return s.listResp, nil
}

func (s *stubDashboardService) GetDashboard(_ context.Context, _, id string) (dto.DashboardResponse, error) {
	s.lastID = id
	return dto.DashboardResponse{DashboardID: id}, s.getErr
}

func (s *stubDashboardService) SaveDashboard(_ context.Context, _, id string, req dto.SaveDashboardRequest) (dto.DashboardResponse, error) {
	s.lastID = id
	s.lastSave = req
	return dto.DashboardResponse{DashboardID: id}, s.saveErr
}

func (s *stubDashboardService) DeleteDashboard(_ context.Context, _, id string) error {
	s.lastID = id
	s.deleteCalls++
	return nil
}

func (s *stubDashboardService) GetFilterState(_ context.Context, _, id string) (dto.FilterStateResponse, error) {
	s.lastID = id
	return s.filterResp, nil
}

func (s *stubDashboardService) RenderDashboard(_ context.Context, _, id string, req dto.RenderRequest) (dto.RenderResponse, error) {
	s.lastID = id
	s.lastRender = req
	return s.renderResp, s.renderErr
}

func (s *stubDashboardService) WidgetCatalog() dto.WidgetCatalog {
	return dto.WidgetCatalog{DatePresets: []string{"today"}}
}

// withUID injects a UID into the request context.
func withUID(r *http.Request, uid string) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.UIDKey, uid)
	return r.WithContext(ctx)
}

func serveDashboard(t *testing.T, deps *Deps, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req = withUID(req, "uid1")
	rr := httptest.NewRecorder()
	NewDashboardHandlers(deps).DashboardRoutes().ServeHTTP(rr, req)
	return rr
}

// --- Tests ---

func TestListDashboards_OK(t *testing.T) {
	svc := &stubDashboardService{listResp: []dto.DashboardSummary{{DashboardID: "d1"}}}
	resp := &stubResponseHandler{}

	serveDashboard(t, &Deps{ResponseHandler: resp, DashboardSvc: svc}, http.MethodGet, "/", "")

	if !resp.writeSuccessCalled || resp.writeSuccessStatus != http.StatusOK {
		t.Fatalf("expected WriteSuccess with 200, got called=%v status=%d", resp.writeSuccessCalled, resp.writeSuccessStatus)
	}
	if svc.lastUID != "uid1" {
		t.Fatalf("expected uid from context, got %q", svc.lastUID)
	}
}

func TestCreateDashboard_OK(t *testing.T) {
	svc := &stubDashboardService{createResp: dto.DashboardResponse{DashboardID: "d1"}}
	resp := &stubResponseHandler{}

	body := `{"name":"Plant","schema":{"widgets":[]}}`
	serveDashboard(t, &Deps{ResponseHandler: resp, DashboardSvc: svc}, http.MethodPost, "/", body)

	if resp.writeSuccessStatus != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.writeSuccessStatus)
	}
	if svc.lastCreate.Name != "Plant" || string(svc.lastCreate.Schema) != `{"widgets":[]}` {
		t.Fatalf("unexpected request: %+v", svc.lastCreate)
	}
}

func TestCreateDashboard_EmptyBodyAllowed(t *testing.T) {
	svc := &stubDashboardService{}
	resp := &stubResponseHandler{}

	serveDashboard(t, &Deps{ResponseHandler: resp, DashboardSvc: svc}, http.MethodPost, "/", "")

	if !resp.writeSuccessCalled || resp.handleErrorCalled {
		t.Fatal("expected an empty create body to be accepted")
	}
}

func TestCreateDashboard_MalformedBody(t *testing.T) {
	svc := &stubDashboardService{}
	resp := &stubResponseHandler{}

	serveDashboard(t, &Deps{ResponseHandler: resp, DashboardSvc: svc}, http.MethodPost, "/", `{"name":`)

	if !resp.handleErrorCalled {
		t.Fatal("expected HandleError to be called")
	}
}

func TestGetDashboard_RoutesID(t *testing.T) {
	svc := &stubDashboardService{}
	resp := &stubResponseHandler{}

	serveDashboard(t, &Deps{ResponseHandler: resp, DashboardSvc: svc}, http.MethodGet, "/d42", "")

	if svc.lastID != "d42" || !resp.writeSuccessCalled {
		t.Fatalf("expected d42 to be fetched, got %q", svc.lastID)
	}
}

func TestGetDashboard_NotFound(t *testing.T) {
	svc := &stubDashboardService{getErr: errs.NewNotFoundError("dashboard not found")}
	resp := &stubResponseHandler{}

	serveDashboard(t, &Deps{ResponseHandler: resp, DashboardSvc: svc}, http.MethodGet, "/missing", "")

	if _, ok := resp.handleError.(*errs.NotFoundError); !ok {
		t.Fatalf("expected NotFoundError, got %v", resp.handleError)
	}
}

func TestSaveDashboard_RequiresBody(t *testing.T) {
	svc := &stubDashboardService{}
	resp := &stubResponseHandler{}

	serveDashboard(t, &Deps{ResponseHandler: resp, DashboardSvc: svc}, http.MethodPut, "/d1", "")

	ve, ok := resp.handleError.(*errs.ValidationError)
	if !ok || ve.Path != "body" {
		t.Fatalf("expected body validation error, got %v", resp.handleError)
	}
	if svc.lastID != "" {
		t.Fatal("service should not be called")
	}
}

func TestSaveDashboard_OK(t *testing.T) {
	svc := &stubDashboardService{}
	resp := &stubResponseHandler{}

	serveDashboard(t, &Deps{ResponseHandler: resp, DashboardSvc: svc}, http.MethodPut, "/d1", `{"name":"New","schema":{}}`)

	if svc.lastID != "d1" || svc.lastSave.Name == nil || *svc.lastSave.Name != "New" {
		t.Fatalf("unexpected save: id=%q req=%+v", svc.lastID, svc.lastSave)
	}
}

func TestDeleteDashboard_OK(t *testing.T) {
	svc := &stubDashboardService{}
	resp := &stubResponseHandler{}

	serveDashboard(t, &Deps{ResponseHandler: resp, DashboardSvc: svc}, http.MethodDelete, "/d1", "")

	if svc.deleteCalls != 1 || svc.lastID != "d1" {
		t.Fatalf("expected delete of d1, got %d calls id=%q", svc.deleteCalls, svc.lastID)
	}
}

func TestGetFilterState_OK(t *testing.T) {
	svc := &stubDashboardService{filterResp: dto.FilterStateResponse{Mode: "auto"}}
	resp := &stubResponseHandler{}

	serveDashboard(t, &Deps{ResponseHandler: resp, DashboardSvc: svc}, http.MethodGet, "/d1/filters", "")

	got, ok := resp.writeSuccessData.(dto.FilterStateResponse)
	if !ok || got.Mode != "auto" {
		t.Fatalf("unexpected data: %#v", resp.writeSuccessData)
	}
}

func TestRenderDashboard_PassesFilters(t *testing.T) {
	svc := &stubDashboardService{renderResp: dto.RenderResponse{Widgets: []dto.WidgetData{{WidgetID: "w1"}}}}
	resp := &stubResponseHandler{}

	serveDashboard(t, &Deps{ResponseHandler: resp, DashboardSvc: svc}, http.MethodPost, "/d1/render", `{"filters":{"site":"north"}}`)

	if svc.lastRender.Filters["site"] != "north" {
		t.Fatalf("expected filters to be forwarded, got %v", svc.lastRender.Filters)
	}
	if !resp.writeSuccessCalled {
		t.Fatal("expected WriteSuccess")
	}
}

func TestRenderDashboard_EmptyBody(t *testing.T) {
	svc := &stubDashboardService{}
	resp := &stubResponseHandler{}

	serveDashboard(t, &Deps{ResponseHandler: resp, DashboardSvc: svc}, http.MethodPost, "/d1/render", "")

	if resp.handleErrorCalled || svc.lastID != "d1" || svc.lastRender.Filters != nil {
		t.Fatalf("expected render with no filters, got err=%v req=%+v", resp.handleError, svc.lastRender)
	}
}

func TestGetWidgetTypes_NotTreatedAsID(t *testing.T) {
	svc := &stubDashboardService{}
	resp := &stubResponseHandler{}

	serveDashboard(t, &Deps{ResponseHandler: resp, DashboardSvc: svc}, http.MethodGet, "/widget-types", "")

	if svc.lastID != "" {
		t.Fatalf("widget-types should not hit GetDashboard, got id %q", svc.lastID)
	}
	if _, ok := resp.writeSuccessData.(dto.WidgetCatalog); !ok {
		t.Fatalf("expected catalog, got %#v", resp.writeSuccessData)
	}
}
