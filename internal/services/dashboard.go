package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/GregMSThompson/dashboard-backend/internal/dispatch"
	"github.com/GregMSThompson/dashboard-backend/internal/document"
	"github.com/GregMSThompson/dashboard-backend/internal/dto"
	"github.com/GregMSThompson/dashboard-backend/internal/errs"
	"github.com/GregMSThompson/dashboard-backend/internal/filters"
	"github.com/GregMSThompson/dashboard-backend/internal/models"
	"github.com/GregMSThompson/dashboard-backend/internal/timeseries"
	"github.com/GregMSThompson/dashboard-backend/pkg/helpers"
	"github.com/GregMSThompson/dashboard-backend/pkg/logger"
)

const defaultDashboardName = "Untitled dashboard"

// dashboardStore is the persistence interface for dashboard records.
type dashboardStore interface {
	Create(ctx context.Context, uid string, d *models.Dashboard) error
	Get(ctx context.Context, uid, dashboardID string) (*models.Dashboard, error)
	List(ctx context.Context, uid string) ([]*models.Dashboard, error)
	Update(ctx context.Context, uid string, d *models.Dashboard) error
	Delete(ctx context.Context, uid, dashboardID string) error
}

// telemetryFetcher returns rows for one resolved widget request.
type telemetryFetcher interface {
	Fetch(ctx context.Context, endpoint string, params map[string]any) (dto.TelemetryResult, error)
}

type fetchRecorder interface {
	RecordFetch(dataSource, status string, d time.Duration)
}

type dashboardService struct {
	store       dashboardStore
	telemetry   telemetryFetcher
	metrics     fetchRecorder
	concurrency int
	now         func() time.Time
}

func NewDashboardService(store dashboardStore, telemetry telemetryFetcher, metrics fetchRecorder, concurrency int) *dashboardService {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &dashboardService{
		store:       store,
		telemetry:   telemetry,
		metrics:     metrics,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// --- Public service methods ---

func (s *dashboardService) CreateDashboard(ctx context.Context, uid string, req dto.CreateDashboardRequest) (dto.DashboardResponse, error) {
	doc := document.NewDefault()
	if len(req.Schema) > 0 {
		parsed, err := document.Validate(req.Schema)
		if err != nil {
			return dto.DashboardResponse{}, err
		}
		doc = document.Migrate(parsed)
	}
	schema, err := document.Serialize(doc)
	if err != nil {
		return dto.DashboardResponse{}, err
	}
	name := req.Name
	if name == "" {
		name = defaultDashboardName
	}
	rec := &models.Dashboard{
		DashboardID: uuid.New().String(),
		Name:        name,
		Schema:      schema,
	}
	if err := s.store.Create(ctx, uid, rec); err != nil {
		return dto.DashboardResponse{}, err
	}
	logger.FromContext(ctx).Info("dashboard created", "dashboard_id", rec.DashboardID)
	return toDashboardResponse(rec, doc), nil
}

func (s *dashboardService) ListDashboards(ctx context.Context, uid string) ([]dto.DashboardSummary, error) {
	recs, err := s.store.List(ctx, uid)
	if err != nil {
		return nil, err
	}
	out := make([]dto.DashboardSummary, 0, len(recs))
	for _, r := range recs {
		out = append(out, dto.DashboardSummary{DashboardID: r.DashboardID, Name: r.Name, UpdatedAt: r.UpdatedAt})
	}
	return out, nil
}

// GetDashboard is the best-effort read: a stored document that no longer
// validates comes back as the default document instead of an error.
func (s *dashboardService) GetDashboard(ctx context.Context, uid, dashboardID string) (dto.DashboardResponse, error) {
	rec, doc, err := s.load(ctx, uid, dashboardID)
	if err != nil {
		return dto.DashboardResponse{}, err
	}
	return toDashboardResponse(rec, doc), nil
}

// SaveDashboard is the strict write path.
func (s *dashboardService) SaveDashboard(ctx context.Context, uid, dashboardID string, req dto.SaveDashboardRequest) (dto.DashboardResponse, error) {
	if len(req.Schema) == 0 {
		return dto.DashboardResponse{}, errs.NewFieldValidationError("schema", "is required")
	}
	doc, err := document.Validate(req.Schema)
	if err != nil {
		return dto.DashboardResponse{}, err
	}
	rec, err := s.store.Get(ctx, uid, dashboardID)
	if err != nil {
		return dto.DashboardResponse{}, err
	}
	if name := helpers.Value(req.Name); name != "" {
		rec.Name = name
	}
	doc = document.Migrate(doc)
	if err := s.persist(ctx, uid, rec, doc); err != nil {
		return dto.DashboardResponse{}, err
	}
	return toDashboardResponse(rec, doc), nil
}

func (s *dashboardService) DeleteDashboard(ctx context.Context, uid, dashboardID string) error {
	return s.store.Delete(ctx, uid, dashboardID)
}

// LoadDocument and SaveDocument are the persistence collaborator used by
// builder sessions.
func (s *dashboardService) LoadDocument(ctx context.Context, uid, dashboardID string) (*models.Document, error) {
	_, doc, err := s.load(ctx, uid, dashboardID)
	return doc, err
}

// SaveDocument round-trips the document through strict validation before
// replacing the stored schema.
func (s *dashboardService) SaveDocument(ctx context.Context, uid, dashboardID string, doc *models.Document) error {
	schema, err := document.Serialize(doc)
	if err != nil {
		return err
	}
	checked, err := document.Validate([]byte(schema))
	if err != nil {
		return err
	}
	rec, err := s.store.Get(ctx, uid, dashboardID)
	if err != nil {
		return err
	}
	return s.persist(ctx, uid, rec, checked)
}

func (s *dashboardService) GetFilterState(ctx context.Context, uid, dashboardID string) (dto.FilterStateResponse, error) {
	_, doc, err := s.load(ctx, uid, dashboardID)
	if err != nil {
		return dto.FilterStateResponse{}, err
	}
	ix := document.Compile(doc)
	m := filters.New(ix.FilterConfigs(), document.EffectiveApplyMode(doc, ix), filters.WithClock(s.now))

	descs := make([]dto.FilterDescriptor, 0, len(m.Configs()))
	for _, c := range m.Configs() {
		widgetType := c.Kind.String()
		if e, ok := ix.Get(c.WidgetID); ok {
			widgetType = e.Widget.Type
		}
		d := dto.FilterDescriptor{
			WidgetID:   c.WidgetID,
			Type:       widgetType,
			FilterKey:  c.FilterKey,
			Label:      c.Label,
			OutputKeys: c.OutputKeys,
			Presets:    c.Presets,
			Options:    m.Options(c.FilterKey),
			Fixed:      c.IsFixed(),
			Visible:    c.Visible,
		}
		if c.Kind.IsRange() && len(d.Presets) == 0 {
			d.Presets = filters.Presets
		}
		if c.DependsOn != nil {
			d.DependsOn = c.DependsOn.FilterKey
		}
		descs = append(descs, d)
	}
	mode := document.FilterModeAuto
	if m.Manual() {
		mode = document.FilterModeManual
	}
	return dto.FilterStateResponse{
		DashboardID: dashboardID,
		Mode:        mode,
		Filters:     descs,
		Values:      m.Applied(),
	}, nil
}

// RenderDashboard resolves every data-bound widget against the given
// filter values and fetches its data. Widgets are fetched concurrently and
// each one fails on its own: a fetch error marks that widget's slot and
// never fails the render.
func (s *dashboardService) RenderDashboard(ctx context.Context, uid, dashboardID string, req dto.RenderRequest) (dto.RenderResponse, error) {
	_, doc, err := s.load(ctx, uid, dashboardID)
	if err != nil {
		return dto.RenderResponse{}, err
	}
	ix := document.Compile(doc)
	m := filters.New(ix.FilterConfigs(), document.EffectiveApplyMode(doc, ix), filters.WithClock(s.now))
	if len(req.Filters) > 0 {
		m.SetValues(req.Filters)
		m.Apply()
	}
	applied := m.Applied()

	entries := ix.DataBound()
	out := make([]dto.WidgetData, len(entries))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, e := range entries {
		plan := dispatch.Plan(e, applied)
		out[i] = dto.WidgetData{
			WidgetID: e.Widget.ID,
			ParentID: e.ParentID,
			Type:     e.Widget.Type,
			Endpoint: plan.Endpoint,
			Params:   plan.Params,
			Interval: plan.Interval,
			Mapping:  &e.Widget.DataBinding.Mapping,
		}
		if !plan.Configured() {
			out[i].Status = dto.WidgetStatusUnconfigured
			continue
		}
		g.Go(func() error {
			s.fetchWidget(ctx, e, plan, &out[i])
			return nil
		})
	}
	_ = g.Wait()

	mode := document.FilterModeAuto
	if m.Manual() {
		mode = document.FilterModeManual
	}
	return dto.RenderResponse{
		DashboardID: dashboardID,
		Mode:        mode,
		Filters:     applied,
		Widgets:     out,
		RenderedAt:  s.now().UTC(),
	}, nil
}

// WidgetCatalog lists the widget kinds and data sources this build knows.
func (s *dashboardService) WidgetCatalog() dto.WidgetCatalog {
	cat := dto.WidgetCatalog{
		DatePresets:  filters.Presets,
		Aggregations: []string{string(timeseries.Avg), string(timeseries.Sum), string(timeseries.Min), string(timeseries.Max), string(timeseries.Count), string(timeseries.Latest)},
	}
	for _, t := range document.KnownTypes {
		info := dto.WidgetTypeInfo{Type: t, DefaultLayout: document.DefaultLayout(t)}
		switch {
		case document.IsFilterType(t):
			info.Category = "filter"
		case t == document.TypeCard:
			info.Category = "container"
			info.Container = true
		default:
			info.Category = "data"
			info.Shape = string(dispatch.ShapeFor(t))
		}
		cat.Types = append(cat.Types, info)
	}
	for _, id := range dispatch.SourceIDs {
		src := dispatch.Sources[id]
		cat.DataSources = append(cat.DataSources, dto.DataSourceInfo{
			ID:                 src.ID,
			Name:               src.Name,
			LatestEndpoint:     src.Latest,
			TimeSeriesEndpoint: src.TimeSeries,
		})
	}
	return cat
}

// --- Private helpers ---

func (s *dashboardService) load(ctx context.Context, uid, dashboardID string) (*models.Dashboard, *models.Document, error) {
	rec, err := s.store.Get(ctx, uid, dashboardID)
	if err != nil {
		return nil, nil, err
	}
	ctx = logger.ToContext(ctx, logger.FromContext(ctx).With("dashboard_id", dashboardID))
	doc := document.Migrate(document.ParseLenient(ctx, rec.Schema))
	return rec, doc, nil
}

func (s *dashboardService) persist(ctx context.Context, uid string, rec *models.Dashboard, doc *models.Document) error {
	schema, err := document.Serialize(doc)
	if err != nil {
		return err
	}
	rec.Schema = schema
	if err := s.store.Update(ctx, uid, rec); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("dashboard saved", "dashboard_id", rec.DashboardID, "widgets", len(doc.Widgets))
	return nil
}

func (s *dashboardService) fetchWidget(ctx context.Context, e *document.Entry, plan dispatch.Request, slot *dto.WidgetData) {
	log := logger.FromContext(ctx).With("widget_id", e.Widget.ID, "endpoint", plan.Endpoint)
	source := e.Widget.DataBinding.DataSourceID

	params := make(map[string]any, len(plan.Params)+1)
	for k, v := range plan.Params {
		params[k] = v
	}
	if plan.Interval != "" {
		params["interval"] = plan.Interval
	}

	start := time.Now()
	res, err := s.telemetry.Fetch(ctx, plan.Endpoint, params)
	elapsed := time.Since(start)
	if err != nil {
		log.Warn("widget fetch failed", "error", err)
		s.metrics.RecordFetch(source, dto.WidgetStatusError, elapsed)
		slot.Status = dto.WidgetStatusError
		slot.Error = err.Error()
		return
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "telemetry request was not successful"
		}
		log.Warn("widget fetch unsuccessful", "error", msg)
		s.metrics.RecordFetch(source, dto.WidgetStatusError, elapsed)
		slot.Status = dto.WidgetStatusError
		slot.Error = msg
		return
	}
	s.metrics.RecordFetch(source, dto.WidgetStatusOK, elapsed)

	rows := res.Data
	if plan.Shape == dispatch.ShapeTimeSeries {
		rows = timeseries.Aggregate(rows, timeseries.Options{
			Interval:    plan.Interval,
			TimeField:   plan.TimeField,
			ValueFields: plan.ValueFields,
			Aggregation: plan.Aggregation,
		})
	}
	slot.Rows = timeseries.ApplyTransform(rows, e.Widget.DataBinding.Transform)
	slot.Summary = res.Summary
	slot.Status = dto.WidgetStatusOK
}

func toDashboardResponse(rec *models.Dashboard, doc *models.Document) dto.DashboardResponse {
	return dto.DashboardResponse{
		DashboardID: rec.DashboardID,
		Name:        rec.Name,
		Document:    doc,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}
