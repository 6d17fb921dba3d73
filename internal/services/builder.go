package services

import (
	"context"
	"sync"

	"github.com/GregMSThompson/dashboard-backend/internal/builder"
	"github.com/GregMSThompson/dashboard-backend/internal/dto"
	"github.com/GregMSThompson/dashboard-backend/internal/errs"
	"github.com/GregMSThompson/dashboard-backend/internal/models"
	"github.com/GregMSThompson/dashboard-backend/pkg/logger"
)

type documentRepo interface {
	LoadDocument(ctx context.Context, uid, dashboardID string) (*models.Document, error)
	SaveDocument(ctx context.Context, uid, dashboardID string, doc *models.Document) error
}

type builderRecorder interface {
	RecordBuilderOperation(operation string, err error)
	SetBuilderSessions(n int)
}

type sessionKey struct {
	uid         string
	dashboardID string
}

// builderService keeps one in-memory editing session per user and
// dashboard. Sessions live until closed or the process exits.
type builderService struct {
	docs         documentRepo
	metrics      builderRecorder
	historyLimit int

	mu       sync.Mutex
	sessions map[sessionKey]*builder.Store
}

func NewBuilderService(docs documentRepo, metrics builderRecorder, historyLimit int) *builderService {
	return &builderService{
		docs:         docs,
		metrics:      metrics,
		historyLimit: historyLimit,
		sessions:     make(map[sessionKey]*builder.Store),
	}
}

// OpenSession starts editing a stored dashboard. Opening a dashboard that
// already has a session returns that session unchanged.
func (s *builderService) OpenSession(ctx context.Context, uid, dashboardID string) (dto.BuilderState, error) {
	key := sessionKey{uid, dashboardID}
	s.mu.Lock()
	st, ok := s.sessions[key]
	s.mu.Unlock()
	if ok {
		return stateOf(dashboardID, st), nil
	}

	doc, err := s.docs.LoadDocument(ctx, uid, dashboardID)
	if err != nil {
		return dto.BuilderState{}, err
	}

	s.mu.Lock()
	if existing, ok := s.sessions[key]; ok {
		st = existing
	} else {
		st = builder.New(doc, builder.WithHistoryLimit(s.historyLimit))
		s.sessions[key] = st
	}
	n := len(s.sessions)
	s.mu.Unlock()

	s.metrics.SetBuilderSessions(n)
	logger.FromContext(ctx).Info("builder session opened", "dashboard_id", dashboardID)
	return stateOf(dashboardID, st), nil
}

func (s *builderService) GetSession(ctx context.Context, uid, dashboardID string) (dto.BuilderState, error) {
	st, err := s.session(uid, dashboardID)
	if err != nil {
		return dto.BuilderState{}, err
	}
	return stateOf(dashboardID, st), nil
}

// CloseSession drops the session. Unsaved changes are lost.
func (s *builderService) CloseSession(ctx context.Context, uid, dashboardID string) error {
	key := sessionKey{uid, dashboardID}
	s.mu.Lock()
	st, ok := s.sessions[key]
	delete(s.sessions, key)
	n := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		return errs.NewNotFoundError("builder session not found")
	}

	s.metrics.SetBuilderSessions(n)
	log := logger.FromContext(ctx)
	if st.IsDirty() {
		log.Warn("builder session closed with unsaved changes", "dashboard_id", dashboardID)
	} else {
		log.Info("builder session closed", "dashboard_id", dashboardID)
	}
	return nil
}

func (s *builderService) AddWidget(ctx context.Context, uid, dashboardID string, w models.Widget) (dto.AddWidgetResponse, error) {
	st, err := s.session(uid, dashboardID)
	if err != nil {
		return dto.AddWidgetResponse{}, err
	}
	added, err := st.AddWidget(w)
	s.metrics.RecordBuilderOperation("add_widget", err)
	if err != nil {
		return dto.AddWidgetResponse{}, err
	}
	logger.FromContext(ctx).Debug("widget added", "widget_id", added.ID, "type", added.Type)
	return dto.AddWidgetResponse{Widget: added, State: stateOf(dashboardID, st)}, nil
}

func (s *builderService) AddChildWidget(ctx context.Context, uid, dashboardID, cardID string, w models.Widget) (dto.AddWidgetResponse, error) {
	st, err := s.session(uid, dashboardID)
	if err != nil {
		return dto.AddWidgetResponse{}, err
	}
	added, err := st.AddChildWidget(cardID, w)
	s.metrics.RecordBuilderOperation("add_child_widget", err)
	if err != nil {
		return dto.AddWidgetResponse{}, err
	}
	logger.FromContext(ctx).Debug("child widget added", "card_id", cardID, "widget_id", added.ID)
	return dto.AddWidgetResponse{Widget: added, State: stateOf(dashboardID, st)}, nil
}

func (s *builderService) UpdateWidget(ctx context.Context, uid, dashboardID, widgetID string, patch builder.WidgetPatch) (dto.BuilderState, error) {
	return s.apply(ctx, uid, dashboardID, "update_widget", func(st *builder.Store) error {
		return st.UpdateWidget(widgetID, patch)
	})
}

func (s *builderService) UpdateChildWidget(ctx context.Context, uid, dashboardID, cardID, childID string, patch builder.WidgetPatch) (dto.BuilderState, error) {
	return s.apply(ctx, uid, dashboardID, "update_child_widget", func(st *builder.Store) error {
		return st.UpdateChildWidget(cardID, childID, patch)
	})
}

func (s *builderService) RemoveWidget(ctx context.Context, uid, dashboardID, widgetID string) (dto.BuilderState, error) {
	return s.apply(ctx, uid, dashboardID, "remove_widget", func(st *builder.Store) error {
		return st.RemoveWidget(widgetID)
	})
}

func (s *builderService) RemoveChildWidget(ctx context.Context, uid, dashboardID, cardID, childID string) (dto.BuilderState, error) {
	return s.apply(ctx, uid, dashboardID, "remove_child_widget", func(st *builder.Store) error {
		return st.RemoveChildWidget(cardID, childID)
	})
}

func (s *builderService) UpdateLayout(ctx context.Context, uid, dashboardID, widgetID string, layout models.Layout) (dto.BuilderState, error) {
	return s.apply(ctx, uid, dashboardID, "update_layout", func(st *builder.Store) error {
		return st.UpdateLayout(widgetID, layout)
	})
}

func (s *builderService) UpdateAllLayouts(ctx context.Context, uid, dashboardID string, items []builder.LayoutItem) (dto.BuilderState, error) {
	return s.apply(ctx, uid, dashboardID, "update_all_layouts", func(st *builder.Store) error {
		return st.UpdateAllLayouts(items)
	})
}

func (s *builderService) UpdateChildLayouts(ctx context.Context, uid, dashboardID, cardID string, items []builder.LayoutItem) (dto.BuilderState, error) {
	return s.apply(ctx, uid, dashboardID, "update_child_layouts", func(st *builder.Store) error {
		return st.UpdateChildLayouts(cardID, items)
	})
}

func (s *builderService) Undo(ctx context.Context, uid, dashboardID string) (dto.HistoryMoveResponse, error) {
	return s.move(ctx, uid, dashboardID, "undo", (*builder.Store).Undo)
}

func (s *builderService) Redo(ctx context.Context, uid, dashboardID string) (dto.HistoryMoveResponse, error) {
	return s.move(ctx, uid, dashboardID, "redo", (*builder.Store).Redo)
}

// Save persists the session's current document through the strict write
// path and clears the dirty flag. History is kept so edits can continue.
func (s *builderService) Save(ctx context.Context, uid, dashboardID string) (dto.BuilderState, error) {
	st, err := s.session(uid, dashboardID)
	if err != nil {
		return dto.BuilderState{}, err
	}
	err = s.docs.SaveDocument(ctx, uid, dashboardID, st.Document())
	s.metrics.RecordBuilderOperation("save", err)
	if err != nil {
		logger.FromContext(ctx).Error("failed to save builder session", "dashboard_id", dashboardID, "error", err)
		return dto.BuilderState{}, err
	}
	st.MarkSaved()
	return stateOf(dashboardID, st), nil
}

// --- Private helpers ---

func (s *builderService) session(uid, dashboardID string) (*builder.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionKey{uid, dashboardID}]
	if !ok {
		return nil, errs.NewNotFoundError("builder session not found")
	}
	return st, nil
}

func (s *builderService) apply(ctx context.Context, uid, dashboardID, op string, fn func(*builder.Store) error) (dto.BuilderState, error) {
	st, err := s.session(uid, dashboardID)
	if err != nil {
		return dto.BuilderState{}, err
	}
	err = fn(st)
	s.metrics.RecordBuilderOperation(op, err)
	if err != nil {
		logger.FromContext(ctx).Debug("builder operation rejected", "operation", op, "error", err)
		return dto.BuilderState{}, err
	}
	return stateOf(dashboardID, st), nil
}

func (s *builderService) move(ctx context.Context, uid, dashboardID, op string, fn func(*builder.Store) bool) (dto.HistoryMoveResponse, error) {
	st, err := s.session(uid, dashboardID)
	if err != nil {
		return dto.HistoryMoveResponse{}, err
	}
	moved := fn(st)
	s.metrics.RecordBuilderOperation(op, nil)
	logger.FromContext(ctx).Debug("builder history move", "operation", op, "moved", moved)
	return dto.HistoryMoveResponse{Moved: moved, State: stateOf(dashboardID, st)}, nil
}

func stateOf(dashboardID string, st *builder.Store) dto.BuilderState {
	return dto.BuilderState{
		DashboardID: dashboardID,
		Document:    st.Document(),
		Dirty:       st.IsDirty(),
		CanUndo:     st.CanUndo(),
		CanRedo:     st.CanRedo(),
	}
}
