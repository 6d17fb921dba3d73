package services

import (
	"context"
	"errors"
	"testing"

	"github.com/GregMSThompson/dashboard-backend/internal/builder"
	"github.com/GregMSThompson/dashboard-backend/internal/document"
	"github.com/GregMSThompson/dashboard-backend/internal/errs"
	"github.com/GregMSThompson/dashboard-backend/internal/models"
	"github.com/GregMSThompson/dashboard-backend/pkg/helpers"
)

// --- Fakes ---

type fakeDocumentRepo struct {
	docs    map[string]*models.Document
	saved   map[string]*models.Document
	loadErr error
	saveErr error
	loads   int
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{docs: map[string]*models.Document{}, saved: map[string]*models.Document{}}
}

func (f *fakeDocumentRepo) LoadDocument(_ context.Context, _, dashboardID string) (*models.Document, error) {
	f.loads++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	d, ok := f.docs[dashboardID]
	if !ok {
		return nil, errs.NewNotFoundError("dashboard not found")
	}
	return d, nil
}

func (f *fakeDocumentRepo) SaveDocument(_ context.Context, _, dashboardID string, doc *models.Document) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved[dashboardID] = doc
	return nil
}

type fakeBuilderRecorder struct {
	ops      []string
	failed   []string
	sessions int
}

func (f *fakeBuilderRecorder) RecordBuilderOperation(op string, err error) {
	f.ops = append(f.ops, op)
	if err != nil {
		f.failed = append(f.failed, op)
	}
}

func (f *fakeBuilderRecorder) SetBuilderSessions(n int) { f.sessions = n }

func newTestBuilderService() (*builderService, *fakeDocumentRepo, *fakeBuilderRecorder) {
	repo := newFakeDocumentRepo()
	repo.docs["d1"] = document.NewDefault()
	rec := &fakeBuilderRecorder{}
	return NewBuilderService(repo, rec, 10), repo, rec
}

// --- Tests ---

func TestBuilder_OpenSessionIsIdempotent(t *testing.T) {
	svc, repo, rec := newTestBuilderService()
	ctx := helpers.TestCtx()

	if _, err := svc.OpenSession(ctx, "u1", "d1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.AddWidget(ctx, "u1", "d1", models.Widget{Type: document.TypeStat}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state, err := svc.OpenSession(ctx, "u1", "d1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.loads != 1 || len(state.Document.Widgets) != 1 || !state.Dirty {
		t.Fatalf("expected existing session to be reused, loads=%d state=%+v", repo.loads, state)
	}
	if rec.sessions != 1 {
		t.Fatalf("expected 1 session gauge, got %d", rec.sessions)
	}
}

func TestBuilder_SessionsAreScopedPerUser(t *testing.T) {
	svc, _, _ := newTestBuilderService()
	ctx := helpers.TestCtx()

	if _, err := svc.OpenSession(ctx, "u1", "d1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := svc.GetSession(ctx, "u2", "d1")
	var nf *errs.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError for other user, got %v", err)
	}
}

func TestBuilder_OpenMissingDashboard(t *testing.T) {
	svc, _, rec := newTestBuilderService()

	_, err := svc.OpenSession(helpers.TestCtx(), "u1", "missing")
	var nf *errs.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if rec.sessions != 0 {
		t.Fatalf("no session should be counted, got %d", rec.sessions)
	}
}

func TestBuilder_MutationsWithoutSession(t *testing.T) {
	svc, _, _ := newTestBuilderService()

	_, err := svc.RemoveWidget(helpers.TestCtx(), "u1", "d1", "w1")
	var nf *errs.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestBuilder_EditUndoRedoSave(t *testing.T) {
	svc, repo, rec := newTestBuilderService()
	ctx := helpers.TestCtx()

	if _, err := svc.OpenSession(ctx, "u1", "d1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	added, err := svc.AddWidget(ctx, "u1", "d1", models.Widget{Type: document.TypeLineChart})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if added.Widget.ID == "" || !added.State.CanUndo {
		t.Fatalf("unexpected add response: %+v", added)
	}

	title := "Power"
	state, err := svc.UpdateWidget(ctx, "u1", "d1", added.Widget.ID, builder.WidgetPatch{Title: &title})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Document.Widgets[0].Title != "Power" {
		t.Fatalf("expected title update, got %+v", state.Document.Widgets[0])
	}

	undo, err := svc.Undo(ctx, "u1", "d1")
	if err != nil || !undo.Moved || undo.State.Document.Widgets[0].Title != "" || !undo.State.CanRedo {
		t.Fatalf("unexpected undo: %+v err=%v", undo, err)
	}
	redo, err := svc.Redo(ctx, "u1", "d1")
	if err != nil || !redo.Moved || redo.State.Document.Widgets[0].Title != "Power" {
		t.Fatalf("unexpected redo: %+v err=%v", redo, err)
	}
	again, _ := svc.Redo(ctx, "u1", "d1")
	if again.Moved {
		t.Fatal("redo at the end of history should not move")
	}

	saved, err := svc.Save(ctx, "u1", "d1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.Dirty || !saved.CanUndo {
		t.Fatalf("expected clean state with history kept, got %+v", saved)
	}
	if doc := repo.saved["d1"]; doc == nil || len(doc.Widgets) != 1 || doc.Widgets[0].Title != "Power" {
		t.Fatalf("unexpected saved document: %+v", repo.saved["d1"])
	}
	if len(rec.failed) != 0 {
		t.Fatalf("unexpected failed operations: %v", rec.failed)
	}
}

func TestBuilder_SaveFailureKeepsDirty(t *testing.T) {
	svc, repo, rec := newTestBuilderService()
	ctx := helpers.TestCtx()
	repo.saveErr = errs.NewDatabaseError("update", "boom", errors.New("boom"))

	svc.OpenSession(ctx, "u1", "d1")
	svc.AddWidget(ctx, "u1", "d1", models.Widget{Type: document.TypeStat})

	if _, err := svc.Save(ctx, "u1", "d1"); err == nil {
		t.Fatal("expected error")
	}
	state, _ := svc.GetSession(ctx, "u1", "d1")
	if !state.Dirty {
		t.Fatal("failed save must leave the session dirty")
	}
	if len(rec.failed) != 1 || rec.failed[0] != "save" {
		t.Fatalf("expected failed save metric, got %v", rec.failed)
	}
}

func TestBuilder_RejectedOperationIsRecorded(t *testing.T) {
	svc, _, rec := newTestBuilderService()
	ctx := helpers.TestCtx()
	svc.OpenSession(ctx, "u1", "d1")

	_, err := svc.AddChildWidget(ctx, "u1", "d1", "nope", models.Widget{Type: document.TypeStat})
	var nf *errs.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if len(rec.failed) != 1 || rec.failed[0] != "add_child_widget" {
		t.Fatalf("expected failed metric, got %v", rec.failed)
	}
}

func TestBuilder_CardChildren(t *testing.T) {
	svc, _, _ := newTestBuilderService()
	ctx := helpers.TestCtx()
	svc.OpenSession(ctx, "u1", "d1")

	card, err := svc.AddWidget(ctx, "u1", "d1", models.Widget{Type: document.TypeCard,
		Layout: models.Layout{W: 12, H: 4}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	box := card.Widget.ID
	child, err := svc.AddChildWidget(ctx, "u1", "d1", box, models.Widget{Type: document.TypeStat,
		Layout: models.Layout{W: 3, H: 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(child.State.Document.Widgets[0].Children) != 1 {
		t.Fatalf("expected child in card, got %+v", child.State.Document.Widgets[0])
	}

	state, err := svc.UpdateChildLayouts(ctx, "u1", "d1", box, []builder.LayoutItem{
		{ID: child.Widget.ID, Layout: models.Layout{X: 0, Y: 5, W: 3, H: 2}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h := state.Document.Widgets[0].Layout.H; h != 8 {
		t.Fatalf("expected card to grow to 8, got %d", h)
	}

	state, err = svc.RemoveChildWidget(ctx, "u1", "d1", box, child.Widget.ID)
	if err != nil || len(state.Document.Widgets[0].Children) != 0 {
		t.Fatalf("unexpected remove: %+v err=%v", state, err)
	}
}

func TestBuilder_CloseSession(t *testing.T) {
	svc, _, rec := newTestBuilderService()
	ctx := helpers.TestCtx()
	svc.OpenSession(ctx, "u1", "d1")

	if err := svc.CloseSession(ctx, "u1", "d1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.sessions != 0 {
		t.Fatalf("expected gauge back to 0, got %d", rec.sessions)
	}
	var nf *errs.NotFoundError
	if err := svc.CloseSession(ctx, "u1", "d1"); !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError on second close, got %v", err)
	}
}
