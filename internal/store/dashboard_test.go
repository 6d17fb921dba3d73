package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"cloud.google.com/go/firestore"

	"github.com/GregMSThompson/dashboard-backend/internal/errs"
	"github.com/GregMSThompson/dashboard-backend/internal/models"
)

func TestDashboardStoreWithEmulator(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	ctx := context.Background()
	client, err := firestore.NewClient(ctx, "test-project")
	if err != nil {
		t.Fatalf("firestore client error: %v", err)
	}
	defer client.Close()

	s := NewDashboardStore(client)
	uid := "user"

	d := &models.Dashboard{DashboardID: "emu-1", Name: "Plant", Schema: `{"version":"1.0"}`}
	_ = s.Delete(ctx, uid, d.DashboardID)
	if err := s.Create(ctx, uid, d); err != nil {
		t.Fatalf("create error: %v", err)
	}
	var ae *errs.AlreadyExistsError
	if err := s.Create(ctx, uid, d); !errors.As(err, &ae) {
		t.Fatalf("expected already exists, got %v", err)
	}

	d.Schema = `{"version":"1.0","widgets":[]}`
	if err := s.Update(ctx, uid, d); err != nil {
		t.Fatalf("update error: %v", err)
	}
	got, err := s.Get(ctx, uid, d.DashboardID)
	if err != nil {
		t.Fatalf("get error: %v", err)
	}
	if got.Schema != d.Schema {
		t.Fatalf("expected schema %s, got %s", d.Schema, got.Schema)
	}

	list, err := s.List(ctx, uid)
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(list) == 0 {
		t.Fatal("expected at least one dashboard")
	}

	if err := s.Delete(ctx, uid, d.DashboardID); err != nil {
		t.Fatalf("delete error: %v", err)
	}
	var nf *errs.NotFoundError
	if _, err := s.Get(ctx, uid, d.DashboardID); !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}
