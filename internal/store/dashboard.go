package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GregMSThompson/dashboard-backend/internal/errs"
	"github.com/GregMSThompson/dashboard-backend/internal/models"
)

type dashboardStore struct {
	client *firestore.Client
}

// NewDashboardStore keeps one Firestore document per dashboard under the
// owning user. The serialized schema is stored as an opaque string.
func NewDashboardStore(client *firestore.Client) *dashboardStore {
	return &dashboardStore{client: client}
}

func (s *dashboardStore) collection(uid string) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(uid).Collection("dashboards")
}

func (s *dashboardStore) Create(ctx context.Context, uid string, d *models.Dashboard) error {
	now := time.Now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	_, err := s.collection(uid).Doc(d.DashboardID).Create(ctx, d)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errs.NewAlreadyExistsError("dashboard already exists")
		}
		return errs.NewDatabaseError("create", "failed to create dashboard", err)
	}
	return nil
}

func (s *dashboardStore) Get(ctx context.Context, uid, dashboardID string) (*models.Dashboard, error) {
	doc, err := s.collection(uid).Doc(dashboardID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errs.NewNotFoundError("dashboard not found")
		}
		return nil, errs.NewDatabaseError("read", "failed to get dashboard", err)
	}
	var d models.Dashboard
	if err := doc.DataTo(&d); err != nil {
		return nil, errs.NewDatabaseError("read", "failed to parse dashboard data", err)
	}
	return &d, nil
}

func (s *dashboardStore) List(ctx context.Context, uid string) ([]*models.Dashboard, error) {
	docs, err := s.collection(uid).OrderBy("updatedAt", firestore.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to list dashboards", err)
	}
	out := make([]*models.Dashboard, 0, len(docs))
	for _, doc := range docs {
		var d models.Dashboard
		if err := doc.DataTo(&d); err != nil {
			return nil, errs.NewDatabaseError("read", "failed to parse dashboard data", err)
		}
		out = append(out, &d)
	}
	return out, nil
}

// Update replaces the stored record. Missing dashboards are reported as
// not found rather than silently created.
func (s *dashboardStore) Update(ctx context.Context, uid string, d *models.Dashboard) error {
	d.UpdatedAt = time.Now()
	_, err := s.collection(uid).Doc(d.DashboardID).Update(ctx, []firestore.Update{
		{Path: "name", Value: d.Name},
		{Path: "schema", Value: d.Schema},
		{Path: "updatedAt", Value: d.UpdatedAt},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errs.NewNotFoundError("dashboard not found")
		}
		return errs.NewDatabaseError("update", "failed to update dashboard", err)
	}
	return nil
}

func (s *dashboardStore) Delete(ctx context.Context, uid, dashboardID string) error {
	_, err := s.collection(uid).Doc(dashboardID).Delete(ctx)
	if err != nil {
		return errs.NewDatabaseError("delete", "failed to delete dashboard", err)
	}
	return nil
}
