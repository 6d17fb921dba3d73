package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"firebase.google.com/go/v4/auth"

	"github.com/GregMSThompson/dashboard-backend/internal/config"
	"github.com/GregMSThompson/dashboard-backend/internal/models"
	"github.com/GregMSThompson/dashboard-backend/internal/store"
	"github.com/GregMSThompson/dashboard-backend/pkg/logger"
)

// DashboardStore is whichever persistence backend the config selected.
type DashboardStore interface {
	Create(ctx context.Context, uid string, d *models.Dashboard) error
	Get(ctx context.Context, uid, dashboardID string) (*models.Dashboard, error)
	List(ctx context.Context, uid string) ([]*models.Dashboard, error)
	Update(ctx context.Context, uid string, d *models.Dashboard) error
	Delete(ctx context.Context, uid, dashboardID string) error
}

type Bootstrap struct {
	Log        *slog.Logger
	Firestore  *firestore.Client
	SQLite     *sql.DB
	Firebase   *auth.Client
	Dashboards DashboardStore
}

func Run(cfg *config.Config) (*Bootstrap, error) {
	var err error
	applicationCtx := context.Background()
	bs := new(Bootstrap)

	bs.Log = logger.New(cfg.LogLevel, logger.NewCloudRunHandler)

	switch cfg.StoreBackend {
	case config.StoreSQLite:
		bs.SQLite, err = store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return bs, err
		}
		bs.Dashboards = store.NewSQLiteDashboardStore(bs.SQLite)
		bs.Log.Info("using sqlite dashboard store", "path", cfg.SQLitePath)
	case config.StoreFirestore:
		bs.Firestore, err = InitFirestore(applicationCtx, cfg.ProjectID)
		if err != nil {
			return bs, err
		}
		bs.Dashboards = store.NewDashboardStore(bs.Firestore)
	default:
		return bs, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	bs.Firebase, err = InitFirebase(applicationCtx)
	if err != nil {
		return bs, err
	}

	return bs, nil
}

// Close releases whichever clients Run opened.
func (bs *Bootstrap) Close() error {
	var errList []error
	if bs.Firestore != nil {
		errList = append(errList, bs.Firestore.Close())
	}
	if bs.SQLite != nil {
		errList = append(errList, bs.SQLite.Close())
	}
	return errors.Join(errList...)
}
