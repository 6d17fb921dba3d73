package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/GregMSThompson/dashboard-backend/internal/errs"
	"github.com/GregMSThompson/dashboard-backend/internal/models"
)

const dashboardSchema = `
CREATE TABLE IF NOT EXISTS dashboards (
	uid          TEXT NOT NULL,
	dashboard_id TEXT NOT NULL,
	name         TEXT NOT NULL DEFAULT '',
	schema       TEXT NOT NULL,
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL,
	PRIMARY KEY (uid, dashboard_id)
);
CREATE INDEX IF NOT EXISTS dashboards_uid_updated ON dashboards (uid, updated_at DESC);
`

var sqlitePragmas = []string{
	"PRAGMA foreign_keys = ON",
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 10000",
	"PRAGMA synchronous = NORMAL",
}

// OpenSQLite opens (or creates) the local dashboard database. ":memory:"
// gives a private in-memory database limited to a single connection.
func OpenSQLite(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	for _, p := range sqlitePragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(dashboardSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: schema: %w", err)
	}
	return db, nil
}

type sqliteDashboardStore struct {
	db *sql.DB
}

// NewSQLiteDashboardStore is the single-node alternative to the Firestore
// store, used for local development and tests.
func NewSQLiteDashboardStore(db *sql.DB) *sqliteDashboardStore {
	return &sqliteDashboardStore{db: db}
}

func (s *sqliteDashboardStore) Create(ctx context.Context, uid string, d *models.Dashboard) error {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dashboards (uid, dashboard_id, name, schema, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uid, d.DashboardID, d.Name, d.Schema, d.CreatedAt.UnixMilli(), d.UpdatedAt.UnixMilli())
	if err != nil {
		if isUniqueViolation(err) {
			return errs.NewAlreadyExistsError("dashboard already exists")
		}
		return errs.NewDatabaseError("create", "failed to create dashboard", err)
	}
	return nil
}

func (s *sqliteDashboardStore) Get(ctx context.Context, uid, dashboardID string) (*models.Dashboard, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT dashboard_id, name, schema, created_at, updated_at FROM dashboards WHERE uid = ? AND dashboard_id = ?`,
		uid, dashboardID)
	d, err := scanDashboard(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NewNotFoundError("dashboard not found")
		}
		return nil, errs.NewDatabaseError("read", "failed to get dashboard", err)
	}
	return d, nil
}

func (s *sqliteDashboardStore) List(ctx context.Context, uid string) ([]*models.Dashboard, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT dashboard_id, name, schema, created_at, updated_at FROM dashboards WHERE uid = ? ORDER BY updated_at DESC, dashboard_id`,
		uid)
	if err != nil {
		return nil, errs.NewDatabaseError("read", "failed to list dashboards", err)
	}
	defer rows.Close()

	out := []*models.Dashboard{}
	for rows.Next() {
		d, err := scanDashboard(rows)
		if err != nil {
			return nil, errs.NewDatabaseError("read", "failed to parse dashboard data", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewDatabaseError("read", "failed to list dashboards", err)
	}
	return out, nil
}

func (s *sqliteDashboardStore) Update(ctx context.Context, uid string, d *models.Dashboard) error {
	d.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE dashboards SET name = ?, schema = ?, updated_at = ? WHERE uid = ? AND dashboard_id = ?`,
		d.Name, d.Schema, d.UpdatedAt.UnixMilli(), uid, d.DashboardID)
	if err != nil {
		return errs.NewDatabaseError("update", "failed to update dashboard", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errs.NewNotFoundError("dashboard not found")
	}
	return nil
}

func (s *sqliteDashboardStore) Delete(ctx context.Context, uid, dashboardID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM dashboards WHERE uid = ? AND dashboard_id = ?`, uid, dashboardID)
	if err != nil {
		return errs.NewDatabaseError("delete", "failed to delete dashboard", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDashboard(sc scanner) (*models.Dashboard, error) {
	var (
		d                models.Dashboard
		created, updated int64
	)
	if err := sc.Scan(&d.DashboardID, &d.Name, &d.Schema, &created, &updated); err != nil {
		return nil, err
	}
	d.CreatedAt = time.UnixMilli(created).UTC()
	d.UpdatedAt = time.UnixMilli(updated).UTC()
	return &d, nil
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: UNIQUE")
}
