package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	for _, k := range []string{"CONFIGFILE", "PORT", "STOREBACKEND", "FETCHCONCURRENCY", "HISTORYLIMIT", "TELEMETRYTIMEOUT", "LOGLEVEL"} {
		t.Setenv(k, "")
	}
	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" || cfg.StoreBackend != StoreFirestore || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.FetchConcurrency != 8 || cfg.HistoryLimit != 100 || cfg.TelemetryTimeout != 10*time.Second {
		t.Fatalf("unexpected numeric defaults: %+v", cfg)
	}
}

func TestNew_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
project_id: demo
store_backend: sqlite
sqlite_path: /tmp/x.db
telemetry_base_url: http://telemetry.local
telemetry_timeout: 3s
fetch_concurrency: 2
history_limit: 20
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIGFILE", path)
	t.Setenv("HISTORYLIMIT", "50")
	t.Setenv("PORT", "9090")
	t.Setenv("FETCHCONCURRENCY", "")
	t.Setenv("TELEMETRYTIMEOUT", "")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ProjectID != "demo" || cfg.StoreBackend != StoreSQLite || cfg.SQLitePath != "/tmp/x.db" {
		t.Fatalf("file values not loaded: %+v", cfg)
	}
	if cfg.TelemetryTimeout != 3*time.Second || cfg.FetchConcurrency != 2 {
		t.Fatalf("file values not loaded: %+v", cfg)
	}
	if cfg.HistoryLimit != 50 || cfg.Port != "9090" {
		t.Fatalf("env should override file: %+v", cfg)
	}
}

func TestNew_BadNumber(t *testing.T) {
	t.Setenv("CONFIGFILE", "")
	t.Setenv("HISTORYLIMIT", "lots")
	if _, err := New(); err == nil {
		t.Fatal("expected error for non-numeric HISTORYLIMIT")
	}
}
