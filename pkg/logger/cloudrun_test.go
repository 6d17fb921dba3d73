package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
)

func TestCloudRunHandler_WritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newCloudRunHandler(slog.LevelInfo, &buf)).With("dashboard_id", "d1")

	log.Warn("widget fetch failed", "error", errors.New("upstream 503"), "widget_id", "w1")

	var event map[string]any
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if event["severity"] != "WARNING" || event["message"] != "widget fetch failed" {
		t.Fatalf("unexpected event: %v", event)
	}
	data, _ := event["data"].(map[string]any)
	if data["error"] != "upstream 503" || data["widget_id"] != "w1" || data["dashboard_id"] != "d1" {
		t.Fatalf("unexpected data: %v", data)
	}
}

func TestCloudRunHandler_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newCloudRunHandler(slog.LevelWarn, &buf))

	log.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
}

func TestNew_ParsesLevel(t *testing.T) {
	log := New("debug", NewCloudRunHandler)
	if !log.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug to be enabled")
	}
}

func TestTestHandler_RespectsLevel(t *testing.T) {
	h := NewTestHandler(slog.LevelWarn)
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info should be disabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("error should be enabled at warn level")
	}
}
