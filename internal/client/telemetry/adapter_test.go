package telemetryclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/GregMSThompson/dashboard-backend/internal/errs"
)

func TestFetch_DecodesEnvelope(t *testing.T) {
	var gotQuery, gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"success":true,"data":[{"timestamp":"2025-01-01T00:00:00Z","kw":1.5}],"summary":{"total":1.5}}`))
	}))
	defer srv.Close()

	a := NewAdapter(srv.URL+"/", "secret", time.Second)
	res, err := a.Fetch(context.Background(), "/api/telemetry/energy/latest", map[string]any{
		"site":  "north",
		"lines": []any{"a", "b"},
		"limit": 10.0,
		"skip":  nil,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/api/telemetry/energy/latest" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if gotQuery != "limit=10&lines=a&lines=b&site=north" {
		t.Errorf("unexpected query %s", gotQuery)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if !res.Success || len(res.Data) != 1 || res.Summary["total"] != 1.5 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestFetch_UnsuccessfulEnvelopeIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":"no data for site"}`))
	}))
	defer srv.Close()

	res, err := NewAdapter(srv.URL, "", time.Second).Fetch(context.Background(), "/x", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success || res.Error != "no data for site" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestFetch_StatusErrors(t *testing.T) {
	cases := []struct {
		status    int
		transient bool
	}{
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusNotFound, false},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		_, err := NewAdapter(srv.URL, "", time.Second).Fetch(context.Background(), "/x", nil)
		srv.Close()

		var ext *errs.ExternalServiceError
		if !errors.As(err, &ext) {
			t.Fatalf("status %d: expected ExternalServiceError, got %v", tc.status, err)
		}
		if ext.Transient != tc.transient || ext.Service != "telemetry" {
			t.Errorf("status %d: unexpected error %+v", tc.status, ext)
		}
	}
}

func TestFetch_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := NewAdapter(srv.URL, "", time.Second).Fetch(context.Background(), "/x", nil)
	var ext *errs.ExternalServiceError
	if !errors.As(err, &ext) || ext.Transient {
		t.Fatalf("expected permanent ExternalServiceError, got %v", err)
	}
}
