package template

import (
	"reflect"
	"sort"
	"testing"

	"github.com/GregMSThompson/dashboard-backend/internal/models"
)

func TestResolve_SubstitutesAndCopiesLiterals(t *testing.T) {
	got := Resolve(map[string]any{"a": "{{filter.x}}", "b": "lit"}, map[string]any{"x": 5})
	want := map[string]any{"a": 5, "b": "lit"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestResolve_OmitsUnresolved(t *testing.T) {
	got := Resolve(map[string]any{"a": "{{filter.x}}"}, map[string]any{})
	if len(got) != 0 {
		t.Fatalf("expected empty map, got %v", got)
	}
	if _, ok := got["a"]; ok {
		t.Fatal("key a must be absent, not null")
	}
}

func TestResolve_OmitsEmptyValues(t *testing.T) {
	params := map[string]any{"a": "{{filter.x}}", "b": "{{filter.y}}", "c": "{{ filter.z }}"}
	got := Resolve(params, map[string]any{"x": "", "y": nil, "z": 0})
	want := map[string]any{"c": 0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestResolve_PartialPatternIsLiteral(t *testing.T) {
	params := map[string]any{
		"a": "prefix {{filter.x}}",
		"b": "{{filters.x}}",
		"c": 42,
		"d": []any{"{{filter.x}}"},
	}
	got := Resolve(params, map[string]any{"x": "v"})
	if !reflect.DeepEqual(got, params) {
		t.Fatalf("non-placeholder values must be copied unchanged, got %v", got)
	}
}

func TestResolve_PassesNonScalarValues(t *testing.T) {
	got := Resolve(map[string]any{"lines": "{{filter.lines}}"}, map[string]any{"lines": []any{"l1", "l2"}})
	if !reflect.DeepEqual(got["lines"], []any{"l1", "l2"}) {
		t.Fatalf("expected slice value, got %v", got["lines"])
	}
}

func TestResolveBinding_InjectsTimeRange(t *testing.T) {
	b := &models.DataBinding{DataSourceID: "ds_energy", RequestParams: map[string]any{"site": "{{filter.site}}"}}
	values := map[string]any{
		"startTime": "2025-01-01T00:00:00Z",
		"endTime":   "2025-01-08T00:00:00Z",
		"site":      "north",
		"unrelated": "x",
	}
	got := ResolveBinding(b, values)
	want := map[string]any{
		"site":      "north",
		"startTime": "2025-01-01T00:00:00Z",
		"endTime":   "2025-01-08T00:00:00Z",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestResolveBinding_KeepsExplicitTimeParams(t *testing.T) {
	b := &models.DataBinding{RequestParams: map[string]any{"startTime": "2024-12-01T00:00:00Z"}}
	got := ResolveBinding(b, map[string]any{"startTime": "a", "endTime": "b"})
	if got["startTime"] != "2024-12-01T00:00:00Z" || got["endTime"] != "b" {
		t.Fatalf("explicit params must win, got %v", got)
	}
}

func TestResolveBinding_NeedsBothEnds(t *testing.T) {
	got := ResolveBinding(&models.DataBinding{}, map[string]any{"startTime": "a"})
	if len(got) != 0 {
		t.Fatalf("expected nothing injected for half a range, got %v", got)
	}
	got = ResolveBinding(nil, map[string]any{"startTime": "a", "endTime": ""})
	if len(got) != 0 {
		t.Fatalf("expected nothing injected for an empty end, got %v", got)
	}
}

func TestReferences(t *testing.T) {
	b := &models.DataBinding{RequestParams: map[string]any{"a": "{{filter.x}}", "b": "{{filter.y}}", "c": "lit"}}
	got := References(b)
	sort.Strings(got)
	if !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Fatalf("unexpected references: %v", got)
	}
}
