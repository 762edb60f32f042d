package persist

import (
	"encoding/json"
	"errors"
	"testing"
)

type traceSnapshot struct {
	Key     *string           `json:"key"`
	Debug   *bool             `json:"debug"`
	Labels  map[string]string `json:"labels"`
	Retries map[string]int    `json:"retries"`
}

func strPtr(v string) *string { return &v }

func traceStack(t testing.TB) *Resolved[traceSnapshot] {
	t.Helper()
	builtin := NewLayer(NewScope("builtin", ScopePriorityBuiltin), traceSnapshot{
		Key:     strPtr("cart"),
		Debug:   Bool(false),
		Labels:  map[string]string{"env": "prod"},
		Retries: map[string]int{"write": 1},
	}, WithSnapshotID[traceSnapshot]("builtin/persist/0"))
	store := NewLayer(NewScope("store", ScopePriorityStore), traceSnapshot{
		Key:     strPtr("cart-v2"),
		Labels:  map[string]string{"env": "staging", "team": "core"},
		Retries: map[string]int{"write": 3},
	}, WithSnapshotID[traceSnapshot]("store/cart/persist/0"))

	stack, err := NewStack(builtin, store)
	if err != nil {
		t.Fatalf("stack: %v", err)
	}
	resolved, err := stack.Merge()
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	return resolved
}

func TestResolveWithTraceReturnsLayerProvenance(t *testing.T) {
	resolved := traceStack(t)

	value, trace, err := resolved.ResolveWithTrace("labels.env")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if value != "staging" {
		t.Fatalf("expected store override, got %v", value)
	}
	if len(trace.Layers) != 2 {
		t.Fatalf("expected 2 provenance entries, got %d", len(trace.Layers))
	}
	if !trace.Layers[0].Found || trace.Layers[0].Scope.Name != "store" || trace.Layers[0].SnapshotID != "store/cart/persist/0" {
		t.Fatalf("expected first layer to be the store, got %+v", trace.Layers[0])
	}
	if !trace.Layers[1].Found || trace.Layers[1].Value != "prod" {
		t.Fatalf("expected builtin layer to hold the fallback, got %+v", trace.Layers[1])
	}
}

func TestResolveWithTraceDereferencesScalars(t *testing.T) {
	resolved := traceStack(t)

	value, trace, err := resolved.ResolveWithTrace("Debug")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if value != false {
		t.Fatalf("expected dereferenced false, got %#v", value)
	}
	winner, ok := trace.Winner()
	if !ok || winner.Scope.Name != "builtin" {
		t.Fatalf("expected builtin to supply debug, got %+v", winner)
	}
	if resolved.Source("key") != "store" {
		t.Fatalf("expected key from store, got %q", resolved.Source("key"))
	}
}

func TestResolveWithTraceUnknownField(t *testing.T) {
	resolved := traceStack(t)
	if _, _, err := resolved.ResolveWithTrace("storage"); !errors.Is(err, ErrPathNotFound) {
		t.Fatalf("expected ErrPathNotFound, got %v", err)
	}
	if src := resolved.Source("storage"); src != "" {
		t.Fatalf("expected no source for unknown field, got %q", src)
	}
}

func TestResolveWithTraceMissingMapKey(t *testing.T) {
	resolved := traceStack(t)
	value, trace, err := resolved.ResolveWithTrace("labels.region")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if value != nil {
		t.Fatalf("expected nil, got %v", value)
	}
	if _, ok := trace.Winner(); ok {
		t.Fatalf("expected no winner, got %+v", trace)
	}
}

func TestFlattenWithProvenance(t *testing.T) {
	resolved := traceStack(t)
	results, err := resolved.FlattenWithProvenance()
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}

	sources := map[string]string{}
	for _, prov := range results {
		sources[prov.Path] = prov.Scope.Name
	}
	want := map[string]string{
		"Debug":         "builtin",
		"Key":           "store",
		"Labels.env":    "store",
		"Labels.team":   "store",
		"Retries.write": "store",
	}
	for path, scope := range want {
		if sources[path] != scope {
			t.Errorf("%s: want %q, got %q (all=%v)", path, scope, sources[path], sources)
		}
	}
}

func TestResolveWithTraceWithoutLayers(t *testing.T) {
	resolved := &Resolved[map[string]any]{Value: map[string]any{
		"feature": map[string]any{"enabled": true},
	}}
	value, trace, err := resolved.ResolveWithTrace("feature.enabled")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if value != true {
		t.Fatalf("expected true, got %v", value)
	}
	if len(trace.Layers) != 1 || !trace.Layers[0].Found {
		t.Fatalf("expected single synthetic layer, got %+v", trace.Layers)
	}
}

func TestTraceJSONRoundTrip(t *testing.T) {
	trace := Trace{
		Path: "Debug",
		Layers: []Provenance{{
			Scope: Scope{Name: "global"},
			Path:  "Debug",
			Value: true,
			Found: true,
		}},
	}
	raw, err := trace.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !json.Valid(raw) {
		t.Fatalf("expected valid json, got %s", raw)
	}
	restored, err := TraceFromJSON(raw)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if restored.Path != trace.Path || len(restored.Layers) != 1 || restored.Layers[0].Value != true {
		t.Fatalf("round trip mismatch: %+v vs %+v", restored, trace)
	}
}
