package persist

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/goliatone/go-persistedstate/pkg/activity"
	"github.com/goliatone/go-persistedstate/storage"
	"github.com/goliatone/go-persistedstate/store"
	"github.com/google/go-cmp/cmp"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingStorage keeps every payload written per key.
type recordingStorage struct {
	*storage.Memory
	mu     sync.Mutex
	writes map[string][]string
}

func newRecordingStorage() *recordingStorage {
	return &recordingStorage{Memory: storage.NewMemory(), writes: map[string][]string{}}
}

func (r *recordingStorage) SetItem(key, value string) error {
	r.mu.Lock()
	r.writes[key] = append(r.writes[key], value)
	r.mu.Unlock()
	return r.Memory.SetItem(key, value)
}

func (r *recordingStorage) Writes(key string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.writes[key]...)
}

func (r *recordingStorage) Item(t testing.TB, key string) string {
	t.Helper()
	value, ok, err := r.GetItem(key)
	if err != nil || !ok {
		t.Fatalf("expected %q to be stored, ok=%v err=%v", key, ok, err)
	}
	return value
}

// frozenStorage serves reads but drops writes.
type frozenStorage struct {
	*storage.Memory
}

func (frozenStorage) SetItem(string, string) error { return nil }

type brokenStorage struct {
	readErr  error
	writeErr error
	panics   bool
}

func (b brokenStorage) GetItem(string) (string, bool, error) {
	if b.panics {
		panic("backend exploded")
	}
	return "", false, b.readErr
}

func (b brokenStorage) SetItem(string, string) error {
	if b.panics {
		panic("backend exploded")
	}
	return b.writeErr
}

func newTestRegistry(t testing.TB, plugin *Plugin) (*store.Registry, *store.QueueScheduler) {
	t.Helper()
	queue := store.NewQueueScheduler()
	registry := store.NewRegistry(store.WithScheduler(queue), store.WithLogger(discardLogger()))
	registry.Use(plugin)
	return registry, queue
}

func define(t testing.TB, registry *store.Registry, id string, state map[string]any, persist any) *store.Store {
	t.Helper()
	def := store.Definition{
		ID:    id,
		State: func() map[string]any { return cloneState(state) },
	}
	if persist != nil {
		def.Options = map[string]any{OptionKey: persist}
	}
	s, err := registry.Define(def)
	if err != nil {
		t.Fatalf("define %s: %v", id, err)
	}
	return s
}

func cloneState(state map[string]any) map[string]any {
	out := make(map[string]any, len(state))
	for k, v := range state {
		out[k] = v
	}
	return out
}

func TestPickPersistsOnlySelectedPaths(t *testing.T) {
	backend := newRecordingStorage()
	registry, _ := newTestRegistry(t, New(WithStorage(backend), WithLogger(discardLogger())))

	cart := define(t, registry, "cart", map[string]any{"items": []any{}, "total": 0}, Config{Pick: []string{"total"}})
	cart.Set("items", []any{map[string]any{"id": 1}})
	cart.Set("total", 10)

	if got := backend.Item(t, "cart"); got != `{"total":10}` {
		t.Fatalf("unexpected payload %s", got)
	}
}

func TestOmitRemovesNestedPath(t *testing.T) {
	backend := newRecordingStorage()
	registry, _ := newTestRegistry(t, New(WithStorage(backend), WithLogger(discardLogger())))

	user := define(t, registry, "user", map[string]any{
		"token":   "abc",
		"profile": map[string]any{"name": "x", "secret": "y"},
	}, Config{Omit: []string{"profile.secret"}})
	user.Patch(map[string]any{"token": "abc"})

	if got := backend.Item(t, "user"); got != `{"profile":{"name":"x"},"token":"abc"}` {
		t.Fatalf("unexpected payload %s", got)
	}
	if _, ok := user.Get("profile.secret"); !ok {
		t.Fatalf("omit must not touch the live state")
	}
}

func TestHydratePatchesStoredSlice(t *testing.T) {
	backend := newRecordingStorage()
	if err := backend.Memory.SetItem("settings", `{"theme":"dark"}`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	registry, _ := newTestRegistry(t, New(WithStorage(backend), WithLogger(discardLogger())))

	settings := define(t, registry, "settings", map[string]any{"theme": "light", "lang": "en"}, true)

	want := map[string]any{"theme": "dark", "lang": "en"}
	if diff := cmp.Diff(want, settings.State()); diff != "" {
		t.Fatalf("unexpected hydrated state (-want +got):\n%s", diff)
	}
	if writes := backend.Writes("settings"); len(writes) != 0 {
		t.Fatalf("hydration must not trigger a write, got %v", writes)
	}
}

func TestMultipleConfigsWriteOncePerMutation(t *testing.T) {
	backend := newRecordingStorage()
	registry, _ := newTestRegistry(t, New(WithStorage(backend), WithLogger(discardLogger())))

	s := define(t, registry, "prefs", map[string]any{"a": 1, "b": 2}, []Config{
		{Key: "prefs-a", Pick: []string{"a"}},
		{Key: "prefs-b", Pick: []string{"b"}},
	})
	s.Set("a", 3)

	if got := backend.Writes("prefs-a"); len(got) != 1 || got[0] != `{"a":3}` {
		t.Fatalf("unexpected writes to prefs-a: %v", got)
	}
	if got := backend.Writes("prefs-b"); len(got) != 1 || got[0] != `{"b":2}` {
		t.Fatalf("unexpected writes to prefs-b: %v", got)
	}
}

func TestManualPersistIsIdempotent(t *testing.T) {
	backend := newRecordingStorage()
	registry, _ := newTestRegistry(t, New(WithStorage(backend), WithLogger(discardLogger())))

	s := define(t, registry, "cart", map[string]any{"total": 4, "items": []any{"a"}}, true)
	s.Persist()
	s.Persist()

	writes := backend.Writes("cart")
	if len(writes) != 2 {
		t.Fatalf("expected two writes, got %v", writes)
	}
	if writes[0] != writes[1] {
		t.Fatalf("expected identical payloads, got %q and %q", writes[0], writes[1])
	}
}

func TestEmptyPickPersistsEmptyObject(t *testing.T) {
	backend := newRecordingStorage()
	registry, _ := newTestRegistry(t, New(WithStorage(backend), WithLogger(discardLogger())))

	s := define(t, registry, "cart", map[string]any{"total": 1}, Config{Pick: []string{}})
	s.Set("total", 2)

	if got := backend.Item(t, "cart"); got != `{}` {
		t.Fatalf("expected empty object, got %s", got)
	}
}

func TestMalformedPayloadLeavesStateUnchanged(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    error
	}{
		{name: "not json", payload: `{"theme":`, want: ErrDecode},
		{name: "array", payload: `[1,2]`, want: ErrMalformed},
		{name: "scalar", payload: `"dark"`, want: ErrMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := storage.NewMemory()
			_ = backend.SetItem("settings", tc.payload)
			plugin := New(WithStorage(backend), WithLogger(discardLogger()))
			registry, _ := newTestRegistry(t, plugin)

			initial := map[string]any{"theme": "light"}
			s := define(t, registry, "settings", initial, true)
			if diff := cmp.Diff(initial, s.State()); diff != "" {
				t.Fatalf("state changed (-want +got):\n%s", diff)
			}

			sessions := plugin.Sessions("settings")
			if len(sessions) != 1 {
				t.Fatalf("expected one session, got %d", len(sessions))
			}
			err := sessions[0].Hydrate(true)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			var persistErr *Error
			if !errors.As(err, &persistErr) || persistErr.Op != OpHydrate || persistErr.Store != "settings" {
				t.Fatalf("expected *Error for hydrate, got %#v", err)
			}
		})
	}
}

func TestStorageFailuresAreContained(t *testing.T) {
	plugin := New(WithLogger(discardLogger()))
	registry, _ := newTestRegistry(t, plugin)

	s := define(t, registry, "flaky", map[string]any{"n": 1}, Config{
		Storage: brokenStorage{readErr: errors.New("read offline"), writeErr: errors.New("write offline")},
	})
	s.Set("n", 2)

	session := plugin.Sessions("flaky")[0]
	if err := session.Hydrate(true); !errors.Is(err, ErrStorageRead) {
		t.Fatalf("expected ErrStorageRead, got %v", err)
	}
	if err := session.Persist(s.State()); !errors.Is(err, ErrStorageWrite) {
		t.Fatalf("expected ErrStorageWrite, got %v", err)
	}
	if got, _ := s.Get("n"); got != 2 {
		t.Fatalf("store must stay usable, got n=%v", got)
	}
}

func TestPanickingStorageIsRecovered(t *testing.T) {
	plugin := New(WithLogger(discardLogger()))
	registry, _ := newTestRegistry(t, plugin)

	s := define(t, registry, "flaky", map[string]any{"n": 1}, Config{Storage: brokenStorage{panics: true}})
	s.Set("n", 2)

	session := plugin.Sessions("flaky")[0]
	if err := session.Hydrate(false); !errors.Is(err, ErrPanic) || !errors.Is(err, ErrStorageRead) {
		t.Fatalf("expected recovered read panic, got %v", err)
	}
	if err := session.Persist(s.State()); !errors.Is(err, ErrPanic) || !errors.Is(err, ErrStorageWrite) {
		t.Fatalf("expected recovered write panic, got %v", err)
	}
}

func TestHydrateHooksOrderingAndAbort(t *testing.T) {
	backend := frozenStorage{Memory: storage.NewMemory()}
	_ = backend.Memory.SetItem("a", `{"v":"stored-a"}`)
	_ = backend.Memory.SetItem("b", `{"w":"stored-b"}`)
	plugin := New(WithStorage(backend), WithLogger(discardLogger()))
	registry, _ := newTestRegistry(t, plugin)

	var calls []string
	var subsSeen []int
	s := define(t, registry, "hooks", map[string]any{"v": "init", "w": "init"}, []Config{
		{
			Key: "a",
			BeforeHydrate: func(ctx HydrateContext) error {
				calls = append(calls, "before-a:"+ctx.Key)
				return errors.New("not ready")
			},
			AfterHydrate: func(HydrateContext) error {
				calls = append(calls, "after-a")
				return nil
			},
		},
		{
			Key: "b",
			BeforeHydrate: func(ctx HydrateContext) error {
				calls = append(calls, "before-b")
				subsSeen = append(subsSeen, ctx.Store.SubscriptionCount())
				return nil
			},
			AfterHydrate: func(ctx HydrateContext) error {
				calls = append(calls, "after-b")
				subsSeen = append(subsSeen, ctx.Store.SubscriptionCount())
				if ctx.Options[OptionKey] == nil {
					t.Errorf("expected hook context to carry the store options")
				}
				return nil
			},
		},
	})

	if diff := cmp.Diff([]string{"before-a:a", "before-b", "after-b"}, calls); diff != "" {
		t.Fatalf("unexpected hook calls (-want +got):\n%s", diff)
	}
	// The first config subscribed after its hydrate; the second had not yet.
	if diff := cmp.Diff([]int{1, 1}, subsSeen); diff != "" {
		t.Fatalf("unexpected subscription counts (-want +got):\n%s", diff)
	}
	if got, _ := s.Get("v"); got != "init" {
		t.Fatalf("aborted hydrate must not read, got v=%v", got)
	}
	if got, _ := s.Get("w"); got != "stored-b" {
		t.Fatalf("second config must hydrate independently, got w=%v", got)
	}

	calls = nil
	s.Hydrate(store.WithoutHooks())
	if len(calls) != 0 {
		t.Fatalf("expected hooks to be skipped, got %v", calls)
	}
	if got, _ := s.Get("v"); got != "stored-a" {
		t.Fatalf("hookless hydrate should read config a, got v=%v", got)
	}
}

func TestHookPanicIsContained(t *testing.T) {
	plugin := New(WithStorage(storage.NewMemory()), WithLogger(discardLogger()))
	registry, _ := newTestRegistry(t, plugin)

	define(t, registry, "panicky", map[string]any{}, Config{
		AfterHydrate: func(HydrateContext) error { panic("hook exploded") },
	})

	err := plugin.Sessions("panicky")[0].Hydrate(true)
	if !errors.Is(err, ErrHook) || !errors.Is(err, ErrPanic) {
		t.Fatalf("expected recovered hook panic, got %v", err)
	}
}

func TestHotReplacementSchedulesOriginalPersist(t *testing.T) {
	backend := newRecordingStorage()
	plugin := New(WithStorage(backend), WithLogger(discardLogger()))
	registry, queue := newTestRegistry(t, plugin)

	def := store.Definition{
		ID:      "cart",
		State:   func() map[string]any { return map[string]any{"total": 0} },
		Options: map[string]any{OptionKey: true},
	}
	original, err := registry.Define(def)
	if err != nil {
		t.Fatalf("define: %v", err)
	}
	original.Set("total", 10)
	if got := len(backend.Writes("cart")); got != 1 {
		t.Fatalf("expected one write, got %d", got)
	}

	hot, err := registry.HotReplace(def)
	if err != nil {
		t.Fatalf("hot replace: %v", err)
	}
	if got, _ := hot.Get("total"); got != 0 {
		t.Fatalf("duplicate must not hydrate, got total=%v", got)
	}
	if hot.Persistent() {
		t.Fatalf("duplicate must not get a session")
	}
	if len(plugin.Sessions(hot.ID())) != 0 {
		t.Fatalf("duplicate must not be tracked")
	}
	if got := len(backend.Writes("cart")); got != 1 {
		t.Fatalf("persist must be deferred, got %d writes", got)
	}
	if queue.Pending() != 1 {
		t.Fatalf("expected one scheduled task, got %d", queue.Pending())
	}

	queue.Drain()
	writes := backend.Writes("cart")
	if len(writes) != 2 || writes[1] != `{"total":10}` {
		t.Fatalf("expected original state re-persisted, got %v", writes)
	}
}

func TestAutoAndExplicitOptOut(t *testing.T) {
	backend := newRecordingStorage()
	plugin := New(WithStorage(backend), WithAuto(true), WithLogger(discardLogger()))
	registry, _ := newTestRegistry(t, plugin)

	define(t, registry, "implicit", map[string]any{"n": 1}, nil)
	define(t, registry, "optout", map[string]any{"n": 1}, false)

	if diff := cmp.Diff([]string{"implicit"}, plugin.StoreIDs()); diff != "" {
		t.Fatalf("unexpected persisted stores (-want +got):\n%s", diff)
	}

	manual := New(WithStorage(backend), WithLogger(discardLogger()))
	other, _ := newTestRegistry(t, manual)
	define(t, other, "implicit", map[string]any{"n": 1}, nil)
	if ids := manual.StoreIDs(); len(ids) != 0 {
		t.Fatalf("expected no sessions without auto, got %v", ids)
	}
}

func TestKeyResolution(t *testing.T) {
	cases := []struct {
		name   string
		opts   []Option
		config Config
		want   string
	}{
		{name: "store id", want: "cart"},
		{name: "explicit key", config: Config{Key: "basket"}, want: "basket"},
		{name: "key func", config: Config{Key: "ignored", KeyFunc: func(id string) string { return id + ":v2" }}, want: "cart:v2"},
		{name: "template", opts: []Option{WithKeyTemplate("app:" + KeyPlaceholder)}, config: Config{Key: "basket"}, want: "app:basket"},
		{name: "plugin key func", opts: []Option{WithKeyFunc(strings.ToUpper)}, want: "CART"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plugin := New(append([]Option{WithStorage(storage.NewMemory())}, tc.opts...)...)
			eff, err := plugin.resolve("cart", 0, tc.config)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if eff.Key != tc.want {
				t.Fatalf("expected key %q, got %q", tc.want, eff.Key)
			}
		})
	}
}

func TestEffectiveProvenance(t *testing.T) {
	global := storage.NewMemory()
	plugin := New(WithStorage(global), WithSerializerName("yaml"), WithDebug(true))

	eff, err := plugin.resolve("cart", 0, Config{Key: "basket", Pick: []string{"total"}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if eff.Storage != global {
		t.Fatalf("expected global storage to be used")
	}
	sources := map[string]string{
		"Key":        eff.Source("Key"),
		"Storage":    eff.Source("Storage"),
		"Serializer": eff.Source("Serializer"),
		"Debug":      eff.Source("Debug"),
	}
	want := map[string]string{"Key": "store", "Storage": "global", "Serializer": "global", "Debug": "global"}
	if diff := cmp.Diff(want, sources); diff != "" {
		t.Fatalf("unexpected sources (-want +got):\n%s", diff)
	}
	if !eff.Debug {
		t.Fatalf("expected global debug")
	}

	trace, err := eff.Trace("Key")
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	if len(trace.Layers) != 3 || trace.Layers[2].Value != "cart" {
		t.Fatalf("expected builtin layer to hold the store id, got %+v", trace.Layers)
	}
}

func TestResolveRejectsBadConfigs(t *testing.T) {
	plugin := New()
	if _, err := plugin.resolve("cart", 0, Config{StorageName: "nope"}); !errors.Is(err, ErrUnknownStorage) {
		t.Fatalf("expected ErrUnknownStorage, got %v", err)
	}
	if _, err := plugin.resolve("cart", 0, Config{SerializerName: "nope"}); !errors.Is(err, ErrUnknownSerializer) {
		t.Fatalf("expected ErrUnknownSerializer, got %v", err)
	}
	if _, err := plugin.resolve("cart", 0, Config{Storage: storage.NewMemory(), StorageName: "localStorage"}); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if _, err := plugin.resolve("cart", 0, Config{When: "total >"}); !errors.Is(err, ErrRule) {
		t.Fatalf("expected ErrRule for bad expression, got %v", err)
	}
}

func TestFailedConfigIsSkipped(t *testing.T) {
	var logs bytes.Buffer
	backend := newRecordingStorage()
	plugin := New(WithStorage(backend), WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	registry, _ := newTestRegistry(t, plugin)

	s := define(t, registry, "cart", map[string]any{"total": 0}, []Config{
		{Key: "broken", StorageName: "nope"},
		{Key: "ok"},
	})
	s.Set("total", 1)

	if got := len(plugin.Sessions("cart")); got != 1 {
		t.Fatalf("expected one surviving session, got %d", got)
	}
	if got := backend.Writes("ok"); len(got) != 1 {
		t.Fatalf("expected surviving config to persist, got %v", got)
	}
	if !strings.Contains(logs.String(), LogMessage) || !strings.Contains(logs.String(), "op=resolve") {
		t.Fatalf("expected resolve failure to be logged, got %q", logs.String())
	}
}

func TestDebugControlsDiagnostics(t *testing.T) {
	for _, debug := range []bool{false, true} {
		var logs bytes.Buffer
		backend := storage.NewMemory()
		_ = backend.SetItem("settings", "not json")
		plugin := New(WithStorage(backend), WithLogger(slog.New(slog.NewJSONHandler(&logs, nil))))
		registry, _ := newTestRegistry(t, plugin)

		define(t, registry, "settings", map[string]any{}, Config{Debug: Bool(debug)})

		logged := strings.Contains(logs.String(), `"msg":"[persistedstate]"`)
		if logged != debug {
			t.Fatalf("debug=%v: expected logged=%v, got output %q", debug, debug, logs.String())
		}
		if debug && !strings.Contains(logs.String(), `"store":"settings"`) {
			t.Fatalf("expected store attribute, got %q", logs.String())
		}
	}
}

func TestWhenRuleGatesWrites(t *testing.T) {
	var evaluated []EvaluatorLogEvent
	backend := newRecordingStorage()
	plugin := New(
		WithStorage(backend),
		WithLogger(discardLogger()),
		WithEvaluatorLogger(EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
			evaluated = append(evaluated, event)
		})),
	)
	registry, _ := newTestRegistry(t, plugin)

	s := define(t, registry, "cart", map[string]any{"total": 0}, Config{When: "total > 0"})
	s.Set("total", 0)
	if got := backend.Writes("cart"); len(got) != 0 {
		t.Fatalf("expected rule to skip the write, got %v", got)
	}
	s.Set("total", 5)
	if got := backend.Writes("cart"); len(got) != 1 || got[0] != `{"total":5}` {
		t.Fatalf("expected one write, got %v", got)
	}
	if len(evaluated) != 2 || evaluated[0].Store != "cart" || evaluated[0].Engine != EngineExpr {
		t.Fatalf("unexpected evaluation log %+v", evaluated)
	}
}

func TestWhenRuleWithCELAndFunctions(t *testing.T) {
	backend := newRecordingStorage()
	registry := NewFunctionRegistry()
	if err := registry.Register("atLeast", func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errors.New("atLeast wants two arguments")
		}
		n, _ := args[0].(int64)
		floor, _ := args[1].(int64)
		return n >= floor, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	plugin := New(
		WithStorage(backend),
		WithLogger(discardLogger()),
		WithEvaluator(NewCELEvaluator(CELWithFunctionRegistry(registry))),
	)
	stores, _ := newTestRegistry(t, plugin)

	s := define(t, stores, "cart", map[string]any{"items": []any{}}, Config{When: `call("atLeast", [size(state.items), 1])`})
	s.Set("items", []any{})
	if got := backend.Writes("cart"); len(got) != 0 {
		t.Fatalf("expected empty cart to be skipped, got %v", got)
	}
	s.Set("items", []any{"apple"})
	if got := backend.Writes("cart"); len(got) != 1 {
		t.Fatalf("expected one write, got %v", got)
	}
}

func TestWhenRuleMustReturnBool(t *testing.T) {
	backend := newRecordingStorage()
	plugin := New(WithStorage(backend), WithLogger(discardLogger()))
	registry, _ := newTestRegistry(t, plugin)

	s := define(t, registry, "cart", map[string]any{"total": 0}, Config{When: "total + 1"})
	err := plugin.Sessions("cart")[0].Persist(s.State())
	if !errors.Is(err, ErrRule) {
		t.Fatalf("expected ErrRule, got %v", err)
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) || evalErr.Expr != "total + 1" {
		t.Fatalf("expected EvaluationError with expression, got %v", err)
	}
	if evalErr.Store != "cart" || evalErr.Key != "cart" {
		t.Fatalf("expected rule error to name the write, got store=%q key=%q", evalErr.Store, evalErr.Key)
	}
	if got := backend.Writes("cart"); len(got) != 0 {
		t.Fatalf("failed rule must not write, got %v", got)
	}
}

func TestActivityEventsPerOperation(t *testing.T) {
	capture := &activity.CaptureHook{}
	plugin := New(
		WithStorage(storage.NewMemory()),
		WithLogger(discardLogger()),
		WithActivityHooks(activity.Hooks{capture}),
		WithKeyTemplate("app:"+KeyPlaceholder),
	)
	registry, _ := newTestRegistry(t, plugin)

	s := define(t, registry, "theme", map[string]any{"mode": "light"}, true)
	s.Set("mode", "dark")

	if diff := cmp.Diff([]string{VerbHydrated, VerbPersisted}, capture.Verbs()); diff != "" {
		t.Fatalf("verbs mismatch (-want +got):\n%s", diff)
	}
	events := capture.ForObject("app:theme")
	if len(events) != 2 {
		t.Fatalf("expected both events for app:theme, got %d", len(events))
	}
	persisted := events[1]
	if persisted.ObjectID != "app:theme" || persisted.DefinitionCode != "theme" || persisted.Channel != ActivityChannel {
		t.Fatalf("unexpected persisted event %+v", persisted)
	}
	if persisted.Metadata["scope_name"] != "builtin" || persisted.Metadata["snapshot_id"] != "builtin/persist/0" {
		t.Fatalf("expected key provenance in metadata, got %+v", persisted.Metadata)
	}
}

func TestUnsubscribedStoreStopsPersisting(t *testing.T) {
	backend := newRecordingStorage()
	plugin := New(WithStorage(backend), WithLogger(discardLogger()))
	registry, _ := newTestRegistry(t, plugin)

	s := define(t, registry, "cart", map[string]any{"total": 0}, true)
	sub := plugin.Sessions("cart")[0].Subscription()
	if sub == nil || !sub.Detached() {
		t.Fatalf("expected a detached subscription")
	}
	registry.Dispose("cart")
	s.Set("total", 3)
	if got := backend.Writes("cart"); len(got) != 0 {
		t.Fatalf("disposed store must not persist, got %v", got)
	}
}

func TestPanickingActivityHookIsContained(t *testing.T) {
	backend := newRecordingStorage()
	sinkDown := activity.HookFunc(func(context.Context, activity.Event) error {
		panic("sink down")
	})
	plugin := New(
		WithStorage(backend),
		WithLogger(discardLogger()),
		WithActivityHooks(activity.Hooks{sinkDown}),
	)
	registry, _ := newTestRegistry(t, plugin)

	s := define(t, registry, "cart", map[string]any{"total": 0}, []Config{{Key: "a"}, {Key: "b"}})

	sessions := plugin.Sessions("cart")
	if len(sessions) != 2 {
		t.Fatalf("expected two sessions, got %d", len(sessions))
	}
	for i, session := range sessions {
		if session.Subscription() == nil {
			t.Fatalf("session %d was left without a subscription", i)
		}
	}

	func() {
		defer func() {
			if rec := recover(); rec != nil {
				t.Fatalf("manual persist panicked: %v", rec)
			}
		}()
		s.Persist()
	}()

	s.Set("total", 10)
	for _, key := range []string{"a", "b"} {
		if got := backend.Item(t, key); got != `{"total":10}` {
			t.Fatalf("key %s: unexpected payload %s", key, got)
		}
	}
}

func TestDisposedStoreDropsSessions(t *testing.T) {
	plugin := New(WithStorage(storage.NewMemory()), WithLogger(discardLogger()))
	registry, _ := newTestRegistry(t, plugin)

	define(t, registry, "cart", map[string]any{"total": 0}, true)
	define(t, registry, "theme", map[string]any{"mode": "light"}, true)
	registry.Dispose("cart")

	if got := plugin.Sessions("cart"); len(got) != 0 {
		t.Fatalf("expected no sessions for a disposed store, got %d", len(got))
	}
	if got := plugin.Effective("cart"); got != nil {
		t.Fatalf("expected no effective configs for a disposed store, got %v", got)
	}
	if diff := cmp.Diff([]string{"theme"}, plugin.StoreIDs()); diff != "" {
		t.Fatalf("store ids mismatch (-want +got):\n%s", diff)
	}

	define(t, registry, "cart", map[string]any{"total": 0}, true)
	if got := len(plugin.Sessions("cart")); got != 1 {
		t.Fatalf("expected a redefined store to get a session, got %d", got)
	}
}

func TestSubscriptionReadDuringInstall(t *testing.T) {
	plugin := New(WithStorage(storage.NewMemory()), WithLogger(discardLogger()))
	registry, _ := newTestRegistry(t, plugin)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			for _, session := range plugin.Sessions("cart") {
				_ = session.Subscription()
			}
		}
	}()
	define(t, registry, "cart", map[string]any{"total": 0}, true)
	<-done

	if plugin.Sessions("cart")[0].Subscription() == nil {
		t.Fatalf("expected subscription once install returned")
	}
}
