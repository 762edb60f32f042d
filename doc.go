// Package persist persists slices of reactive store state to key/value
// storage and hydrates them back when the store is created.
//
// A Plugin is installed on a store.Registry. For every store whose definition
// enables persistence (Options["persist"], or every store when WithAuto is
// set) it resolves one Effective configuration per declaration, hydrates the
// store from storage and then writes the projected state back after each
// mutation through a detached subscription.
//
// Effective configuration is layered: builtin fallbacks (JSON serializer,
// storage.Local(), debug off) are overridden by plugin-wide options, which
// are overridden by the store declaration. Hooks, pick, omit and the
// persistence rule come only from the store declaration.
//
// Persistence is best effort. Storage, codec, hook and rule failures never
// reach the store or its callers; when Debug is enabled they are logged with
// the "[persistedstate]" message and always emitted as activity events.
//
//	registry := store.NewRegistry()
//	registry.Use(persist.New(persist.WithStorageName(storage.LocalStorage)))
//	cart, _ := registry.Define(store.Definition{
//		ID:      "cart",
//		State:   func() map[string]any { return map[string]any{"items": []any{}, "total": 0} },
//		Options: map[string]any{"persist": persist.Config{Pick: []string{"total"}}},
//	})
package persist
