package persist

import (
	"fmt"

	"github.com/goliatone/go-persistedstate/layering"
)

const (
	// Priorities of the persistence layers. Higher numbers win.
	ScopePriorityBuiltin = 100
	ScopePriorityGlobal  = 200
	ScopePriorityStore   = 300
)

// BuiltinGlobalStore assembles the three-layer stack used for every
// persistence config (builtin defaults, plugin options, store declaration)
// and merges it. Snapshot ids follow layering.Scope.Identifier, e.g.
// "store/cart/persist/0".
func BuiltinGlobalStore[T any](storeID string, index int, builtin, global, store T) (*Resolved[T], error) {
	key := fmt.Sprintf("%s/%d", OptionKey, index)
	chain := layering.NewScopeChain(
		layering.Scope{Key: key, Level: layering.ScopeLevelBuiltin},
		layering.Scope{Key: key, Level: layering.ScopeLevelGlobal},
		layering.Scope{Key: key, Level: layering.ScopeLevelStore, Store: storeID},
	)
	snapshots := map[layering.ScopeLevel]T{
		layering.ScopeLevelBuiltin: builtin,
		layering.ScopeLevelGlobal:  global,
		layering.ScopeLevelStore:   store,
	}

	layers := make([]Layer[T], 0, chain.Len())
	for _, scope := range chain.Ordered() {
		layers = append(layers, NewLayer(
			scopeForLevel(scope),
			snapshots[scope.Level],
			WithSnapshotID[T](scope.Identifier()),
		))
	}
	stack, err := NewStack(layers...)
	if err != nil {
		return nil, err
	}
	return stack.Merge()
}

func scopeForLevel(scope layering.Scope) Scope {
	switch scope.Level {
	case layering.ScopeLevelStore:
		return NewScope(scope.Level.String(), ScopePriorityStore,
			WithScopeLabel("Store Declaration"),
			WithScopeMetadata(map[string]any{"store": scope.Store, "key": scope.Key}),
		)
	case layering.ScopeLevelGlobal:
		return NewScope(scope.Level.String(), ScopePriorityGlobal, WithScopeLabel("Plugin Options"))
	default:
		return NewScope(scope.Level.String(), ScopePriorityBuiltin, WithScopeLabel("Builtin Defaults"))
	}
}
