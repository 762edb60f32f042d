package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	persist "github.com/goliatone/go-persistedstate"
)

var (
	ErrRefRequired  = errors.New("state: ref needs a store id or key")
	ErrETagMismatch = errors.New("state: etag mismatch")
)

// Ref identifies one persisted slot.
type Ref struct {
	// Store is the store id the slot belongs to.
	Store string
	// Key is the final storage key. The store id is used when empty.
	Key string
}

// Identifier returns the storage key of the slot.
func (r Ref) Identifier() (string, error) {
	if key := strings.TrimSpace(r.Key); key != "" {
		return key, nil
	}
	if id := strings.TrimSpace(r.Store); id != "" {
		return id, nil
	}
	return "", ErrRefRequired
}

// Meta is storage-owned metadata used for provenance and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads/saves one snapshot for a single slot.
type Store[T any] interface {
	Load(ctx context.Context, ref Ref) (snapshot T, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error)
}

// Resolver layers persisted snapshots over defaults.
type Resolver[T any] struct {
	Store Store[T]
}

// Mutator edits a snapshot in place.
type Mutator[T any] func(*T) error

type validator interface {
	Validate() error
}

// Layer scope names used by Resolve.
const (
	ScopeStored   = "stored"
	ScopeDefaults = "defaults"
)

// Resolve merges the stored snapshot over defaults. A missing slot resolves to
// the defaults alone. The returned Meta is the zero value when nothing was
// stored.
func (r Resolver[T]) Resolve(ctx context.Context, ref Ref, defaults T) (*persist.Resolved[T], Meta, error) {
	if r.Store == nil {
		return nil, Meta{}, fmt.Errorf("state: store is required")
	}
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, err
	}

	layers := make([]persist.Layer[T], 0, 2)
	snapshot, meta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("state: load %q: %w", key, err)
	}
	if ok {
		scope := persist.NewScope(ScopeStored, persist.ScopePriorityStore,
			persist.WithScopeLabel("Persisted Snapshot"),
			persist.WithScopeMetadata(map[string]any{"store": ref.Store, "key": key}),
		)
		layers = append(layers, persist.NewLayer(scope, snapshot, persist.WithSnapshotID[T](meta.SnapshotID)))
	}
	defaultsScope := persist.NewScope(ScopeDefaults, persist.ScopePriorityBuiltin, persist.WithScopeLabel("Defaults"))
	layers = append(layers, persist.NewLayer(defaultsScope, defaults))

	stack, err := persist.NewStack(layers...)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("state: stack: %w", err)
	}
	resolved, err := stack.Merge()
	if err != nil {
		return nil, Meta{}, err
	}
	return resolved, meta, nil
}

// Mutate loads one snapshot, applies fn, validates when the snapshot has a
// Validate method, then saves. A non-empty meta.ETag must match the stored one.
func (r Resolver[T]) Mutate(ctx context.Context, ref Ref, meta Meta, fn Mutator[T]) (T, Meta, error) {
	var zero T
	if r.Store == nil {
		return zero, Meta{}, fmt.Errorf("state: store is required")
	}
	key, err := ref.Identifier()
	if err != nil {
		return zero, Meta{}, err
	}
	if fn == nil {
		return zero, Meta{}, fmt.Errorf("state: mutator is required")
	}

	snapshot, loadedMeta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return zero, Meta{}, fmt.Errorf("state: load %q: %w", key, err)
	}
	if !ok {
		snapshot = zero
		loadedMeta = Meta{}
	}

	if meta.ETag != "" && meta.ETag != loadedMeta.ETag {
		return zero, loadedMeta, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, loadedMeta.ETag)
	}

	if err := fn(&snapshot); err != nil {
		return zero, loadedMeta, err
	}
	if v, ok := any(snapshot).(validator); ok {
		if err := v.Validate(); err != nil {
			return zero, loadedMeta, err
		}
	}

	saved, err := r.Store.Save(ctx, ref, snapshot, mergeMeta(loadedMeta, meta))
	if err != nil {
		return zero, loadedMeta, fmt.Errorf("state: save %q: %w", key, err)
	}
	return snapshot, saved, nil
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}
