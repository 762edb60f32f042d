package store

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/goliatone/go-persistedstate/dotpath"
	"github.com/goliatone/go-persistedstate/layering"
)

// MutationType names the store operation that produced a mutation.
type MutationType string

const (
	MutationSet     MutationType = "set"
	MutationPatch   MutationType = "patch"
	MutationUpdate  MutationType = "update"
	MutationReplace MutationType = "replace"
	MutationReset   MutationType = "reset"
)

// Mutation describes one change applied to a store.
type Mutation struct {
	StoreID string
	Type    MutationType
	// Path is the dotted path for MutationSet, empty otherwise.
	Path string
	// Payload is the value written by Set or the partial applied by Patch.
	Payload any
}

// Listener observes mutations. state is the post-mutation root and must be
// treated as read-only.
type Listener func(mutation Mutation, state map[string]any)

// Persistence is attached to a store by a persistence plugin so hydration and
// persistence can be re-run on demand.
type Persistence interface {
	Hydrate(runHooks bool)
	Persist()
}

// HydrateOption configures Store.Hydrate.
type HydrateOption func(*hydrateConfig)

type hydrateConfig struct {
	runHooks bool
}

// WithoutHooks skips the before/after hydrate hooks.
func WithoutHooks() HydrateOption {
	return func(cfg *hydrateConfig) {
		cfg.runHooks = false
	}
}

// Store is a named reactive state tree.
type Store struct {
	id      string
	initial func() map[string]any
	options map[string]any
	logger  *slog.Logger

	// write serializes mutations; mu guards the fields below.
	write sync.Mutex
	mu    sync.Mutex

	state       map[string]any
	subs        []*Subscription
	nextSubID   uint64
	queue       []delivery
	dispatching bool
	disposed    bool
	persistence []Persistence
}

type delivery struct {
	mutation Mutation
	state    map[string]any
	subs     []*Subscription
}

// New creates a standalone store from def. Stores that take part in plugins
// and hot replacement are created through Registry.Define instead.
func New(def Definition) *Store {
	return newStore(def, slog.Default())
}

func newStore(def Definition, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	initial := def.State
	if initial == nil {
		initial = func() map[string]any { return map[string]any{} }
	}
	s := &Store{
		id:      def.ID,
		initial: initial,
		options: def.Options,
		logger:  logger,
	}
	s.state = s.freshState()
	return s
}

// ID returns the stable store identifier.
func (s *Store) ID() string {
	return s.id
}

// Options returns the options declared on the store definition.
func (s *Store) Options() map[string]any {
	return s.options
}

// State returns the current root. Callers must not modify it.
func (s *Store) State() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Get reads the value at a dotted path of the current state.
func (s *Store) Get(path string) (any, bool) {
	return dotpath.Get(s.State(), dotpath.Parse(path))
}

// Set writes value at a dotted path, creating intermediate containers.
func (s *Store) Set(path string, value any) {
	s.mutate(Mutation{Type: MutationSet, Path: path, Payload: value}, func(current map[string]any) map[string]any {
		next, _ := dotpath.Set(current, layering.Clone(value), dotpath.Parse(path)).(map[string]any)
		return next
	})
}

// Patch deep-merges partial into the current state. Nested maps are merged
// key by key; every other value, slices included, replaces the existing one.
func (s *Store) Patch(partial map[string]any) {
	if partial == nil {
		return
	}
	payload := layering.Clone(partial)
	s.mutate(Mutation{Type: MutationPatch, Payload: payload}, func(current map[string]any) map[string]any {
		return mergePatch(current, payload)
	})
}

// Update runs fn against a deep copy of the current state and installs the
// result. fn must not call mutating methods on the same store.
func (s *Store) Update(fn func(draft map[string]any)) {
	if fn == nil {
		return
	}
	s.mutate(Mutation{Type: MutationUpdate}, func(current map[string]any) map[string]any {
		draft := layering.Clone(current)
		if draft == nil {
			draft = map[string]any{}
		}
		fn(draft)
		return draft
	})
}

// Replace swaps the whole state for a copy of state.
func (s *Store) Replace(state map[string]any) {
	next := layering.Clone(state)
	if next == nil {
		next = map[string]any{}
	}
	s.mutate(Mutation{Type: MutationReplace}, func(map[string]any) map[string]any {
		return next
	})
}

// Reset restores the initial state from the definition.
func (s *Store) Reset() {
	s.mutate(Mutation{Type: MutationReset}, func(map[string]any) map[string]any {
		return s.freshState()
	})
}

func (s *Store) freshState() map[string]any {
	state := s.initial()
	if state == nil {
		return map[string]any{}
	}
	return layering.Clone(state)
}

func (s *Store) mutate(mutation Mutation, apply func(map[string]any) map[string]any) {
	mutation.StoreID = s.id

	s.write.Lock()
	next := apply(s.State())
	if next == nil {
		next = map[string]any{}
	}
	s.mu.Lock()
	s.state = next
	if len(s.subs) > 0 {
		s.queue = append(s.queue, delivery{
			mutation: mutation,
			state:    next,
			subs:     append([]*Subscription(nil), s.subs...),
		})
	}
	s.mu.Unlock()
	s.write.Unlock()

	s.dispatch()
}

// dispatch drains the delivery queue unless another call is already doing so,
// which keeps deliveries in mutation order and lets listeners mutate.
func (s *Store) dispatch() {
	s.mu.Lock()
	if s.dispatching {
		s.mu.Unlock()
		return
	}
	s.dispatching = true
	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue[0] = delivery{}
		s.queue = s.queue[1:]
		s.mu.Unlock()
		for _, sub := range next.subs {
			s.deliver(sub, next)
		}
		s.mu.Lock()
	}
	s.queue = nil
	s.dispatching = false
	s.mu.Unlock()
}

func (s *Store) deliver(sub *Subscription, d delivery) {
	if !sub.Active() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("store: listener panicked",
				"store", s.id,
				"mutation", string(d.mutation.Type),
				"error", fmt.Sprint(r),
			)
		}
	}()
	sub.listener(d.mutation, d.state)
}

// Subscribe registers listener for every mutation applied after this call.
func (s *Store) Subscribe(listener Listener, opts ...SubscribeOption) *Subscription {
	cfg := subscribeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	s.mu.Lock()
	s.nextSubID++
	sub := &Subscription{
		id:       s.nextSubID,
		store:    s,
		listener: listener,
		detached: cfg.detached,
	}
	if listener == nil || s.disposed {
		sub.closed.Store(true)
		s.mu.Unlock()
		return sub
	}
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	if !cfg.detached && cfg.scope != nil && !cfg.scope.add(sub) {
		sub.Unsubscribe()
	}
	return sub
}

func (s *Store) unsubscribe(target *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub == target {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

// SubscriptionCount reports how many subscriptions are active.
func (s *Store) SubscriptionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// AttachPersistence registers p so Hydrate and Persist reach it.
func (s *Store) AttachPersistence(p Persistence) {
	if p == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.persistence = append(s.persistence, p)
}

// Persistent reports whether persistence is attached.
func (s *Store) Persistent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.persistence) > 0
}

// Hydrate re-reads every attached persistence binding into the store. It is a
// no-op when persistence is not enabled for the store.
func (s *Store) Hydrate(opts ...HydrateOption) {
	cfg := hydrateConfig{runHooks: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	for _, p := range s.attached() {
		p.Hydrate(cfg.runHooks)
	}
}

// Persist writes the current state through every attached persistence
// binding. It is a no-op when persistence is not enabled for the store.
func (s *Store) Persist() {
	for _, p := range s.attached() {
		p.Persist()
	}
}

func (s *Store) attached() []Persistence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Persistence(nil), s.persistence...)
}

// Dispose ends every subscription, detached ones included, and drops
// attached persistence. The state stays readable.
func (s *Store) Dispose() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.persistence = nil
	s.disposed = true
	s.mu.Unlock()

	for _, sub := range subs {
		sub.closed.Store(true)
	}
}

// Disposed reports whether Dispose was called.
func (s *Store) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

func mergePatch(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	for key, value := range base {
		out[key] = value
	}
	for key, value := range patch {
		if nested, ok := value.(map[string]any); ok {
			if existing, ok := out[key].(map[string]any); ok {
				out[key] = mergePatch(existing, nested)
				continue
			}
		}
		out[key] = value
	}
	return out
}
