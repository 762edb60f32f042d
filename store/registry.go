package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// HotPrefix marks the id of a store created by Registry.HotReplace.
const HotPrefix = "__hot:"

// ErrIDRequired is returned when a definition has no id.
var ErrIDRequired = errors.New("store: id must be provided")

// NormalizeID strips the hot-replacement prefix from id.
func NormalizeID(id string) string {
	return strings.TrimPrefix(id, HotPrefix)
}

// Definition declares a store.
type Definition struct {
	ID string
	// State builds the initial state; it is called again by Reset.
	State func() map[string]any
	// Options carries plugin declarations such as "persist".
	Options map[string]any
}

// PluginContext is handed to plugins for every store a registry creates.
type PluginContext struct {
	Registry   *Registry
	Store      *Store
	Definition Definition
}

// Plugin extends stores as they are created.
type Plugin interface {
	Install(ctx PluginContext)
}

// PluginFunc adapts a function to Plugin.
type PluginFunc func(ctx PluginContext)

// Install implements Plugin.
func (f PluginFunc) Install(ctx PluginContext) {
	if f != nil {
		f(ctx)
	}
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithScheduler sets the scheduler behind Registry.Schedule. The default is
// GoScheduler.
func WithScheduler(scheduler Scheduler) RegistryOption {
	return func(r *Registry) {
		if scheduler != nil {
			r.scheduler = scheduler
		}
	}
}

// WithLogger sets the logger used for recovered plugin, listener and task
// panics.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Registry is the central set of live stores.
type Registry struct {
	mu        sync.RWMutex
	stores    map[string]*Store
	plugins   []Plugin
	scheduler Scheduler
	logger    *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		stores:    map[string]*Store{},
		scheduler: GoScheduler{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Use installs plugins for stores defined afterwards.
func (r *Registry) Use(plugins ...Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range plugins {
		if p != nil {
			r.plugins = append(r.plugins, p)
		}
	}
}

// Define returns the live store registered under def.ID, creating it and
// running plugins on it when none exists.
func (r *Registry) Define(def Definition) (*Store, error) {
	if strings.TrimSpace(def.ID) == "" {
		return nil, ErrIDRequired
	}

	r.mu.Lock()
	if existing, ok := r.stores[def.ID]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	s := newStore(def, r.logger)
	r.stores[def.ID] = s
	plugins := append([]Plugin(nil), r.plugins...)
	r.mu.Unlock()

	r.install(plugins, s, def)
	return s, nil
}

// HotReplace builds a fresh instance of def under HotPrefix+def.ID, as a
// live-reload cycle does. The duplicate is not registered, so IsCurrent
// reports false for it, but plugins still run on it.
func (r *Registry) HotReplace(def Definition) (*Store, error) {
	if strings.TrimSpace(def.ID) == "" {
		return nil, ErrIDRequired
	}
	hot := def
	hot.ID = HotPrefix + NormalizeID(def.ID)

	r.mu.RLock()
	plugins := append([]Plugin(nil), r.plugins...)
	r.mu.RUnlock()

	s := newStore(hot, r.logger)
	r.install(plugins, s, hot)
	return s, nil
}

func (r *Registry) install(plugins []Plugin, s *Store, def Definition) {
	for _, p := range plugins {
		r.installOne(p, s, def)
	}
}

func (r *Registry) installOne(p Plugin, s *Store, def Definition) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("store: plugin panicked",
				"store", s.ID(),
				"plugin", fmt.Sprintf("%T", p),
				"error", fmt.Sprint(rec),
			)
		}
	}()
	p.Install(PluginContext{Registry: r, Store: s, Definition: def})
}

// Lookup returns the live store registered under id.
func (r *Registry) Lookup(id string) (*Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stores[id]
	return s, ok
}

// IsCurrent reports whether s is the live store registered under its id.
func (r *Registry) IsCurrent(s *Store) bool {
	if s == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stores[s.ID()] == s
}

// Schedule runs fn on the next tick of the registry scheduler. Panics are
// recovered and logged; nothing is reported back to the caller.
func (r *Registry) Schedule(fn func()) {
	if fn == nil {
		return
	}
	r.scheduler.Schedule(func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("store: scheduled task panicked", "error", fmt.Sprint(rec))
			}
		}()
		fn()
	})
}

// Dispose removes the store registered under id and disposes it.
func (r *Registry) Dispose(id string) bool {
	r.mu.Lock()
	s, ok := r.stores[id]
	delete(r.stores, id)
	r.mu.Unlock()
	if !ok {
		return false
	}
	s.Dispose()
	return true
}

// IDs lists registered store ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.stores))
	for id := range r.stores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Logger returns the registry logger.
func (r *Registry) Logger() *slog.Logger {
	return r.logger
}
