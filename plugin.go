package persist

import (
	"sort"
	"sync"

	"github.com/goliatone/go-persistedstate/store"
)

// Plugin attaches persistence sessions to stores created by a registry.
type Plugin struct {
	cfg pluginConfig

	evalOnce  sync.Once
	evaluator Evaluator
	evalErr   error

	globalOnce sync.Once
	global     layerSettings
	globalErr  error

	mu     sync.RWMutex
	groups map[string]*sessionGroup
}

var _ store.Plugin = (*Plugin)(nil)

// New builds a plugin from global options.
func New(opts ...Option) *Plugin {
	return &Plugin{
		cfg:    applyOptions(opts),
		groups: map[string]*sessionGroup{},
	}
}

// Install implements store.Plugin. Stores that do not enable persistence are
// left alone. A store the registry does not consider current (a hot-reload
// duplicate) gets no session; instead the live original is persisted on the
// next scheduler tick.
func (p *Plugin) Install(ctx store.PluginContext) {
	if ctx.Store == nil {
		return
	}
	id := ctx.Store.ID()
	configs, err := Normalize(ctx.Definition.Options[OptionKey], p.cfg.auto)
	if err != nil {
		p.cfg.logger.Error(LogMessage, "op", OpResolve, "store", id, "error", &Error{Op: OpResolve, Store: id, Err: err})
		return
	}
	if len(configs) == 0 {
		return
	}

	if ctx.Registry != nil && !ctx.Registry.IsCurrent(ctx.Store) {
		if original, ok := ctx.Registry.Lookup(store.NormalizeID(id)); ok {
			ctx.Registry.Schedule(original.Persist)
		}
		return
	}

	group := &sessionGroup{store: ctx.Store}
	emitter := p.cfg.emitter()
	for i, cfg := range configs {
		eff, err := p.resolve(id, i, cfg)
		if err != nil {
			p.cfg.logger.Error(LogMessage, "op", OpResolve, "store", id, "index", i, "error", &Error{Op: OpResolve, Store: id, Err: err})
			continue
		}
		group.sessions = append(group.sessions, &Session{
			eff:      eff,
			registry: ctx.Registry,
			store:    ctx.Store,
			options:  ctx.Definition.Options,
			logger:   p.cfg.logger,
			emitter:  emitter,
		})
	}
	if len(group.sessions) == 0 {
		return
	}

	ctx.Store.AttachPersistence(group)
	p.mu.Lock()
	p.groups[id] = group
	p.mu.Unlock()

	for _, session := range group.sessions {
		_ = session.Hydrate(true)
		s := session
		s.attach(ctx.Store.Subscribe(func(_ store.Mutation, state map[string]any) {
			_ = s.Persist(state)
		}, store.WithDetached()))
	}
}

// Sessions returns the sessions attached to the store id, in declaration
// order. A disposed store has none.
func (p *Plugin) Sessions(storeID string) []*Session {
	p.prune()
	p.mu.RLock()
	defer p.mu.RUnlock()
	group, ok := p.groups[storeID]
	if !ok {
		return nil
	}
	return append([]*Session(nil), group.sessions...)
}

// prune forgets the groups of disposed stores.
func (p *Plugin) prune() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, group := range p.groups {
		if group.store.Disposed() {
			delete(p.groups, id)
		}
	}
}

// Effective returns the resolved configs of the store id.
func (p *Plugin) Effective(storeID string) []*Effective {
	sessions := p.Sessions(storeID)
	if len(sessions) == 0 {
		return nil
	}
	out := make([]*Effective, len(sessions))
	for i, s := range sessions {
		out[i] = s.eff
	}
	return out
}

// StoreIDs lists the stores with attached sessions.
func (p *Plugin) StoreIDs() []string {
	p.prune()
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.groups))
	for id := range p.groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
