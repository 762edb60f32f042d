package store

import (
	"sync"
	"sync/atomic"
)

// SubscribeOption configures Store.Subscribe.
type SubscribeOption func(*subscribeConfig)

type subscribeConfig struct {
	detached bool
	scope    *Scope
}

// WithDetached keeps the subscription alive when the scope it was created in
// closes. Detached subscriptions end only through Unsubscribe or
// Store.Dispose.
func WithDetached() SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.detached = true
	}
}

// WithScope ties a non-detached subscription to scope.
func WithScope(scope *Scope) SubscribeOption {
	return func(cfg *subscribeConfig) {
		cfg.scope = scope
	}
}

// Subscription is the handle returned by Store.Subscribe.
type Subscription struct {
	id       uint64
	store    *Store
	listener Listener
	detached bool
	closed   atomic.Bool
}

// Unsubscribe stops delivery. Calling it more than once is safe.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.closed.Swap(true) {
		return
	}
	s.store.unsubscribe(s)
}

// Active reports whether the subscription still receives mutations.
func (s *Subscription) Active() bool {
	return s != nil && !s.closed.Load()
}

// Detached reports whether the subscription outlives scopes.
func (s *Subscription) Detached() bool {
	return s != nil && s.detached
}

// Scope groups subscriptions that share a lifetime, typically one view.
type Scope struct {
	mu     sync.Mutex
	subs   []*Subscription
	closed bool
}

// NewScope returns an open scope.
func NewScope() *Scope {
	return &Scope{}
}

func (sc *Scope) add(sub *Subscription) bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.closed {
		return false
	}
	sc.subs = append(sc.subs, sub)
	return true
}

// Close ends every subscription bound to the scope. Subsequent subscriptions
// bound to a closed scope are ended immediately.
func (sc *Scope) Close() {
	sc.mu.Lock()
	subs := sc.subs
	sc.subs = nil
	sc.closed = true
	sc.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

// Closed reports whether Close was called.
func (sc *Scope) Closed() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.closed
}
