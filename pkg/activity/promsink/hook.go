// Package promsink counts persistence activity events in Prometheus.
package promsink

import (
	"context"
	"sync"

	"github.com/goliatone/go-persistedstate/pkg/activity"
	prom "github.com/prometheus/client_golang/prometheus"
)

// Hook counts every event by store and verb. Failed events also bump a
// per-store failure counter.
type Hook struct {
	once     sync.Once
	events   *prom.CounterVec
	failures *prom.CounterVec
}

// New constructs the hook and registers its collectors on reg. A nil reg gets
// a private registry.
func New(reg *prom.Registry) *Hook {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	h := &Hook{}
	h.once.Do(func() {
		h.events = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "persistedstate",
			Name:      "events_total",
			Help:      "Persistence events by store and verb",
		}, []string{"store", "verb"})
		h.failures = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "persistedstate",
			Name:      "failures_total",
			Help:      "Contained hydrate and persist failures by store",
		}, []string{"store", "op"})
		reg.MustRegister(h.events, h.failures)
	})
	return h
}

// Notify implements activity.ActivityHook.
func (h *Hook) Notify(_ context.Context, event activity.Event) error {
	if h == nil || h.events == nil {
		return nil
	}
	store := event.DefinitionCode
	h.events.WithLabelValues(store, event.Verb).Inc()
	switch event.Verb {
	case activity.VerbHydrateFailed:
		h.failures.WithLabelValues(store, "hydrate").Inc()
	case activity.VerbPersistFailed:
		h.failures.WithLabelValues(store, "persist").Inc()
	}
	return nil
}

// Events returns the event counter for direct inspection.
func (h *Hook) Events() *prom.CounterVec {
	return h.events
}

// Failures returns the failure counter for direct inspection.
func (h *Hook) Failures() *prom.CounterVec {
	return h.failures
}
