package promsink_test

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-persistedstate/pkg/activity"
	"github.com/goliatone/go-persistedstate/pkg/activity/promsink"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHookCountsEventsByStoreAndVerb(t *testing.T) {
	reg := prom.NewRegistry()
	hook := promsink.New(reg)
	hooks := activity.Hooks{hook}
	ctx := context.Background()

	events := []activity.Event{
		activity.BuildPersistedEvent(activity.StateEventInput{StoreID: "cart", Key: "cart", Op: "persist"}),
		activity.BuildPersistedEvent(activity.StateEventInput{StoreID: "cart", Key: "cart", Op: "persist"}),
		activity.BuildHydrateFailedEvent(activity.StateEventInput{StoreID: "cart", Key: "cart", Op: "hydrate", Err: errors.New("bad json")}),
	}
	for _, event := range events {
		if err := hooks.Notify(ctx, event); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}

	if got := testutil.ToFloat64(hook.Events().WithLabelValues("cart", activity.VerbPersisted)); got != 2 {
		t.Fatalf("expected 2 persisted events, got %v", got)
	}
	if got := testutil.ToFloat64(hook.Failures().WithLabelValues("cart", "hydrate")); got != 1 {
		t.Fatalf("expected 1 hydrate failure, got %v", got)
	}
	if got := testutil.ToFloat64(hook.Failures().WithLabelValues("cart", "persist")); got != 0 {
		t.Fatalf("expected no persist failures, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 2 {
		t.Fatalf("expected two metric families, got %d", len(families))
	}
}

func TestNilHookIsNoop(t *testing.T) {
	var hook *promsink.Hook
	if err := hook.Notify(context.Background(), activity.Event{Verb: activity.VerbPersisted}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
