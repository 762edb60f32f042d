package persist

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/goliatone/go-persistedstate/pkg/activity"
	"github.com/goliatone/go-persistedstate/store"
)

// LogMessage is the message of every diagnostic record written for a
// contained failure.
const LogMessage = "[persistedstate]"

// Session binds one effective config to one store. Failures never escape
// Hydrate or Persist as panics; they are returned as *Error, logged when the
// config has Debug set and reported to activity hooks.
type Session struct {
	eff      *Effective
	registry *store.Registry
	store    *store.Store
	options  map[string]any
	logger   *slog.Logger
	emitter  *activity.Emitter

	mu  sync.Mutex
	sub *store.Subscription
}

// Effective returns the resolved configuration of the session.
func (s *Session) Effective() *Effective {
	return s.eff
}

// Subscription returns the detached mutation subscription, nil before attach.
func (s *Session) Subscription() *store.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub
}

func (s *Session) attach(sub *store.Subscription) {
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()
}

// Hydrate restores the stored slice into the store. Hooks run only when
// runHooks is set; a failing BeforeHydrate skips the read and AfterHydrate.
func (s *Session) Hydrate(runHooks bool) (err error) {
	stage := ErrHook
	defer func() {
		if rec := recover(); rec != nil {
			err = recovered(stage, rec)
		}
		err = s.report(OpHydrate, err)
	}()

	hookCtx := HydrateContext{
		Registry: s.registry,
		Store:    s.store,
		Key:      s.eff.Key,
		Options:  s.options,
	}
	if runHooks {
		if err := callHook(s.eff.beforeHydrate, hookCtx); err != nil {
			return err
		}
	}

	stage = ErrStorageRead
	raw, ok, err := s.eff.Storage.GetItem(s.eff.Key)
	if err != nil {
		return wrapStage(ErrStorageRead, err)
	}
	if ok && raw != "" {
		stage = ErrDecode
		patch, err := s.decode(raw)
		if err != nil {
			return err
		}
		stage = ErrMalformed
		s.store.Patch(patch)
	}

	stage = ErrHook
	if runHooks {
		if err := callHook(s.eff.afterHydrate, hookCtx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) decode(raw string) (map[string]any, error) {
	value, err := s.eff.Serializer.Deserialize(raw)
	if err != nil {
		return nil, wrapStage(ErrDecode, err)
	}
	state, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: stored value is %T, want an object", ErrMalformed, value)
	}
	projected, ok := s.eff.Projection.Apply(state).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: projection did not yield an object", ErrMalformed)
	}
	return projected, nil
}

// Persist writes the projection of state under the session key unless the
// When rule rejects it.
func (s *Session) Persist(state map[string]any) (err error) {
	skipped := false
	stage := ErrMalformed
	defer func() {
		if rec := recover(); rec != nil {
			err = recovered(stage, rec)
		}
		if skipped && err == nil {
			return
		}
		err = s.report(OpPersist, err)
	}()

	projected := s.eff.Projection.Apply(state)
	if s.eff.rule != nil {
		stage = ErrRule
		allowed, err := s.eff.rule.allow(projected, s.eff.Key)
		if err != nil {
			return err
		}
		if !allowed {
			skipped = true
			return nil
		}
	}

	stage = ErrEncode
	payload, err := s.eff.Serializer.Serialize(projected)
	if err != nil {
		return wrapStage(ErrEncode, err)
	}
	stage = ErrStorageWrite
	if err := s.eff.Storage.SetItem(s.eff.Key, payload); err != nil {
		return wrapStage(ErrStorageWrite, err)
	}
	return nil
}

func callHook(hook Hook, ctx HydrateContext) (err error) {
	if hook == nil {
		return nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = recovered(ErrHook, rec)
		}
	}()
	return wrapStage(ErrHook, hook(ctx))
}

// report wraps err, logs it when debugging and notifies activity hooks.
func (s *Session) report(op string, err error) error {
	if err != nil {
		err = &Error{Op: op, Store: s.eff.StoreID, Key: s.eff.Key, Err: err}
		if s.eff.Debug {
			s.logger.Error(LogMessage,
				"op", op,
				"store", s.eff.StoreID,
				"key", s.eff.Key,
				"error", err,
			)
		}
	}
	s.emit(op, err)
	return err
}

func (s *Session) emit(op string, err error) {
	if !s.emitter.Enabled() {
		return
	}
	input := activity.StateEventInput{
		StoreID: s.eff.StoreID,
		Key:     s.eff.Key,
		Index:   s.eff.Index,
		Op:      op,
		Err:     err,
	}
	if trace, traceErr := s.eff.Trace("Key"); traceErr == nil {
		if winner, ok := trace.Winner(); ok {
			input.Scope = activity.ScopeContext{
				Name:       winner.Scope.Name,
				Label:      winner.Scope.Label,
				Priority:   winner.Scope.Priority,
				Metadata:   winner.Scope.Metadata,
				SnapshotID: winner.SnapshotID,
			}
		}
	}
	if emitErr := s.notify(input); emitErr != nil && s.eff.Debug {
		s.logger.Warn(LogMessage, "op", op, "store", s.eff.StoreID, "activity_error", emitErr)
	}
}

// notify runs the activity hooks; a panicking hook is reported like a
// failing one.
func (s *Session) notify(input activity.StateEventInput) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = recovered(ErrHook, rec)
		}
	}()
	return s.emitter.Emit(context.Background(), activity.BuildStateEvent(input))
}

// sessionGroup fans the store's manual hydrate/persist out to every session
// in declaration order.
type sessionGroup struct {
	store    *store.Store
	sessions []*Session
}

func (g *sessionGroup) Hydrate(runHooks bool) {
	for _, s := range g.sessions {
		_ = s.Hydrate(runHooks)
	}
}

func (g *sessionGroup) Persist() {
	state := g.store.State()
	for _, s := range g.sessions {
		_ = s.Persist(state)
	}
}
