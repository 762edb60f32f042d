package persist

import "github.com/goliatone/go-persistedstate/pkg/activity"

// ActivityChannel is the channel stamped on persistence events.
const ActivityChannel = activity.DefaultChannel

// Activity verbs emitted by sessions.
const (
	VerbHydrated      = activity.VerbHydrated
	VerbHydrateFailed = activity.VerbHydrateFailed
	VerbPersisted     = activity.VerbPersisted
	VerbPersistFailed = activity.VerbPersistFailed
)

// ActivityObjectType is the object type of persistence events; the object id
// is the storage key.
const ActivityObjectType = activity.ObjectTypeState

// WithActivityHooks attaches activity hooks notified after every hydrate and
// persist. Hooks are cloned and nil entries dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *pluginConfig) {
		cfg.activityHooks = normalized
	}
}

// ActivityHooks returns a copy of the hooks configured on the plugin.
func (p *Plugin) ActivityHooks() activity.Hooks {
	if p == nil {
		return nil
	}
	return cloneActivityHooks(p.cfg.activityHooks)
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}

func (cfg pluginConfig) emitter() *activity.Emitter {
	return activity.NewEmitter(cfg.activityHooks, activity.Config{
		Enabled: true,
		Channel: ActivityChannel,
	})
}
