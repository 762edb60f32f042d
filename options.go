package persist

import (
	"log/slog"
	"strings"

	"github.com/goliatone/go-persistedstate/serializer"
	"github.com/goliatone/go-persistedstate/storage"
)

// KeyPlaceholder is replaced by the store-level key in WithKeyTemplate.
const KeyPlaceholder = "%id"

// WithStorage sets the default storage for every persisted store.
func WithStorage(s storage.Storage) Option {
	return func(cfg *pluginConfig) {
		cfg.storage = s
		cfg.storageName = ""
	}
}

// WithStorageName selects the default storage from the storage registry
// (storage.LocalStorage, storage.SessionStorage, storage.Cookies or any
// registered backend). The backend is opened on first use.
func WithStorageName(name string) Option {
	return func(cfg *pluginConfig) {
		cfg.storageName = strings.TrimSpace(name)
		cfg.storage = nil
	}
}

// WithSerializer sets the default serializer.
func WithSerializer(s serializer.Serializer) Option {
	return func(cfg *pluginConfig) {
		cfg.serializer = s
		cfg.serializerName = ""
	}
}

// WithSerializerName selects the default serializer by registry name.
func WithSerializerName(name string) Option {
	return func(cfg *pluginConfig) {
		cfg.serializerName = strings.TrimSpace(name)
		cfg.serializer = nil
	}
}

// WithKeyFunc transforms every store-level key into the final storage key.
// It replaces any template set with WithKeyTemplate.
func WithKeyFunc(fn func(key string) string) Option {
	return func(cfg *pluginConfig) {
		cfg.keyFunc = fn
		cfg.keyTemplate = ""
	}
}

// WithKeyTemplate derives the final key by substituting KeyPlaceholder in
// template, e.g. "app:%id".
func WithKeyTemplate(template string) Option {
	return func(cfg *pluginConfig) {
		cfg.keyTemplate = template
		cfg.keyFunc = nil
	}
}

// WithDebug enables diagnostic logging of contained failures.
func WithDebug(debug bool) Option {
	return func(cfg *pluginConfig) {
		cfg.debug = Bool(debug)
	}
}

// WithAuto persists every store that does not declare Options["persist"].
func WithAuto(auto bool) Option {
	return func(cfg *pluginConfig) {
		cfg.auto = auto
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *pluginConfig) {
		cfg.logger = logger
	}
}

// WithEvaluator configures the evaluator used for When rules. The default is
// the expr evaluator.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *pluginConfig) {
		cfg.evaluator = e
	}
}

// Bool returns a pointer to v, for Config.Debug.
func Bool(v bool) *bool {
	return &v
}

func (cfg pluginConfig) finalKey(key string) string {
	if cfg.keyFunc != nil {
		return cfg.keyFunc(key)
	}
	if cfg.keyTemplate != "" {
		return strings.ReplaceAll(cfg.keyTemplate, KeyPlaceholder, key)
	}
	return key
}
