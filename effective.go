package persist

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-persistedstate/projection"
	"github.com/goliatone/go-persistedstate/serializer"
	"github.com/goliatone/go-persistedstate/storage"
)

// layerSettings is the layered part of a config. Every field is nillable so an
// unset field falls through to the next weaker layer.
type layerSettings struct {
	Key        *string
	Storage    storage.Storage
	Serializer serializer.Serializer
	Debug      *bool
}

// Effective is the immutable configuration of one persistence session,
// resolved once when the store is created.
type Effective struct {
	StoreID string
	// Index is the position of the config in the store declaration.
	Index int
	// StoreKey is the key before the plugin key func or template ran.
	StoreKey string
	// Key is the final storage key.
	Key        string
	Storage    storage.Storage
	Serializer serializer.Serializer
	Debug      bool
	Projection projection.Projection
	When       string

	beforeHydrate Hook
	afterHydrate  Hook
	rule          *rule
	resolved      *Resolved[layerSettings]
}

// Source names the scope ("builtin", "global" or "store") that supplied field,
// one of Key, Storage, Serializer or Debug.
func (e *Effective) Source(field string) string {
	if e == nil {
		return ""
	}
	return e.resolved.Source(field)
}

// Trace reports what every layer held for field.
func (e *Effective) Trace(field string) (Trace, error) {
	if e == nil {
		return Trace{}, fmt.Errorf("%w: %s", ErrPathNotFound, field)
	}
	_, trace, err := e.resolved.ResolveWithTrace(field)
	return trace, err
}

// Provenance lists the winning scope of every layered field.
func (e *Effective) Provenance() ([]Provenance, error) {
	if e == nil {
		return nil, nil
	}
	return e.resolved.FlattenWithProvenance()
}

// HasHooks reports whether the config declares hydration hooks.
func (e *Effective) HasHooks() bool {
	return e != nil && (e.beforeHydrate != nil || e.afterHydrate != nil)
}

func (p *Plugin) resolve(storeID string, index int, cfg Config) (*Effective, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	storeLayer := layerSettings{Debug: cfg.Debug}
	if cfg.KeyFunc != nil || cfg.Key != "" {
		key := cfg.storeKey(storeID)
		storeLayer.Key = &key
	}
	switch {
	case cfg.Storage != nil:
		storeLayer.Storage = cfg.Storage
	case strings.TrimSpace(cfg.StorageName) != "":
		s, err := openStorage(cfg.StorageName)
		if err != nil {
			return nil, err
		}
		storeLayer.Storage = s
	}
	switch {
	case cfg.Serializer != nil:
		storeLayer.Serializer = cfg.Serializer
	case strings.TrimSpace(cfg.SerializerName) != "":
		s, err := lookupSerializer(cfg.SerializerName)
		if err != nil {
			return nil, err
		}
		storeLayer.Serializer = s
	}

	globalLayer, err := p.globalLayer()
	if err != nil {
		return nil, err
	}

	defaultKey := storeID
	builtinLayer := layerSettings{
		Key:        &defaultKey,
		Storage:    storage.Local(),
		Serializer: serializer.JSON(),
		Debug:      Bool(false),
	}

	resolved, err := BuiltinGlobalStore(storeID, index, builtinLayer, globalLayer, storeLayer)
	if err != nil {
		return nil, err
	}
	settings := resolved.Value

	eff := &Effective{
		StoreID:       storeID,
		Index:         index,
		StoreKey:      *settings.Key,
		Key:           p.cfg.finalKey(*settings.Key),
		Storage:       settings.Storage,
		Serializer:    settings.Serializer,
		Debug:         *settings.Debug,
		Projection:    projection.Compile(cfg.Pick, cfg.Omit),
		When:          strings.TrimSpace(cfg.When),
		beforeHydrate: cfg.BeforeHydrate,
		afterHydrate:  cfg.AfterHydrate,
		resolved:      resolved,
	}
	if eff.When != "" {
		scope := resolved.layers[0].Scope
		r, err := p.compileRule(storeID, eff.When, scope)
		if err != nil {
			return nil, err
		}
		eff.rule = r
	}
	return eff, nil
}

// globalLayer builds the plugin-wide layer. Named backends are opened once.
func (p *Plugin) globalLayer() (layerSettings, error) {
	p.globalOnce.Do(func() {
		layer := layerSettings{
			Storage:    p.cfg.storage,
			Serializer: p.cfg.serializer,
		}
		if p.cfg.debug != nil {
			layer.Debug = Bool(*p.cfg.debug)
		}
		if p.cfg.storageName != "" {
			layer.Storage, p.globalErr = openStorage(p.cfg.storageName)
			if p.globalErr != nil {
				return
			}
		}
		if p.cfg.serializerName != "" {
			layer.Serializer, p.globalErr = lookupSerializer(p.cfg.serializerName)
			if p.globalErr != nil {
				return
			}
		}
		p.global = layer
	})
	return p.global, p.globalErr
}

func openStorage(name string) (storage.Storage, error) {
	s, err := storage.Open(strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownStorage, err)
	}
	return s, nil
}

func lookupSerializer(name string) (serializer.Serializer, error) {
	s, err := serializer.Lookup(strings.TrimSpace(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownSerializer, err)
	}
	return s, nil
}
