package persist

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-persistedstate/serializer"
	"github.com/goliatone/go-persistedstate/storage"
	"github.com/goliatone/go-persistedstate/store"
)

// Config declares how one slice of a store is persisted. Zero fields fall
// back to the plugin options, then to the builtin defaults.
type Config struct {
	// Key is the store-level key; the store id when empty.
	Key string
	// KeyFunc derives the store-level key from the store id and wins over Key.
	KeyFunc func(storeID string) string

	Storage     storage.Storage
	StorageName string

	Serializer     serializer.Serializer
	SerializerName string

	// Pick and Omit are dotted paths. A nil Pick persists the whole state; an
	// empty non-nil Pick persists nothing but an empty object.
	Pick []string
	Omit []string

	Debug *bool

	BeforeHydrate Hook
	AfterHydrate  Hook

	// When is an optional rule evaluated against the projected state before
	// each write. A false result skips the write.
	When string
}

// Hook runs around hydration. Returning an error aborts the rest of the
// hydration for that config.
type Hook func(HydrateContext) error

// HydrateContext is handed to hydration hooks.
type HydrateContext struct {
	Registry *store.Registry
	Store    *store.Store
	// Key is the final storage key.
	Key string
	// Options are the store definition options.
	Options map[string]any
}

// Validate reports conflicting fields.
func (c Config) Validate() error {
	if c.Storage != nil && strings.TrimSpace(c.StorageName) != "" {
		return fmt.Errorf("%w: config sets both Storage and StorageName", ErrMalformed)
	}
	if c.Serializer != nil && strings.TrimSpace(c.SerializerName) != "" {
		return fmt.Errorf("%w: config sets both Serializer and SerializerName", ErrMalformed)
	}
	return nil
}

// storeKey resolves the store-level key for storeID.
func (c Config) storeKey(storeID string) string {
	if c.KeyFunc != nil {
		return c.KeyFunc(storeID)
	}
	if c.Key != "" {
		return c.Key
	}
	return storeID
}
