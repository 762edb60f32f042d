// Package serializer converts state trees to and from the string payloads
// kept in storage.
package serializer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Serializer encodes a state tree into a storage payload and back. Decoded
// objects are map[string]any and sequences []any.
type Serializer interface {
	Serialize(value any) (string, error)
	Deserialize(payload string) (any, error)
}

// ErrUnknown is returned by Lookup for names that were never registered.
var ErrUnknown = errors.New("serializer: unknown serializer")

// Funcs adapts a pair of functions to Serializer.
type Funcs struct {
	Encode func(value any) (string, error)
	Decode func(payload string) (any, error)
}

// Serialize calls Encode.
func (f Funcs) Serialize(value any) (string, error) {
	if f.Encode == nil {
		return "", errors.New("serializer: funcs: missing encode function")
	}
	return f.Encode(value)
}

// Deserialize calls Decode.
func (f Funcs) Deserialize(payload string) (any, error) {
	if f.Decode == nil {
		return nil, errors.New("serializer: funcs: missing decode function")
	}
	return f.Decode(payload)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]func() Serializer{
		"json":  func() Serializer { return JSON() },
		"yaml":  func() Serializer { return YAML() },
		"cbor":  func() Serializer { return CBOR() },
		"proto": func() Serializer { return Proto() },
	}
)

// Register makes a serializer factory available to Lookup under name.
// Registering an existing name replaces it.
func Register(name string, factory func() Serializer) {
	if factory == nil {
		return
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = factory
}

// Lookup returns a new serializer registered under name (case-insensitive).
func Lookup(name string) (Serializer, error) {
	registryMu.RLock()
	factory, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknown, name)
	}
	return factory(), nil
}

// Names lists the registered serializer names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
