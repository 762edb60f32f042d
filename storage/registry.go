package storage

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"

	"github.com/goliatone/go-persistedstate/storage/cookie"
)

// Factory creates a backend for the registry.
type Factory func() (Storage, error)

// ErrUnknown is returned by Open for names that were never registered.
var ErrUnknown = errors.New("storage: unknown backend")

// Built-in registry names.
const (
	LocalStorage   = "localStorage"
	SessionStorage = "sessionStorage"
	Cookies        = "cookies"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		LocalStorage:   func() (Storage, error) { return Local(), nil },
		SessionStorage: func() (Storage, error) { return Session(), nil },
		Cookies:        defaultCookies,
	}

	cookieOnce    sync.Once
	cookieBackend *cookie.Storage
	cookieErr     error
)

// Register makes factory available to Open under name, replacing any previous
// registration.
func Register(name string, factory Factory) {
	if name == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[name] = factory
	registryMu.Unlock()
}

// Open creates the backend registered under name.
func Open(name string) (Storage, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	s, err := factory()
	if err != nil {
		return nil, fmt.Errorf("storage: open %q: %w", name, err)
	}
	return s, nil
}

// Names lists registered backend names in sorted order.
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

// defaultCookies backs the "cookies" name with a process-wide cookie jar
// scoped to http://localhost/.
func defaultCookies() (Storage, error) {
	cookieOnce.Do(func() {
		u, _ := url.Parse("http://localhost/")
		cookieBackend, cookieErr = cookie.NewJar(u)
	})
	if cookieErr != nil {
		return nil, cookieErr
	}
	return cookieBackend, nil
}
