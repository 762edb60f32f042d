package storage

import (
	"sort"
	"sync"
)

// Memory keeps payloads in a map guarded by a mutex. The zero value is not
// usable; construct it with NewMemory.
type Memory struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemory returns an empty, instance-scoped memory backend.
func NewMemory() *Memory {
	return &Memory{items: map[string]string{}}
}

var (
	local   = NewMemory()
	session = NewMemory()
)

// Local returns the process-wide memory backend. Every caller shares the same
// instance, so it outlives individual stores and registries. It is the
// default storage when none is configured.
func Local() *Memory {
	return local
}

// Session returns a process-wide backend distinct from Local, used for the
// "sessionStorage" registry name.
func Session() *Memory {
	return session
}

func (m *Memory) GetItem(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *Memory) SetItem(key, value string) error {
	m.mu.Lock()
	m.items[key] = value
	m.mu.Unlock()
	return nil
}

func (m *Memory) RemoveItem(key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// Keys returns the stored keys in sorted order.
func (m *Memory) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Clear drops every key.
func (m *Memory) Clear() {
	m.mu.Lock()
	m.items = map[string]string{}
	m.mu.Unlock()
}

var (
	_ Storage = (*Memory)(nil)
	_ Remover = (*Memory)(nil)
	_ Lister  = (*Memory)(nil)
)
