// Package storage defines the key/value contract persisted state is written
// to, plus in-memory backends and a registry of named backends.
//
// Backends backed by a network service or a database live in sub-packages
// (filestore, badgerstore, sqlitestore, dynamostore, natskv, cookie) and
// satisfy Storage structurally.
package storage

import (
	"errors"
	"fmt"
)

// Storage reads and writes string payloads by key. GetItem reports ok=false
// when nothing is stored under key; a missing key is not an error.
type Storage interface {
	GetItem(key string) (value string, ok bool, err error)
	SetItem(key, value string) error
}

// Remover is implemented by backends that can delete a key.
type Remover interface {
	RemoveItem(key string) error
}

// Lister is implemented by backends that can enumerate their keys.
type Lister interface {
	Keys() ([]string, error)
}

// ErrUnsupported is returned by the helpers below when a backend lacks the
// optional capability.
var ErrUnsupported = errors.New("storage: operation not supported by backend")

// RemoveItem deletes key from s when s implements Remover.
func RemoveItem(s Storage, key string) error {
	r, ok := s.(Remover)
	if !ok {
		return fmt.Errorf("%w: remove (%T)", ErrUnsupported, s)
	}
	return r.RemoveItem(key)
}

// Keys lists the keys held by s when s implements Lister.
func Keys(s Storage) ([]string, error) {
	l, ok := s.(Lister)
	if !ok {
		return nil, fmt.Errorf("%w: keys (%T)", ErrUnsupported, s)
	}
	return l.Keys()
}
