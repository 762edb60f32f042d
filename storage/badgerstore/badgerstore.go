// Package badgerstore persists payloads in a Badger key/value database.
package badgerstore

import (
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// Store is a Badger-backed storage backend.
type Store struct {
	db     *badger.DB
	prefix []byte
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix namespaces every key, so several applications can share one
// database.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = []byte(prefix)
	}
}

// Open opens (or creates) a database at path.
func Open(path string, opts ...Option) (*Store, error) {
	bopts := badger.DefaultOptions(path)
	bopts.Logger = nil
	return open(bopts, opts)
}

// OpenInMemory opens a database that lives only in memory.
func OpenInMemory(opts ...Option) (*Store, error) {
	bopts := badger.DefaultOptions("").WithInMemory(true)
	bopts.Logger = nil
	return open(bopts, opts)
}

func open(bopts badger.Options, opts []Option) (*Store, error) {
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open: %w", err)
	}
	s := &Store{db: db}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetItem(key string) (string, bool, error) {
	txn := s.db.NewTransaction(false)
	defer txn.Discard()

	item, err := txn.Get(s.key(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("badgerstore: get %q: %w", key, err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", false, fmt.Errorf("badgerstore: read %q: %w", key, err)
	}
	return string(val), true, nil
}

func (s *Store) SetItem(key, value string) error {
	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	if err := txn.Set(s.key(key), []byte(value)); err != nil {
		return fmt.Errorf("badgerstore: set %q: %w", key, err)
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("badgerstore: commit %q: %w", key, err)
	}
	return nil
}

func (s *Store) RemoveItem(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.key(key))
	})
	if err != nil {
		return fmt.Errorf("badgerstore: delete %q: %w", key, err)
	}
	return nil
}

// Keys lists the keys under the configured prefix, in byte order.
func (s *Store) Keys() ([]string, error) {
	txn := s.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	keys := []string{}
	for it.Seek(s.prefix); it.ValidForPrefix(s.prefix); it.Next() {
		k := it.Item().KeyCopy(nil)
		keys = append(keys, string(k[len(s.prefix):]))
	}
	return keys, nil
}

func (s *Store) key(k string) []byte {
	out := make([]byte, 0, len(s.prefix)+len(k))
	out = append(out, s.prefix...)
	return append(out, k...)
}
