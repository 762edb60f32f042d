// Package natskv persists payloads in a NATS JetStream key/value bucket.
package natskv

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// keys outside this alphabet are rejected by JetStream
var validKey = regexp.MustCompile(`^[-/_=a-zA-Z0-9]+(\.[-/_=a-zA-Z0-9]+)*$`)

const encodedPrefix = "b64."

// Store is a JetStream KeyValue backed storage backend.
type Store struct {
	kv      jetstream.KeyValue
	ctx     context.Context
	timeout time.Duration
	conn    *nats.Conn
}

// Option configures a Store.
type Option func(*Store)

// WithContext sets the parent context of every request.
func WithContext(ctx context.Context) Option {
	return func(s *Store) {
		s.ctx = ctx
	}
}

// WithTimeout bounds every request. Defaults to two seconds.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

// New wraps an existing bucket handle.
func New(kv jetstream.KeyValue, opts ...Option) (*Store, error) {
	if kv == nil {
		return nil, errors.New("natskv: bucket is required")
	}
	s := &Store{kv: kv, ctx: context.Background(), timeout: 2 * time.Second}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Open returns a Store over bucket, creating the bucket when it does not
// exist yet.
func Open(ctx context.Context, js jetstream.JetStream, bucket string, opts ...Option) (*Store, error) {
	kv, err := js.KeyValue(ctx, bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      bucket,
			Description: "Persisted store state",
			History:     1,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("natskv: bucket %q: %w", bucket, err)
	}
	return New(kv, opts...)
}

// Connect dials url and opens bucket. Close releases the connection.
func Connect(ctx context.Context, url, bucket string, opts ...Option) (*Store, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("natskv: connect %q: %w", url, err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("natskv: jetstream: %w", err)
	}
	s, err := Open(ctx, js, bucket, opts...)
	if err != nil {
		conn.Close()
		return nil, err
	}
	s.conn = conn
	return s, nil
}

// Close releases the connection opened by Connect. It is a no-op for stores
// built with New or Open.
func (s *Store) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}

func (s *Store) GetItem(key string) (string, bool, error) {
	ctx, cancel := s.requestContext()
	defer cancel()

	entry, err := s.kv.Get(ctx, EncodeKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("natskv: get %q: %w", key, err)
	}
	return string(entry.Value()), true, nil
}

func (s *Store) SetItem(key, value string) error {
	ctx, cancel := s.requestContext()
	defer cancel()

	if _, err := s.kv.Put(ctx, EncodeKey(key), []byte(value)); err != nil {
		return fmt.Errorf("natskv: put %q: %w", key, err)
	}
	return nil
}

func (s *Store) RemoveItem(key string) error {
	ctx, cancel := s.requestContext()
	defer cancel()

	err := s.kv.Delete(ctx, EncodeKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("natskv: delete %q: %w", key, err)
	}
	return nil
}

func (s *Store) requestContext() (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(s.ctx)
	}
	return context.WithTimeout(s.ctx, s.timeout)
}

// EncodeKey maps a storage key onto the JetStream key alphabet. Keys that are
// already valid are used verbatim; anything else is base64url encoded behind
// a "b64." prefix.
func EncodeKey(key string) string {
	if validKey.MatchString(key) && !strings.HasPrefix(key, encodedPrefix) {
		return key
	}
	return encodedPrefix + base64.RawURLEncoding.EncodeToString([]byte(key))
}
