package natskv

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEntry struct {
	jetstream.KeyValueEntry
	value []byte
}

func (e fakeEntry) Value() []byte { return e.value }

// fakeBucket implements the methods Store uses; the embedded interface
// panics on anything else.
type fakeBucket struct {
	jetstream.KeyValue

	mu   sync.Mutex
	data map[string][]byte
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{data: map[string][]byte{}}
}

func (b *fakeBucket) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return fakeEntry{value: v}, nil
}

func (b *fakeBucket) Put(_ context.Context, key string, value []byte) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
	return uint64(len(b.data)), nil
}

func (b *fakeBucket) Delete(_ context.Context, key string, _ ...jetstream.KVDeleteOpt) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.data[key]; !ok {
		return jetstream.ErrKeyNotFound
	}
	delete(b.data, key)
	return nil
}

func TestStoreContract(t *testing.T) {
	bucket := newFakeBucket()
	s, err := New(bucket, WithTimeout(time.Second))
	require.NoError(t, err)

	runContract(t, s)

	require.NoError(t, s.SetItem("__hot:user", "x"))
	_, stored := bucket.data[EncodeKey("__hot:user")]
	assert.True(t, stored)
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestEncodeKey(t *testing.T) {
	cases := map[string]string{
		"user-store":     "user-store",
		"news_favorites": "news_favorites",
		"a.b":            "a.b",
		"has space":      "b64.aGFzIHNwYWNl",
		"":               "b64.",
		".leading":       "b64.LmxlYWRpbmc",
		"b64.x":          "b64.YjY0Lng",
	}
	for in, want := range cases {
		assert.Equal(t, want, EncodeKey(in), "key %q", in)
	}
}

func TestStoreAgainstNATS(t *testing.T) {
	url := os.Getenv("NEWSSTATE_TEST_NATS_URL")
	if url == "" {
		t.Skip("NEWSSTATE_TEST_NATS_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := Connect(ctx, url, "newsstate_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	runContract(t, s)
}

func runContract(t *testing.T, s *Store) {
	t.Helper()

	_, ok, err := s.GetItem("theme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetItem("theme", `{"currentTheme":"dark"}`))
	v, ok, err := s.GetItem("theme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"currentTheme":"dark"}`, v)

	require.NoError(t, s.RemoveItem("theme"))
	require.NoError(t, s.RemoveItem("theme"))
	_, ok, err = s.GetItem("theme")
	require.NoError(t, err)
	assert.False(t, ok)
}
