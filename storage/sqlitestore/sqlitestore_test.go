package sqlitestore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreContract(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, ok, err := s.GetItem("news_favorites")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetItem("news_favorites", `{"favorites":[]}`))
	require.NoError(t, s.SetItem("news_favorites", `{"favorites":[{"id":"1"}]}`))
	require.NoError(t, s.SetItem("news_history", `{"history":[]}`))

	v, ok, err := s.GetItem("news_favorites")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"favorites":[{"id":"1"}]}`, v)

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"news_favorites", "news_history"}, keys)

	require.NoError(t, s.RemoveItem("news_favorites"))
	_, ok, err = s.GetItem("news_favorites")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCustomTableOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := Open(path, WithTable("news_state"))
	require.NoError(t, err)
	require.NoError(t, s.SetItem("theme", "dark"))
	require.NoError(t, s.Close())

	s, err = Open(path, WithTable("news_state"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	v, ok, err := s.GetItem("theme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "dark", v)
}

func TestRejectsUnsafeTableName(t *testing.T) {
	_, err := Open(":memory:", WithTable("state; DROP TABLE x"))
	require.Error(t, err)
}
