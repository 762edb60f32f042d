package badgerstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreContract(t *testing.T) {
	s, err := OpenInMemory(WithPrefix("newsstate/"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, ok, err := s.GetItem("theme")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetItem("theme", `{"currentTheme":"dark"}`))
	require.NoError(t, s.SetItem("language", `{"currentLanguage":"en"}`))

	v, ok, err := s.GetItem("theme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"currentTheme":"dark"}`, v)

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"language", "theme"}, keys)

	require.NoError(t, s.RemoveItem("theme"))
	_, ok, err = s.GetItem("theme")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOnDiskReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.SetItem("user-store", `{"token":"abc"}`))
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	v, ok, err := s.GetItem("user-store")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"token":"abc"}`, v)
}
