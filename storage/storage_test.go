package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readOnly struct{}

func (readOnly) GetItem(string) (string, bool, error) { return "", false, nil }
func (readOnly) SetItem(string, string) error         { return errors.New("read only") }

func TestMemoryContract(t *testing.T) {
	m := NewMemory()

	_, ok, err := m.GetItem("news_history")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.SetItem("news_history", `{"history":[]}`))
	require.NoError(t, m.SetItem("", "empty key"))

	v, ok, err := m.GetItem("news_history")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"history":[]}`, v)

	keys, err := Keys(m)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "news_history"}, keys)

	require.NoError(t, RemoveItem(m, "news_history"))
	_, ok, _ = m.GetItem("news_history")
	assert.False(t, ok)
	assert.Equal(t, 1, m.Len())

	m.Clear()
	assert.Equal(t, 0, m.Len())
}

func TestMemoryInstancesAreIsolated(t *testing.T) {
	a, b := NewMemory(), NewMemory()
	require.NoError(t, a.SetItem("k", "v"))
	_, ok, _ := b.GetItem("k")
	assert.False(t, ok)
}

func TestLocalIsShared(t *testing.T) {
	t.Cleanup(Local().Clear)

	require.NoError(t, Local().SetItem("shared", "1"))
	s, err := Open(LocalStorage)
	require.NoError(t, err)

	v, ok, err := s.GetItem("shared")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", v)

	session, err := Open(SessionStorage)
	require.NoError(t, err)
	_, ok, _ = session.GetItem("shared")
	assert.False(t, ok, "session storage must not see local keys")
}

func TestOptionalCapabilities(t *testing.T) {
	err := RemoveItem(readOnly{}, "k")
	require.ErrorIs(t, err, ErrUnsupported)

	_, err = Keys(readOnly{})
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestRegistry(t *testing.T) {
	_, err := Open("indexedDB")
	require.ErrorIs(t, err, ErrUnknown)

	custom := NewMemory()
	Register("custom", func() (Storage, error) { return custom, nil })
	got, err := Open("custom")
	require.NoError(t, err)
	assert.Same(t, custom, got)

	Register("broken", func() (Storage, error) { return nil, errors.New("boom") })
	_, err = Open("broken")
	require.ErrorContains(t, err, "boom")

	assert.Subset(t, Names(), []string{Cookies, LocalStorage, SessionStorage, "custom"})
}

func TestCookiesBuiltin(t *testing.T) {
	first, err := Open(Cookies)
	require.NoError(t, err)
	second, err := Open(Cookies)
	require.NoError(t, err)

	require.NoError(t, first.SetItem("theme", `{"currentTheme":"dark"}`))
	v, ok, err := second.GetItem("theme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"currentTheme":"dark"}`, v)
	require.NoError(t, RemoveItem(first, "theme"))
}
