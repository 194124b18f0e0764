package statestore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory()

	_, ok, err := m.Load("missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.Save("k", []byte("v1")))
	v, ok, err := m.Load("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), v)

	require.NoError(t, m.Save("k", []byte("v2")))
	v, _, _ = m.Load("k")
	require.Equal(t, []byte("v2"), v)

	require.NoError(t, m.Delete("k"))
	_, ok, _ = m.Load("k")
	require.False(t, ok)

	// Deleting an absent key is a no-op.
	require.NoError(t, m.Delete("never-saved"))
}

func TestKVStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenKVStore(dir)
	require.NoError(t, err)
	defer store.Close()

	_, ok, err := store.Load("missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Save("reattach:abcd", []byte("{\"a\":1}")))
	v, ok, err := store.Load("reattach:abcd")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("{\"a\":1}"), v)

	require.NoError(t, store.Delete("reattach:abcd"))
	_, ok, _ = store.Load("reattach:abcd")
	require.False(t, ok)
}
