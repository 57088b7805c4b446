package rchannel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterLookupUnregister(t *testing.T) {
	r := newRegistry()
	ch := &Channel{}
	id := r.register(ch)
	require.NotZero(t, id)

	got, ok := r.lookup(id)
	require.True(t, ok)
	require.Same(t, ch, got)

	r.unregister(id)
	_, ok = r.lookup(id)
	require.False(t, ok)
}

func TestRegistryIDsNeverReused(t *testing.T) {
	r := newRegistry()
	id1 := r.register(&Channel{})
	r.unregister(id1)
	id2 := r.register(&Channel{})
	require.NotEqual(t, id1, id2)
}

func TestRegistryLookupUnknownID(t *testing.T) {
	r := newRegistry()
	_, ok := r.lookup(12345)
	require.False(t, ok)
}
