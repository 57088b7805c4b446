package rchannel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChannelStateString(t *testing.T) {
	require.Equal(t, "opening", StateOpening.String())
	require.Equal(t, "active", StateActive.String())
	require.Equal(t, "closing", StateClosing.String())
	require.Equal(t, "closed", StateClosed.String())
	require.Equal(t, "unknown", ChannelState(99).String())
}

func TestFastStateTryTransition(t *testing.T) {
	s := newFastState(StateOpening)
	require.Equal(t, StateOpening, s.Load())
	require.True(t, s.IsActive())

	require.False(t, s.TryTransition(StateActive, StateClosing))
	require.True(t, s.TryTransition(StateOpening, StateActive))
	require.Equal(t, StateActive, s.Load())
	require.True(t, s.IsActive())

	require.True(t, s.TryTransition(StateActive, StateClosing))
	require.False(t, s.IsActive())

	require.True(t, s.TryTransition(StateClosing, StateClosed))
	require.Equal(t, StateClosed, s.Load())
	require.False(t, s.IsActive())
}

func TestFastStateStoreBypassesCAS(t *testing.T) {
	s := newFastState(StateOpening)
	s.Store(StateClosed)
	require.Equal(t, StateClosed, s.Load())
}
