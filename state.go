package rchannel

import (
	"sync/atomic"
)

// ChannelState is the lifecycle of a [Channel], from creation through the
// close handshake described in spec.md §4.10.
//
// State machine:
//
//	StateOpening (0) → StateActive (1)     [Create, before it sends OPEN]
//	StateActive (1)  → StateClosing (2)    [SignalResponderClose]
//	StateClosing (2) → StateClosed (3)     [ResponderAckClose]
//
// StateOpening and StateActive both accept traffic; the distinction exists
// so a channel that is signalled closed before ever becoming active still
// has a well-defined prior state for TryTransition's CAS to target.
type ChannelState uint64

const (
	// StateOpening is the state a freshly created Channel starts in.
	StateOpening ChannelState = iota
	// StateActive is a channel that has completed (or skipped) the open
	// handshake and is exchanging requests/replies normally.
	StateActive
	// StateClosing is a channel whose responder side has signalled close
	// but whose requestor has not yet acknowledged it.
	StateClosing
	// StateClosed is a channel that has completed the close handshake.
	// Sends against a StateClosed channel fail immediately (spec.md §4.5).
	StateClosed
)

func (s ChannelState) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// fastState is a lock-free state machine with cache-line padding to avoid
// false sharing with neighbouring fields in [Channel]. Pure atomic CAS, no
// per-transition validation — callers are expected to only attempt the
// transitions the state machine above documents as legal.
type fastState struct { // betteralign:ignore
	_ [sizeOfCacheLine]byte
	v atomic.Uint64
	_ [sizeOfCacheLine - sizeOfAtomicUint64]byte
}

func newFastState(initial ChannelState) *fastState {
	s := &fastState{}
	s.v.Store(uint64(initial))
	return s
}

func (s *fastState) Load() ChannelState {
	return ChannelState(s.v.Load())
}

func (s *fastState) Store(state ChannelState) {
	s.v.Store(uint64(state))
}

// TryTransition attempts to atomically move from `from` to `to`. Returns
// false if the state machine was not in `from` at the time of the call.
func (s *fastState) TryTransition(from, to ChannelState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

// IsActive reports whether the channel may still exchange traffic.
func (s *fastState) IsActive() bool {
	state := s.Load()
	return state == StateOpening || state == StateActive
}
