// Package plane provides a minimal concrete implementation of the "control
// plane" that rchannel.Channel treats as an external collaborator: a
// low-rate, lossy signalling bus with a kernel-level wait primitive,
// carrying small fixed-size [Record] values between exactly two endpoints.
//
// It exists so the rest of this module has something real to send signals
// through in tests and examples; production callers may supply any type
// satisfying rchannel.Transmitter instead.
package plane

import (
	"context"
	"errors"
	"sync/atomic"
)

// RecordSize is the wire size of a control record as rchannel encodes it: a
// 32-bit signal tag, a 32-bit direction, an 8-byte ack field, and an 8-byte
// channel reference. See spec.md §6 ("Control-record wire layout").
const RecordSize = 24

// Record is the fixed-size wire form of one control-plane message.
// Callers encode/decode their logical fields (signal, direction, ack,
// channel reference) into this array; plane itself never interprets the bytes.
type Record [RecordSize]byte

// ErrClosed is returned by Send/Wait once the Plane has been closed.
var ErrClosed = errors.New("plane: closed")

// ErrFull is returned by Send when the inbox ring is saturated. The spec's
// control plane is explicitly lossy and self-healing (spec.md §1 Non-goals:
// "retransmission of lost user payloads" is out of scope, but the
// signalling layer itself may drop and rely on resignalling) — callers
// should treat this the same as any other failed signal: log it and move
// on, per spec.md §7.
var ErrFull = errors.New("plane: inbox full")

// Plane is one endpoint's control-plane inbox: a bounded MPSC ring of
// Records plus an OS wake primitive, so the owning goroutine can block in
// Wait until a peer's Send actually has something for it, instead of
// spinning.
type Plane struct {
	ring    *ring
	pending atomic.Bool
	closed  atomic.Bool
	ws      wakeSource
}

// wakeSource abstracts the OS-specific half of the wakeup: an eventfd on
// Linux, a self-pipe on Darwin, an I/O completion port on Windows, a plain
// channel everywhere else. See wake_unix.go, wake_windows.go and
// wake_other.go.
type wakeSource interface {
	Wake() error
	WaitForWake(ctx context.Context) error
	Close() error
}

// New creates a Plane with the default inbox capacity.
func New() (*Plane, error) {
	return NewSize(256)
}

// NewSize creates a Plane whose inbox ring holds at most capacity Records
// before Send starts returning ErrFull.
func NewSize(capacity int) (*Plane, error) {
	ws, err := newWakeSource()
	if err != nil {
		return nil, err
	}
	return &Plane{
		ring: newRing(capacity),
		ws:   ws,
	}, nil
}

// Send pushes rec onto this Plane's inbox and wakes the owning goroutine if
// it is blocked in Wait. Multiple concurrent senders may call Send; the
// pending flag coalesces their wakeups into a single kernel write, the same
// way the event loop this package is modelled on deduplicates wakeups
// (compare-and-swap a pending flag, only the winner pays for the syscall).
func (p *Plane) Send(rec Record) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if !p.ring.push(rec) {
		return ErrFull
	}
	if p.pending.CompareAndSwap(false, true) {
		return p.ws.Wake()
	}
	return nil
}

// Drain returns every Record currently queued, without blocking.
func (p *Plane) Drain() []Record {
	p.pending.Store(false)
	return p.ring.popAll()
}

// Wait blocks until at least one Record is available or ctx is done, then
// returns everything queued. Equivalent to "the owning thread's external
// wait on the control plane's readiness primitive" in spec.md §5.
func (p *Plane) Wait(ctx context.Context) ([]Record, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	if recs := p.ring.popAll(); len(recs) > 0 {
		p.pending.Store(false)
		return recs, nil
	}
	if err := p.ws.WaitForWake(ctx); err != nil {
		return nil, err
	}
	return p.Drain(), nil
}

// Close releases the Plane's OS resources. Pending records are discarded.
func (p *Plane) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.ws.Close()
}
