package rchannel

import (
	"encoding/binary"
	"fmt"

	"github.com/joeycumines/rchannel/plane"
)

// IALPHA is the inverse smoothing factor used by every exponential moving
// average this package keeps (message interval, processing time):
// new = (sample + (IALPHA-1)*old) / IALPHA. Lower values track recent
// samples more aggressively; 8 matches spec.md §4.3's "recent history
// dominated but single outliers don't whipsaw the estimate" requirement.
const IALPHA = 8

// ema folds sample into old using the fixed-point moving average from
// spec.md §4.3.
func ema(old, sample uint64) uint64 {
	return (sample + (IALPHA-1)*old) / IALPHA
}

// Signal is the tag carried by every [ControlRecord] sent across the
// control plane. It identifies why the sender is signalling, not the
// payload the signal is about — the payload itself (if any) already sat in
// an [AtomicQueue] before the signal was ever sent. See spec.md §6.
type Signal uint32

const (
	SignalError Signal = iota
	SignalDataToResponder
	SignalDataToRequestor
	SignalOpen
	SignalClose
	SignalDataDoneResponder
	SignalResponderSleeping
)

func (s Signal) String() string {
	switch s {
	case SignalError:
		return "error"
	case SignalDataToResponder:
		return "data-to-responder"
	case SignalDataToRequestor:
		return "data-to-requestor"
	case SignalOpen:
		return "open"
	case SignalClose:
		return "close"
	case SignalDataDoneResponder:
		return "data-done-responder"
	case SignalResponderSleeping:
		return "responder-sleeping"
	default:
		return fmt.Sprintf("signal(%d)", uint32(s))
	}
}

// Event is what [ServiceMessage] reports back to its caller after
// interpreting a received [ControlRecord]: the thing the owning loop should
// actually do, as distinct from the wire-level Signal that triggered it.
// See spec.md §4.7.
type Event uint32

const (
	EventNoop Event = iota
	EventError
	EventDataReadyResponder
	EventDataReadyRequestor
	EventOpen
	EventClose
)

func (e Event) String() string {
	switch e {
	case EventNoop:
		return "noop"
	case EventError:
		return "error"
	case EventDataReadyResponder:
		return "data-ready-responder"
	case EventDataReadyRequestor:
		return "data-ready-requestor"
	case EventOpen:
		return "open"
	case EventClose:
		return "close"
	default:
		return fmt.Sprintf("event(%d)", uint32(e))
	}
}

// Direction identifies which of a Channel's two endpoints a control record
// concerns. spec.md §9 open question (b) flags that the original FreeRADIUS
// implementation overloads its "ack" field to double as a direction when
// the signal is CLOSE; this is the "dedicated field" fix it recommends.
type Direction uint32

const (
	DirectionToResponder Direction = iota
	DirectionToRequestor
)

// ControlRecord is the logical, decoded form of one control-plane message.
// Encode/Decode convert it to/from the fixed-size wire [plane.Record] that
// actually crosses the control plane.
type ControlRecord struct {
	Signal    Signal
	Direction Direction
	Ack       uint64
	ChannelID uint64
}

// Encode serializes rec into a fixed-size plane.Record: 4 bytes signal, 4
// bytes direction, 8 bytes ack, 8 bytes channel ID, little-endian.
func (rec ControlRecord) Encode() plane.Record {
	var out plane.Record
	binary.LittleEndian.PutUint32(out[0:4], uint32(rec.Signal))
	binary.LittleEndian.PutUint32(out[4:8], uint32(rec.Direction))
	binary.LittleEndian.PutUint64(out[8:16], rec.Ack)
	binary.LittleEndian.PutUint64(out[16:24], rec.ChannelID)
	return out
}

// DecodeControlRecord is the inverse of Encode.
func DecodeControlRecord(raw plane.Record) ControlRecord {
	return ControlRecord{
		Signal:    Signal(binary.LittleEndian.Uint32(raw[0:4])),
		Direction: Direction(binary.LittleEndian.Uint32(raw[4:8])),
		Ack:       binary.LittleEndian.Uint64(raw[8:16]),
		ChannelID: binary.LittleEndian.Uint64(raw[16:24]),
	}
}

// MessageRecord is the envelope every request and reply travels in through
// an [AtomicQueue]. It carries the accounting fields spec.md §4.2-§4.4
// require alongside the caller's payload: sequence number for ordering
// assertions, the sender's ack of the peer's last-seen sequence, and the
// timestamps needed to compute RTT/processing-time EMAs.
type MessageRecord struct {
	Sequence       uint64
	Ack            uint64
	When           int64 // unix nanoseconds, set by the sender
	ProcessingTime uint64
	CPUTime        uint64
	Payload        any
}

// Transmitter is the abstraction [Channel] sends control signals through.
// plane.Plane is the reference implementation; any type satisfying this
// interface may be substituted (spec.md §1: the control plane is treated
// as an external collaborator, not part of this package's core scope).
type Transmitter interface {
	Send(rec ControlRecord) error
}

// PlaneTransmitter adapts a *plane.Plane to the Transmitter interface.
type PlaneTransmitter struct {
	Plane *plane.Plane
}

func (t PlaneTransmitter) Send(rec ControlRecord) error {
	return t.Plane.Send(rec.Encode())
}
