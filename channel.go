package rchannel

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/rchannel/plane"
)

// Endpoint holds one side's complete bookkeeping for a [Channel] — the
// queue its thread produces onto, plus every counter and timestamp that
// thread's own activity touches. A Channel owns exactly two: ToResponder is
// the requestor's endpoint (it produces requests, and owns all of the
// requestor's state, including what it has observed of replies);
// ToRequestor is the responder's endpoint, symmetrically.
//
// The wrinkle: a thread's own endpoint is not the queue it reads from. The
// requestor pops replies from ToRequestor.queue, but every bit of
// bookkeeping that pop touches — ack, lastReadOther, numOutstanding, the
// recv callback — lives on ToResponder, because that's the requestor's own
// endpoint, single-thread-owned by it end to end. So RecvReply/RecvRequest
// pop from one endpoint's queue but do all of their writes through
// endpoint.peer. Grounded directly on fr_channel_recv_reply/
// fr_channel_recv_request in the original FreeRADIUS channel.c, which do
// exactly this (see DESIGN.md).
//
// Field ownership: sequence, sequenceAtLastSignal, lastWrite,
// lastSentSignal, messageInterval, mustSignal, ack, lastReadOther, and
// numOutstanding are all written only by the endpoint's own thread (never
// the peer's). theirViewOfMySequence is written by that same thread too:
// RecvReply/RecvRequest copy into it the Ack the peer stamped on each
// record they pop. It is held in an atomic.
type Endpoint struct {
	queue       *AtomicQueue[MessageRecord]
	transmitter Transmitter
	direction   Direction
	channelID   uint64

	// peer is the *other* endpoint of the same Channel. RecvReply and
	// RecvRequest pop rec from this endpoint's queue but then do all
	// bookkeeping and the recv callback against peer — see the type doc.
	peer *Endpoint

	recvMu sync.Mutex
	recv   func(*MessageRecord)
	recvUctx any

	uctxMu sync.Mutex
	uctx   any

	// written only by this endpoint's own thread, on send
	sequence             uint64
	sequenceAtLastSignal uint64
	lastWrite            int64
	lastSentSignal       int64
	messageInterval      uint64
	mustSignal           bool
	numOutstanding       int64

	// written only by this endpoint's own thread, on receive (via peer)
	ack           uint64
	lastReadOther int64

	// the peer's view of sequence, taken from the Ack on records popped via
	// peer; written and read by this endpoint's own thread
	theirViewOfMySequence atomic.Uint64

	Stats EndpointStats
}

func newEndpoint(t Transmitter, dir Direction, channelID uint64) *Endpoint {
	return &Endpoint{
		queue:       NewAtomicQueue[MessageRecord](QueueCapacity),
		transmitter: t,
		direction:   dir,
		channelID:   channelID,
	}
}

func (e *Endpoint) setRecv(cb func(*MessageRecord), uctx any) {
	e.recvMu.Lock()
	defer e.recvMu.Unlock()
	e.recv = cb
	e.recvUctx = uctx
}

func (e *Endpoint) callRecv(rec *MessageRecord) {
	e.recvMu.Lock()
	cb := e.recv
	e.recvMu.Unlock()
	if cb != nil {
		cb(rec)
	}
}

// UctxGet returns the endpoint's opaque user context.
func (e *Endpoint) UctxGet() any {
	e.uctxMu.Lock()
	defer e.uctxMu.Unlock()
	return e.uctx
}

// UctxAdd sets the endpoint's opaque user context.
func (e *Endpoint) UctxAdd(v any) {
	e.uctxMu.Lock()
	defer e.uctxMu.Unlock()
	e.uctx = v
}

// Channel is a full-duplex conduit between a requestor and a responder,
// built from two opposed [Endpoint] values: ToResponder carries requests,
// ToRequestor carries replies. See the package doc for the wakeup
// coalescing scheme that makes this more than a pair of queues with a
// condition variable.
type Channel struct {
	id uint64

	ToResponder *Endpoint
	ToRequestor *Endpoint

	active     atomic.Bool
	sameThread bool
	state      *fastState

	cpuTime        atomic.Int64
	processingTime atomic.Uint64

	throttle *signalThrottle
	logger   *Logger

	latency *LatencyStats // nil unless WithMetrics(true)
}

// Create establishes a new Channel. responderInbox is the transmitter that
// reaches the responder side's control-plane wait primitive (every
// DATA_TO_RESPONDER/OPEN signal is sent through it); requestorInbox is the
// reverse, reaching the requestor side (DATA_TO_REQUESTOR/DATA_DONE_
// RESPONDER/RESPONDER_SLEEPING/CLOSE). When sameThread is true, sends
// degrade to direct callback invocation and no queue or control-plane
// traffic is ever generated (spec.md §4.2 step 1, §9 "same-thread
// optimisation"); otherwise Create sends OPEN through responderInbox
// before returning.
func Create(responderInbox, requestorInbox Transmitter, sameThread bool, opts ...ChannelOption) (*Channel, error) {
	cfg, err := resolveChannelOptions(opts)
	if err != nil {
		return nil, err
	}

	ch := &Channel{
		sameThread: sameThread,
		state:      newFastState(StateOpening),
		logger:     cfg.logger,
	}
	ch.active.Store(true)
	ch.id = defaultRegistry.register(ch)

	ch.ToResponder = newEndpoint(responderInbox, DirectionToResponder, ch.id)
	ch.ToRequestor = newEndpoint(requestorInbox, DirectionToRequestor, ch.id)
	ch.ToResponder.peer = ch.ToRequestor
	ch.ToRequestor.peer = ch.ToResponder

	if cfg.metricsEnabled {
		ch.latency = &LatencyStats{}
	}
	if len(cfg.throttleRates) > 0 {
		ch.throttle = newSignalThrottle(cfg.throttleRates)
	}

	now := time.Now().UnixNano()
	ch.ToResponder.lastWrite = now
	ch.ToRequestor.lastWrite = now
	ch.state.Store(StateActive)

	if !sameThread {
		if err := ch.SignalOpen(); err != nil {
			logDropped(ch.logger, ch.id, SignalOpen, err)
		}
	}

	return ch, nil
}

// ID is this channel's process-wide identifier, the value carried as the
// channel reference in every ControlRecord it sends.
func (ch *Channel) ID() uint64 { return ch.id }

// IsActive reports whether the channel still accepts new traffic.
func (ch *Channel) IsActive() bool { return ch.active.Load() }

// SetRecvReply registers the callback invoked on the requestor thread as
// each reply is popped by [Channel.RecvReply]. It lives on ToResponder
// because that's the requestor's own bookkeeping endpoint, even though the
// wire data physically arrives via ToRequestor's queue.
func (ch *Channel) SetRecvReply(cb func(*MessageRecord), uctx any) {
	ch.ToResponder.setRecv(cb, uctx)
}

// SetRecvRequest registers the callback invoked on the responder thread as
// each request is popped by [Channel.RecvRequest]. It lives on ToRequestor,
// the responder's own bookkeeping endpoint.
func (ch *Channel) SetRecvRequest(cb func(*MessageRecord), uctx any) {
	ch.ToRequestor.setRecv(cb, uctx)
}

// ResponderUctxGet/ResponderUctxAdd manage the opaque context attached to
// the responder's endpoint (ToRequestor, since that's what the responder
// produces and therefore "owns" for bookkeeping purposes).
func (ch *Channel) ResponderUctxGet() any  { return ch.ToRequestor.UctxGet() }
func (ch *Channel) ResponderUctxAdd(v any) { ch.ToRequestor.UctxAdd(v) }
func (ch *Channel) RequestorUctxGet() any  { return ch.ToResponder.UctxGet() }
func (ch *Channel) RequestorUctxAdd(v any) { ch.ToResponder.UctxAdd(v) }

// CPUTime and ProcessingTime report the cumulative/smoothed reply
// statistics the responder donates on every reply (spec.md §3).
func (ch *Channel) CPUTime() time.Duration        { return time.Duration(ch.cpuTime.Load()) }
func (ch *Channel) ProcessingTime() time.Duration { return time.Duration(ch.processingTime.Load()) }

// Latency returns the channel's reply-latency percentile snapshot: for each
// reply, the time from SendReply stamping it to RecvReply popping it (the
// request leg and the responder's processing are not included). Only meaningful
// if the channel was created with WithMetrics(true); otherwise every field
// reads zero.
func (ch *Channel) Latency() LatencySnapshot {
	if ch.latency == nil {
		return LatencySnapshot{}
	}
	return ch.latency.Snapshot()
}

// SendRequest is the requestor→responder send path (spec.md §4.2).
func (ch *Channel) SendRequest(rec *MessageRecord) error {
	if !ch.active.Load() {
		return ErrChannelInactive
	}
	if ch.sameThread {
		ch.ToRequestor.callRecv(rec)
		return nil
	}

	ep := ch.ToResponder

	now := time.Now()
	rec.When = now.UnixNano()
	rec.Sequence = ep.sequence + 1
	rec.Ack = ep.ack

	if !ep.queue.Push(rec) {
		for ch.RecvReply() {
		}
		return ErrQueueFull
	}

	sample := uint64(0)
	if ep.lastWrite != 0 {
		sample = uint64(now.UnixNano() - ep.lastWrite)
	}
	ep.messageInterval = ema(ep.messageInterval, sample)
	ep.lastWrite = now.UnixNano()
	ep.sequence = rec.Sequence
	ep.numOutstanding++
	ep.Stats.NumOutstanding.Store(ep.numOutstanding)
	ep.Stats.NumPackets.Add(1)

	ch.maybeSignal(ep, SignalDataToResponder, now)
	return nil
}

// RecvReply pops and delivers one reply (spec.md §4.3). Callers loop until
// it returns false.
func (ch *Channel) RecvReply() bool {
	ep := ch.ToRequestor
	peer := ep.peer // ToResponder: the requestor's own bookkeeping endpoint

	rec, ok := ep.queue.Pop()
	if !ok {
		return false
	}
	if rec.Sequence <= peer.ack {
		panic(fmt.Errorf("%w: reply sequence %d did not advance past ack %d", ErrSequenceRegression, rec.Sequence, peer.ack))
	}
	if rec.Sequence > peer.sequence {
		panic(fmt.Errorf("%w: reply sequence %d exceeds requests sent %d", ErrSequenceRegression, rec.Sequence, peer.sequence))
	}

	now := time.Now()
	peer.numOutstanding--
	peer.Stats.NumOutstanding.Store(peer.numOutstanding)
	peer.ack = rec.Sequence
	peer.theirViewOfMySequence.Store(rec.Ack)
	peer.lastReadOther = now.UnixNano()

	if rec.ProcessingTime > 0 {
		ch.processingTime.Store(ema(ch.processingTime.Load(), rec.ProcessingTime))
	}
	ch.cpuTime.Store(int64(rec.CPUTime))

	if ch.latency != nil && rec.When != 0 {
		ch.latency.Record(now.Sub(time.Unix(0, rec.When)))
	}

	peer.callRecv(rec)
	return true
}

// SendReply is the responder→requestor send path (spec.md §4.5).
func (ch *Channel) SendReply(rec *MessageRecord) error {
	if !ch.active.Load() {
		return ErrChannelInactive
	}
	if ch.sameThread {
		ch.ToResponder.callRecv(rec)
		return nil
	}

	ep := ch.ToRequestor

	if ep.numOutstanding <= 0 {
		return ErrOutstandingUnderflow
	}

	now := time.Now()
	rec.When = now.UnixNano()
	rec.Sequence = ep.sequence + 1
	rec.Ack = ep.ack

	if !ep.queue.Push(rec) {
		for ch.RecvRequest() {
		}
		return ErrQueueFull
	}

	sample := uint64(0)
	if ep.lastWrite != 0 {
		sample = uint64(now.UnixNano() - ep.lastWrite)
	}
	ep.messageInterval = ema(ep.messageInterval, sample)
	ep.lastWrite = now.UnixNano()
	ep.sequence = rec.Sequence
	ep.Stats.NumPackets.Add(1)
	ep.numOutstanding--
	ep.Stats.NumOutstanding.Store(ep.numOutstanding)

	for ch.RecvRequest() {
	}

	if ep.numOutstanding == 0 {
		if err := ch.emit(ep, SignalDataDoneResponder, now); err != nil {
			logDropped(ch.logger, ch.id, SignalDataDoneResponder, err)
		}
	} else {
		ch.maybeSignal(ep, SignalDataToRequestor, now)
	}
	return nil
}

// RecvRequest pops and delivers one request (spec.md §4.4). Callers loop
// until it returns false.
func (ch *Channel) RecvRequest() bool {
	ep := ch.ToResponder
	peer := ep.peer // ToRequestor: the responder's own bookkeeping endpoint

	rec, ok := ep.queue.Pop()
	if !ok {
		return false
	}
	if rec.Sequence <= peer.ack {
		panic(fmt.Errorf("%w: request sequence %d did not advance past ack %d", ErrSequenceRegression, rec.Sequence, peer.ack))
	}
	if rec.Sequence < peer.sequence {
		panic(fmt.Errorf("%w: request sequence %d precedes replies already sent %d", ErrSequenceRegression, rec.Sequence, peer.sequence))
	}

	now := time.Now()
	peer.ack = rec.Sequence
	peer.numOutstanding++
	peer.Stats.NumOutstanding.Store(peer.numOutstanding)
	peer.theirViewOfMySequence.Store(rec.Ack)
	peer.lastReadOther = now.UnixNano()

	peer.callRecv(rec)
	return true
}

// NullReply lets the responder drop an inbound request without replying,
// while still advancing the outbound sequence so no gap appears in the
// numbering the peer uses for its own accounting (spec.md §4.8).
func (ch *Channel) NullReply() {
	ch.ToRequestor.sequence++
}

// ResponderSleeping signals that the responder has drained all available
// work and is about to block. It is a no-op unless the responder still has
// outstanding (unreplied) requests, in which case it emits
// RESPONDER_SLEEPING so the requestor knows to force its next signal
// (spec.md §4.9 — the "no lost wakeup" property).
func (ch *Channel) ResponderSleeping() error {
	ep := ch.ToRequestor
	if ep.numOutstanding == 0 {
		return nil
	}
	return ch.emit(ep, SignalResponderSleeping, time.Now())
}

// SignalOpen unicasts OPEN to the responder side only, handing over the
// channel reference (spec.md §4.10).
func (ch *Channel) SignalOpen() error {
	return ch.ToResponder.transmitter.Send(ControlRecord{
		Signal:    SignalOpen,
		Direction: DirectionToResponder,
		ChannelID: ch.id,
	})
}

// SignalResponderClose marks the channel inactive and notifies the
// requestor side with CLOSE, carrying DirectionToResponder in the record's
// Ack field as the original does (spec.md §4.10, §9 open question (b)). The
// record's Direction field holds the sending endpoint's direction
// (DirectionToRequestor), as it does on every control record.
func (ch *Channel) SignalResponderClose() error {
	ch.active.Store(false)
	ch.state.Store(StateClosing)
	return ch.ToRequestor.transmitter.Send(ControlRecord{
		Signal:    SignalClose,
		Direction: DirectionToRequestor,
		Ack:       uint64(DirectionToResponder),
		ChannelID: ch.id,
	})
}

// ResponderAckClose is the peer's acknowledgement of a CLOSE it received;
// the channel is safe to destroy only once both sides have reached this
// state (spec.md §4.10).
func (ch *Channel) ResponderAckClose() error {
	ch.active.Store(false)
	ch.state.Store(StateClosed)
	defaultRegistry.unregister(ch.id)
	return nil
}

// ServiceMessage decodes one control-plane record and classifies it into
// the Event the owning thread should act on, dispatching it to whichever
// Channel the record's ChannelID names (spec.md §4.7, §6).
func ServiceMessage(now time.Time, raw plane.Record) (*Channel, Event, error) {
	rec := DecodeControlRecord(raw)
	ch, ok := defaultRegistry.lookup(rec.ChannelID)
	if !ok {
		return nil, EventError, ErrUnknownChannel
	}
	ev, err := ch.serviceMessage(rec, now)
	return ch, ev, err
}

func (ch *Channel) serviceMessage(rec ControlRecord, now time.Time) (Event, error) {
	switch rec.Signal {
	case SignalError:
		return EventError, nil

	case SignalDataToResponder:
		ch.ToResponder.Stats.NumKevents.Add(1)
		return EventDataReadyResponder, nil

	case SignalDataToRequestor:
		ch.ToRequestor.Stats.NumKevents.Add(1)
		return EventDataReadyRequestor, nil

	case SignalOpen:
		return EventOpen, nil

	case SignalClose:
		return EventClose, nil

	case SignalDataDoneResponder, SignalResponderSleeping:
		ep := ch.ToResponder
		ep.mustSignal = true
		ep.Stats.NumKevents.Add(1)

		ev := EventNoop
		if rec.Signal == SignalDataDoneResponder {
			ev = EventDataReadyRequestor
		}

		// The peer went idle; if its ack is stale against what we've
		// actually produced, our prior signal was missed — resignal now
		// rather than waiting for the next send (spec.md §4.7).
		if rec.Ack < ep.sequence {
			ep.Stats.NumResignals.Add(1)
			if err := ch.emit(ep, SignalDataToResponder, now); err != nil {
				return ev, err
			}
		}
		return ev, nil

	default:
		return EventError, fmt.Errorf("rchannel: malformed control record: unknown signal %d", uint32(rec.Signal))
	}
}

// maybeSignal applies the coalescing predicate of spec.md §4.6 and emits
// sig on ep if, and only if, the predicate says the peer might otherwise
// miss the data that was just enqueued.
func (ch *Channel) maybeSignal(ep *Endpoint, sig Signal, now time.Time) {
	if ep.mustSignal {
		if err := ch.emit(ep, sig, now); err != nil {
			logDropped(ch.logger, ch.id, sig, err)
		}
		return
	}

	if ep.sequenceAtLastSignal > ep.theirViewOfMySequence.Load() {
		// A prior signal is still unconsumed from the peer's perspective.
		return
	}

	if ch.throttle != nil && !ch.throttle.allow(ch.id) {
		return
	}

	if err := ch.emit(ep, sig, now); err != nil {
		logDropped(ch.logger, ch.id, sig, err)
	}
}

// emit unconditionally sends sig on ep and updates the producer-side
// signalling bookkeeping. A failed send is not rolled back: the data queue
// has already been updated, so the peer will eventually discover it either
// by polling or via a later signal (spec.md §7).
func (ch *Channel) emit(ep *Endpoint, sig Signal, now time.Time) error {
	rec := ControlRecord{
		Signal:    sig,
		Direction: ep.direction,
		Ack:       ep.ack,
		ChannelID: ch.id,
	}
	err := ep.transmitter.Send(rec)

	ep.sequenceAtLastSignal = ep.sequence
	ep.Stats.NumSignals.Add(1)
	ep.lastSentSignal = now.UnixNano()
	ep.mustSignal = false

	logSignal(ch.logger, "emit", ch.id, sig, ep.sequence, rec.Ack)
	return err
}

// DebugDump writes a human-readable summary of both endpoints' counters,
// the same role fr_channel_debug plays in the implementation this package
// is modelled on.
func (ch *Channel) DebugDump(w io.Writer) error {
	req := ch.ToResponder.Stats.Snapshot()
	rep := ch.ToRequestor.Stats.Snapshot()
	_, err := fmt.Fprintf(w,
		"channel %d: active=%t state=%s\n"+
			"  to_responder: seq=%d ack=%d signals=%d resignals=%d kevents=%d packets=%d outstanding=%d\n"+
			"  to_requestor: seq=%d ack=%d signals=%d resignals=%d kevents=%d packets=%d outstanding=%d\n",
		ch.id, ch.active.Load(), ch.state.Load(),
		ch.ToResponder.sequence, ch.ToResponder.ack, req.NumSignals, req.NumResignals, req.NumKevents, req.NumPackets, req.NumOutstanding,
		ch.ToRequestor.sequence, ch.ToRequestor.ack, rep.NumSignals, rep.NumResignals, rep.NumKevents, rep.NumPackets, rep.NumOutstanding,
	)
	return err
}
