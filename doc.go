// Package rchannel provides a bidirectional, thread-safe messaging channel
// between a requestor goroutine (typically network I/O) and a responder
// goroutine (typically a worker), with an adaptive signalling protocol that
// coalesces cross-goroutine wakeups at high message rates.
//
// # Architecture
//
// A [Channel] owns two opposed [Endpoint] values: TO_RESPONDER carries
// requests from the requestor to the responder, TO_REQUESTOR carries
// replies back. Each endpoint pairs a bounded SPSC lock-free queue (the
// bulk data path, see [AtomicQueue]) with a handle to the peer's control
// plane (the low-rate signalling path, see the plane subpackage and
// [Transmitter]). Sequence numbers and acknowledgements travel with every
// message and are used by the signalling layer to decide whether a wakeup
// can safely be skipped.
//
// # Wakeup coalescing
//
// At sustained throughput the per-signal cost of crossing into the kernel
// dominates. [Channel.SendRequest] and [Channel.SendReply] emit a
// data-ready signal only when either a sticky must-signal flag is set (the
// peer told us it went idle), or the peer's last-observed sequence shows it
// has caught up with the previous signal; while a prior signal is still
// unconsumed, further sends skip signalling. See [Channel.maybeSignal] for
// the full predicate. Independently, SendReply always emits
// DATA_DONE_RESPONDER when it leaves no request outstanding.
//
// # Thread safety
//
// Each endpoint's producer-side fields are written only by that endpoint's
// producer goroutine; the receiver-side fields only by the consumer
// goroutine. theirViewOfMySequence is an atomic, but each endpoint's copy is
// written and read by that endpoint's own goroutine, from the Ack carried on
// records it pops. The channel's active flag is an atomic shared by both
// sides. All other "shared" state is in fact partitioned by convention,
// exactly as in the original channel this package reimplements.
//
// # Same-thread optimisation
//
// A [Channel] created with sameThread=true degrades every send to a direct
// callback invocation: no queue is touched and no signal is ever emitted.
// This preserves API uniformity for single-goroutine configurations.
package rchannel
