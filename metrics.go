package rchannel

import (
	"sync"
	"sync/atomic"
	"time"
)

// EndpointStats mirrors the per-endpoint debug counters fr_channel_debug
// prints in the original implementation this package is modelled on:
// signal/resignal/kevent counts, packet counts, and outstanding-request
// depth. All fields are plain atomics. NumKevents is incremented by the
// goroutine that services the control record (for DATA_TO_RESPONDER and
// DATA_TO_REQUESTOR that is the peer of the endpoint's owner); the other
// fields are written by the endpoint's owner. Readers (DebugDump, tests)
// only ever observe a snapshot.
type EndpointStats struct {
	NumSignals     atomic.Uint64
	NumResignals   atomic.Uint64
	NumKevents     atomic.Uint64
	NumPackets     atomic.Uint64
	NumOutstanding atomic.Int64
}

// Snapshot is a point-in-time copy of EndpointStats, safe to retain and
// compare after the fact.
type Snapshot struct {
	NumSignals     uint64
	NumResignals   uint64
	NumKevents     uint64
	NumPackets     uint64
	NumOutstanding int64
}

func (s *EndpointStats) Snapshot() Snapshot {
	return Snapshot{
		NumSignals:     s.NumSignals.Load(),
		NumResignals:   s.NumResignals.Load(),
		NumKevents:     s.NumKevents.Load(),
		NumPackets:     s.NumPackets.Load(),
		NumOutstanding: s.NumOutstanding.Load(),
	}
}

// LatencyStats tracks the distribution of a Channel's reply latencies (the
// time from SendReply stamping a reply to RecvReply popping it; the request
// leg is not included) using the P-Square streaming quantile estimator (psquare.go),
// the same O(1)-per-sample approach the teacher uses for its own latency
// percentiles. Unlike a sorted-sample buffer, memory use here is constant
// regardless of request volume.
type LatencyStats struct {
	mu      sync.Mutex
	psquare *pSquareMultiQuantile
	count   int
	sum     time.Duration
	max     time.Duration
}

// Record folds one observed latency into the running estimate.
func (l *LatencyStats) Record(rtt time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.psquare == nil {
		l.psquare = newPSquareMultiQuantile(0.50, 0.90, 0.95, 0.99)
	}
	l.psquare.Update(float64(rtt))
	l.count++
	l.sum += rtt
	if rtt > l.max {
		l.max = rtt
	}
}

// LatencySnapshot is a consistent, point-in-time read of LatencyStats.
type LatencySnapshot struct {
	Count int
	Mean  time.Duration
	Max   time.Duration
	P50   time.Duration
	P90   time.Duration
	P95   time.Duration
	P99   time.Duration
}

func (l *LatencyStats) Snapshot() LatencySnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := LatencySnapshot{Count: l.count, Max: l.max}
	if l.count == 0 {
		return out
	}
	out.Mean = l.sum / time.Duration(l.count)
	if l.psquare != nil {
		out.P50 = time.Duration(l.psquare.Quantile(0))
		out.P90 = time.Duration(l.psquare.Quantile(1))
		out.P95 = time.Duration(l.psquare.Quantile(2))
		out.P99 = time.Duration(l.psquare.Quantile(3))
	}
	return out
}
