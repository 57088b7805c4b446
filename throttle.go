package rchannel

import (
	"time"

	"github.com/joeycumines/go-catrate"
)

// signalThrottle is the optional rate limit over and above the coalescing
// predicate in spec.md §4.6: even when the predicate says a signal is due,
// a configured throttle can still defer it. Off (nil limiter) by default —
// see [WithSignalThrottle].
type signalThrottle struct {
	limiter *catrate.Limiter
}

func newSignalThrottle(rates map[time.Duration]int) *signalThrottle {
	if len(rates) == 0 {
		return &signalThrottle{}
	}
	return &signalThrottle{limiter: catrate.NewLimiter(rates)}
}

// allow reports whether a signal for category (the channel ID) may be sent
// right now. With no configured rates this always returns true: the
// throttle is purely additive, never a substitute for the coalescing
// predicate itself.
func (t *signalThrottle) allow(channelID uint64) bool {
	if t == nil || t.limiter == nil {
		return true
	}
	_, ok := t.limiter.Allow(channelID)
	return ok
}
