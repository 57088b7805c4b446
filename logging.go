// logging.go wires rchannel's diagnostic output through logiface, the same
// logging facade the rest of the corpus this package borrows from uses, so
// a Channel's logs compose with whatever backend (zerolog, logrus, slog)
// the embedding program already has configured.
package rchannel

import (
	"os"
	"sync"

	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"
)

// Logger is the type every Channel logs through. It's a type alias rather
// than a new interface so callers can hand in any logiface.Logger[E],
// already configured with whatever backend, level, and fields they like.
type Logger = logiface.Logger[logiface.Event]

var (
	defaultLoggerOnce sync.Once
	defaultLoggerVal  *Logger
)

// defaultLogger lazily builds a stderr zerolog-backed logger at
// LevelInformational, used by any Channel created without an explicit
// [WithLogger] option.
func defaultLogger() *Logger {
	defaultLoggerOnce.Do(func() {
		z := zerolog.New(os.Stderr).With().Timestamp().Logger()
		defaultLoggerVal = izerolog.L.New(
			izerolog.L.WithZerolog(z),
			izerolog.L.WithLevel(izerolog.L.LevelInformational()),
		).Logger()
	})
	return defaultLoggerVal
}

// logSignal records an emitted or received control signal at trace level,
// with the fields a reader would need to correlate it against a debug
// dump: which endpoint, which signal, the sequence/ack pair in play.
func logSignal(l *Logger, category string, id uint64, sig Signal, seq, ack uint64) {
	l.Trace().
		Str("category", category).
		Uint64("channel", id).
		Str("signal", sig.String()).
		Uint64("sequence", seq).
		Uint64("ack", ack).
		Log("control signal")
}

// logDropped records a signal that could not be sent (e.g. plane.ErrFull)
// at warning level — this is never fatal (spec.md §7: a missed signal is
// recovered by the next successful one, or by service_message's
// resignalling), but is worth surfacing.
func logDropped(l *Logger, id uint64, sig Signal, err error) {
	l.Warning().
		Uint64("channel", id).
		Str("signal", sig.String()).
		Err(err).
		Log("dropped control signal")
}
