package rchannel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultLoggerIsASingleton(t *testing.T) {
	a := defaultLogger()
	b := defaultLogger()
	require.Same(t, a, b)
}

func TestLogSignalAndLogDroppedDoNotPanic(t *testing.T) {
	l := defaultLogger()
	require.NotPanics(t, func() {
		logSignal(l, "test", 1, SignalDataToResponder, 5, 4)
		logDropped(l, 1, SignalDataToResponder, ErrQueueFull)
	})
}
