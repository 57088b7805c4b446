package rchannel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEMAConvergesTowardSteadyInput(t *testing.T) {
	v := uint64(0)
	for i := 0; i < 200; i++ {
		v = ema(v, 800)
	}
	// Integer truncation stops the average IALPHA-1 below a steady input:
	// ema(793, 800) = (800 + 7*793) / 8 = 793.
	require.Equal(t, uint64(793), v)
}

func TestEMAWeightsRecentSampleByInverseAlpha(t *testing.T) {
	got := ema(0, 8)
	require.Equal(t, uint64(1), got)
}

func TestControlRecordEncodeDecodeRoundTrip(t *testing.T) {
	rec := ControlRecord{
		Signal:    SignalDataToResponder,
		Direction: DirectionToResponder,
		Ack:       1234,
		ChannelID: 987654321,
	}
	got := DecodeControlRecord(rec.Encode())
	require.Equal(t, rec, got)
}

func TestControlRecordEncodeDecodeCloseDirection(t *testing.T) {
	rec := ControlRecord{
		Signal:    SignalClose,
		Direction: DirectionToRequestor,
		Ack:       uint64(DirectionToResponder),
		ChannelID: 1,
	}
	got := DecodeControlRecord(rec.Encode())
	require.Equal(t, rec, got)
}

func TestSignalString(t *testing.T) {
	require.Equal(t, "data-to-responder", SignalDataToResponder.String())
	require.Equal(t, "responder-sleeping", SignalResponderSleeping.String())
	require.Contains(t, Signal(99).String(), "99")
}

func TestEventString(t *testing.T) {
	require.Equal(t, "data-ready-requestor", EventDataReadyRequestor.String())
	require.Contains(t, Event(99).String(), "99")
}

type fakeTransmitter struct {
	sent []ControlRecord
	err  error
}

func (f *fakeTransmitter) Send(rec ControlRecord) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, rec)
	return nil
}

func TestPlaneTransmitterSendsEncodedRecord(t *testing.T) {
	p, err := newTestPlane(t)
	require.NoError(t, err)
	defer p.Close()

	tx := PlaneTransmitter{Plane: p}
	rec := ControlRecord{Signal: SignalOpen, Direction: DirectionToResponder, ChannelID: 42}
	require.NoError(t, tx.Send(rec))

	got := p.Drain()
	require.Len(t, got, 1)
	require.Equal(t, rec, DecodeControlRecord(got[0]))
}
