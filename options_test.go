package rchannel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveChannelOptionsDefaults(t *testing.T) {
	cfg, err := resolveChannelOptions(nil)
	require.NoError(t, err)
	require.NotNil(t, cfg.logger)
	require.False(t, cfg.metricsEnabled)
	require.Empty(t, cfg.throttleRates)
}

func TestWithLoggerOverridesDefault(t *testing.T) {
	custom := defaultLogger()
	cfg, err := resolveChannelOptions([]ChannelOption{WithLogger(custom)})
	require.NoError(t, err)
	require.Same(t, custom, cfg.logger)
}

func TestWithMetricsEnables(t *testing.T) {
	cfg, err := resolveChannelOptions([]ChannelOption{WithMetrics(true)})
	require.NoError(t, err)
	require.True(t, cfg.metricsEnabled)
}

func TestWithSignalThrottleSetsRates(t *testing.T) {
	rates := map[time.Duration]int{time.Second: 10}
	cfg, err := resolveChannelOptions([]ChannelOption{WithSignalThrottle(rates)})
	require.NoError(t, err)
	require.Equal(t, rates, cfg.throttleRates)
}

func TestResolveChannelOptionsSkipsNil(t *testing.T) {
	cfg, err := resolveChannelOptions([]ChannelOption{nil, WithMetrics(true), nil})
	require.NoError(t, err)
	require.True(t, cfg.metricsEnabled)
}
