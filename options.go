// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package rchannel

import "time"

// channelOptions holds the resolved configuration for a new Channel.
type channelOptions struct {
	logger         *Logger
	metricsEnabled bool
	throttleRates  map[time.Duration]int
}

// ChannelOption configures a Channel at creation time.
type ChannelOption interface {
	applyChannel(*channelOptions) error
}

type channelOptionFunc func(*channelOptions) error

func (f channelOptionFunc) applyChannel(opts *channelOptions) error {
	return f(opts)
}

// WithLogger attaches l as the channel's logiface logger, in place of the
// package default (a stderr zerolog backend at informational level).
func WithLogger(l *Logger) ChannelOption {
	return channelOptionFunc(func(opts *channelOptions) error {
		opts.logger = l
		return nil
	})
}

// WithMetrics enables reply-latency percentile tracking on the channel,
// retrievable via Channel.Latency.
func WithMetrics(enabled bool) ChannelOption {
	return channelOptionFunc(func(opts *channelOptions) error {
		opts.metricsEnabled = enabled
		return nil
	})
}

// WithSignalThrottle enables the optional rule-3 signal skip described in
// spec.md §4.6 and §9: a sliding-window rate limit on DATA_TO_RESPONDER/
// DATA_TO_REQUESTOR signals, keyed by channel ID, on top of the coalescing
// predicate every channel already applies. Disabled by default, matching
// the spec's recommendation to keep it off until a concrete deployment
// shows it's needed (the original implementation shipped it disabled too).
func WithSignalThrottle(rates map[time.Duration]int) ChannelOption {
	return channelOptionFunc(func(opts *channelOptions) error {
		opts.throttleRates = rates
		return nil
	})
}

// resolveChannelOptions applies opts over the package defaults.
func resolveChannelOptions(opts []ChannelOption) (*channelOptions, error) {
	cfg := &channelOptions{
		logger: defaultLogger(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyChannel(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
