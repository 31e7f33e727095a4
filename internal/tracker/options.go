package tracker

import (
	"time"

	"github.com/Iron-Ham/initiative/internal/coordinator"
	"github.com/Iron-Ham/initiative/internal/event"
	"github.com/Iron-Ham/initiative/internal/logging"
	"github.com/Iron-Ham/initiative/internal/metrics"
	"github.com/Iron-Ham/initiative/internal/model"
	"github.com/Iron-Ham/initiative/internal/ring"
)

type options struct {
	bus          *event.Bus
	logger       *logging.Logger
	metrics      metrics.Collector
	debounce     time.Duration
	pollAttempts int
	pollDelay    time.Duration
	touchRange   float64
	defaults     model.Defaults
	autoSync     bool
}

func defaultOptions() options {
	return options{
		logger:       logging.NopLogger(),
		metrics:      metrics.NewNop(),
		debounce:     coordinator.DefaultDebounce,
		pollAttempts: ring.DefaultPollAttempts,
		pollDelay:    ring.DefaultPollDelay,
		touchRange:   ring.DefaultTouchRange,
		defaults:     model.DefaultRingDefaults(),
	}
}

// Option configures a Tracker.
type Option func(*options)

// WithBus publishes tracker events on bus.
func WithBus(bus *event.Bus) Option {
	return func(o *options) {
		if bus != nil {
			o.bus = bus
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m metrics.Collector) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithDebounce sets the ring pass debounce delay.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.debounce = d
		}
	}
}

// WithDeletePoll sets the deletion confirmation polling.
func WithDeletePoll(attempts int, delay time.Duration) Option {
	return func(o *options) {
		if attempts > 0 {
			o.pollAttempts = attempts
		}
		if delay >= 0 {
			o.pollDelay = delay
		}
	}
}

// WithTouchRange sets the attack distance of touch attackers.
func WithTouchRange(units float64) Option {
	return func(o *options) {
		if units >= 0 {
			o.touchRange = units
		}
	}
}

// WithRingDefaults sets the ring settings given to migrated participants.
func WithRingDefaults(d model.Defaults) Option {
	return func(o *options) {
		o.defaults = d
	}
}

// WithAutoSync resynchronizes the turn rings on every participant store
// change, local or remote.
func WithAutoSync(enabled bool) Option {
	return func(o *options) {
		o.autoSync = enabled
	}
}
