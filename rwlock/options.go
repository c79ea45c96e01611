package rwlock

import (
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// OptionFunc is function type for a lock's optional settings
type OptionFunc func(*Lock)

// WithSuspender sets how a task waits for a queued request to be granted
func WithSuspender(s Suspender) OptionFunc {
	return func(l *Lock) {
		l.suspender = s
	}
}

// WithLogger sets a logger for debug-level queue events
func WithLogger(logger *zap.Logger) OptionFunc {
	return func(l *Lock) {
		l.logger = logger
	}
}

// WithMetrics sets the metrics the lock reports into
func WithMetrics(m *Metrics) OptionFunc {
	return func(l *Lock) {
		l.metrics = m
	}
}

// WithClock sets the clock used to measure queue wait times
func WithClock(clock clockwork.Clock) OptionFunc {
	return func(l *Lock) {
		l.clock = clock
	}
}
