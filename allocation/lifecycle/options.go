package lifecycle

import (
	"time"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
)

// Option defines a functional option for configuring Manager.
type Option func(*Manager) error

// WithClock replaces the source of start and end times. Returned times should be UTC.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) error {
		if clock == nil {
			return ErrNilClock
		}

		m.clock = clock

		return nil
	}
}

// WithLogger sets the logger for the Manager.
// Debug level: operation starts.
// Info level: completed and rejected operations with durations.
// Error level: failures caused by the store or other infrastructure.
func WithLogger(logger allocation.Logger) Option {
	return func(m *Manager) error {
		m.obs.Logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Manager. It takes precedence over WithLogger.
func WithContextualLogger(logger allocation.ContextualLogger) Option {
	return func(m *Manager) error {
		m.obs.ContextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Manager.
func WithMetrics(collector allocation.MetricsCollector) Option {
	return func(m *Manager) error {
		m.obs.Metrics = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Manager.
func WithTracing(collector allocation.TracingCollector) Option {
	return func(m *Manager) error {
		m.obs.Tracing = collector
		return nil
	}
}
