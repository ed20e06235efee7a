package guard

import (
	"github.com/AntonStoeckl/resource-allocations-go/allocation"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/keylock"
)

// Option defines a functional option for configuring Guard.
type Option func(*Guard) error

// WithLocker replaces the default per-resource Locker, e.g., with keylock.NewGlobal().
func WithLocker(locker keylock.Locker) Option {
	return func(g *Guard) error {
		if locker == nil {
			return ErrNilLocker
		}

		g.locker = locker

		return nil
	}
}

// WithLogger sets the logger for the Guard.
func WithLogger(logger allocation.Logger) Option {
	return func(g *Guard) error {
		g.obs.Logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Guard. It takes precedence over WithLogger.
func WithContextualLogger(logger allocation.ContextualLogger) Option {
	return func(g *Guard) error {
		g.obs.ContextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Guard.
func WithMetrics(collector allocation.MetricsCollector) Option {
	return func(g *Guard) error {
		g.obs.Metrics = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Guard.
func WithTracing(collector allocation.TracingCollector) Option {
	return func(g *Guard) error {
		g.obs.Tracing = collector
		return nil
	}
}
