package mongoengine

import (
	"github.com/AntonStoeckl/resource-allocations-go/allocation"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/internal/observe"
)

type collections struct {
	allocations string
	users       string
	resources   string
}

type settings struct {
	collections collections
	instruments observe.Instruments
}

// Option defines a functional option for configuring Store.
type Option func(*settings) error

// WithAllocationsCollection sets the name of the allocations collection.
func WithAllocationsCollection(name string) Option {
	return func(s *settings) error {
		if name == "" {
			return allocation.ErrEmptyTableName
		}

		s.collections.allocations = name

		return nil
	}
}

// WithUsersCollection sets the name of the users collection.
func WithUsersCollection(name string) Option {
	return func(s *settings) error {
		if name == "" {
			return allocation.ErrEmptyTableName
		}

		s.collections.users = name

		return nil
	}
}

// WithResourcesCollection sets the name of the resources collection.
func WithResourcesCollection(name string) Option {
	return func(s *settings) error {
		if name == "" {
			return allocation.ErrEmptyTableName
		}

		s.collections.resources = name

		return nil
	}
}

// WithLogger sets the logger for the Store. Commands are logged at debug level, failures at error level.
func WithLogger(logger allocation.Logger) Option {
	return func(s *settings) error {
		s.instruments.Logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Store. It takes precedence over WithLogger.
func WithContextualLogger(logger allocation.ContextualLogger) Option {
	return func(s *settings) error {
		s.instruments.ContextualLogger = logger
		return nil
	}
}

func WithMetrics(collector allocation.MetricsCollector) Option {
	return func(s *settings) error {
		s.instruments.Metrics = collector
		return nil
	}
}

func WithTracing(collector allocation.TracingCollector) Option {
	return func(s *settings) error {
		s.instruments.Tracing = collector
		return nil
	}
}
