package postgresengine

import (
	"github.com/AntonStoeckl/resource-allocations-go/allocation"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/internal/observe"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/internal/sqlstore"
)

type settings struct {
	tables      sqlstore.Tables
	instruments observe.Instruments
}

// Option defines a functional option for configuring Store.
type Option func(*settings) error

// WithAllocationsTable sets the name of the allocations table.
func WithAllocationsTable(tableName string) Option {
	return func(s *settings) error {
		if tableName == "" {
			return allocation.ErrEmptyTableName
		}

		s.tables.Allocations = tableName

		return nil
	}
}

// WithUsersTable sets the name of the users table.
func WithUsersTable(tableName string) Option {
	return func(s *settings) error {
		if tableName == "" {
			return allocation.ErrEmptyTableName
		}

		s.tables.Users = tableName

		return nil
	}
}

// WithResourcesTable sets the name of the resources table.
func WithResourcesTable(tableName string) Option {
	return func(s *settings) error {
		if tableName == "" {
			return allocation.ErrEmptyTableName
		}

		s.tables.Resources = tableName

		return nil
	}
}

// WithLogger sets the logger for the Store.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Warn level: Non-critical issues like cleanup failures
// Error level: Failed statements.
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

// WithMetrics sets the metrics collector for the Store.
// It receives statement durations and database errors.
func WithMetrics(collector allocation.MetricsCollector) Option {
	return func(s *settings) error {
		s.instruments.Metrics = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Store. Every database round trip becomes a span.
func WithTracing(collector allocation.TracingCollector) Option {
	return func(s *settings) error {
		s.instruments.Tracing = collector
		return nil
	}
}
