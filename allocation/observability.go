package allocation

import (
	"context"
	"strings"
	"time"
)

// Logger interface for SQL query logging, operational information, warnings, and error reporting.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ContextualLogger interface for context-aware logging with automatic trace correlation.
// *slog.Logger satisfies it as well.
type ContextualLogger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// MetricsCollector interface for collecting performance and operational metrics.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}

// ContextualMetricsCollector extends MetricsCollector with context-aware methods for trace correlation.
// It is optional; instrumented components fall back to MetricsCollector when it is not implemented.
type ContextualMetricsCollector interface {
	MetricsCollector
	RecordDurationContext(ctx context.Context, metric string, duration time.Duration, labels map[string]string)
	IncrementCounterContext(ctx context.Context, metric string, labels map[string]string)
	RecordValueContext(ctx context.Context, metric string, value float64, labels map[string]string)
}

// SpanContext represents an active tracing span that can be finished and updated with attributes.
type SpanContext interface {
	SetStatus(status string)
	AddAttribute(key, value string)
}

// TracingCollector interface for collecting distributed tracing information.
type TracingCollector interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, SpanContext)
	FinishSpan(spanCtx SpanContext, status string, attrs map[string]string)
}

// Metric names and label values shared by the instrumented components.
const (
	MetricOperationDuration = "allocation_operation_duration_seconds"
	MetricOperationsTotal   = "allocation_operations_total"
	MetricConflictsTotal    = "allocation_conflicts_total"
	MetricStoreDuration     = "allocation_store_duration_seconds"
	MetricStoreErrorsTotal  = "allocation_store_errors_total"

	LabelOperation = "operation"
	LabelStatus    = "status"
	LabelErrorKind = "error_kind"
	LabelEngine    = "engine"

	StatusSuccess  = "success"
	StatusError    = "error"
	StatusConflict = "conflict"
	StatusRejected = "rejected"
)

// StatusFor maps an operation result onto one of the status label values.
// Conflicts get their own status, other expected business failures are "rejected".
func StatusFor(err error) string {
	if err == nil {
		return StatusSuccess
	}

	switch KindOf(err) {
	case KindConflict:
		return StatusConflict
	case KindInternal:
		return StatusError
	default:
		return StatusRejected
	}
}

// MetricHelp returns the description of a metric name for exporters that need one.
func MetricHelp(metric string) string {
	switch metric {
	case MetricOperationDuration:
		return "Duration of allocation operations"
	case MetricOperationsTotal:
		return "Allocation operations by outcome"
	case MetricConflictsTotal:
		return "Allocation operations rejected because the resource was taken or referenced"
	case MetricStoreDuration:
		return "Duration of storage engine round trips"
	case MetricStoreErrorsTotal:
		return "Failed storage engine round trips"
	default:
		return strings.ReplaceAll(metric, "_", " ")
	}
}
