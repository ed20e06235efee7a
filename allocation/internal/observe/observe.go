// Package observe holds the nil-safe instrumentation shared by the lifecycle manager and the consistency guard.
package observe

import (
	"context"
	"fmt"
	"time"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
)

const (
	logMsgOperationStarted   = "allocation operation started"
	logMsgOperationCompleted = "allocation operation completed"
	logMsgOperationRejected  = "allocation operation rejected"
	logMsgOperationFailed    = "allocation operation failed"

	logAttrOperation  = "operation"
	logAttrStatus     = "status"
	logAttrError      = "error"
	logAttrErrorKind  = "error_kind"
	logAttrDurationMS = "duration_ms"

	spanAttrDurationMS = "duration_ms"
	spanAttrError      = "error"
	spanAttrErrorKind  = "error_kind"
)

// Instruments bundles the optional observability collaborators.
// Every field may be nil, and so may a *Instruments passed to the Begin methods.
type Instruments struct {
	Logger           allocation.Logger
	ContextualLogger allocation.ContextualLogger
	Metrics          allocation.MetricsCollector
	Tracing          allocation.TracingCollector
}

// Operation is one instrumented call, started with Begin and closed with Finish.
type Operation struct {
	in    *Instruments
	ctx   context.Context
	name  string
	span  allocation.SpanContext
	start time.Time
}

// Begin starts a span (if tracing is configured) and logs the start at debug level.
// The returned context carries the span and must be used for the rest of the operation.
func (in *Instruments) Begin(ctx context.Context, name string, attrs map[string]string) (context.Context, *Operation) {
	if in == nil {
		in = &Instruments{}
	}

	op := &Operation{in: in, name: name, start: time.Now()}

	if in.Tracing != nil {
		spanAttrs := map[string]string{allocation.LabelOperation: name}
		for k, v := range attrs {
			spanAttrs[k] = v
		}

		ctx, op.span = in.Tracing.StartSpan(ctx, name, spanAttrs)
	}

	op.ctx = ctx
	in.logDebug(ctx, logMsgOperationStarted, logAttrOperation, name)

	return ctx, op
}

// Finish records duration and outcome metrics, closes the span, and logs the result.
// Expected business failures are logged at info level, everything else at error level.
func (op *Operation) Finish(err error) {
	duration := time.Since(op.start)
	status := allocation.StatusFor(err)

	op.recordMetrics(status, duration)
	op.finishSpan(status, err, duration)

	args := []any{logAttrOperation, op.name, logAttrStatus, status, logAttrDurationMS, ToMilliseconds(duration)}

	switch status {
	case allocation.StatusSuccess:
		op.in.logInfo(op.ctx, logMsgOperationCompleted, args...)
	case allocation.StatusError:
		op.in.logError(op.ctx, logMsgOperationFailed, append(args, logAttrError, err.Error())...)
	default:
		op.in.logInfo(op.ctx, logMsgOperationRejected, append(args,
			logAttrError, err.Error(),
			logAttrErrorKind, allocation.KindOf(err).String())...)
	}
}

func (op *Operation) recordMetrics(status string, duration time.Duration) {
	collector := op.in.Metrics
	if collector == nil {
		return
	}

	labels := map[string]string{
		allocation.LabelOperation: op.name,
		allocation.LabelStatus:    status,
	}

	op.in.recordDuration(op.ctx, allocation.MetricOperationDuration, duration, labels)
	op.in.incrementCounter(op.ctx, allocation.MetricOperationsTotal, labels)

	if status == allocation.StatusConflict {
		op.in.incrementCounter(op.ctx, allocation.MetricConflictsTotal, map[string]string{
			allocation.LabelOperation: op.name,
		})
	}
}

func (op *Operation) finishSpan(status string, err error, duration time.Duration) {
	if op.in.Tracing == nil || op.span == nil {
		return
	}

	attrs := map[string]string{
		spanAttrDurationMS: fmt.Sprintf("%.2f", ToMilliseconds(duration)),
	}

	if err != nil {
		attrs[spanAttrError] = err.Error()
		attrs[spanAttrErrorKind] = allocation.KindOf(err).String()
	}

	op.in.Tracing.FinishSpan(op.span, status, attrs)
}

// Warn logs a non-fatal problem, e.g., a failed cleanup.
func (in *Instruments) Warn(ctx context.Context, msg string, args ...any) {
	if in == nil {
		return
	}

	if in.ContextualLogger != nil {
		in.ContextualLogger.WarnContext(ctx, msg, args...)
	} else if in.Logger != nil {
		in.Logger.Warn(msg, args...)
	}
}

func (in *Instruments) logDebug(ctx context.Context, msg string, args ...any) {
	if in.ContextualLogger != nil {
		in.ContextualLogger.DebugContext(ctx, msg, args...)
	} else if in.Logger != nil {
		in.Logger.Debug(msg, args...)
	}
}

func (in *Instruments) logInfo(ctx context.Context, msg string, args ...any) {
	if in.ContextualLogger != nil {
		in.ContextualLogger.InfoContext(ctx, msg, args...)
	} else if in.Logger != nil {
		in.Logger.Info(msg, args...)
	}
}

func (in *Instruments) logError(ctx context.Context, msg string, args ...any) {
	if in.ContextualLogger != nil {
		in.ContextualLogger.ErrorContext(ctx, msg, args...)
	} else if in.Logger != nil {
		in.Logger.Error(msg, args...)
	}
}

// recordDuration uses the context-aware method if the collector supports it.
func (in *Instruments) recordDuration(ctx context.Context, metric string, d time.Duration, labels map[string]string) {
	if contextual, ok := in.Metrics.(allocation.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, metric, d, labels)
	} else {
		in.Metrics.RecordDuration(metric, d, labels)
	}
}

// incrementCounter uses the context-aware method if the collector supports it.
func (in *Instruments) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if contextual, ok := in.Metrics.(allocation.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
	} else {
		in.Metrics.IncrementCounter(metric, labels)
	}
}

// ToMilliseconds converts a time.Duration to float64 milliseconds.
func ToMilliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
