package observe

import (
	"context"
	"time"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
)

const (
	logMsgStatementExecuted = "executed statement for: "
	logMsgStatementFailed   = "database statement failed"
	logAttrStatement        = "statement"
	logAttrEngine           = "engine"
)

// StoreCall is one database round trip of a storage engine, started with BeginStoreCall.
type StoreCall struct {
	in        *Instruments
	ctx       context.Context
	engine    string
	operation string
	span      allocation.SpanContext
	start     time.Time
}

// BeginStoreCall starts a span for a database round trip if tracing is configured.
func (in *Instruments) BeginStoreCall(ctx context.Context, engine, operation string) (context.Context, *StoreCall) {
	if in == nil {
		in = &Instruments{}
	}

	call := &StoreCall{in: in, engine: engine, operation: operation, start: time.Now()}

	if in.Tracing != nil {
		ctx, call.span = in.Tracing.StartSpan(ctx, engine+"."+operation, map[string]string{
			allocation.LabelEngine:    engine,
			allocation.LabelOperation: operation,
		})
	}

	call.ctx = ctx

	return ctx, call
}

// Finish logs the statement at debug level and records the duration.
// Infrastructure failures are logged at error level and counted in allocation_store_errors_total,
// classified outcomes like "not found" or a unique violation mapped to a conflict are not.
func (c *StoreCall) Finish(statement string, err error) {
	duration := time.Since(c.start)
	status := allocation.StatusFor(err)

	c.in.logDebug(c.ctx, logMsgStatementExecuted+c.operation,
		logAttrEngine, c.engine,
		logAttrDurationMS, ToMilliseconds(duration),
		logAttrStatement, statement)

	if status == allocation.StatusError {
		c.in.logError(c.ctx, logMsgStatementFailed,
			logAttrEngine, c.engine,
			logAttrOperation, c.operation,
			logAttrError, err.Error(),
			logAttrStatement, statement)
	}

	if c.in.Metrics != nil {
		c.in.recordDuration(c.ctx, allocation.MetricStoreDuration, duration, map[string]string{
			allocation.LabelEngine:    c.engine,
			allocation.LabelOperation: c.operation,
			allocation.LabelStatus:    status,
		})

		if status == allocation.StatusError {
			c.in.incrementCounter(c.ctx, allocation.MetricStoreErrorsTotal, map[string]string{
				allocation.LabelEngine:    c.engine,
				allocation.LabelOperation: c.operation,
			})
		}
	}

	if c.in.Tracing != nil && c.span != nil {
		attrs := map[string]string{}
		if err != nil {
			attrs[spanAttrError] = err.Error()
		}

		c.in.Tracing.FinishSpan(c.span, status, attrs)
	}
}
