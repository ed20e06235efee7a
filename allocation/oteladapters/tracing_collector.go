package oteladapters

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
)

const attrOutcome = "allocation.outcome"

// TracingCollector starts one OpenTelemetry span per instrumented operation.
type TracingCollector struct {
	tracer trace.Tracer
}

// NewTracingCollector creates a collector on a tracer of the application's TracerProvider.
func NewTracingCollector(tracer trace.Tracer) *TracingCollector {
	return &TracingCollector{tracer: tracer}
}

func (t *TracingCollector) StartSpan(
	ctx context.Context,
	name string,
	attrs map[string]string,
) (context.Context, allocation.SpanContext) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attributes(attrs)...))

	return ctx, &SpanContext{span: span}
}

// FinishSpan ends the span. Span contexts of other collectors are ignored.
func (t *TracingCollector) FinishSpan(spanCtx allocation.SpanContext, status string, attrs map[string]string) {
	s, ok := spanCtx.(*SpanContext)
	if !ok {
		return
	}

	s.span.SetAttributes(attributes(attrs)...)
	s.SetStatus(status)
	s.span.End()
}

var _ allocation.TracingCollector = (*TracingCollector)(nil)

// SpanContext wraps an OpenTelemetry span.
type SpanContext struct {
	span trace.Span
}

// SetStatus maps the status label values onto span status codes and keeps the raw value in allocation.outcome.
// "rejected" leaves the code unset.
func (s *SpanContext) SetStatus(status string) {
	s.span.SetAttributes(attribute.String(attrOutcome, status))

	switch status {
	case allocation.StatusSuccess:
		s.span.SetStatus(codes.Ok, "")
	case allocation.StatusError:
		s.span.SetStatus(codes.Error, "operation failed")
	case allocation.StatusConflict:
		s.span.SetStatus(codes.Error, "resource conflict")
	}
}

func (s *SpanContext) AddAttribute(key, value string) {
	s.span.SetAttributes(attribute.String(key, value))
}

var _ allocation.SpanContext = (*SpanContext)(nil)
