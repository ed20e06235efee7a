package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/oteladapters"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/promadapters"
	"github.com/AntonStoeckl/resource-allocations-go/config"
)

var errSettingUpTracingFailed = errors.New("setting up tracing failed")

// observability holds what the components are instrumented with.
// metrics, tracing, and metricsHandler stay nil unless observability is enabled.
type observability struct {
	logger         *slog.Logger
	metrics        allocation.MetricsCollector
	tracing        allocation.TracingCollector
	metricsHandler http.Handler
	shutdown       func(ctx context.Context) error
}

// newObservability logs to logOut. With observability enabled, spans are exported to traceOut,
// metrics are served for Prometheus, and log records carry the ids of the active span.
func newObservability(ctx context.Context, cfg config.Config, logOut io.Writer, traceOut io.Writer) (*observability, error) {
	handler := config.NewLogHandler(logOut, cfg.Log)

	if !cfg.Observability.Enabled {
		return &observability{
			logger:   slog.New(handler),
			shutdown: func(context.Context) error { return nil },
		}, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		return nil, errors.Join(errSettingUpTracingFailed, err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(traceOut))
	if err != nil {
		return nil, errors.Join(errSettingUpTracingFailed, err)
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &observability{
		logger:         slog.New(spanContextHandler{Handler: handler}),
		metrics:        promadapters.NewMetricsCollector(registry),
		tracing:        oteladapters.NewTracingCollector(tracerProvider.Tracer(serviceName)),
		metricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		shutdown:       tracerProvider.Shutdown,
	}, nil
}

// spanContextHandler adds trace_id and span_id to records logged inside a span.
type spanContextHandler struct {
	slog.Handler
}

func (h spanContextHandler) Handle(ctx context.Context, record slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	return h.Handler.Handle(ctx, record)
}

func (h spanContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return spanContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h spanContextHandler) WithGroup(name string) slog.Handler {
	return spanContextHandler{Handler: h.Handler.WithGroup(name)}
}

// withTraceContext continues traces started by the caller, as announced in the traceparent header.
func withTraceContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
