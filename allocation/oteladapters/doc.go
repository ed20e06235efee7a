// Package oteladapters connects the observability interfaces of the allocation packages to OpenTelemetry.
//
//   - SlogBridgeLogger and OTelLogger implement allocation.ContextualLogger, so log records carry
//     the trace and span ids of the surrounding operation.
//   - MetricsCollector implements allocation.ContextualMetricsCollector on an OpenTelemetry meter.
//   - TracingCollector implements allocation.TracingCollector on an OpenTelemetry tracer.
//
// Example:
//
//	manager, err := lifecycle.NewManager(store, g,
//		lifecycle.WithContextualLogger(oteladapters.NewSlogBridgeLogger("allocationd")),
//		lifecycle.WithMetrics(oteladapters.NewMetricsCollector(otel.Meter("allocationd"))),
//		lifecycle.WithTracing(oteladapters.NewTracingCollector(otel.Tracer("allocationd"))),
//	)
package oteladapters
