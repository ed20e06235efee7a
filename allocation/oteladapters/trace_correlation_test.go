package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/guard"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/lifecycle"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/memengine"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/oteladapters"
	"github.com/AntonStoeckl/resource-allocations-go/testutil/helper"
)

func Test_Manager_WithOpenTelemetry_NestsGuardSpansUnderTheOperation(t *testing.T) {
	// setup
	ctx := context.Background()
	exporter := tracetest.NewInMemoryExporter()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)).Tracer("test")
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")
	recorder := &recordingLogger{}

	tracing := oteladapters.NewTracingCollector(tracer)
	metrics := oteladapters.NewMetricsCollector(meter)
	logger := oteladapters.NewOTelLogger(recorder)

	store := memengine.NewStore()
	directory := memengine.NewDirectory()
	g, err := guard.New(store, directory, directory, guard.WithTracing(tracing))
	require.NoError(t, err)
	manager, err := lifecycle.NewManager(store, g,
		lifecycle.WithTracing(tracing),
		lifecycle.WithMetrics(metrics),
		lifecycle.WithContextualLogger(logger))
	require.NoError(t, err)

	u := helper.GivenActiveUser(t, ctx, directory)
	r := helper.GivenBook(t, ctx, directory)

	// act
	_, err = manager.CreateAllocation(ctx, u.ID, r.ID)

	// assert
	require.NoError(t, err)

	spans := exporter.GetSpans()
	byName := make(map[string]tracetest.SpanStub)
	for _, span := range spans {
		byName[span.Name] = span
	}

	parent, ok := byName["create_allocation"]
	require.True(t, ok)
	child, ok := byName["validate_user_eligible"]
	require.True(t, ok)
	assert.Equal(t, parent.SpanContext.TraceID(), child.SpanContext.TraceID())
	assert.Equal(t, parent.SpanContext.SpanID(), child.Parent.SpanID())

	var resourceMetrics metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &resourceMetrics))
	require.NotEmpty(t, resourceMetrics.ScopeMetrics)

	names := make([]string, 0)
	for _, m := range resourceMetrics.ScopeMetrics[0].Metrics {
		names = append(names, m.Name)
	}
	assert.Contains(t, names, allocation.MetricOperationsTotal)
	assert.Contains(t, names, allocation.MetricOperationDuration)

	assert.NotEmpty(t, recorder.records)
}
