package oteladapters_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/oteladapters"
)

func newMeteredCollector() (*oteladapters.MetricsCollector, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return oteladapters.NewMetricsCollector(provider.Meter("test")), reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var resourceMetrics metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &resourceMetrics))

	byName := make(map[string]metricdata.Metrics)
	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			byName[m.Name] = m
		}
	}

	return byName
}

func Test_MetricsCollector_RecordDuration_InSeconds(t *testing.T) {
	// setup
	collector, reader := newMeteredCollector()

	// act
	collector.RecordDuration(allocation.MetricOperationDuration, 150*time.Millisecond, map[string]string{
		allocation.LabelOperation: "create_allocation",
		allocation.LabelStatus:    allocation.StatusSuccess,
	})

	// assert
	m := collect(t, reader)[allocation.MetricOperationDuration]
	assert.Equal(t, "s", m.Unit)
	assert.Equal(t, "Duration of allocation operations", m.Description)

	histogram, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, histogram.DataPoints, 1)
	assert.Equal(t, uint64(1), histogram.DataPoints[0].Count)
	assert.InDelta(t, 0.15, histogram.DataPoints[0].Sum, 0.001)

	expected := attribute.NewSet(
		attribute.String(allocation.LabelOperation, "create_allocation"),
		attribute.String(allocation.LabelStatus, allocation.StatusSuccess),
	)
	assert.True(t, histogram.DataPoints[0].Attributes.Equals(&expected))
}

func Test_MetricsCollector_IncrementCounter_Concurrently(t *testing.T) {
	// setup
	const n = 50
	collector, reader := newMeteredCollector()
	labels := map[string]string{allocation.LabelOperation: "create_allocation"}

	// act
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.IncrementCounterContext(context.Background(), allocation.MetricConflictsTotal, labels)
		}()
	}
	wg.Wait()

	// assert
	sum, ok := collect(t, reader)[allocation.MetricConflictsTotal].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(n), sum.DataPoints[0].Value)
	assert.True(t, sum.IsMonotonic)
}

func Test_MetricsCollector_RecordValue_KeepsTheLastValue(t *testing.T) {
	// setup
	collector, reader := newMeteredCollector()

	// act
	collector.RecordValue("allocation_open_total", 3, nil)
	collector.RecordValue("allocation_open_total", 5, nil)

	// assert
	m := collect(t, reader)["allocation_open_total"]
	assert.Equal(t, "allocation open total", m.Description)

	gauge, ok := m.Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.InDelta(t, 5.0, gauge.DataPoints[0].Value, 0.0001)
}
