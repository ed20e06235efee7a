package oteladapters_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/noop"

	"github.com/AntonStoeckl/resource-allocations-go/allocation/oteladapters"
)

// emittedRecord is what recordingLogger copies out of a log.Record during Emit.
type emittedRecord struct {
	severity log.Severity
	body     string
	attrs    map[string]log.Value
}

// recordingLogger keeps every emitted record.
type recordingLogger struct {
	noop.Logger

	mu      sync.Mutex
	records []emittedRecord
}

func (l *recordingLogger) Emit(_ context.Context, record log.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, emittedRecord{
		severity: record.Severity(),
		body:     record.Body().AsString(),
		attrs:    attrsOf(record),
	})
}

func attrsOf(record log.Record) map[string]log.Value {
	attrs := make(map[string]log.Value)
	record.WalkAttributes(func(kv log.KeyValue) bool {
		attrs[kv.Key] = kv.Value
		return true
	})

	return attrs
}

func Test_SlogBridgeLogger_WritesAllLevelsToTheHandler(t *testing.T) {
	// setup
	var buf bytes.Buffer
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(
		slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := context.Background()

	// act
	logger.DebugContext(ctx, "debug message", "operation", "create_allocation")
	logger.InfoContext(ctx, "info message")
	logger.WarnContext(ctx, "warn message")
	logger.ErrorContext(ctx, "error message")

	// assert
	output := buf.String()
	assert.Contains(t, output, `"level":"DEBUG","msg":"debug message","operation":"create_allocation"`)
	assert.Contains(t, output, `"level":"INFO","msg":"info message"`)
	assert.Contains(t, output, `"level":"WARN","msg":"warn message"`)
	assert.Contains(t, output, `"level":"ERROR","msg":"error message"`)
}

func Test_SlogBridgeLogger_OnGlobalProviderDoesNotPanic(t *testing.T) {
	logger := oteladapters.NewSlogBridgeLogger("allocation-test")

	assert.NotPanics(t, func() {
		logger.InfoContext(context.Background(), "allocation operation completed", "operation", "end_allocation")
	})
}

func Test_OTelLogger_EmitsSeverityBodyAndTypedAttributes(t *testing.T) {
	// setup
	recorder := &recordingLogger{}
	logger := oteladapters.NewOTelLogger(recorder)
	ctx := context.Background()

	// act
	logger.InfoContext(ctx, "allocation operation completed",
		"operation", "create_allocation",
		"duration_ms", 1.5,
		"attempt", 2,
		"retried", false,
		"error", errors.New("boom"),
	)
	logger.DebugContext(ctx, "debug")
	logger.WarnContext(ctx, "warn")
	logger.ErrorContext(ctx, "error")

	// assert
	require.Len(t, recorder.records, 4)

	info := recorder.records[0]
	assert.Equal(t, log.SeverityInfo, info.severity)
	assert.Equal(t, "allocation operation completed", info.body)

	attrs := info.attrs
	assert.Equal(t, "create_allocation", attrs["operation"].AsString())
	assert.InDelta(t, 1.5, attrs["duration_ms"].AsFloat64(), 0.0001)
	assert.Equal(t, int64(2), attrs["attempt"].AsInt64())
	assert.False(t, attrs["retried"].AsBool())
	assert.Equal(t, "boom", attrs["error"].AsString())

	assert.Equal(t, log.SeverityDebug, recorder.records[1].severity)
	assert.Equal(t, log.SeverityWarn, recorder.records[2].severity)
	assert.Equal(t, log.SeverityError, recorder.records[3].severity)
}

func Test_OTelLogger_DropsMalformedPairs(t *testing.T) {
	// setup
	recorder := &recordingLogger{}
	logger := oteladapters.NewOTelLogger(recorder)

	// act
	logger.InfoContext(context.Background(), "message", 42, "value", "kept", "yes", "dangling")

	// assert
	require.Len(t, recorder.records, 1)
	attrs := recorder.records[0].attrs
	assert.Len(t, attrs, 1)
	assert.Equal(t, "yes", attrs["kept"].AsString())
}
