package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/resource-allocations-go/allocation/keylock"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/memengine"
	"github.com/AntonStoeckl/resource-allocations-go/config"
	"github.com/AntonStoeckl/resource-allocations-go/testutil/helper"
)

func Test_NewLocker_FollowsGranularity(t *testing.T) {
	assert.IsType(t, &keylock.Global{}, newLocker(config.GranularityGlobal))
	assert.IsType(t, &keylock.Keyed{}, newLocker(config.GranularityResource))
}

func Test_OpenBackend_SQLite(t *testing.T) {
	// setup
	ctx := context.Background()
	cfg := config.Default()
	cfg.Storage.Engine = config.EngineSQLite
	cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "data", "allocations.db")
	obs, err := newObservability(context.Background(), cfg, io.Discard, io.Discard)
	require.NoError(t, err)

	// act
	b, err := openBackend(ctx, cfg, obs)

	// assert
	require.NoError(t, err)
	t.Cleanup(b.close)
	assert.NoError(t, b.ping(ctx))

	all, err := b.store.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func Test_OpenBackend_RejectsUnknownEngine(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Engine = "redis"
	obs, err := newObservability(context.Background(), cfg, io.Discard, io.Discard)
	require.NoError(t, err)

	_, err = openBackend(context.Background(), cfg, obs)

	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func Test_NewObservability_DisabledLeavesCollectorsUnset(t *testing.T) {
	obs, err := newObservability(context.Background(), config.Default(), io.Discard, io.Discard)

	require.NoError(t, err)
	assert.Nil(t, obs.metrics)
	assert.Nil(t, obs.tracing)
	assert.Nil(t, obs.metricsHandler)
	assert.NoError(t, obs.shutdown(context.Background()))
}

func Test_NewObservability_LogsCarrySpanIDs(t *testing.T) {
	// setup
	var logs bytes.Buffer
	cfg := config.Default()
	cfg.Observability.Enabled = true
	obs, err := newObservability(context.Background(), cfg, &logs, io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { _ = obs.shutdown(context.Background()) })

	// act
	ctx, span := otel.Tracer("test").Start(context.Background(), "operation")
	obs.logger.InfoContext(ctx, "inside")
	span.End()
	obs.logger.InfoContext(context.Background(), "outside")

	// assert
	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"trace_id":"`+span.SpanContext().TraceID().String()+`"`)
	assert.Contains(t, lines[0], `"span_id":"`+span.SpanContext().SpanID().String()+`"`)
	assert.NotContains(t, lines[1], "trace_id")
}

func Test_Daemon_ServesTheAPIAndMetrics(t *testing.T) {
	// setup
	ctx := context.Background()
	cfg := config.Default()
	cfg.Observability.Enabled = true
	obs, err := newObservability(context.Background(), cfg, io.Discard, io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { _ = obs.shutdown(context.Background()) })

	b, err := openBackend(ctx, cfg, obs)
	require.NoError(t, err)

	directory, ok := b.users.(*memengine.Directory)
	require.True(t, ok)
	user := helper.GivenActiveUser(t, ctx, directory)
	book := helper.GivenBook(t, ctx, directory)

	handler, err := newHandler(cfg, b, obs)
	require.NoError(t, err)

	server := httptest.NewServer(newRouter(handler, obs.metricsHandler))
	t.Cleanup(server.Close)

	// act
	created, err := http.Post(server.URL+"/api/v1/allocations", "application/json",
		strings.NewReader(`{"userId":"`+user.ID+`","resourceId":"`+book.ID+`"}`))
	require.NoError(t, err)
	_ = created.Body.Close()

	conflict, err := http.Post(server.URL+"/api/v1/allocations", "application/json",
		strings.NewReader(`{"userId":"`+user.ID+`","resourceId":"`+book.ID+`"}`))
	require.NoError(t, err)
	_ = conflict.Body.Close()

	metrics, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(metrics.Body)
	_ = metrics.Body.Close()
	require.NoError(t, err)

	// assert
	assert.Equal(t, http.StatusOK, created.StatusCode)
	assert.Equal(t, http.StatusConflict, conflict.StatusCode)
	assert.Equal(t, http.StatusOK, metrics.StatusCode)
	assert.Contains(t, string(body), `allocation_operations_total{operation="create_allocation",status="success"} 1`)
	assert.Contains(t, string(body), `allocation_operations_total{operation="create_allocation",status="conflict"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func Test_Router_ContinuesIncomingTraces(t *testing.T) {
	// setup
	cfg := config.Default()
	cfg.Observability.Enabled = true
	obs, err := newObservability(context.Background(), cfg, io.Discard, io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { _ = obs.shutdown(context.Background()) })

	var seen string
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = trace.SpanContextFromContext(r.Context()).TraceID().String()
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/allocations", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	resp := httptest.NewRecorder()

	// act
	newRouter(api, obs.metricsHandler).ServeHTTP(resp, req)

	// assert
	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", seen)
}
