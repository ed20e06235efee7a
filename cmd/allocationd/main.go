// Command allocationd serves the allocation API over HTTP.
//
// Usage:
//
//	allocationd -config /etc/allocationd.yaml
//
// Every config key can be overridden with an ALLOCATIONS_* environment variable, see package config.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AntonStoeckl/resource-allocations-go/allocation/guard"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/keylock"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/lifecycle"
	"github.com/AntonStoeckl/resource-allocations-go/config"
	"github.com/AntonStoeckl/resource-allocations-go/httpapi"
)

const (
	serviceName       = "allocationd"
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := newObservability(ctx, cfg, os.Stdout, os.Stderr)
	if err != nil {
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if shutdownErr := obs.shutdown(shutdownCtx); shutdownErr != nil {
			obs.logger.WarnContext(shutdownCtx, "flushing telemetry failed", "error", shutdownErr.Error())
		}
	}()

	b, err := openBackend(ctx, cfg, obs)
	if err != nil {
		return err
	}
	defer b.close()

	handler, err := newHandler(cfg, b, obs)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           newRouter(handler, obs.metricsHandler),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return serve(ctx, server, obs.logger)
}

// newHandler wires guard, manager, and transport. The manager uses the guard's Locker.
func newHandler(cfg config.Config, b *backend, obs *observability) (*httpapi.Handler, error) {
	g, err := guard.New(b.store, b.users, b.resources,
		guard.WithLocker(newLocker(cfg.Locking.Granularity)),
		guard.WithContextualLogger(obs.logger),
		guard.WithMetrics(obs.metrics),
		guard.WithTracing(obs.tracing),
	)
	if err != nil {
		return nil, err
	}

	manager, err := lifecycle.NewManager(b.store, g,
		lifecycle.WithContextualLogger(obs.logger),
		lifecycle.WithMetrics(obs.metrics),
		lifecycle.WithTracing(obs.tracing),
	)
	if err != nil {
		return nil, err
	}

	return httpapi.NewHandler(manager, g,
		httpapi.WithContextualLogger(obs.logger),
		httpapi.WithReadinessCheck(b.ping),
	)
}

func newLocker(granularity string) keylock.Locker {
	if granularity == config.GranularityGlobal {
		return keylock.NewGlobal()
	}

	return keylock.NewKeyed()
}

// newRouter serves api on every path. With metrics, observability is on: /metrics is added and
// incoming trace context is honored.
func newRouter(api http.Handler, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	if metrics == nil {
		mux.Handle("/", api)
		return mux
	}

	mux.Handle("/", withTraceContext(api))
	mux.Handle("GET /metrics", metrics)

	return mux
}

// serve runs server until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.InfoContext(groupCtx, "listening", "addr", server.Addr)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		logger.InfoContext(shutdownCtx, "shutting down")

		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
