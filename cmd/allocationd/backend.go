package main

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/AntonStoeckl/resource-allocations-go/allocation"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/memengine"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/mongoengine"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/postgresengine"
	"github.com/AntonStoeckl/resource-allocations-go/allocation/sqliteengine"
	"github.com/AntonStoeckl/resource-allocations-go/config"
	"github.com/AntonStoeckl/resource-allocations-go/httpapi"
)

// backend is the storage selected by storage.engine.
type backend struct {
	store     allocation.Store
	users     allocation.UserDirectory
	resources allocation.ResourceCatalog
	ping      httpapi.ReadinessCheck
	closers   []func()
}

func (b *backend) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBackend connects to the configured engine, waits until it is reachable, and prepares its schema.
func openBackend(ctx context.Context, cfg config.Config, obs *observability) (*backend, error) {
	var (
		b   *backend
		err error
	)

	switch cfg.Storage.Engine {
	case config.EngineMemory:
		b = openMemory()
	case config.EnginePostgres:
		b, err = openPostgres(ctx, cfg.Storage.Postgres, obs)
	case config.EngineSQLite:
		b, err = openSQLite(ctx, cfg.Storage.SQLite, obs)
	case config.EngineMongo:
		b, err = openMongo(ctx, cfg.Storage.Mongo, obs)
	default:
		err = fmt.Errorf("%w: storage.engine %q is unknown", config.ErrInvalidConfig, cfg.Storage.Engine)
	}

	if err != nil {
		return nil, err
	}

	obs.logger.InfoContext(ctx, "storage ready", "engine", cfg.Storage.Engine)

	return b, nil
}

func openMemory() *backend {
	directory := memengine.NewDirectory()

	return &backend{store: memengine.NewStore(), users: directory, resources: directory}
}

func openPostgres(ctx context.Context, cfg config.PostgresConfig, obs *observability) (*backend, error) {
	b := &backend{}
	options := []postgresengine.Option{
		postgresengine.WithContextualLogger(obs.logger),
		postgresengine.WithMetrics(obs.metrics),
		postgresengine.WithTracing(obs.tracing),
	}

	var (
		store *postgresengine.Store
		err   error
	)

	switch cfg.Adapter {
	case config.AdapterSQLDB:
		db, openErr := config.PostgresSQLDB(cfg.DSN)
		if openErr != nil {
			return nil, openErr
		}

		b.closers = append(b.closers, func() { _ = db.Close() })
		b.ping = db.PingContext
		store, err = postgresengine.NewStoreFromSQLDB(db, options...)

	case config.AdapterSQLX:
		db, openErr := config.PostgresSQLX(cfg.DSN)
		if openErr != nil {
			return nil, openErr
		}

		b.closers = append(b.closers, func() { _ = db.Close() })
		b.ping = db.PingContext
		store, err = postgresengine.NewStoreFromSQLX(db, options...)

	default:
		store, err = openPGXPool(ctx, cfg, b, options)
	}

	if err != nil {
		b.close()
		return nil, err
	}

	if err = config.PingWithBackoff(ctx, config.PingFunc(b.ping), config.WithRetryLogger(obs.logger)); err != nil {
		b.close()
		return nil, err
	}

	if cfg.Migrate {
		if err = store.Migrate(ctx); err != nil {
			b.close()
			return nil, err
		}
	}

	directory := store.Directory()
	b.store, b.users, b.resources = store, directory, directory

	return b, nil
}

func openPGXPool(
	ctx context.Context,
	cfg config.PostgresConfig,
	b *backend,
	options []postgresengine.Option,
) (*postgresengine.Store, error) {
	primary, err := config.PostgresPGXPool(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}

	b.closers = append(b.closers, primary.Close)
	b.ping = primary.Ping

	if cfg.ReplicaDSN == "" {
		return postgresengine.NewStoreFromPGXPool(primary, options...)
	}

	replica, err := config.PostgresPGXPool(ctx, cfg.ReplicaDSN)
	if err != nil {
		return nil, err
	}

	b.closers = append(b.closers, replica.Close)

	return postgresengine.NewStoreFromPGXPoolWithReplica(primary, replica, options...)
}

func openSQLite(ctx context.Context, cfg config.SQLiteConfig, obs *observability) (*backend, error) {
	store, err := sqliteengine.Open(ctx, cfg.Path,
		sqliteengine.WithContextualLogger(obs.logger),
		sqliteengine.WithMetrics(obs.metrics),
		sqliteengine.WithTracing(obs.tracing),
	)
	if err != nil {
		return nil, err
	}

	directory := store.Directory()

	return &backend{
		store:     store,
		users:     directory,
		resources: directory,
		ping:      store.Ping,
		closers:   []func(){func() { _ = store.Close() }},
	}, nil
}

func openMongo(ctx context.Context, cfg config.MongoConfig, obs *observability) (*backend, error) {
	client, err := mongo.Connect(ctx, mongoopts.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Join(config.ErrConnectingFailed, err)
	}

	b := &backend{
		ping: func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
		closers: []func(){func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			_ = client.Disconnect(disconnectCtx)
		}},
	}

	if err = config.PingWithBackoff(ctx, config.PingFunc(b.ping), config.WithRetryLogger(obs.logger)); err != nil {
		b.close()
		return nil, err
	}

	store, err := mongoengine.NewStore(client.Database(cfg.Database),
		mongoengine.WithContextualLogger(obs.logger),
		mongoengine.WithMetrics(obs.metrics),
		mongoengine.WithTracing(obs.tracing),
	)
	if err != nil {
		b.close()
		return nil, err
	}

	if err = store.EnsureIndexes(ctx); err != nil {
		b.close()
		return nil, err
	}

	directory := store.Directory()
	b.store, b.users, b.resources = store, directory, directory

	return b, nil
}
